package utils

import (
	"math/rand"

	"github.com/Pallinder/go-randomdata"
)

// NameGenerator hands out node names that were not used before
type NameGenerator struct {
	used map[string]struct{}
}

// NewNameGenerator seeds randomdata so imported names are stable between runs
func NewNameGenerator(seed int64) *NameGenerator {
	randomdata.CustomRand(rand.New(rand.NewSource(seed)))
	return &NameGenerator{used: make(map[string]struct{})}
}

func (g *NameGenerator) exists(name string) bool {
	_, ok := g.used[name]
	return ok
}

// Unique returns name itself when it is free, random silly name when name
// is empty, and name with random suffix otherwise
func (g *NameGenerator) Unique(name string) string {
	candidate := name
	for candidate == "" || g.exists(candidate) {
		if name == "" {
			candidate = randomdata.SillyName()
		} else {
			candidate = name + "_" + randomdata.SillyName()
		}
	}
	g.used[candidate] = struct{}{}
	return candidate
}
