package config

import (
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
)

var encodingNameReplacer = strings.NewReplacer("-", " ", "_", " ")

// FindEncoding looks charmap up by name, "windows-1252" matches "Windows 1252"
func FindEncoding(name string) (*charmap.Charmap, error) {
	name = encodingNameReplacer.Replace(name)
	for _, enc := range charmap.All {
		if cm, ok := enc.(*charmap.Charmap); ok {
			if strings.EqualFold(encodingNameReplacer.Replace(cm.String()), name) {
				return cm, nil
			}
		}
	}
	return nil, errors.Errorf("Failed to find encoding %q", name)
}

func ListEncodings() []string {
	list := make([]string, 0)
	for _, enc := range charmap.All {
		if cm, ok := enc.(*charmap.Charmap); ok {
			list = append(list, cm.String())
		}
	}
	return list
}

// DecodeScript converts script file contents to utf-8
func (c *Config) DecodeScript(data []byte) (string, error) {
	if c.ScriptEncoding == "" || strings.EqualFold(c.ScriptEncoding, "utf-8") {
		return string(data), nil
	}
	cm, err := FindEncoding(c.ScriptEncoding)
	if err != nil {
		return "", err
	}
	out, err := cm.NewDecoder().Bytes(data)
	if err != nil {
		return "", errors.Wrapf(err, "Failed to decode script as %v", cm)
	}
	return string(out), nil
}
