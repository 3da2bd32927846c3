package config

import (
	"io/ioutil"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Server struct {
	Addr string `yaml:"addr"`
	// directory with static files served under /, empty to disable
	Data string `yaml:"data"`
}

type Config struct {
	Server Server `yaml:"server"`

	// frames per second used for glTF seconds to frames conversion
	FPS float64 `yaml:"fps"`

	Start  int    `yaml:"start"`
	End    int    `yaml:"end"`
	Driver string `yaml:"driver"`

	// frame of pose snapshot for fbx export, current time when zero
	ExportFrame float64 `yaml:"export_frame"`

	// charmap name of script files, utf-8 when empty
	ScriptEncoding string `yaml:"script_encoding"`

	AutoConfirm bool `yaml:"auto_confirm"`
	Debug       bool `yaml:"debug"`
}

func Default() *Config {
	return &Config{
		Server: Server{Addr: ":8000"},
		FPS:    24,
		Start:  1001,
		End:    1010,
	}
}

// Parse overlays yaml data on top of defaults
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "Failed to parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Load(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read config")
	}
	return Parse(data)
}

func (c *Config) Validate() error {
	if c.FPS <= 0 {
		return errors.Errorf("Invalid fps %v", c.FPS)
	}
	if c.Start >= c.End {
		return errors.Errorf("Invalid default range [%d, %d]", c.Start, c.End)
	}
	if c.ScriptEncoding != "" {
		if _, err := FindEncoding(c.ScriptEncoding); err != nil {
			return err
		}
	}
	return nil
}
