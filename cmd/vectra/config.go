package main

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// config holds the conversion defaults that can be supplied through a TOML
// file. Command line flags override any value set here.
type config struct {
	Mode          string  `toml:"mode"`
	MaxColors     int     `toml:"max_colors"`
	Tolerance     float64 `toml:"tolerance"`
	Blur          int     `toml:"blur"`
	Stroke        float64 `toml:"stroke"`
	Layers        bool    `toml:"layers"`
	Naming        string  `toml:"naming"`
	MaxSize       int     `toml:"max_size"`
	Dialect       string  `toml:"dialect"`
	Refine        bool    `toml:"refine"`
	MonoThreshold int     `toml:"mono_threshold"`
	MonoInvert    bool    `toml:"mono_invert"`
	Classifier    string  `toml:"classifier"`
	FaceAngle     float64 `toml:"face_angle"`
	Seed          int64   `toml:"seed"`
}

func defaultConfig() config {
	return config{
		Mode:      "color",
		MaxColors: 8,
		Tolerance: 1.0,
		Layers:    true,
		Naming:    "color",
		MaxSize:   1024,
		Dialect:   "plain",
	}
}

// loadConfig overlays the TOML file at path on top of cfg.
func loadConfig(path string, cfg *config) error {
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
	}
	return nil
}
