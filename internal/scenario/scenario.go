// Package scenario ships built-in drug presets for quick simulation setup.
package scenario

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"go-pbpk-popsim/internal/pbpk"
)

//go:embed presets.toml
var presetsTOML []byte

// Preset is one built-in drug scenario.
type Preset struct {
	Name           string  `toml:"name" json:"name"`
	Description    string  `toml:"description" json:"description"`
	LogP           float64 `toml:"log_p" json:"log_p"`
	Fu             float64 `toml:"f_u" json:"f_u"`
	Vd             float64 `toml:"v_d" json:"v_d"`
	Ka             float64 `toml:"k_a" json:"k_a"`
	F              float64 `toml:"f" json:"f"`
	Dose           float64 `toml:"dose" json:"dose"`
	MW             float64 `toml:"mw" json:"mw"`
	ToxicThreshold float64 `toml:"toxic_threshold" json:"toxic_threshold"`
}

// DrugParams converts the preset into model drug parameters.
func (p Preset) DrugParams() pbpk.DrugParams {
	return pbpk.DrugParams{
		Name: p.Name,
		LogP: p.LogP,
		Fu:   p.Fu,
		Vd:   p.Vd,
		Ka:   p.Ka,
		F:    p.F,
		MW:   p.MW,
	}
}

type presetFile struct {
	Presets []Preset `toml:"preset"`
}

var (
	loadOnce sync.Once
	loaded   []Preset
	loadErr  error
)

func load() ([]Preset, error) {
	loadOnce.Do(func() {
		var file presetFile
		if err := toml.Unmarshal(presetsTOML, &file); err != nil {
			loadErr = fmt.Errorf("parse embedded presets: %w", err)
			return
		}
		loaded = file.Presets
	})
	return loaded, loadErr
}

// Presets returns every built-in preset in file order.
func Presets() ([]Preset, error) {
	return load()
}

// Find returns the preset matching name, case-insensitively.
func Find(name string) (*Preset, error) {
	presets, err := load()
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	for i := range presets {
		if strings.EqualFold(presets[i].Name, name) {
			return &presets[i], nil
		}
	}
	return nil, fmt.Errorf("unknown preset: %s", name)
}
