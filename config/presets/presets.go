package presets

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spacemeshos/go-antientropy/config"
)

var presets = map[string]config.Config{}

func register(name string, preset config.Config) {
	if _, exist := presets[name]; exist {
		panic(fmt.Sprintf("preset with name %s already exists", name))
	}
	presets[name] = preset
}

// Options returns the names of registered presets.
func Options() []string {
	return slices.Sorted(maps.Keys(presets))
}

// Get returns the named preset.
func Get(name string) (config.Config, error) {
	preset, exist := presets[name]
	if !exist {
		return config.Config{}, fmt.Errorf("preset %s doesn't exist", name)
	}
	return preset, nil
}
