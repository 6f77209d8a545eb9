package cmd

import (
	"fmt"

	"github.com/spf13/pflag"
)

type savedFlag struct {
	flag  *pflag.Flag
	value string
	slice []string
}

// ChangedFlags remembers the values of flags set on the command line so that
// they can be applied again on top of values loaded from other sources.
type ChangedFlags []savedFlag

// SaveChanged records every flag in flagSet that was set on the command line.
func SaveChanged(flagSet *pflag.FlagSet) ChangedFlags {
	var saved ChangedFlags
	flagSet.Visit(func(f *pflag.Flag) {
		s := savedFlag{flag: f}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			s.slice = append([]string(nil), sv.GetSlice()...)
		} else {
			s.value = f.Value.String()
		}
		saved = append(saved, s)
	})
	return saved
}

// Apply writes the saved values back through the flags.
func (c ChangedFlags) Apply() error {
	for _, s := range c {
		if sv, ok := s.flag.Value.(pflag.SliceValue); ok {
			if err := sv.Replace(s.slice); err != nil {
				return fmt.Errorf("flag --%s: %w", s.flag.Name, err)
			}
			continue
		}
		if err := s.flag.Value.Set(s.value); err != nil {
			return fmt.Errorf("flag --%s: %w", s.flag.Name, err)
		}
	}
	return nil
}
