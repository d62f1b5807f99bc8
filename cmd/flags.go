package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// formatValue is a pflag.Value restricted to a fixed set of choices.
type formatValue struct {
	value   string
	allowed []string
}

var _ pflag.Value = (*formatValue)(nil)

func newFormatValue(def string, allowed ...string) *formatValue {
	return &formatValue{value: def, allowed: allowed}
}

func (f *formatValue) String() string { return f.value }

func (f *formatValue) Set(v string) error {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, a := range f.allowed {
		if v == a {
			f.value = v
			return nil
		}
	}
	return fmt.Errorf("invalid format %q, must be one of: %s", v, strings.Join(f.allowed, ", "))
}

func (f *formatValue) Type() string { return "format" }

// addFormatFlag registers a validated --<name>/-<short> format flag.
func addFormatFlag(flags *pflag.FlagSet, name, short string, value *formatValue) {
	flags.VarP(value, name, short, fmt.Sprintf("Output format (%s)", strings.Join(value.allowed, "|")))
}
