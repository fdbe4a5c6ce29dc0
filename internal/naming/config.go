// Package naming provides the inflection service and the case conversions used
// to map GraphQL field and type names onto model relation and type names.
package naming

// Config carries irregular forms layered over the inflection rules. Keys are
// lower-case words, e.g. {"cactus": "cacti"} or {"criteria": "criterion"}.
type Config struct {
	PluralOverrides   map[string]string `mapstructure:"plural_overrides"`
	SingularOverrides map[string]string `mapstructure:"singular_overrides"`
}

// DefaultConfig returns a config with no overrides.
func DefaultConfig() Config {
	return Config{
		PluralOverrides:   make(map[string]string),
		SingularOverrides: make(map[string]string),
	}
}
