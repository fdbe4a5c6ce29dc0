package naming

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
)

// Namer is the default inflection service. It resolves configured overrides
// first and falls back to the inflection library, which already knows the
// common irregular nouns (person/people, child/children).
type Namer struct {
	config Config
	logger *slog.Logger
}

// New creates a Namer with the given configuration
func New(cfg Config, logger *slog.Logger) *Namer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PluralOverrides == nil {
		cfg.PluralOverrides = make(map[string]string)
	}
	if cfg.SingularOverrides == nil {
		cfg.SingularOverrides = make(map[string]string)
	}
	return &Namer{
		config: cfg,
		logger: logger,
	}
}

// Default returns a Namer with default configuration
func Default() *Namer {
	return New(DefaultConfig(), nil)
}

// Pluralize converts a singular word to its plural form.
func (n *Namer) Pluralize(word string) string {
	if word == "" {
		return word
	}
	if override, ok := n.config.PluralOverrides[word]; ok {
		return override
	}
	if override, ok := n.config.PluralOverrides[strings.ToLower(word)]; ok {
		n.logger.Debug("plural override matched case-insensitively",
			slog.String("word", word),
			slog.String("plural", override),
		)
		return override
	}
	return inflection.Plural(word)
}

// Singularize converts a plural word to its singular form.
func (n *Namer) Singularize(word string) string {
	if word == "" {
		return word
	}
	if override, ok := n.config.SingularOverrides[word]; ok {
		return override
	}
	if override, ok := n.config.SingularOverrides[strings.ToLower(word)]; ok {
		n.logger.Debug("singular override matched case-insensitively",
			slog.String("word", word),
			slog.String("singular", override),
		)
		return override
	}
	return inflection.Singular(word)
}

// Underscore converts camelCase, PascalCase, kebab-case and spaced words to
// lower snake_case.
// Example: "OrderItem" -> "order_item", "HTTPServer" -> "http_server"
func Underscore(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)

	lastUnderscore := true // suppresses a leading separator
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ' || r == '.':
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		case unicode.IsUpper(r):
			if !lastUnderscore && i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			lastUnderscore = false
		default:
			b.WriteRune(r)
			lastUnderscore = false
		}
	}

	return strings.TrimSuffix(b.String(), "_")
}

// Camelize converts a name to lower camelCase.
// Example: "user_name" -> "userName", "OrderItem" -> "orderItem"
func Camelize(s string) string {
	return toCamelCase(Underscore(s))
}

// Classify converts a name to the PascalCase type-naming convention.
// It does not singularize; callers pass a singular form.
// Example: "order_item" -> "OrderItem", "orderItem" -> "OrderItem"
func Classify(s string) string {
	return toPascalCase(Underscore(s))
}

// NormalizeKey returns the case- and separator-insensitive key used to match
// field names against declared relation names.
func NormalizeKey(s string) string {
	return strings.ToLower(Underscore(s))
}

// toPascalCase converts snake_case to PascalCase
func toPascalCase(s string) string {
	parts := strings.Split(s, "_")
	for i, part := range parts {
		if len(part) > 0 {
			parts[i] = strings.ToUpper(part[:1]) + part[1:]
		}
	}
	return strings.Join(parts, "")
}

// toCamelCase converts snake_case to camelCase
func toCamelCase(s string) string {
	parts := strings.Split(s, "_")
	for i := 1; i < len(parts); i++ {
		if len(parts[i]) > 0 {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}
