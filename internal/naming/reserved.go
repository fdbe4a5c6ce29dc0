package naming

import "strings"

// graphqlReservedTypeWords contains GraphQL keywords and built-in types
// that cannot be used as model type names.
var graphqlReservedTypeWords = map[string]bool{
	// GraphQL language keywords
	"query":        true,
	"mutation":     true,
	"subscription": true,
	"type":         true,
	"schema":       true,
	"scalar":       true,
	"enum":         true,
	"input":        true,
	"interface":    true,
	"union":        true,
	"fragment":     true,
	"directive":    true,
	"extend":       true,
	"implements":   true,
	"on":           true,

	// Built-in scalar types
	"int":     true,
	"float":   true,
	"string":  true,
	"boolean": true,
	"id":      true,

	// Types the schema builder defines itself
	"lookupvalue": true,

	// Boolean literals
	"true":  true,
	"false": true,
	"null":  true,
}

// IsReservedTypeName reports whether a model name would clash with a GraphQL
// keyword, a built-in scalar, or an introspection type.
func IsReservedTypeName(name string) bool {
	lowerName := strings.ToLower(name)
	if strings.HasPrefix(lowerName, "__") {
		return true
	}
	return graphqlReservedTypeWords[lowerName]
}

// IsReservedFieldName reports whether a field name is reserved for introspection.
func IsReservedFieldName(name string) bool {
	return strings.HasPrefix(name, "__")
}
