// Package sqltype maps declared column types to GraphQL scalar categories.
// Type names from MySQL, SQLite and PostgreSQL are recognized. Types the
// built-in scalars cannot carry map to the custom scalars package.
package sqltype

import (
	"strings"

	"github.com/graphql-go/graphql"

	"graphql-preload/internal/scalars"
)

// GraphQLType represents the category of GraphQL scalar type for a column.
type GraphQLType int

const (
	// TypeString is the default type for text and unknown SQL types.
	TypeString GraphQLType = iota
	// TypeInt represents integer types that fit in 32 bits.
	TypeInt
	// TypeBigInt represents 64-bit integer types.
	TypeBigInt
	// TypeFloat represents floating-point and fixed-point numeric types.
	TypeFloat
	// TypeBoolean represents boolean types.
	TypeBoolean
	TypeJSON
	TypeDate
	TypeDateTime
)

// MapToGraphQL converts a declared column type to its GraphQL category.
// Matching is case-insensitive; size specifiers like (10,2) and modifiers
// such as UNSIGNED are ignored.
func MapToGraphQL(sqlType string) GraphQLType {
	if idx := strings.Index(sqlType, "("); idx != -1 {
		sqlType = sqlType[:idx]
	}
	base := strings.ToUpper(strings.TrimSpace(sqlType))
	base = strings.TrimSuffix(base, " UNSIGNED")

	switch base {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "INTEGER",
		"SERIAL", "SMALLSERIAL", "BIT", "INT2", "INT4":
		return TypeInt
	case "BIGINT", "BIGSERIAL", "INT8":
		return TypeBigInt
	case "FLOAT", "DOUBLE", "REAL", "DOUBLE PRECISION", "FLOAT4", "FLOAT8",
		"DECIMAL", "NUMERIC", "MONEY":
		return TypeFloat
	case "BOOL", "BOOLEAN":
		return TypeBoolean
	case "JSON", "JSONB":
		return TypeJSON
	case "DATE":
		return TypeDate
	case "DATETIME", "TIMESTAMP", "TIMESTAMPTZ", "TIMESTAMP WITH TIME ZONE", "TIMESTAMP WITHOUT TIME ZONE":
		return TypeDateTime
	default:
		return TypeString
	}
}

// String returns the GraphQL scalar type name.
func (t GraphQLType) String() string {
	switch t {
	case TypeInt:
		return "Int"
	case TypeBigInt, TypeJSON, TypeDate, TypeDateTime:
		return t.Scalar().Name()
	case TypeFloat:
		return "Float"
	case TypeBoolean:
		return "Boolean"
	default:
		return "String"
	}
}

// Scalar returns the graphql-go scalar for the category.
func (t GraphQLType) Scalar() *graphql.Scalar {
	switch t {
	case TypeInt:
		return graphql.Int
	case TypeBigInt:
		return scalars.BigInt
	case TypeJSON:
		return scalars.JSON
	case TypeDate:
		return scalars.Date
	case TypeDateTime:
		return scalars.DateTime
	case TypeFloat:
		return graphql.Float
	case TypeBoolean:
		return graphql.Boolean
	default:
		return graphql.String
	}
}
