// Package scalars defines the custom GraphQL scalars used for column types
// the built-in scalars cannot represent faithfully.
package scalars

import (
	"encoding/json"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

const dateLayout = "2006-01-02"

// graphql-go rejects schemas with two distinct types of the same name, so each
// scalar is a package-level singleton.
var (
	// BigInt carries 64-bit integers as strings; graphql.Int is limited to 32 bits.
	BigInt = graphql.NewScalar(graphql.ScalarConfig{
		Name:        "BigInt",
		Description: "64-bit integer value serialized as a string.",
		Serialize: func(value any) any {
			if n, ok := toInt64(value); ok {
				return strconv.FormatInt(n, 10)
			}
			return nil
		},
		ParseValue: func(value any) any {
			if n, ok := toInt64(value); ok {
				return n
			}
			return nil
		},
		ParseLiteral: func(valueAST ast.Value) any {
			switch v := valueAST.(type) {
			case *ast.IntValue:
				return parseInt64(v.Value)
			case *ast.StringValue:
				return parseInt64(v.Value)
			}
			return nil
		},
	})

	// JSON carries an arbitrary JSON document as a string.
	JSON = graphql.NewScalar(graphql.ScalarConfig{
		Name:        "JSON",
		Description: "Arbitrary JSON value serialized as a string.",
		Serialize: func(value any) any {
			switch v := value.(type) {
			case nil:
				return nil
			case []byte:
				return string(v)
			case string:
				return v
			default:
				serialized, err := json.Marshal(v)
				if err != nil {
					slog.Default().Warn("failed to serialize JSON scalar", slog.String("error", err.Error()))
					return nil
				}
				return string(serialized)
			}
		},
		ParseValue: func(value any) any {
			if s, ok := value.(string); ok && json.Valid([]byte(s)) {
				return s
			}
			return nil
		},
		ParseLiteral: func(valueAST ast.Value) any {
			if sv, ok := valueAST.(*ast.StringValue); ok && json.Valid([]byte(sv.Value)) {
				return sv.Value
			}
			return nil
		},
	})

	// Date carries a calendar date as YYYY-MM-DD.
	Date = graphql.NewScalar(graphql.ScalarConfig{
		Name:        "Date",
		Description: "Date value serialized as YYYY-MM-DD.",
		Serialize: func(value any) any {
			if t, ok := toTime(value); ok {
				return t.UTC().Format(dateLayout)
			}
			return nil
		},
		ParseValue: func(value any) any {
			return parseDate(value)
		},
		ParseLiteral: func(valueAST ast.Value) any {
			if sv, ok := valueAST.(*ast.StringValue); ok {
				return parseDate(sv.Value)
			}
			return nil
		},
	})

	// DateTime carries an instant as an RFC 3339 string in UTC.
	DateTime = graphql.NewScalar(graphql.ScalarConfig{
		Name:        "DateTime",
		Description: "Timestamp serialized as RFC 3339 in UTC.",
		Serialize: func(value any) any {
			if t, ok := toTime(value); ok {
				return t.UTC().Format(time.RFC3339Nano)
			}
			return nil
		},
		ParseValue: func(value any) any {
			if s, ok := value.(string); ok {
				if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
					return t.UTC()
				}
			}
			return nil
		},
		ParseLiteral: func(valueAST ast.Value) any {
			if sv, ok := valueAST.(*ast.StringValue); ok {
				if t, err := time.Parse(time.RFC3339Nano, sv.Value); err == nil {
					return t.UTC()
				}
			}
			return nil
		},
	})
)

func parseInt64(s string) any {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil
	}
	return n
}

func toInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return toInt64(uint64(v))
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float64:
		// float64(math.MaxInt64) rounds up to 2^63, which does not fit.
		if v != math.Trunc(v) || v < math.MinInt64 || v >= math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		return n, err == nil
	}
	return 0, false
}

// toTime accepts driver values: time.Time from drivers that parse temporal
// columns, and strings or bytes in the common SQL layouts otherwise.
func toTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return *v, true
	case []byte:
		return toTime(string(v))
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999", dateLayout} {
			if t, err := time.Parse(layout, v); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func parseDate(value any) any {
	s, ok := value.(string)
	if !ok {
		if t, isTime := value.(time.Time); isTime {
			return t
		}
		return nil
	}
	if parsed, err := time.Parse(dateLayout, s); err == nil {
		return parsed
	}
	if parsed, err := time.Parse(time.RFC3339, s); err == nil {
		return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
	}
	return nil
}
