package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"graphql-preload/internal/config"
)

func TestReportValidation(t *testing.T) {
	assert.NoError(t, reportValidation(&config.ValidationResult{
		Warnings: []config.ValidationWarning{{Field: "server.graphiql_enabled", Message: "GraphiQL is enabled"}},
	}))

	err := reportValidation(&config.ValidationResult{
		Errors: []config.ValidationError{{Field: "preload.batch_size", Message: "batch_size must be positive"}},
	})
	assert.ErrorContains(t, err, "preload.batch_size: batch_size must be positive")
}
