package resolver

import (
	"context"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphql-preload/internal/dbexec"
	"graphql-preload/internal/sqlutil"
	"graphql-preload/internal/store"
	"graphql-preload/internal/testutil"
)

const (
	customerByID   = "SELECT `id`, `name`, `uuid`, `tier_code` FROM `customers` WHERE `id` = ? LIMIT 1"
	customerByUUID = "SELECT `id`, `name`, `uuid`, `tier_code` FROM `customers` WHERE `uuid` = ? LIMIT 1"
	productBatch   = "SELECT `id`, `name`, `customer_id` FROM `products` WHERE `customer_id` IN (?) ORDER BY `id`"
)

func customerRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "uuid", "tier_code"}).AddRow(int64(1), "Ada", testUUID, nil)
}

// customerSchema exposes Customer { id name product { id name } } with the
// generated root field.
func customerSchema(t *testing.T, s *store.Store) graphql.Schema {
	t.Helper()

	registry := testutil.ShopRegistry()
	productType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Product",
		Fields: graphql.Fields{
			"id":   &graphql.Field{Type: graphql.ID},
			"name": &graphql.Field{Type: graphql.String},
		},
	})
	customerType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Customer",
		Fields: graphql.Fields{
			"id":      &graphql.Field{Type: graphql.ID},
			"name":    &graphql.Field{Type: graphql.String},
			"product": &graphql.Field{Type: productType},
		},
	})

	field, err := Field(customerModel(t, registry), customerType, s, registry)
	require.NoError(t, err)

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name:   "Query",
			Fields: graphql.Fields{field.Name: field},
		}),
	})
	require.NoError(t, err)
	return schema
}

func runQuery(t *testing.T, schema graphql.Schema, query string) map[string]any {
	t.Helper()

	result := graphql.Do(graphql.Params{
		Schema:        schema,
		RequestString: query,
		Context:       context.Background(),
	})
	require.Empty(t, result.Errors)
	data, ok := result.Data.(map[string]any)
	require.True(t, ok)
	customer, ok := data["customer"].(map[string]any)
	require.True(t, ok)
	return customer
}

func TestGraphQLPreloadsSelectedRelation(t *testing.T) {
	db, mock := newMockDB(t)
	s := store.New(dbexec.NewStandardExecutor(db), testutil.ShopRegistry(), sqlutil.MySQL)

	mock.ExpectQuery(regexp.QuoteMeta(customerByID)).WithArgs("1").WillReturnRows(customerRow())
	mock.ExpectQuery(regexp.QuoteMeta(productBatch)).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "customer_id"}).AddRow(int64(5), "Widget", int64(1)))

	customer := runQuery(t, customerSchema(t, s), `{ customer(id: "1") { product { id } } }`)
	product, ok := customer["product"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "5", fmt.Sprint(product["id"]))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGraphQLScalarSelectionSkipsPreloading(t *testing.T) {
	db, mock := newMockDB(t)
	s := store.New(dbexec.NewStandardExecutor(db), testutil.ShopRegistry(), sqlutil.MySQL)

	mock.ExpectQuery(regexp.QuoteMeta(customerByID)).WithArgs("1").WillReturnRows(customerRow())

	customer := runQuery(t, customerSchema(t, s), `{ customer(id: "1") { id } }`)
	assert.Equal(t, "1", fmt.Sprint(customer["id"]))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGraphQLUUIDLookupMatchesPrimaryKeyLookup(t *testing.T) {
	db, mock := newMockDB(t)
	s := store.New(dbexec.NewStandardExecutor(db), testutil.ShopRegistry(), sqlutil.MySQL)
	schema := customerSchema(t, s)

	mock.ExpectQuery(regexp.QuoteMeta(customerByUUID)).WithArgs(testUUID).WillReturnRows(customerRow())
	mock.ExpectQuery(regexp.QuoteMeta(customerByID)).WithArgs("1").WillReturnRows(customerRow())

	byUUID := runQuery(t, schema, fmt.Sprintf(`{ customer(id: %q, use_uuid: true) { id name } }`, testUUID))
	byID := runQuery(t, schema, `{ customer(id: "1") { id name } }`)
	assert.Equal(t, byID, byUUID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGraphQLNotFoundSurfacesAsError(t *testing.T) {
	db, mock := newMockDB(t)
	s := store.New(dbexec.NewStandardExecutor(db), testutil.ShopRegistry(), sqlutil.MySQL)

	mock.ExpectQuery(regexp.QuoteMeta(customerByID)).WithArgs("404").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "uuid", "tier_code"}))

	result := graphql.Do(graphql.Params{
		Schema:        customerSchema(t, s),
		RequestString: `{ customer(id: "404") { id } }`,
	})
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Message, "Customer not found")
}
