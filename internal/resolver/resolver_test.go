package resolver

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
	"github.com/graphql-go/graphql/language/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphql-preload/internal/dbexec"
	"graphql-preload/internal/model"
	"graphql-preload/internal/planner"
	"graphql-preload/internal/sqlutil"
	"graphql-preload/internal/store"
	"graphql-preload/internal/testutil"
)

const testUUID = "8f14e45f-ceea-467f-a0e6-7f5c0d1e0a11"

type finderCall struct {
	method string
	key    any
}

type fakeFinder struct {
	calls  *[]finderCall
	record store.Record
	err    error
}

func (f fakeFinder) Find(_ context.Context, id any) (store.Record, error) {
	*f.calls = append(*f.calls, finderCall{method: "Find", key: id})
	return f.record, f.err
}

func (f fakeFinder) FindByUUID(_ context.Context, uuid string) (store.Record, error) {
	*f.calls = append(*f.calls, finderCall{method: "FindByUUID", key: uuid})
	return f.record, f.err
}

type fakeData struct {
	reject  error
	record  store.Record
	err     error
	calls   []finderCall
	plans   []planner.Plan
	scoped  int
	applied int
}

func (d *fakeData) finder() store.Finder {
	return fakeFinder{calls: &d.calls, record: d.record, err: d.err}
}

func (d *fakeData) Scope(*model.Model) store.Finder {
	d.scoped++
	return d.finder()
}

func (d *fakeData) ApplyIncludes(_ *model.Model, plan planner.Plan) store.IncludeResult {
	d.plans = append(d.plans, plan)
	if d.reject != nil {
		return store.Rejected{Reason: d.reject}
	}
	d.applied++
	return store.Applied{Finder: d.finder()}
}

type stubPlanner struct {
	plan planner.Plan
}

func (s stubPlanner) Plan(*model.Model, []ast.Selection, map[string]ast.Definition) planner.Plan {
	return s.plan
}

func customerModel(t *testing.T, registry *model.Registry) *model.Model {
	t.Helper()

	m, ok := registry.Lookup("Customer")
	require.True(t, ok)
	return m
}

func rootSelections(t *testing.T, query string) ([]ast.Selection, map[string]ast.Definition) {
	t.Helper()

	doc, err := parser.Parse(parser.ParseParams{Source: query})
	require.NoError(t, err)

	var selections []ast.Selection
	fragments := map[string]ast.Definition{}
	for _, def := range doc.Definitions {
		switch d := def.(type) {
		case *ast.OperationDefinition:
			root := d.SelectionSet.Selections[0].(*ast.Field)
			if root.SelectionSet != nil {
				selections = root.SelectionSet.Selections
			}
		case *ast.FragmentDefinition:
			fragments[d.Name.Value] = d
		}
	}
	return selections, fragments
}

func TestResolveRecordUsesPrimaryKeyLookup(t *testing.T) {
	registry := testutil.ShopRegistry()
	data := &fakeData{record: store.Record{"id": int64(1)}}
	r, err := New(customerModel(t, registry), data, registry)
	require.NoError(t, err)

	record, err := r.ResolveRecord(context.Background(), Lookup{Key: "1"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), record["id"])
	assert.Equal(t, []finderCall{{method: "Find", key: "1"}}, data.calls)
	require.Len(t, data.plans, 1)
	assert.True(t, data.plans[0].Empty())
}

func TestResolveRecordUsesUUIDLookup(t *testing.T) {
	registry := testutil.ShopRegistry()
	data := &fakeData{record: store.Record{"id": int64(1)}}
	r, err := New(customerModel(t, registry), data, registry)
	require.NoError(t, err)

	const upper = "8F14E45F-CEEA-467F-A0E6-7F5C0D1E0A11"
	_, err = r.ResolveRecord(context.Background(), Lookup{Key: upper, UseUUID: true}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []finderCall{{method: "FindByUUID", key: upper}}, data.calls)
}

func TestResolveRecordPassesNonCanonicalUUIDKeys(t *testing.T) {
	registry := testutil.ShopRegistry()
	data := &fakeData{record: store.Record{"id": int64(1)}}
	r, err := New(customerModel(t, registry), data, registry)
	require.NoError(t, err)

	_, err = r.ResolveRecord(context.Background(), Lookup{Key: "legacy-7", UseUUID: true}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []finderCall{{method: "FindByUUID", key: "legacy-7"}}, data.calls)
}

func TestResolveRecordPlansFromSelections(t *testing.T) {
	registry := testutil.ShopRegistry()
	data := &fakeData{record: store.Record{"id": int64(1)}}
	r, err := New(customerModel(t, registry), data, registry)
	require.NoError(t, err)

	selections, fragments := rootSelections(t, `
		{ customer(id: 1) { id product { id } orders { lineItems { sku } } ...Acct } }
		fragment Acct on Customer { account { loan { amount } } }
	`)
	_, err = r.ResolveRecord(context.Background(), Lookup{Key: "1"}, selections, fragments)
	require.NoError(t, err)

	require.Len(t, data.plans, 1)
	assert.Equal(t, "[product orders:[line_items] account:[loan]]", data.plans[0].String())
	assert.Equal(t, 1, data.applied)
	assert.Equal(t, 0, data.scoped)
}

func TestResolveRecordFallsBackWhenPlanRejected(t *testing.T) {
	registry := testutil.ShopRegistry()
	var logs bytes.Buffer
	data := &fakeData{
		reject: &store.InvalidIncludeError{Model: "Customer", Relation: "fake_model", Reason: "no such association"},
		record: store.Record{"id": int64(1)},
	}
	r, err := New(customerModel(t, registry), data, registry,
		WithPlanner(stubPlanner{plan: planner.Plan{planner.Leaf("fake_model")}}),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
	)
	require.NoError(t, err)

	record, err := r.ResolveRecord(context.Background(), Lookup{Key: testUUID, UseUUID: true}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), record["id"])
	assert.Equal(t, 1, data.scoped)
	assert.Equal(t, []finderCall{{method: "FindByUUID", key: testUUID}}, data.calls)
	assert.Contains(t, logs.String(), "include plan rejected")
	assert.Contains(t, logs.String(), "fake_model")
}

func TestResolveRecordPropagatesNotFound(t *testing.T) {
	registry := testutil.ShopRegistry()
	data := &fakeData{err: &store.NotFoundError{Model: "Customer", Column: "id", Key: "9"}}
	r, err := New(customerModel(t, registry), data, registry)
	require.NoError(t, err)

	record, err := r.ResolveRecord(context.Background(), Lookup{Key: "9"}, nil, nil)
	assert.Nil(t, record)
	assert.True(t, errors.Is(err, store.ErrRecordNotFound))
}

func TestNewRejectsNonRelationalModels(t *testing.T) {
	registry := testutil.ShopRegistry()
	wallet, ok := registry.Lookup("Wallet")
	require.True(t, ok)

	_, err := New(wallet, &fakeData{}, registry)
	assert.Error(t, err)

	_, err = New(customerModel(t, registry), nil, registry)
	assert.Error(t, err)
}

func TestLookupFromArgs(t *testing.T) {
	lookup, err := lookupFromArgs(map[string]any{ArgID: "5", ArgUseUUID: true})
	require.NoError(t, err)
	assert.Equal(t, Lookup{Key: "5", UseUUID: true}, lookup)

	lookup, err = lookupFromArgs(map[string]any{ArgID: 5})
	require.NoError(t, err)
	assert.Equal(t, Lookup{Key: "5"}, lookup)

	_, err = lookupFromArgs(map[string]any{})
	assert.Error(t, err)
}

func TestFieldDefinition(t *testing.T) {
	registry := testutil.ShopRegistry()
	lineItem, ok := registry.Lookup("LineItem")
	require.True(t, ok)

	assert.Equal(t, "lineItem", FieldName(lineItem))
	assert.Equal(t, "customer", FieldName(customerModel(t, registry)))

	field, err := Field(lineItem, graphql.String, &fakeData{}, registry)
	require.NoError(t, err)
	assert.Equal(t, "lineItem", field.Name)
	assert.Equal(t, "Find a LineItem by ID/UUID", field.Description)
	require.Contains(t, field.Args, ArgID)
	require.Contains(t, field.Args, ArgUseUUID)
	assert.Equal(t, graphql.NewNonNull(graphql.ID).String(), field.Args[ArgID].Type.String())
	assert.NotNil(t, field.Resolve)

	named, err := Field(lineItem, graphql.String, &fakeData{}, registry, WithFieldName("line_item"))
	require.NoError(t, err)
	assert.Equal(t, "line_item", named.Name)
	assert.Equal(t, "Find a LineItem by ID/UUID", named.Description)

	unnamed, err := Field(lineItem, graphql.String, &fakeData{}, registry, WithFieldName(""))
	require.NoError(t, err)
	assert.Equal(t, "lineItem", unnamed.Name)
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestResolveRecordIgnoresBadIncludes(t *testing.T) {
	db, mock := newMockDB(t)
	registry := testutil.ShopRegistry()
	s := store.New(dbexec.NewStandardExecutor(db), registry, sqlutil.MySQL)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT `id`, `name`, `uuid`, `tier_code` FROM `customers` WHERE `id` = ? LIMIT 1")).
		WithArgs("1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "uuid", "tier_code"}).AddRow(int64(1), "Ada", testUUID, nil))

	r, err := New(customerModel(t, registry), s, registry,
		WithPlanner(stubPlanner{plan: planner.Plan{planner.Leaf("fake_model")}}))
	require.NoError(t, err)

	record, err := r.ResolveRecord(context.Background(), Lookup{Key: "1"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Ada", record["name"])
	require.NoError(t, mock.ExpectationsWereMet())
}
