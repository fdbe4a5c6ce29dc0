// Package testutil holds model fixtures shared by package tests.
package testutil

import (
	"graphql-preload/internal/model"
)

// ShopModels declares a small schema: customers own one product and many
// orders, customers have one account that owns a loan, orders have many line
// items, and customers carry an enum-like tier lookup. Wallet is a plain object
// type with no table.
func ShopModels() []model.Config {
	return []model.Config{
		{
			Name:       "Customer",
			Table:      "customers",
			PrimaryKey: "id",
			UUIDColumn: "uuid",
			Columns: []model.ColumnConfig{
				{Name: "id", Type: "int"},
				{Name: "name", Type: "varchar"},
				{Name: "uuid", Type: "char"},
				{Name: "tier_code", Type: "varchar", Nullable: true},
			},
			Relations: []model.RelationConfig{
				{Name: "product", Kind: "has_one", Target: "Product"},
				{Name: "orders", Kind: "has_many", Target: "Order"},
				{Name: "account", Kind: "has_one", Target: "Account"},
				{Name: "loan", Kind: "has_one", Target: "Loan"},
				{Name: "tier", Kind: "lookup", Target: "tiers", ForeignKey: "tier_code"},
			},
		},
		{
			Name:  "Product",
			Table: "products",
			Columns: []model.ColumnConfig{
				{Name: "id", Type: "int"},
				{Name: "name", Type: "varchar"},
				{Name: "customer_id", Type: "int", Nullable: true},
			},
			Relations: []model.RelationConfig{
				{Name: "customer", Kind: "belongs_to", Target: "Customer"},
			},
		},
		{
			Name:  "Order",
			Table: "orders",
			Columns: []model.ColumnConfig{
				{Name: "id", Type: "int"},
				{Name: "total", Type: "decimal"},
				{Name: "customer_id", Type: "int"},
			},
			Relations: []model.RelationConfig{
				{Name: "customer", Kind: "belongs_to", Target: "Customer"},
				{Name: "line_items", Kind: "has_many", Target: "LineItem"},
			},
		},
		{
			Name:  "LineItem",
			Table: "line_items",
			Columns: []model.ColumnConfig{
				{Name: "id", Type: "int"},
				{Name: "sku", Type: "varchar"},
				{Name: "order_id", Type: "int"},
			},
			Relations: []model.RelationConfig{
				{Name: "order", Kind: "belongs_to", Target: "Order"},
			},
		},
		{
			Name:  "Account",
			Table: "accounts",
			Columns: []model.ColumnConfig{
				{Name: "id", Type: "int"},
				{Name: "customer_id", Type: "int"},
			},
			Relations: []model.RelationConfig{
				{Name: "loan", Kind: "has_one", Target: "Loan"},
			},
		},
		{
			Name:  "Loan",
			Table: "loans",
			Columns: []model.ColumnConfig{
				{Name: "id", Type: "int"},
				{Name: "amount", Type: "decimal"},
				{Name: "customer_id", Type: "int", Nullable: true},
				{Name: "account_id", Type: "int", Nullable: true},
			},
		},
		{
			Name: "Wallet",
			Columns: []model.ColumnConfig{
				{Name: "balance", Type: "decimal"},
			},
		},
	}
}

// ShopRegistry builds the registry for ShopModels and panics on error.
func ShopRegistry() *model.Registry {
	registry, err := model.Build(ShopModels())
	if err != nil {
		panic(err)
	}
	return registry
}
