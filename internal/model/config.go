package model

// Config declares one model. It is decoded from the `models` section of the
// service configuration.
type Config struct {
	Name       string           `mapstructure:"name"`
	Table      string           `mapstructure:"table"`
	PrimaryKey string           `mapstructure:"primary_key"`
	UUIDColumn string           `mapstructure:"uuid_column"`
	RootField  string           `mapstructure:"root_field"`
	Columns    []ColumnConfig   `mapstructure:"columns"`
	Relations  []RelationConfig `mapstructure:"relations"`
}

// ColumnConfig declares a column of a model.
type ColumnConfig struct {
	Name     string `mapstructure:"name"`
	Type     string `mapstructure:"type"`
	Nullable bool   `mapstructure:"nullable"`
}

// RelationConfig declares a relation of a model.
// Kind is one of belongs_to, has_one, has_many or lookup. ForeignKey defaults
// to "<relation>_id" for belongs_to/lookup and "<model>_id" otherwise.
type RelationConfig struct {
	Name       string `mapstructure:"name"`
	Kind       string `mapstructure:"kind"`
	Target     string `mapstructure:"target"`
	ForeignKey string `mapstructure:"foreign_key"`
}
