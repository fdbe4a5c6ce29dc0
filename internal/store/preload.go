package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"graphql-preload/internal/dbexec"
	"graphql-preload/internal/model"
	"graphql-preload/internal/naming"
	"graphql-preload/internal/planner"
)

// preload attaches every relation in plan to records, level by level. Repeated
// entries for the same relation are merged so each relation costs one batch.
func (s *Store) preload(ctx context.Context, owner *model.Model, records []Record, plan planner.Plan) error {
	if len(records) == 0 || plan.Empty() {
		return nil
	}
	for _, entry := range mergeEntries(plan) {
		rel, ok := owner.Relation(entry.Name)
		if !ok {
			return &InvalidIncludeError{Model: owner.Name, Relation: entry.Name, Reason: "no such association"}
		}
		target, ok := s.registry.Target(rel)
		if !ok {
			return &InvalidIncludeError{Model: owner.Name, Relation: entry.Name, Reason: fmt.Sprintf("target %q is not registered", rel.Target)}
		}
		related, err := s.loadRelation(ctx, owner, rel, target, records)
		if err != nil {
			return err
		}
		if err := s.preload(ctx, target, related, entry.Children); err != nil {
			return err
		}
	}
	return nil
}

// loadRelation fetches rel for every record with batched IN queries and
// stores the result under the relation's field name. It returns the related
// records so the caller can continue with the next level.
func (s *Store) loadRelation(ctx context.Context, owner *model.Model, rel model.Relation, target *model.Model, records []Record) ([]Record, error) {
	field := rel.FieldName()

	var sourceField, matchColumn, matchField string
	switch rel.Kind {
	case model.KindBelongsTo:
		sourceField = fieldName(rel.ForeignKey)
		matchColumn = target.PrimaryKey
	default:
		sourceField = fieldName(owner.PrimaryKey)
		matchColumn = rel.ForeignKey
	}
	matchField = fieldName(matchColumn)

	keys := distinctValues(records, sourceField)
	var related []Record
	for _, chunk := range chunkValues(keys, s.batchSize) {
		d := s.dialect
		query, args, err := d.StatementBuilder().
			Select(d.QuoteIdentifiers(target.ColumnNames())...).
			From(d.QuoteIdentifier(target.Table)).
			Where(sq.Eq{d.QuoteIdentifier(matchColumn): chunk}).
			OrderBy(d.QuoteIdentifier(target.PrimaryKey)).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("build %s.%s preload: %w", owner.Name, rel.Name, err)
		}
		rows, err := s.query(ctx, target, query, args)
		if err != nil {
			return nil, fmt.Errorf("preload %s.%s: %w", owner.Name, rel.Name, err)
		}
		related = append(related, rows...)
	}

	grouped := groupByField(related, matchField)
	for _, record := range records {
		matches := grouped[keyOf(record[sourceField])]
		if record[sourceField] == nil {
			matches = nil
		}
		if rel.Cardinality() == model.ToMany {
			list := make([]Record, len(matches))
			copy(list, matches)
			record[field] = list
			continue
		}
		if len(matches) == 0 {
			record[field] = nil
			continue
		}
		record[field] = matches[0]
	}

	s.logger.Debug("preloaded relation",
		"model", owner.Name,
		"relation", rel.Name,
		"parents", len(records),
		"keys", len(keys),
		"rows", len(related),
	)
	return related, nil
}

func (s *Store) query(ctx context.Context, m *model.Model, query string, args []any) ([]Record, error) {
	rows, err := s.exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", m.Name, err)
	}
	defer rows.Close()

	records, err := scanRows(rows, m)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", m.Name, err)
	}
	return records, nil
}

func scanRows(rows dbexec.Rows, m *model.Model) ([]Record, error) {
	var results []Record

	for rows.Next() {
		values := make([]any, len(m.Columns))
		valuePtrs := make([]any, len(m.Columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make(Record, len(m.Columns))
		for i, col := range m.Columns {
			row[col.FieldName()] = convertValue(values[i])
		}
		results = append(results, row)
	}

	return results, rows.Err()
}

func convertValue(val any) any {
	if b, ok := val.([]byte); ok {
		return string(b)
	}
	return val
}

// mergeEntries folds repeated relation names into the first occurrence,
// concatenating their children.
func mergeEntries(plan planner.Plan) planner.Plan {
	index := make(map[string]int, len(plan))
	merged := make(planner.Plan, 0, len(plan))
	for _, entry := range plan {
		key := naming.NormalizeKey(entry.Name)
		if i, ok := index[key]; ok {
			merged[i].Children = append(merged[i].Children, entry.Children...)
			continue
		}
		index[key] = len(merged)
		merged = append(merged, planner.Entry{
			Name:     entry.Name,
			Children: append(planner.Plan(nil), entry.Children...),
		})
	}
	return merged
}

func distinctValues(records []Record, field string) []any {
	seen := make(map[string]struct{}, len(records))
	values := make([]any, 0, len(records))
	for _, record := range records {
		v := record[field]
		if v == nil {
			continue
		}
		key := keyOf(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		values = append(values, v)
	}
	return values
}

func groupByField(rows []Record, field string) map[string][]Record {
	grouped := make(map[string][]Record)
	for _, row := range rows {
		key := keyOf(row[field])
		grouped[key] = append(grouped[key], row)
	}
	return grouped
}

func chunkValues(values []any, max int) [][]any {
	if len(values) == 0 {
		return nil
	}
	if max <= 0 || len(values) <= max {
		return [][]any{values}
	}
	chunks := make([][]any, 0, (len(values)+max-1)/max)
	for start := 0; start < len(values); start += max {
		end := start + max
		if end > len(values) {
			end = len(values)
		}
		chunks = append(chunks, values[start:end])
	}
	return chunks
}

func keyOf(v any) string {
	return fmt.Sprint(v)
}

func fieldName(column string) string {
	return naming.Camelize(column)
}
