package store

import (
	"context"
	"fmt"
)

// NextSequenceValue increments the named counter and returns its new value,
// starting at 1.
func (q *Queries) NextSequenceValue(ctx context.Context, name string) (int64, error) {
	what := fmt.Sprintf("next value of sequence %q", name)
	row, err := q.queryRow(ctx, psql.Insert("sequences").
		Columns("name", "value").Values(name, 1).
		Suffix("ON CONFLICT(name) DO UPDATE SET value = value + 1 RETURNING value"), what)
	if err != nil {
		return 0, err
	}
	var value int64
	if err := row.Scan(&value); err != nil {
		return 0, mapErr(err, what)
	}
	return value, nil
}
