// Package sequence issues unique human-readable codes backed by per-prefix
// counters in the database.
package sequence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/codr1/clubreserve/internal/db/store"
)

const (
	ReservationPrefix = "RES"
	PromotionPrefix   = "PROMO"
)

// Next increments the counter for prefix and returns "<prefix>/<00001>".
// Callers inside a transaction pass the transaction's queries.
func Next(ctx context.Context, q *store.Queries, prefix string) (string, error) {
	value, err := q.NextSequenceValue(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("next %s code: %w", prefix, err)
	}
	return fmt.Sprintf("%s/%05d", prefix, value), nil
}

// ReservationCode returns the next code for the year of at, e.g. RES/2026/00001.
func ReservationCode(ctx context.Context, q *store.Queries, at time.Time) (string, error) {
	return Next(ctx, q, ReservationPrefix+"/"+strconv.Itoa(at.Year()))
}

func PromotionCode(ctx context.Context, q *store.Queries) (string, error) {
	return Next(ctx, q, PromotionPrefix)
}
