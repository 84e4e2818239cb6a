// Package directory resolves clubs, sports, facilities, taxes and equipment
// by name, creating them on first use. Names match case-insensitively.
package directory

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/codr1/clubreserve/internal/apperr"
	"github.com/codr1/clubreserve/internal/db"
	"github.com/codr1/clubreserve/internal/db/store"
	"github.com/codr1/clubreserve/internal/models"
)

type Directory struct {
	db *db.DB
}

func New(database *db.DB) (*Directory, error) {
	if database == nil {
		return nil, errors.New("directory requires a database")
	}
	return &Directory{db: database}, nil
}

// resolveOrCreate looks the record up and creates it when missing, inside one
// write transaction so concurrent callers resolve to the same row.
func resolveOrCreate[T any](ctx context.Context, d *Directory, kind, name string,
	get func(*store.Queries, string) (T, error),
	create func(*store.Queries, string) (T, error),
) (T, error) {
	var out T
	name = strings.TrimSpace(name)
	if name == "" {
		return out, apperr.Invalid(kind, "name is required")
	}

	err := d.db.RunInTx(ctx, func(txdb *db.DB) error {
		found, err := get(txdb.Queries, name)
		if err == nil {
			out = found
			return nil
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}
		out, err = create(txdb.Queries, name)
		if err == nil {
			log.Ctx(ctx).Info().Str("kind", kind).Str("name", name).Msg("Created directory entry")
		}
		return err
	})
	return out, err
}

func (d *Directory) ResolveOrCreateClub(ctx context.Context, name string) (models.Club, error) {
	return resolveOrCreate(ctx, d, "club", name,
		func(q *store.Queries, n string) (models.Club, error) { return q.GetClubByName(ctx, n) },
		func(q *store.Queries, n string) (models.Club, error) { return q.CreateClub(ctx, n) })
}

func (d *Directory) ResolveOrCreateSport(ctx context.Context, name string) (models.Sport, error) {
	return resolveOrCreate(ctx, d, "sport", name,
		func(q *store.Queries, n string) (models.Sport, error) { return q.GetSportByName(ctx, n) },
		func(q *store.Queries, n string) (models.Sport, error) { return q.CreateSport(ctx, n) })
}

// ResolveOrCreateTax creates missing taxes at 0%, excluded from price.
func (d *Directory) ResolveOrCreateTax(ctx context.Context, name string) (models.Tax, error) {
	return resolveOrCreate(ctx, d, "tax", name,
		func(q *store.Queries, n string) (models.Tax, error) { return q.GetTaxByName(ctx, n) },
		func(q *store.Queries, n string) (models.Tax, error) { return q.CreateTax(ctx, models.Tax{Name: n}) })
}

func (d *Directory) ResolveOrCreateEquipment(ctx context.Context, clubID int64, name string) (models.Equipment, error) {
	return resolveOrCreate(ctx, d, "equipment", name,
		func(q *store.Queries, n string) (models.Equipment, error) { return q.GetEquipmentByName(ctx, clubID, n) },
		func(q *store.Queries, n string) (models.Equipment, error) {
			return q.CreateEquipment(ctx, models.Equipment{ClubID: clubID, Name: n})
		})
}

// ResolveOrCreateFacility returns the club's facility called name, creating
// an active one of the given type and capacity when missing. An existing
// facility is returned as stored.
func (d *Directory) ResolveOrCreateFacility(ctx context.Context, clubID int64, name string, facilityType models.FacilityType, capacity int64) (models.Facility, error) {
	return resolveOrCreate(ctx, d, "facility", name,
		func(q *store.Queries, n string) (models.Facility, error) { return q.GetFacilityByName(ctx, clubID, n) },
		func(q *store.Queries, n string) (models.Facility, error) {
			f := models.Facility{ClubID: clubID, Name: n, Type: facilityType, Capacity: capacity, Active: true}
			if err := f.Validate(); err != nil {
				return models.Facility{}, err
			}
			return q.CreateFacility(ctx, f)
		})
}
