package promotion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/codr1/clubreserve/internal/db"
	"github.com/codr1/clubreserve/internal/models"
	"github.com/codr1/clubreserve/internal/sequence"
)

type Service struct {
	db *db.DB
}

func NewService(database *db.DB) (*Service, error) {
	if database == nil {
		return nil, errors.New("promotion service requires a database")
	}
	return &Service{db: database}, nil
}

// Create stores p, drawing a PROMO code from the sequence when Code is blank.
func (s *Service) Create(ctx context.Context, p models.Promotion) (models.Promotion, error) {
	p.Code = strings.TrimSpace(p.Code)
	var created models.Promotion
	err := s.db.RunInTx(ctx, func(txdb *db.DB) error {
		if p.Code == "" {
			code, err := sequence.PromotionCode(ctx, txdb.Queries)
			if err != nil {
				return err
			}
			p.Code = code
		}
		if err := p.Validate(); err != nil {
			return err
		}
		var err error
		created, err = txdb.Queries.CreatePromotion(ctx, p)
		return err
	})
	if err != nil {
		return models.Promotion{}, fmt.Errorf("create promotion: %w", err)
	}
	log.Ctx(ctx).Info().
		Int64("promotion_id", created.ID).
		Str("code", created.Code).
		Msg("Created promotion")
	return created, nil
}

func (s *Service) GetByCode(ctx context.Context, code string) (models.Promotion, error) {
	return s.db.Queries.GetPromotionByCode(ctx, strings.TrimSpace(code))
}
