package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/clubreserve/internal/apperr"
	"github.com/codr1/clubreserve/internal/db"
	"github.com/codr1/clubreserve/internal/models"
)

// Action is a user-facing rule state change.
type Action string

const (
	ActionOpen         Action = "open"
	ActionClose        Action = "close"
	ActionResetToDraft Action = "reset"
)

var actionTransitions = map[Action]struct {
	from []models.PricingRuleState
	to   models.PricingRuleState
}{
	ActionOpen:         {from: []models.PricingRuleState{models.PricingDraft}, to: models.PricingOpen},
	ActionClose:        {from: []models.PricingRuleState{models.PricingOpen, models.PricingExpired}, to: models.PricingClosed},
	ActionResetToDraft: {from: []models.PricingRuleState{models.PricingClosed}, to: models.PricingDraft},
}

type Service struct {
	db *db.DB
}

func NewService(database *db.DB) (*Service, error) {
	if database == nil {
		return nil, errors.New("pricing service requires a database")
	}
	return &Service{db: database}, nil
}

// CreateRule stores a new rule in draft unless a state is given.
func (s *Service) CreateRule(ctx context.Context, rule models.PricingRule) (models.PricingRule, error) {
	if err := rule.Validate(); err != nil {
		return models.PricingRule{}, err
	}
	if rule.State != "" && rule.State != models.PricingDraft && rule.State != models.PricingOpen {
		return models.PricingRule{}, apperr.Invalid("state", "new rules must be draft or open")
	}
	created, err := s.db.Queries.CreatePricingRule(ctx, rule)
	if err != nil {
		return models.PricingRule{}, fmt.Errorf("create pricing rule: %w", err)
	}
	log.Ctx(ctx).Info().
		Int64("pricing_rule_id", created.ID).
		Str("state", string(created.State)).
		Msg("Created pricing rule")
	return created, nil
}

// Apply runs a rule action and returns the updated rule.
func (s *Service) Apply(ctx context.Context, id int64, action Action) (models.PricingRule, error) {
	transition, ok := actionTransitions[action]
	if !ok {
		return models.PricingRule{}, apperr.Invalid("action", "must be open, close or reset")
	}

	var updated models.PricingRule
	err := s.db.RunInTx(ctx, func(txdb *db.DB) error {
		rule, err := txdb.Queries.GetPricingRule(ctx, id)
		if err != nil {
			return err
		}
		changed, err := txdb.Queries.UpdatePricingRuleState(ctx, id, transition.from, transition.to)
		if err != nil {
			return err
		}
		if !changed {
			return fmt.Errorf("%w: cannot %s a %s pricing rule", apperr.ErrInvalidTransition, action, rule.State)
		}
		rule.State = transition.to
		updated = rule
		return nil
	})
	if err != nil {
		return models.PricingRule{}, fmt.Errorf("pricing rule %d: %w", id, err)
	}
	log.Ctx(ctx).Info().
		Int64("pricing_rule_id", id).
		Str("action", string(action)).
		Str("state", string(updated.State)).
		Msg("Pricing rule state changed")
	return updated, nil
}

func (s *Service) Resolve(ctx context.Context, query Query) (Resolution, error) {
	return Resolve(ctx, s.db.Queries, query)
}

// ExpireLapsedRules moves open rules whose date_to is before now's date to
// expired. Each rule is updated in its own transaction; a failure is logged
// and the sweep continues. It returns the number of rules expired.
func ExpireLapsedRules(ctx context.Context, database *db.DB, now time.Time) (int, error) {
	if database == nil {
		return 0, fmt.Errorf("pricing rule expiry requires database")
	}

	rules, err := database.Queries.ListLapsedPricingRules(ctx, models.DateOnly(now))
	if err != nil {
		return 0, fmt.Errorf("list lapsed pricing rules: %w", err)
	}

	logger := log.Ctx(ctx)
	expired := 0
	for _, rule := range rules {
		var changed bool
		err := database.RunInTx(ctx, func(txdb *db.DB) error {
			var err error
			changed, err = txdb.Queries.UpdatePricingRuleState(ctx, rule.ID,
				[]models.PricingRuleState{models.PricingOpen}, models.PricingExpired)
			return err
		})
		if err != nil {
			logger.Error().
				Err(err).
				Int64("pricing_rule_id", rule.ID).
				Msg("Failed to expire pricing rule")
			continue
		}
		if changed {
			expired++
			logger.Info().
				Int64("pricing_rule_id", rule.ID).
				Str("date_to", rule.DateTo.Format(models.DateLayout)).
				Msg("Expired pricing rule")
		}
	}
	return expired, nil
}
