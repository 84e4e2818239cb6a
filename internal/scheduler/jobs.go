package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/clubreserve/internal/db"
	"github.com/codr1/clubreserve/internal/pricing"
)

const (
	PricingExpiryJobName = "pricing_rule_expiry"
	pricingExpiryTimeout = 2 * time.Minute
)

// PricingExpirySweep returns the task that moves lapsed open pricing rules to
// expired. now is read once per run.
func PricingExpirySweep(database *db.DB, now func() time.Time) func() {
	jobLogger := log.With().
		Str("component", "pricing_expiry_job").
		Str("job_name", PricingExpiryJobName).
		Logger()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), pricingExpiryTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		expired, err := pricing.ExpireLapsedRules(ctx, database, now().UTC())
		if err != nil {
			jobLogger.Error().Err(err).Msg("Pricing expiry sweep failed")
			return
		}
		jobLogger.Info().Int("expired", expired).Msg("Pricing expiry sweep finished")
	}
}

// RegisterPricingExpiry schedules the pricing-rule expiry sweep on svc.
func RegisterPricingExpiry(svc *Service, database *db.DB, cronExpr string) error {
	if database == nil {
		return fmt.Errorf("pricing expiry job requires database")
	}
	_, err := svc.AddJob(PricingExpiryJobName, cronExpr, PricingExpirySweep(database, time.Now))
	return err
}
