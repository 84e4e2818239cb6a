package billing

import (
	"context"

	"github.com/codr1/clubreserve/internal/models"
)

// PercentTaxEngine applies a single percentage tax, either on top of the
// amount or already included in it.
type PercentTaxEngine struct{}

func (PercentTaxEngine) ComputeTax(_ context.Context, base float64, tax *models.Tax, _ string) (TaxResult, error) {
	base = models.RoundMoney(base)
	if tax == nil || tax.Percent == 0 {
		return TaxResult{TotalExcluded: base, TotalIncluded: base}, nil
	}

	var excluded, included float64
	if tax.PriceIncluded {
		included = base
		excluded = models.RoundMoney(base / (1 + tax.Percent/100))
	} else {
		excluded = base
		included = models.RoundMoney(base + base*tax.Percent/100)
	}
	return TaxResult{
		Lines:         []TaxLine{{TaxID: tax.ID, Name: tax.Name, Amount: models.RoundMoney(included - excluded)}},
		TotalExcluded: excluded,
		TotalIncluded: included,
	}, nil
}
