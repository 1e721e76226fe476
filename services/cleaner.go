package services

import (
	"iphone-price-catalog/models"
	"iphone-price-catalog/utils"
)

// Cleaner enforces the catalog invariants on one carrier's items.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

type itemKey struct {
	model   string
	storage string
}

// Clean normalises whitespace, drops items without a model or gross price,
// clamps negative amounts to zero, caps rent and buyout at gross and keeps
// only the first item per (model, storage).
func (c *Cleaner) Clean(carrier models.Carrier, items []*models.PricedItem) []*models.PricedItem {
	seen := make(map[itemKey]struct{})
	result := make([]*models.PricedItem, 0, len(items))

	for _, it := range items {
		if it == nil {
			continue
		}
		it.Model = utils.NormaliseText(it.Model)
		it.Storage = utils.NormaliseText(it.Storage)

		if it.Model == "" {
			c.logger.Warn("[cleaner] [%s] Dropping item with empty model: %s", carrier, it.URL)
			continue
		}
		if it.PriceGross <= 0 {
			c.logger.Warn("[cleaner] [%s] Dropping %s %s without gross price", carrier, it.Model, it.Storage)
			continue
		}

		k := itemKey{model: it.Model, storage: it.Storage}
		if _, dup := seen[k]; dup {
			c.logger.Debug("[cleaner] [%s] Duplicate %s %s skipped", carrier, it.Model, it.Storage)
			continue
		}
		seen[k] = struct{}{}

		clampAmounts(it)
		if it.PriceEffectiveRent > it.PriceGross {
			c.logger.Warn("[cleaner] [%s] %s %s rent %d exceeds gross %d, capping",
				carrier, it.Model, it.Storage, it.PriceEffectiveRent, it.PriceGross)
			it.PriceEffectiveRent = it.PriceGross
			if len(it.MonthlyPaymentPhases) == 0 {
				it.MonthlyPayment = it.PriceEffectiveRent / programTerm
			}
		}
		if it.PriceEffectiveBuyout > it.PriceGross {
			c.logger.Warn("[cleaner] [%s] %s %s buyout %d exceeds gross %d, capping",
				carrier, it.Model, it.Storage, it.PriceEffectiveBuyout, it.PriceGross)
			it.PriceEffectiveBuyout = it.PriceGross
		}
		if it.MonthlyPaymentPhases == nil {
			it.MonthlyPaymentPhases = []models.PaymentPhase{}
		}
		if it.Variants == nil {
			it.Variants = []models.StockEntry{}
		}

		result = append(result, it)
	}

	c.logger.Info("[cleaner] [%s] Cleaned %d → %d items (dropped %d)",
		carrier, len(items), len(result), len(items)-len(result))
	return result
}

func clampAmounts(it *models.PricedItem) {
	it.PriceEffectiveRent = clamp0(it.PriceEffectiveRent)
	it.PriceEffectiveBuyout = clamp0(it.PriceEffectiveBuyout)
	it.DiscountOfficial = clamp0(it.DiscountOfficial)
	it.PointsAwarded = clamp0(it.PointsAwarded)
	it.ProgramExemption = clamp0(it.ProgramExemption)
	it.MonthlyPayment = clamp0(it.MonthlyPayment)
	for i := range it.MonthlyPaymentPhases {
		it.MonthlyPaymentPhases[i].Amount = clamp0(it.MonthlyPaymentPhases[i].Amount)
	}
}
