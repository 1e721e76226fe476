package services

import (
	"time"

	"iphone-price-catalog/models"
)

// TimestampLayout is the format of Catalog.UpdatedAt.
const TimestampLayout = "2006-01-02 15:04"

// BuildCatalog concatenates each carrier's items in models.CarrierOrder and
// stamps the result with now. Items are copied, so later changes to the
// inputs do not reach the snapshot. Carriers outside the fixed order are
// ignored.
func BuildCatalog(now time.Time, results map[models.Carrier][]*models.PricedItem) *models.Catalog {
	items := make([]*models.PricedItem, 0)
	for _, carrier := range models.CarrierOrder {
		for _, it := range results[carrier] {
			if it == nil {
				continue
			}
			items = append(items, cloneItem(it))
		}
	}
	return &models.Catalog{
		UpdatedAt: now.Format(TimestampLayout),
		Items:     items,
	}
}

func cloneItem(it *models.PricedItem) *models.PricedItem {
	cp := *it
	cp.MonthlyPaymentPhases = append([]models.PaymentPhase{}, it.MonthlyPaymentPhases...)
	cp.Variants = append([]models.StockEntry{}, it.Variants...)
	return &cp
}
