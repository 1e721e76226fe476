package services

import (
	"fmt"
	"sort"
	"strings"

	"iphone-price-catalog/models"
	"iphone-price-catalog/utils"
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

func (s *InsightService) Generate(items []*models.PricedItem) *models.InsightReport {
	report := &models.InsightReport{
		ItemsByCarrier:  make(map[models.Carrier]int),
		CheapestByModel: make(map[string]*models.PricedItem),
	}

	if len(items) == 0 {
		return report
	}

	report.TotalItems = len(items)

	var rented []*models.PricedItem
	for _, it := range items {
		report.ItemsByCarrier[it.Carrier]++
		if it.PriceEffectiveRent > 0 {
			rented = append(rented, it)
		}
	}

	// Rent stats (only items with rent > 0)
	if len(rented) > 0 {
		report.MinRent = rented[0].PriceEffectiveRent
		report.MaxRent = rented[0].PriceEffectiveRent
		report.CheapestOverall = rented[0]
		var total float64
		for _, it := range rented {
			total += float64(it.PriceEffectiveRent)
			if it.PriceEffectiveRent < report.MinRent {
				report.MinRent = it.PriceEffectiveRent
				report.CheapestOverall = it
			}
			if it.PriceEffectiveRent > report.MaxRent {
				report.MaxRent = it.PriceEffectiveRent
			}
			best, ok := report.CheapestByModel[it.Model]
			if !ok || it.PriceEffectiveRent < best.PriceEffectiveRent {
				report.CheapestByModel[it.Model] = it
			}
		}
		report.AverageRent = round2(total / float64(len(rented)))
	}

	return report
}

func (s *InsightService) Print(r *models.InsightReport) {
	sep := strings.Repeat("═", 60)
	thin := strings.Repeat("─", 60)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  📊 IPHONE PRICE CATALOG\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("\033[1;33m  Items per carrier\033[0m\n")
	fmt.Printf("  %s\n", thin)
	for _, c := range models.CarrierOrder {
		fmt.Printf("  %-12s : \033[1m%d\033[0m\n", c, r.ItemsByCarrier[c])
	}
	fmt.Printf("  %-12s : \033[1m%d\033[0m\n", "Total", r.TotalItems)
	fmt.Println()

	fmt.Printf("\033[1;33m  Effective rent\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if r.AverageRent > 0 {
		fmt.Printf("  Average : \033[1;32m¥%.0f\033[0m\n", r.AverageRent)
		fmt.Printf("  Minimum : \033[1;32m¥%d\033[0m\n", r.MinRent)
		fmt.Printf("  Maximum : \033[1;32m¥%d\033[0m\n", r.MaxRent)
	} else {
		fmt.Printf("  No rent data available\n")
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Cheapest carrier per model\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.CheapestByModel) == 0 {
		fmt.Printf("  No models found\n")
	} else {
		names := make([]string, 0, len(r.CheapestByModel))
		for m := range r.CheapestByModel {
			names = append(names, m)
		}
		sort.Strings(names)
		for _, m := range names {
			it := r.CheapestByModel[m]
			fmt.Printf("  %-28s %-10s \033[1;32m¥%d\033[0m (¥%d/月)\n",
				truncate(m, 28), it.Carrier, it.PriceEffectiveRent, it.MonthlyPayment)
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
