// Package rakuten extracts iPhone offers from Rakuten Mobile. A pass reads
// the campaign pages into a point table and the stock page into a stock map,
// prices every column of the fee table, then cross-checks monthly payments
// against the individual product pages.
package rakuten

import (
	"context"

	"iphone-price-catalog/fetcher"
	"iphone-price-catalog/models"
	"iphone-price-catalog/scraper/rules"
	"iphone-price-catalog/services"
	"iphone-price-catalog/utils"
)

var requirements = rules.Requirements{
	URLs: []string{"campaign_index", "stock", "fee"},
	Selectors: []string{
		"campaign_link", "stock_product", "stock_area", "stock_color", "stock_color_name",
		"stock_row", "fee_section", "fee_section_fallback", "fee_name", "fee_header", "fee_row",
	},
	Keywords: []string{"campaign_href", "model_marker", "storage_unit", "installment", "in_stock"},
	Patterns: []string{"campaign_points", "installment", "monthly", "capacity"},
	Limits:   []string{"campaign_saturation", "monthly_promo_max", "monthly_device_min"},
	Mappings: []string{"campaign_models", "products"},
}

type Extractor struct {
	rs       *rules.Ruleset
	logger   *utils.Logger
	campaign *CampaignResolver
	stock    *StockMerger
}

// New returns a Rakuten extractor, or an error when rs lacks a role the
// extractor reads.
func New(rs *rules.Ruleset, logger *utils.Logger) (*Extractor, error) {
	if err := rs.Require(requirements); err != nil {
		return nil, err
	}
	return &Extractor{
		rs:       rs,
		logger:   logger,
		campaign: NewCampaignResolver(rs, logger),
		stock:    NewStockMerger(rs, logger),
	}, nil
}

func (e *Extractor) Carrier() models.Carrier { return models.Rakuten }

func (e *Extractor) Extract(ctx context.Context, f fetcher.Fetcher) ([]*models.PricedItem, error) {
	points, err := e.campaign.Resolve(ctx, f)
	if err != nil {
		e.logger.Warn("[rakuten] Campaign points unavailable: %v", err)
	}
	e.logger.Info("[rakuten] Campaign points resolved for %d models", points.Len())

	stock, err := e.stock.Build(ctx, f)
	if err != nil {
		e.logger.Warn("[rakuten] Stock unavailable: %v", err)
	}

	items, err := e.scrapeFees(ctx, f, points, stock)
	if err != nil {
		return nil, err
	}

	observed := e.observeMonthly(ctx, f)
	if n := services.ReconcileMonthly(items, observed); n > 0 {
		e.logger.Info("[rakuten] Monthly payment lowered for %d items", n)
	}
	return items, nil
}
