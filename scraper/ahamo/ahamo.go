// Package ahamo extracts iPhone offers from the ahamo product listing, one
// offer per product card.
package ahamo

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"iphone-price-catalog/fetcher"
	"iphone-price-catalog/models"
	"iphone-price-catalog/scraper"
	"iphone-price-catalog/scraper/rules"
	"iphone-price-catalog/services"
	"iphone-price-catalog/utils"
)

var requirements = rules.Requirements{
	URLs:      []string{"index"},
	Selectors: []string{"card", "name", "name_fallback", "gross", "gross_fallback", "rent", "discount"},
	Mappings:  []string{"storage_by_name"},
}

type Extractor struct {
	rs     *rules.Ruleset
	logger *utils.Logger
}

func New(rs *rules.Ruleset, logger *utils.Logger) (*Extractor, error) {
	if err := rs.Require(requirements); err != nil {
		return nil, err
	}
	return &Extractor{rs: rs, logger: logger}, nil
}

func (e *Extractor) Carrier() models.Carrier { return models.Ahamo }

func (e *Extractor) Extract(ctx context.Context, f fetcher.Fetcher) ([]*models.PricedItem, error) {
	pageURL := e.rs.URL("index")
	doc, err := f.Fetch(ctx, fetcher.Request{URL: pageURL, Settle: e.rs.Settle("index")})
	if err != nil {
		return nil, fmt.Errorf("listing page: %w", err)
	}

	cards := doc.Find(e.rs.Selector("card"))
	e.logger.Info("[ahamo] Found %d product cards", cards.Length())

	var items []*models.PricedItem
	cards.Each(func(i int, card *goquery.Selection) {
		_ = scraper.Guard(e.logger, fmt.Sprintf("[ahamo] card %d", i), func() error {
			item, err := e.parseCard(card, pageURL)
			if err != nil {
				return err
			}
			if item != nil {
				items = append(items, item)
			}
			return nil
		})
	})
	return items, nil
}

// parseCard prices one product card. Cards without a gross price yield no
// item.
func (e *Extractor) parseCard(card *goquery.Selection, pageURL string) (*models.PricedItem, error) {
	name := card.Find(e.rs.Selector("name"))
	if name.Length() == 0 {
		name = card.Find(e.rs.Selector("name_fallback"))
	}
	if name.Length() == 0 {
		return nil, fmt.Errorf("%w: no product name", scraper.ErrSelectorMiss)
	}
	model := strings.TrimSpace(name.First().Text())

	gross := e.amount(card, "gross")
	if gross == 0 {
		gross = e.amount(card, "gross_fallback")
	}
	if gross == 0 {
		e.logger.Debug("[ahamo] %s has no price, skipping", model)
		return nil, nil
	}

	return services.Normalize(&models.RawOffer{
		Carrier:  models.Ahamo,
		Model:    model,
		Storage:  e.storageFor(model),
		URL:      pageURL,
		Gross:    gross,
		Rent:     e.amount(card, "rent"),
		Discount: e.amount(card, "discount"),
	})
}

func (e *Extractor) amount(card *goquery.Selection, role string) int {
	el := card.Find(e.rs.Selector(role)).First()
	if el.Length() == 0 {
		return 0
	}
	return scraper.ParseYen(el.Text())
}

// storageFor infers the storage from the model name; the listing never
// states it.
func (e *Extractor) storageFor(model string) string {
	if s, ok := e.rs.Lookup("storage_by_name", model); ok {
		return s
	}
	return models.StorageUnknown
}
