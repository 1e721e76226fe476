// Package au extracts iPhone offers from au product pages. Each page yields
// one offer for the storage option selected by default.
package au

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
	Selectors: []string{"link", "program_section", "program_price", "storage_checked"},
	Keywords:  []string{"product_path", "model_marker", "program", "storage_unit"},
	Patterns:  []string{"model", "gross"},
}

type Extractor struct {
	rs     *rules.Ruleset
	logger *utils.Logger
}

func New(rs *rules.Ruleset, logger *utils.Logger) (*Extractor, error) {
	if err := rs.Require(requirements); err != nil {
		return nil, err
	}
	if len(rs.Slugs) == 0 {
		return nil, fmt.Errorf("rules: au: no model slugs")
	}
	return &Extractor{rs: rs, logger: logger}, nil
}

func (e *Extractor) Carrier() models.Carrier { return models.AU }

func (e *Extractor) Extract(ctx context.Context, f fetcher.Fetcher) ([]*models.PricedItem, error) {
	index, err := f.Fetch(ctx, fetcher.Request{URL: e.rs.URL("index"), Settle: e.rs.Settle("index")})
	if err != nil {
		return nil, fmt.Errorf("index page: %w", err)
	}

	targets := e.discover(index)
	e.logger.Info("[au] Found %d model URLs", len(targets))

	var items []*models.PricedItem
	for _, u := range targets {
		_ = scraper.Guard(e.logger, "[au] "+u, func() error {
			doc, err := f.Fetch(ctx, fetcher.Request{URL: u, Settle: e.rs.Settle("detail")})
			if err != nil {
				return err
			}
			item, err := e.parseProduct(doc)
			if err != nil {
				return err
			}
			items = append(items, item)
			return nil
		})
	}
	return items, nil
}

// discover keeps product links whose URL names one of the tracked model
// slugs.
func (e *Extractor) discover(index *fetcher.Document) []string {
	urls := utils.NewURLSet()
	for _, link := range index.Links(e.rs.Selector("link")) {
		if !e.rs.ContainsAny("product_path", link.Raw) {
			continue
		}
		for _, slug := range e.rs.Slugs {
			if strings.Contains(link.Href, slug) {
				urls.Add(link.Href)
				break
			}
		}
	}
	return urls.List()
}

func (e *Extractor) parseProduct(doc *fetcher.Document) (*models.PricedItem, error) {
	model := e.modelName(doc.Title)

	gross := scraper.FindYen(e.rs.Pattern("gross"), utils.Fold(doc.Content()))
	if gross == 0 {
		return nil, fmt.Errorf("%w: %s: no cash price", scraper.ErrPatternMiss, model)
	}

	return services.Normalize(&models.RawOffer{
		Carrier: models.AU,
		Model:   model,
		Storage: e.storage(doc),
		URL:     doc.URL,
		Gross:   gross,
		Rent:    e.programRent(doc),
	})
}

// modelName takes the model from the title up to the first delimiter, e.g.
// "iPhone 16e（アイフォーン）| au" → "iPhone 16e".
func (e *Extractor) modelName(title string) string {
	title = utils.Fold(title)
	if !e.rs.ContainsAny("model_marker", title) {
		return models.UnknownModel
	}
	m := e.rs.Pattern("model").FindString(title)
	if m == "" {
		return models.UnknownModel
	}
	if name := scraper.CleanModelName(m); name != "" {
		return name
	}
	return models.UnknownModel
}

// programRent reads the effective rent from the program section that names
// the program and its effective burden. 0 means not found.
func (e *Extractor) programRent(doc *fetcher.Document) int {
	rent := 0
	doc.Find(e.rs.Selector("program_section")).EachWithBreak(func(_ int, sec *goquery.Selection) bool {
		if !e.rs.ContainsAll("program", sec.Text()) {
			return true
		}
		el := sec.Find(e.rs.Selector("program_price")).First()
		if el.Length() == 0 {
			return true
		}
		rent = scraper.ParseYen(el.Text())
		return false
	})
	return rent
}

// storage returns the pre-selected storage option, or the smallest
// configuration marker when none is checked.
func (e *Extractor) storage(doc *fetcher.Document) string {
	label := doc.Find(e.rs.Selector("storage_checked")).First()
	if label.Length() > 0 {
		txt := utils.NormaliseText(label.Text())
		if e.rs.ContainsAny("storage_unit", txt) {
			return txt
		}
	}
	return models.StorageSmallest
}
