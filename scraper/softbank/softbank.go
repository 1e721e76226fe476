// Package softbank extracts iPhone offers from SoftBank model pages,
// including the phased monthly schedule of the trade-in support program.
package softbank

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
	Selectors: []string{"link", "program_card", "phase_row"},
	Keywords:  []string{"exclude_path", "model_marker"},
	Patterns:  []string{"model_path", "gross", "card_rent", "rent"},
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

func (e *Extractor) Carrier() models.Carrier { return models.SoftBank }

func (e *Extractor) Extract(ctx context.Context, f fetcher.Fetcher) ([]*models.PricedItem, error) {
	index, err := f.Fetch(ctx, fetcher.Request{URL: e.rs.URL("index"), Settle: e.rs.Settle("index")})
	if err != nil {
		return nil, fmt.Errorf("index page: %w", err)
	}

	targets := e.discover(index)
	e.logger.Info("[softbank] Found %d model URLs", len(targets))

	var items []*models.PricedItem
	for _, u := range targets {
		_ = scraper.Guard(e.logger, "[softbank] "+u, func() error {
			doc, err := f.Fetch(ctx, fetcher.Request{URL: u, Settle: e.rs.Settle("detail")})
			if err != nil {
				return err
			}
			item, err := e.parseModel(doc)
			if err != nil {
				return err
			}
			items = append(items, item)
			return nil
		})
	}
	return items, nil
}

// discover keeps links to model top pages, skipping the price and spec
// sub-pages.
func (e *Extractor) discover(index *fetcher.Document) []string {
	urls := utils.NewURLSet()
	modelPath := e.rs.Pattern("model_path")
	for _, link := range index.Links(e.rs.Selector("link")) {
		if !modelPath.MatchString(link.Raw) || e.rs.ContainsAny("exclude_path", link.Href) {
			continue
		}
		urls.Add(link.Href)
	}
	return urls.List()
}

func (e *Extractor) parseModel(doc *fetcher.Document) (*models.PricedItem, error) {
	model := e.modelName(doc.Title)
	content := utils.Fold(doc.Content())

	gross := scraper.FindYen(e.rs.Pattern("gross"), content)
	if gross == 0 {
		return nil, fmt.Errorf("%w: %s: no total price", scraper.ErrPatternMiss, model)
	}

	var rows []string
	doc.Find(e.rs.Selector("phase_row")).Each(func(_ int, row *goquery.Selection) {
		rows = append(rows, row.Text())
	})
	phases := services.BuildPhases(rows, doc.Content())

	return services.Normalize(&models.RawOffer{
		Carrier: models.SoftBank,
		Model:   model,
		Storage: models.StorageSmallest,
		URL:     doc.URL,
		Gross:   gross,
		Rent:    e.rent(doc, content),
		Phases:  phases,
	})
}

// modelName takes the first model named in the title:
// "iPhone 16 Pro・iPhone 16 Pro Max【予約・購入】| SoftBank" → "iPhone 16 Pro".
func (e *Extractor) modelName(title string) string {
	title = utils.Fold(title)
	if !e.rs.ContainsAny("model_marker", title) {
		return models.UnknownModel
	}
	head, _, _ := strings.Cut(title, "|")
	if name := scraper.CleanModelName(head); name != "" {
		return name
	}
	return models.UnknownModel
}

// rent prefers the total shown on the support program card and falls back
// to the generic effective-burden figure.
func (e *Extractor) rent(doc *fetcher.Document, content string) int {
	card := doc.Find(e.rs.Selector("program_card"))
	if card.Length() > 0 {
		if rent := scraper.FindYen(e.rs.Pattern("card_rent"), utils.Fold(card.Text())); rent > 0 {
			return rent
		}
	}
	return scraper.FindYen(e.rs.Pattern("rent"), content)
}
