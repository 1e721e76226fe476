// Package docomo extracts iPhone offers from docomo Online Shop detail
// pages.
package docomo

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"iphone-price-catalog/fetcher"
	"iphone-price-catalog/models"
	"iphone-price-catalog/scraper"
	"iphone-price-catalog/scraper/rules"
	"iphone-price-catalog/services"
	"iphone-price-catalog/utils"
)

var requirements = rules.Requirements{
	URLs:      []string{"index"},
	Selectors: []string{"link", "heading"},
	Keywords:  []string{"title_ready", "model_marker"},
	Patterns:  []string{"gross", "gross_fallback", "rent", "rent_fallback"},
	Limits:    []string{"min_plausible_rent", "max_model_len"},
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

func (e *Extractor) Carrier() models.Carrier { return models.Docomo }

func (e *Extractor) Extract(ctx context.Context, f fetcher.Fetcher) ([]*models.PricedItem, error) {
	index, err := f.Fetch(ctx, fetcher.Request{URL: e.rs.URL("index"), Settle: e.rs.Settle("index")})
	if err != nil {
		return nil, fmt.Errorf("index page: %w", err)
	}

	urls := utils.NewURLSet()
	for _, link := range index.Links(e.rs.Selector("link")) {
		urls.Add(link.Href)
	}
	e.logger.Info("[docomo] Found %d product pages", urls.Size())

	titleReady := func(title string) bool { return e.rs.ContainsAll("title_ready", title) }

	var items []*models.PricedItem
	for _, u := range urls.List() {
		_ = scraper.Guard(e.logger, "[docomo] "+u, func() error {
			doc, err := f.Fetch(ctx, fetcher.Request{URL: u, Settle: e.rs.Settle("detail"), TitleReady: titleReady})
			if err != nil {
				return err
			}
			item, err := e.parseDetail(doc)
			if err != nil {
				return err
			}
			items = append(items, item)
			return nil
		})
	}
	return items, nil
}

func (e *Extractor) parseDetail(doc *fetcher.Document) (*models.PricedItem, error) {
	model := e.modelName(doc)
	content := utils.Fold(doc.Content())

	gross := scraper.FindYen(e.rs.Pattern("gross"), content)
	if gross == 0 {
		gross = scraper.FindYen(e.rs.Pattern("gross_fallback"), content)
	}
	if gross == 0 {
		return nil, fmt.Errorf("%w: %s: no cash price", scraper.ErrPatternMiss, model)
	}

	return services.Normalize(&models.RawOffer{
		Carrier: models.Docomo,
		Model:   model,
		Storage: models.StorageSmallest,
		URL:     doc.URL,
		Gross:   gross,
		Rent:    e.rent(model, content),
	})
}

// rent returns the customer burden. A positive figure under the plausible
// floor is usually a monthly amount; the effective-burden label is tried
// instead and, failing that, the rent is discarded (0).
func (e *Extractor) rent(model, content string) int {
	floor := e.rs.Limit("min_plausible_rent")

	rent := scraper.FindYen(e.rs.Pattern("rent"), content)
	if rent > 0 && rent < floor {
		if alt := scraper.FindYen(e.rs.Pattern("rent_fallback"), content); alt > 0 {
			rent = alt
		}
		if rent < floor {
			e.logger.Debug("[docomo] %s: implausible rent %d discarded", model, rent)
			rent = 0
		}
	}
	return rent
}

// modelName derives the model from the title ("iPhone 17 Pro | ドコモオンラインショップ")
// and re-derives it from the first heading when the title does not yield a
// usable name.
func (e *Extractor) modelName(doc *fetcher.Document) string {
	title := utils.Fold(doc.Title)
	name := ""
	if head, _, found := strings.Cut(title, "|"); found {
		name = scraper.CleanModelName(head)
	} else if e.rs.ContainsAny("model_marker", title) {
		name = scraper.CleanModelName(title)
	}

	if !e.usable(name) {
		heading := doc.Find(e.rs.Selector("heading")).First().Text()
		if e.rs.ContainsAny("model_marker", heading) {
			name = scraper.CleanModelName(utils.Fold(heading))
		}
	}
	if name == "" {
		return models.UnknownModel
	}
	return name
}

func (e *Extractor) usable(name string) bool {
	return e.rs.ContainsAny("model_marker", name) &&
		utf8.RuneCountInString(name) <= e.rs.Limit("max_model_len") &&
		name != models.UnknownModel
}
