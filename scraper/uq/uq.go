// Package uq extracts iPhone offers from UQ mobile model pages.
package uq

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"iphone-price-catalog/fetcher"
	"iphone-price-catalog/models"
	"iphone-price-catalog/scraper"
	"iphone-price-catalog/scraper/rules"
	"iphone-price-catalog/services"
	"iphone-price-catalog/utils"
)

var requirements = rules.Requirements{
	URLs:      []string{"index"},
	Selectors: []string{"product_link"},
	Lists:     []string{"model_selectors"},
	Keywords:  []string{"link_marker", "model_marker"},
	Patterns:  []string{"model_url", "offer", "offer_fallback", "discount"},
	Limits:    []string{"default_discount", "fallback_min_gross", "min_path_slashes"},
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

func (e *Extractor) Carrier() models.Carrier { return models.UQMobile }

type offerKey struct {
	model   string
	storage string
}

func (e *Extractor) Extract(ctx context.Context, f fetcher.Fetcher) ([]*models.PricedItem, error) {
	index, err := f.Fetch(ctx, fetcher.Request{URL: e.rs.URL("index"), Settle: e.rs.Settle("index")})
	if err != nil {
		return nil, fmt.Errorf("index page: %w", err)
	}

	modelURLs := e.discover(index)
	e.logger.Info("[uq] Found %d model URLs", len(modelURLs))

	seen := make(map[offerKey]struct{})
	var items []*models.PricedItem
	for _, u := range modelURLs {
		_ = scraper.Guard(e.logger, "[uq] "+u, func() error {
			doc, err := f.Fetch(ctx, fetcher.Request{URL: u, Settle: e.rs.Settle("detail")})
			if err != nil {
				return err
			}
			found, err := e.parseModelPage(doc, seen)
			items = append(items, found...)
			return err
		})
	}
	return items, nil
}

// discover returns the model page URLs linked from the index, in discovery
// order without repeats.
func (e *Extractor) discover(index *fetcher.Document) []string {
	urls := utils.NewURLSet()
	minSlashes := e.rs.Limit("min_path_slashes")
	modelURL := e.rs.Pattern("model_url")

	for _, link := range index.Links(e.rs.Selector("product_link")) {
		if !e.rs.ContainsAny("link_marker", link.Raw) || strings.Count(link.Raw, "/") < minSlashes {
			continue
		}
		if modelURL.MatchString(link.Href) {
			urls.Add(link.Href)
		}
	}
	return urls.List()
}

// parseModelPage prices every storage offer on a model page. The fallback
// pattern is only tried when the primary one adds nothing.
func (e *Extractor) parseModelPage(doc *fetcher.Document, seen map[offerKey]struct{}) ([]*models.PricedItem, error) {
	model := e.modelName(doc)
	content := utils.Fold(doc.Content())
	discount := e.discount(content)

	items := e.collect(doc.URL, model, discount, content, e.rs.Pattern("offer"), 0, seen)
	if len(items) == 0 {
		items = e.collect(doc.URL, model, discount, content, e.rs.Pattern("offer_fallback"),
			e.rs.Limit("fallback_min_gross"), seen)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %s: no storage prices", scraper.ErrPatternMiss, model)
	}
	return items, nil
}

func (e *Extractor) collect(pageURL, model string, discount int, content string,
	re *regexp.Regexp, minGross int, seen map[offerKey]struct{}) []*models.PricedItem {
	var items []*models.PricedItem
	for _, m := range re.FindAllStringSubmatch(content, -1) {
		storage := m[1]
		gross := scraper.ParseYen(m[2])
		if gross <= 0 || gross < minGross {
			continue
		}
		k := offerKey{model, storage}
		if _, dup := seen[k]; dup {
			continue
		}

		item, err := services.Normalize(&models.RawOffer{
			Carrier:  models.UQMobile,
			Model:    model,
			Storage:  storage,
			URL:      pageURL,
			Gross:    gross,
			Discount: discount,
		})
		if err != nil {
			e.logger.Warn("[uq] %s %s: %v", model, storage, err)
			continue
		}
		seen[k] = struct{}{}
		items = append(items, item)
	}
	return items
}

// modelName returns the text of the first header-like element mentioning an
// iPhone, trying the configured selectors in order.
func (e *Extractor) modelName(doc *fetcher.Document) string {
	for _, sel := range e.rs.List("model_selectors") {
		nodes := doc.Find(sel)
		for i := 0; i < nodes.Length(); i++ {
			txt := nodes.Eq(i).Text()
			if e.rs.ContainsAny("model_marker", txt) {
				return utils.NormaliseText(txt)
			}
		}
	}
	return models.UnknownModel
}

// discount returns the published maximum discount, or the default when the
// page states none.
func (e *Extractor) discount(content string) int {
	m := e.rs.Pattern("discount").FindStringSubmatch(content)
	if m == nil {
		return e.rs.Limit("default_discount")
	}
	return scraper.ParseYen(m[1])
}
