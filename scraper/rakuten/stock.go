package rakuten

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"iphone-price-catalog/fetcher"
	"iphone-price-catalog/models"
	"iphone-price-catalog/scraper"
	"iphone-price-catalog/scraper/rules"
	"iphone-price-catalog/utils"
)

const stockTextMax = 20

type stockKey struct {
	model   string
	storage string
}

// StockMap groups per-color availability by (model, storage). It is
// read-only once built.
type StockMap struct {
	entries map[stockKey][]models.StockEntry
}

// Variants returns a copy of the entries for (model, storage), in page
// order. Unknown keys yield an empty slice.
func (m *StockMap) Variants(model, storage string) []models.StockEntry {
	if m == nil {
		return []models.StockEntry{}
	}
	return append([]models.StockEntry{}, m.entries[stockKey{model, storage}]...)
}

// Len returns the number of (model, storage) keys.
func (m *StockMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// StockMerger reads the stock page into a StockMap.
type StockMerger struct {
	rs     *rules.Ruleset
	logger *utils.Logger
}

func NewStockMerger(rs *rules.Ruleset, logger *utils.Logger) *StockMerger {
	return &StockMerger{rs: rs, logger: logger}
}

// Build always returns a usable map; the error reports a stock page that
// could not be fetched.
func (s *StockMerger) Build(ctx context.Context, f fetcher.Fetcher) (*StockMap, error) {
	stock := &StockMap{entries: make(map[stockKey][]models.StockEntry)}

	doc, err := f.Fetch(ctx, fetcher.Request{URL: s.rs.URL("stock"), Settle: s.rs.Settle("index")})
	if err != nil {
		return stock, fmt.Errorf("stock page: %w", err)
	}

	headers := doc.Find(s.rs.Selector("stock_product"))
	s.logger.Info("[rakuten] Stock: found %d products", headers.Length())

	headers.Each(func(_ int, header *goquery.Selection) {
		model := utils.NormaliseText(header.Text())
		_ = scraper.Guard(s.logger, "[rakuten] stock "+model, func() error {
			area := header.NextAllFiltered(s.rs.Selector("stock_area")).First()
			if area.Length() == 0 {
				return fmt.Errorf("%w: no stock area", scraper.ErrSelectorMiss)
			}
			n := s.parseArea(stock, model, area)
			s.logger.Debug("[rakuten] Stock: %s parsed %d entries", model, n)
			return nil
		})
	})

	return stock, nil
}

func (s *StockMerger) parseArea(stock *StockMap, model string, area *goquery.Selection) int {
	capacity := s.rs.Pattern("capacity")
	added := 0

	area.Find(s.rs.Selector("stock_color")).Each(func(_ int, cd *goquery.Selection) {
		heading := cd.Find(s.rs.Selector("stock_color_name")).First()
		if heading.Length() == 0 {
			return
		}
		color := strings.TrimSpace(heading.Text())

		cd.Find(s.rs.Selector("stock_row")).Each(func(_ int, row *goquery.Selection) {
			cols := row.Find("td")
			if cols.Length() < 2 {
				return
			}
			storage := capacity.FindString(utils.Fold(cols.Eq(0).Text()))
			if storage == "" {
				return
			}
			status := strings.TrimSpace(cols.Eq(1).Text())

			k := stockKey{model, storage}
			stock.entries[k] = append(stock.entries[k], models.StockEntry{
				Model:     model,
				Storage:   storage,
				Color:     color,
				StockText: utils.Truncate(status, stockTextMax),
				Available: s.rs.ContainsAny("in_stock", status),
			})
			added++
		})
	})
	return added
}
