package rakuten

import (
	"context"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"iphone-price-catalog/fetcher"
	"iphone-price-catalog/models"
	"iphone-price-catalog/scraper"
	"iphone-price-catalog/services"
	"iphone-price-catalog/utils"
)

// feeColumn holds the values read from one storage column of a fee table.
type feeColumn struct {
	storage     string
	gross       int
	program     int
	installment int
	rent        int
}

// scrapeFees reads the fee page and returns one item per (model, storage)
// with a gross price.
func (e *Extractor) scrapeFees(ctx context.Context, f fetcher.Fetcher, points *PointTable, stock *StockMap) ([]*models.PricedItem, error) {
	pageURL := e.rs.URL("fee")
	doc, err := f.Fetch(ctx, fetcher.Request{URL: pageURL, Settle: e.rs.Settle("index")})
	if err != nil {
		return nil, fmt.Errorf("fee page: %w", err)
	}

	sections := doc.Find(e.rs.Selector("fee_section"))
	if sections.Length() == 0 {
		sections = doc.Find(e.rs.Selector("fee_section_fallback"))
	}
	e.logger.Info("[rakuten] Fee: found %d sections", sections.Length())

	var items []*models.PricedItem
	sections.Each(func(i int, sec *goquery.Selection) {
		_ = scraper.Guard(e.logger, fmt.Sprintf("[rakuten] fee section %d", i), func() error {
			name := sec.Find(e.rs.Selector("fee_name")).First()
			if name.Length() == 0 {
				return fmt.Errorf("%w: no section header", scraper.ErrSelectorMiss)
			}
			model := utils.NormaliseText(name.Text())
			if !e.rs.ContainsAny("model_marker", model) {
				return nil
			}

			cols := e.parseFeeTable(sec)
			if len(cols) == 0 {
				return fmt.Errorf("%w: %s: no storage columns", scraper.ErrSelectorMiss, model)
			}

			added := 0
			for _, c := range cols {
				if c.gross == 0 {
					continue
				}
				item, err := services.Normalize(&models.RawOffer{
					Carrier:            models.Rakuten,
					Model:              model,
					Storage:            c.storage,
					URL:                pageURL,
					Gross:              c.gross,
					ProgramPrice:       c.program,
					InstallmentProgram: c.installment,
					Rent:               c.rent,
					Points:             points.Lookup(model),
					Variants:           stock.Variants(model, c.storage),
				})
				if err != nil {
					e.logger.Warn("[rakuten] %s %s: %v", model, c.storage, err)
					continue
				}
				items = append(items, item)
				added++
			}
			if added == 0 {
				e.logger.Warn("[rakuten] No items added for %s (%d columns)", model, len(cols))
			}
			return nil
		})
	})
	return items, nil
}

// parseFeeTable reads the storage columns of a section's table and fills
// them from the rows whose header cell classifies as a known role.
func (e *Extractor) parseFeeTable(sec *goquery.Selection) []feeColumn {
	var cols []feeColumn
	sec.Find(e.rs.Selector("fee_header")).Each(func(_ int, th *goquery.Selection) {
		txt := utils.NormaliseText(th.Text())
		if e.rs.ContainsAny("storage_unit", txt) {
			cols = append(cols, feeColumn{storage: txt})
		}
	})
	if len(cols) == 0 {
		return nil
	}

	installment := e.rs.Pattern("installment")
	sec.Find(e.rs.Selector("fee_row")).Each(func(_ int, row *goquery.Selection) {
		th := row.Find("th").First()
		if th.Length() == 0 {
			return
		}
		tds := row.Find("td")
		if tds.Length() < len(cols) {
			return
		}

		role := e.rs.ClassifyRow(th.Text())
		if role == "" {
			return
		}
		for idx := range cols {
			txt := utils.Fold(tds.Eq(idx).Text())
			val := scraper.ParseYen(txt)
			if val <= 0 {
				continue
			}
			switch role {
			case "gross":
				cols[idx].gross = val
				if e.rs.ContainsAny("installment", txt) {
					if inst := scraper.FindYen(installment, txt); inst > 0 {
						cols[idx].installment = inst * 24
					}
				}
			case "program":
				cols[idx].program = val
			case "rent":
				cols[idx].rent = val
			}
		}
	})
	return cols
}
