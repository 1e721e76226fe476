package rakuten

import (
	"context"
	"fmt"

	"iphone-price-catalog/fetcher"
	"iphone-price-catalog/scraper"
	"iphone-price-catalog/utils"
)

// observeMonthly reads the "円/月" figures on each product page and returns
// the smallest plausible device payment per model. Figures between the
// promo ceiling and the device floor look like plan fees and are ignored.
func (e *Extractor) observeMonthly(ctx context.Context, f fetcher.Fetcher) map[string]int {
	observed := make(map[string]int)
	pattern := e.rs.Pattern("monthly")
	promoMax := e.rs.Limit("monthly_promo_max")
	deviceMin := e.rs.Limit("monthly_device_min")

	for _, p := range e.rs.Mapping("products") {
		model, pageURL := p.Key, p.Value
		_ = scraper.Guard(e.logger, "[rakuten] monthly "+model, func() error {
			doc, err := f.Fetch(ctx, fetcher.Request{URL: pageURL, Settle: e.rs.Settle("product")})
			if err != nil {
				return err
			}

			best := -1
			for _, amount := range scraper.FindAllYen(pattern, utils.Fold(doc.Text())) {
				if amount > promoMax && amount < deviceMin {
					continue
				}
				if best < 0 || amount < best {
					best = amount
				}
			}
			if best < 0 {
				return fmt.Errorf("%w: no device monthly figure", scraper.ErrPatternMiss)
			}
			observed[model] = best
			e.logger.Info("[rakuten] %s: %d円/月 (from page)", model, best)
			return nil
		})
	}
	return observed
}
