package rakuten

import (
	"context"
	"fmt"
	"strings"

	"iphone-price-catalog/fetcher"
	"iphone-price-catalog/scraper"
	"iphone-price-catalog/scraper/rules"
	"iphone-price-catalog/services"
	"iphone-price-catalog/utils"
)

// PointTable maps a model name to the campaign points awarded for it. It is
// read-only once built.
type PointTable struct {
	points map[string]int
}

// Lookup returns the points for model. A 16e variant whose exact name is not
// in the table falls back to the "iPhone 16e" campaign.
func (t *PointTable) Lookup(model string) int {
	if t == nil {
		return 0
	}
	if p, ok := t.points[model]; ok {
		return p
	}
	if strings.Contains(model, services.PointFloorModel) {
		return t.points["iPhone 16e"]
	}
	return 0
}

// Len returns the number of models with known points.
func (t *PointTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.points)
}

// pointMerger accumulates the running per-model maximum across campaign
// pages.
type pointMerger struct {
	points map[string]int
}

func newPointMerger() *pointMerger {
	return &pointMerger{points: make(map[string]int)}
}

// Merge records the largest candidate for model if it beats the stored
// maximum. Merging the same page twice leaves the table unchanged.
func (m *pointMerger) Merge(model string, candidates []int) bool {
	best := 0
	for _, c := range candidates {
		if c > best {
			best = c
		}
	}
	if best > m.points[model] {
		m.points[model] = best
		return true
	}
	return false
}

// Saturated reports whether model's running maximum already exceeds limit,
// in which case further pages for it are not visited.
func (m *pointMerger) Saturated(model string, limit int) bool {
	return m.points[model] > limit
}

// Freeze returns an immutable snapshot of the merged points.
func (m *pointMerger) Freeze() *PointTable {
	out := make(map[string]int, len(m.points))
	for k, v := range m.points {
		out[k] = v
	}
	return &PointTable{points: out}
}

// CampaignResolver builds the PointTable from the campaign pages linked
// from the iPhone index.
type CampaignResolver struct {
	rs     *rules.Ruleset
	logger *utils.Logger
}

func NewCampaignResolver(rs *rules.Ruleset, logger *utils.Logger) *CampaignResolver {
	return &CampaignResolver{rs: rs, logger: logger}
}

// Resolve always returns a usable table. The error reports an index page
// that could not be read; per-page failures are logged and skipped.
func (r *CampaignResolver) Resolve(ctx context.Context, f fetcher.Fetcher) (*PointTable, error) {
	merger := newPointMerger()

	index, err := f.Fetch(ctx, fetcher.Request{
		URL:    r.rs.URL("campaign_index"),
		Settle: r.rs.Settle("index"),
	})
	if err != nil {
		return merger.Freeze(), fmt.Errorf("campaign index: %w", err)
	}

	links := index.Links(r.rs.Selector("campaign_link"))
	r.logger.Info("[rakuten] Campaign: found %d links", len(links))

	visited := utils.NewURLSet()
	saturation := r.rs.Limit("campaign_saturation")
	pattern := r.rs.Pattern("campaign_points")

	for _, link := range links {
		if !r.rs.ContainsAll("campaign_href", link.Raw) {
			continue
		}
		if !visited.Add(link.Href) {
			continue
		}
		model, ok := r.rs.Lookup("campaign_models", link.Href)
		if !ok {
			continue
		}
		if merger.Saturated(model, saturation) {
			r.logger.Debug("[rakuten] Campaign: %s already above %d, skipping %s", model, saturation, link.Href)
			continue
		}

		_ = scraper.Guard(r.logger, "[rakuten] campaign "+link.Href, func() error {
			doc, err := f.Fetch(ctx, fetcher.Request{URL: link.Href, Settle: r.rs.Settle("campaign")})
			if err != nil {
				return err
			}
			candidates := scraper.FindAllYen(pattern, utils.Fold(doc.Content()))
			if len(candidates) == 0 {
				return fmt.Errorf("%w: no point amounts", scraper.ErrPatternMiss)
			}
			if merger.Merge(model, candidates) {
				r.logger.Info("[rakuten] Campaign: %s -> %d pts", model, merger.points[model])
			}
			return nil
		})
	}

	return merger.Freeze(), nil
}
