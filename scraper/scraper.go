// Package scraper defines the carrier extractor contract and runs the
// extractors in a single sequential pass.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"iphone-price-catalog/fetcher"
	"iphone-price-catalog/models"
	"iphone-price-catalog/utils"
)

var (
	// ErrSelectorMiss is returned when an expected element is absent.
	ErrSelectorMiss = errors.New("selector matched nothing")
	// ErrPatternMiss is returned when a text pattern does not match or a
	// token is not numeric.
	ErrPatternMiss = errors.New("pattern did not match")
)

// Extractor turns one carrier's pages into priced items. Implementations
// isolate failures per unit (link, section, row) and only return an error
// when the whole pass could not run.
type Extractor interface {
	Carrier() models.Carrier
	Extract(ctx context.Context, f fetcher.Fetcher) ([]*models.PricedItem, error)
}

// Result is the outcome of one carrier pass.
type Result struct {
	Carrier  models.Carrier
	Items    []*models.PricedItem
	Err      error
	Duration time.Duration
}

// Runner executes extractors one after another over a shared fetcher.
type Runner struct {
	extractors []Extractor
	logger     *utils.Logger
}

// NewRunner creates a Runner that visits extractors in the given order.
func NewRunner(logger *utils.Logger, extractors ...Extractor) *Runner {
	return &Runner{extractors: extractors, logger: logger}
}

// Run executes every extractor. A failing or panicking carrier is logged and
// recorded in its Result; the remaining carriers still run.
func (r *Runner) Run(ctx context.Context, f fetcher.Fetcher) []Result {
	results := make([]Result, 0, len(r.extractors))

	for _, ex := range r.extractors {
		carrier := ex.Carrier()
		r.logger.Info("[%s] Starting pass", carrier)
		start := time.Now()

		var items []*models.PricedItem
		err := protect(func() error {
			var err error
			items, err = ex.Extract(ctx, f)
			return err
		})

		res := Result{Carrier: carrier, Items: items, Err: err, Duration: time.Since(start)}
		if err != nil {
			r.logger.Error("[%s] Pass failed after %v: %v", carrier, res.Duration.Round(time.Millisecond), err)
		} else {
			r.logger.Info("[%s] Found %d items in %v", carrier, len(items), res.Duration.Round(time.Millisecond))
		}
		results = append(results, res)
	}
	return results
}

// Guard runs one extraction unit. Errors and panics are logged under scope
// and returned so the caller can skip the unit and carry on.
func Guard(logger *utils.Logger, scope string, fn func() error) error {
	err := protect(fn)
	if err != nil {
		logger.Warn("%s skipped: %v", scope, err)
	}
	return err
}

func protect(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn()
}
