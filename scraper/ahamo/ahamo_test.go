package ahamo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iphone-price-catalog/fetcher"
	"iphone-price-catalog/models"
	"iphone-price-catalog/scraper/rules"
	"iphone-price-catalog/utils"
)

const listingURL = "https://ahamo.com/products/iphone/"

const listingHTML = `<html><body>
<a class="a-product-thumbnail-link" href="/products/iphone/16/">
  <span class="a-product-thumbnail__name"> iPhone 16 </span>
  <span class="a-product-thumbnail__price"><span class="a-price-amount">133,265</span>円</span>
  <div class="a-product-thumbnail-link__kaedoki-campaign-content-price-item-price">
    <span class="a-price-amount">58,245</span>円
  </div>
  <div class="a-product-thumbnail-link__kaedoki-campaign-content-price-item-discount">
    <span class="a-price-amount">-5,000</span>円
  </div>
</a>
<a class="a-product-thumbnail-link" href="/products/iphone/se/">
  <span class="a-product-thumbnail-link__name">iPhone SE（第3世代）</span>
  <span class="a-product-thumbnail-link__price-number">７０，４００円</span>
</a>
<a class="a-product-thumbnail-link" href="/products/iphone/air/">
  <span class="a-product-thumbnail__name">iPhone Air</span>
  <span class="a-product-thumbnail__price"><span class="a-price-amount">179,630</span>円</span>
</a>
<a class="a-product-thumbnail-link" href="/products/iphone/soon/">
  <span class="a-product-thumbnail__name">iPhone 17 Pro</span>
  <span class="a-product-thumbnail__price"><span class="a-price-amount">近日発売</span></span>
</a>
<a class="a-product-thumbnail-link" href="/products/accessory/">アクセサリー</a>
</body></html>`

func newExtractor(t *testing.T) *Extractor {
	t.Helper()
	rs, err := rules.MustLoad().For(models.Ahamo)
	require.NoError(t, err)
	e, err := New(rs, utils.NewNopLogger())
	require.NoError(t, err)
	return e
}

func TestExtract(t *testing.T) {
	f := fetcher.NewStatic(map[string]fetcher.Page{listingURL: {HTML: listingHTML}})

	items, err := newExtractor(t).Extract(context.Background(), f)
	require.NoError(t, err)
	require.Len(t, items, 3)

	i16 := items[0]
	assert.Equal(t, "iPhone 16", i16.Model)
	assert.Equal(t, "128GB", i16.Storage)
	assert.Equal(t, 133265, i16.PriceGross)
	assert.Equal(t, 5000, i16.DiscountOfficial)
	assert.Equal(t, 70020, i16.ProgramExemption)
	assert.Equal(t, 58245, i16.PriceEffectiveRent)
	assert.Equal(t, 128265, i16.PriceEffectiveBuyout)
	assert.Equal(t, 2426, i16.MonthlyPayment)
	assert.Equal(t, listingURL, i16.URL)

	se := items[1]
	assert.Equal(t, "64GB", se.Storage)
	assert.Equal(t, 70400, se.PriceGross)
	assert.Equal(t, 70400, se.PriceEffectiveRent)
	assert.Equal(t, 0, se.ProgramExemption)

	air := items[2]
	assert.Equal(t, models.StorageUnknown, air.Storage)
	assert.Equal(t, 179630, air.PriceEffectiveRent)
}

func TestExtractListingUnavailable(t *testing.T) {
	_, err := newExtractor(t).Extract(context.Background(), fetcher.NewStatic(nil))
	assert.ErrorIs(t, err, fetcher.ErrNavigation)
}
