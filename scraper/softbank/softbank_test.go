package softbank

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iphone-price-catalog/fetcher"
	"iphone-price-catalog/models"
	"iphone-price-catalog/scraper/rules"
	"iphone-price-catalog/utils"
)

const (
	indexURL = "https://www.softbank.jp/iphone/"
	url16    = "https://www.softbank.jp/iphone/iphone-16/"
	url16e   = "https://www.softbank.jp/iphone/iphone-16e/"
	urlPrice = "https://www.softbank.jp/iphone/iphone-16/price/"
)

const indexHTML = `<html><body>
<a href="/iphone/iphone-16/">iPhone 16</a>
<a href="/iphone/iphone-16/price/">料金</a>
<a href="/iphone/iphone-16/spec">スペック</a>
<a href="/iphone/iphone-16e/">iPhone 16e</a>
<a href="/iphone/iphone-16/">again</a>
<a href="/iphone/iphone-16/#tokusapo">anchor</a>
</body></html>`

const page16 = `<html><body>
<p>支払総額（現金販売価格） 150,480円</p>
<div class="mobile-page-u96-app-model-price-applied-model-price__card--tokusapo-plus">
  <p>新トクするサポート（プラス）</p><p>支払総額 72,000円</p>
</div>
<p>実質負担金 80,000円</p>
<ul>
  <li class="mobile-page-u96-app-model-price-item-row">25～48回 お支払い不要</li>
  <li class="mobile-page-u96-app-model-price-item-row">1～12回 3,000円</li>
  <li class="mobile-page-u96-app-model-price-item-row">1～12回 3,500円</li>
  <li class="mobile-page-u96-app-model-price-item-row">13～24回 3,000円</li>
</ul>
</body></html>`

const page16e = `<html><body>
<p>総額 110,880円</p>
<p>実質負担金 ４８，０００円</p>
<table>
<tr><td>1～12回</td><td>1円</td></tr>
<tr><td>13～24回</td><td>3,999円</td></tr>
<tr><td>25～48回</td><td>お支払い不要</td></tr>
</table>
</body></html>`

func newExtractor(t *testing.T) *Extractor {
	t.Helper()
	rs, err := rules.MustLoad().For(models.SoftBank)
	require.NoError(t, err)
	e, err := New(rs, utils.NewNopLogger())
	require.NoError(t, err)
	return e
}

func TestExtract(t *testing.T) {
	f := fetcher.NewStatic(map[string]fetcher.Page{
		indexURL: {HTML: indexHTML},
		url16:    {Title: "iPhone 16・iPhone 16 Plus【予約・購入】| iPhone | ソフトバンク", HTML: page16},
		url16e:   {Title: "iPhone 16e | ソフトバンク", HTML: page16e},
	})

	items, err := newExtractor(t).Extract(context.Background(), f)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, []string{indexURL, url16, url16e}, f.Visited())

	a := items[0]
	assert.Equal(t, "iPhone 16", a.Model)
	assert.Equal(t, models.StorageSmallest, a.Storage)
	assert.Equal(t, 150480, a.PriceGross)
	assert.Equal(t, 72000, a.PriceEffectiveRent)
	assert.Equal(t, 78480, a.ProgramExemption)
	assert.Equal(t, 150480, a.PriceEffectiveBuyout)
	assert.Equal(t, 3000, a.MonthlyPayment)
	want := []models.PaymentPhase{
		{Period: "1〜12回", Amount: 3000},
		{Period: "13〜24回", Amount: 3000},
		{Period: "25〜48回", Amount: 0},
	}
	if diff := cmp.Diff(want, a.MonthlyPaymentPhases); diff != "" {
		t.Errorf("phases mismatch (-want +got):\n%s", diff)
	}

	b := items[1]
	assert.Equal(t, "iPhone 16e", b.Model)
	assert.Equal(t, 48000, b.PriceEffectiveRent)
	assert.Equal(t, 1, b.MonthlyPayment)
	want = []models.PaymentPhase{
		{Period: "1〜12回", Amount: 1},
		{Period: "13〜24回", Amount: 3999},
		{Period: "25〜48回", Amount: 0},
	}
	if diff := cmp.Diff(want, b.MonthlyPaymentPhases); diff != "" {
		t.Errorf("probed phases mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscoverSkipsSubPages(t *testing.T) {
	doc, err := fetcher.NewDocument(indexURL, "", indexHTML)
	require.NoError(t, err)
	assert.NotContains(t, newExtractor(t).discover(doc), urlPrice)
}
