package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iphone-price-catalog/models"
)

func TestLoadEmbeddedRules(t *testing.T) {
	r, err := Load()
	require.NoError(t, err)

	for _, c := range models.CarrierOrder {
		rs, err := r.For(c)
		require.NoError(t, err, "carrier %s", c)
		assert.NotEmpty(t, rs.URLs, "carrier %s has no urls", c)
	}
}

func TestClassifyRowFirstRoleWins(t *testing.T) {
	rs, err := MustLoad().For(models.Rakuten)
	require.NoError(t, err)

	tests := []struct {
		header string
		want   string
	}{
		{"楽天モバイル 一括価格", "gross"},
		{"現金販売価格", "gross"},
		{"買い替え超トクプログラム利用時 24回分", "program"},
		{"実質負担額", "rent"},
		{"キャンペーン適用後", "rent"},
		{"48回払い", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rs.ClassifyRow(tt.header), "ClassifyRow(%q)", tt.header)
	}
}

func TestKeywordsAreFolded(t *testing.T) {
	r, err := Parse([]byte(`
carriers:
  au:
    keywords:
      label: ["支払総額：", "ＧＢ"]
`))
	require.NoError(t, err)
	rs, err := r.For(models.AU)
	require.NoError(t, err)

	assert.Equal(t, []string{"支払総額:", "GB"}, rs.KeywordList("label"))
	assert.True(t, rs.ContainsAny("label", "256ＧＢ"))
	assert.True(t, rs.ContainsAny("label", "256GB"))
}

func TestParseRejectsBadPattern(t *testing.T) {
	_, err := Parse([]byte(`
carriers:
  au:
    patterns:
      gross: '([\d,]+'
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `pattern "gross"`)
}

func TestRequireReportsMissingRoles(t *testing.T) {
	rs, err := MustLoad().For(models.Docomo)
	require.NoError(t, err)

	err = rs.Require(Requirements{
		Selectors: []string{"link", "nope"},
		Patterns:  []string{"gross", "missing"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "patterns.missing")
	assert.Contains(t, err.Error(), "selectors.nope")
	assert.NotContains(t, err.Error(), "selectors.link")
}

func TestAccessors(t *testing.T) {
	rs, err := MustLoad().For(models.Rakuten)
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, rs.Settle("index"))
	assert.Equal(t, time.Duration(0), rs.Settle("undefined"))
	assert.Equal(t, 40000, rs.Limit("campaign_saturation"))

	model, ok := rs.Lookup("campaign_models", "/campaign/iphone-16e-point/")
	require.True(t, ok)
	assert.Equal(t, "iPhone 16e", model)

	assert.Panics(t, func() { rs.Selector("does-not-exist") })
}

func TestContainsAll(t *testing.T) {
	rs, err := MustLoad().For(models.AU)
	require.NoError(t, err)
	assert.True(t, rs.ContainsAll("program", "スマホトクするプログラム 実質負担額 38,547円"))
	assert.False(t, rs.ContainsAll("program", "スマホトクするプログラム"))
}
