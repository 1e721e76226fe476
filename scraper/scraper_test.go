package scraper

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"iphone-price-catalog/fetcher"
	"iphone-price-catalog/models"
	"iphone-price-catalog/utils"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubExtractor struct {
	carrier models.Carrier
	run     func() ([]*models.PricedItem, error)
}

func (s stubExtractor) Carrier() models.Carrier { return s.carrier }

func (s stubExtractor) Extract(context.Context, fetcher.Fetcher) ([]*models.PricedItem, error) {
	return s.run()
}

func TestRunnerIsolatesCarrierFailures(t *testing.T) {
	var order []models.Carrier
	mk := func(c models.Carrier, run func() ([]*models.PricedItem, error)) Extractor {
		return stubExtractor{carrier: c, run: func() ([]*models.PricedItem, error) {
			order = append(order, c)
			return run()
		}}
	}

	r := NewRunner(utils.NewNopLogger(),
		mk(models.Rakuten, func() ([]*models.PricedItem, error) {
			return []*models.PricedItem{{Model: "iPhone 16"}}, nil
		}),
		mk(models.Ahamo, func() ([]*models.PricedItem, error) {
			panic("selector exploded")
		}),
		mk(models.UQMobile, func() ([]*models.PricedItem, error) {
			return nil, errors.New("index unreachable")
		}),
		mk(models.AU, func() ([]*models.PricedItem, error) {
			return []*models.PricedItem{{Model: "iPhone 15"}}, nil
		}),
	)

	results := r.Run(context.Background(), fetcher.NewStatic(nil))
	require.Len(t, results, 4)
	assert.Equal(t, []models.Carrier{models.Rakuten, models.Ahamo, models.UQMobile, models.AU}, order)

	assert.NoError(t, results[0].Err)
	assert.Len(t, results[0].Items, 1)
	assert.ErrorContains(t, results[1].Err, "selector exploded")
	assert.ErrorContains(t, results[2].Err, "index unreachable")
	assert.NoError(t, results[3].Err)
	assert.Len(t, results[3].Items, 1)
}

func TestGuardRecoversPanics(t *testing.T) {
	err := Guard(utils.NewNopLogger(), "[test] unit", func() error {
		var m map[string]int
		m["x"] = 1
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")

	assert.NoError(t, Guard(utils.NewNopLogger(), "[test] ok", func() error { return nil }))
}

func TestParseYen(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"128,000円", 128000},
		{"１３３，２６５円", 133265},
		{"税込 58,245 円", 58245},
		{"お支払い不要", 0},
		{",", 0},
		{"", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseYen(tt.in), "ParseYen(%q)", tt.in)
	}
}

func TestFindYen(t *testing.T) {
	re := regexp.MustCompile(`総額.*?([\d,]+)円`)
	assert.Equal(t, 145440, FindYen(re, "<p>支払総額</p><span>145,440円</span>"))
	assert.Equal(t, 0, FindYen(re, "no price here"))
	assert.Equal(t, 0, FindYen(regexp.MustCompile(`総額`), "総額"))
}

func TestFindAllYen(t *testing.T) {
	re := regexp.MustCompile(`([\d,]+)円/月`)
	got := FindAllYen(re, "1円/月 ・ 1,078円/月 ・ 2,980円/月 ・ ,円/月")
	assert.Equal(t, []int{1, 1078, 2980}, got)
}

func TestCleanModelName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"iPhone 17の予約・購入", "iPhone 17"},
		{"iPhone 17【予約・購入】", "iPhone 17"},
		{"iPhone 16 Pro・iPhone 16 Pro Max", "iPhone 16 Pro"},
		{"  iPhone 16e 予約 ", "iPhone 16e"},
		{"iPhone SE（第3世代）", "iPhone SE（第3世代）"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanModelName(tt.in), "CleanModelName(%q)", tt.in)
	}
}
