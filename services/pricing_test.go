package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iphone-price-catalog/models"
)

func normalize(t *testing.T, o *models.RawOffer) *models.PricedItem {
	t.Helper()
	it, err := Normalize(o)
	require.NoError(t, err)
	return it
}

func TestRakutenFeeTableWithoutProgramRow(t *testing.T) {
	it := normalize(t, &models.RawOffer{
		Carrier: models.Rakuten, Model: "iPhone 16", Storage: "256GB", Gross: 128000,
	})

	assert.Equal(t, 64000, it.ProgramExemption)
	assert.Equal(t, 64000, it.PriceEffectiveRent)
	assert.Equal(t, 0, it.PointsAwarded)
	assert.Equal(t, 128000, it.PriceEffectiveBuyout)
	assert.Equal(t, 2666, it.MonthlyPayment)
}

func TestRakutenProgramSources(t *testing.T) {
	tests := []struct {
		name          string
		offer         models.RawOffer
		wantExemption int
		wantRent      int
		wantBuyout    int
	}{
		{
			name:          "explicit program row wins over installment",
			offer:         models.RawOffer{Gross: 131800, ProgramPrice: 65880, InstallmentProgram: 70000},
			wantExemption: 65920, wantRent: 65880, wantBuyout: 131800,
		},
		{
			name:          "installment derived",
			offer:         models.RawOffer{Gross: 131800, InstallmentProgram: 65904},
			wantExemption: 65896, wantRent: 65904, wantBuyout: 131800,
		},
		{
			name:          "points reduce implicit rent",
			offer:         models.RawOffer{Gross: 128000, Points: 20000},
			wantExemption: 64000, wantRent: 44000, wantBuyout: 108000,
		},
		{
			name:          "explicit rent is not reduced by points",
			offer:         models.RawOffer{Gross: 128000, Rent: 30000, Points: 20000},
			wantExemption: 64000, wantRent: 30000, wantBuyout: 108000,
		},
		{
			name:          "points larger than program clamp rent at zero",
			offer:         models.RawOffer{Gross: 60000, Points: 40000},
			wantExemption: 30000, wantRent: 0, wantBuyout: 20000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := tt.offer
			o.Carrier = models.Rakuten
			o.Model = "iPhone 16 Pro"
			it := normalize(t, &o)
			assert.Equal(t, tt.wantExemption, it.ProgramExemption)
			assert.Equal(t, tt.wantRent, it.PriceEffectiveRent)
			assert.Equal(t, tt.wantBuyout, it.PriceEffectiveBuyout)
		})
	}
}

func TestRakuten16ePointFloor(t *testing.T) {
	it := normalize(t, &models.RawOffer{
		Carrier: models.Rakuten, Model: "iPhone 16e", Storage: "128GB", Gross: 104800, Points: 10000,
	})
	assert.Equal(t, PointFloor, it.PointsAwarded)
	assert.Equal(t, 52400-PointFloor, it.PriceEffectiveRent)
	assert.Equal(t, 104800-PointFloor, it.PriceEffectiveBuyout)
	assert.Equal(t, 2, it.MonthlyPayment)

	it = normalize(t, &models.RawOffer{
		Carrier: models.Rakuten, Model: "iPhone 16e", Storage: "128GB", Gross: 104800, Points: 60000,
	})
	assert.Equal(t, 60000, it.PointsAwarded)

	assert.Equal(t, 10000, ApplyPointFloor("iPhone 16", 10000))
	assert.Equal(t, PointFloor, ApplyPointFloor("iPhone 16e", 0))
}

func TestAhamoScenario(t *testing.T) {
	it := normalize(t, &models.RawOffer{
		Carrier: models.Ahamo, Model: "iPhone 16", Storage: "128GB",
		Gross: 133265, Rent: 58245, Discount: 5000,
	})
	assert.Equal(t, 70020, it.ProgramExemption)
	assert.Equal(t, 58245, it.PriceEffectiveRent)
	assert.Equal(t, 128265, it.PriceEffectiveBuyout)
	assert.Equal(t, 2426, it.MonthlyPayment)
	assert.Equal(t, 5000, it.DiscountOfficial)
}

func TestAhamoWithoutRentFallsBackToBuyout(t *testing.T) {
	it := normalize(t, &models.RawOffer{
		Carrier: models.Ahamo, Model: "iPhone 15", Gross: 112200, Discount: 2200,
	})
	assert.Equal(t, 0, it.ProgramExemption)
	assert.Equal(t, 110000, it.PriceEffectiveRent)
	assert.Equal(t, 110000, it.PriceEffectiveBuyout)
	assert.Equal(t, 4583, it.MonthlyPayment)
}

func TestUQZeroRentUsesTwentyFourInstallments(t *testing.T) {
	it := normalize(t, &models.RawOffer{
		Carrier: models.UQMobile, Model: "iPhone 15", Storage: "128GB", Gross: 48000, Discount: 50000,
	})
	assert.Equal(t, 0, it.PriceEffectiveRent)
	assert.Equal(t, 0, it.PriceEffectiveBuyout)
	assert.Equal(t, 2000, it.MonthlyPayment)
}

func TestUQDiscountedRent(t *testing.T) {
	it := normalize(t, &models.RawOffer{
		Carrier: models.UQMobile, Model: "iPhone 16e", Storage: "128GB", Gross: 100000, Discount: 22000,
	})
	assert.Equal(t, 78000, it.PriceEffectiveRent)
	assert.Equal(t, 78000, it.PriceEffectiveBuyout)
	assert.Equal(t, 0, it.ProgramExemption)
	assert.Equal(t, 3250, it.MonthlyPayment)
}

func TestAU(t *testing.T) {
	it := normalize(t, &models.RawOffer{Carrier: models.AU, Model: "iPhone 16e", Gross: 100000, Rent: 38547})
	assert.Equal(t, 61453, it.ProgramExemption)
	assert.Equal(t, 38547, it.PriceEffectiveRent)
	assert.Equal(t, 100000, it.PriceEffectiveBuyout)
	assert.Equal(t, 1606, it.MonthlyPayment)

	it = normalize(t, &models.RawOffer{Carrier: models.AU, Model: "iPhone 16e", Gross: 96000})
	assert.Equal(t, 0, it.ProgramExemption)
	assert.Equal(t, 96000, it.PriceEffectiveRent)
	assert.Equal(t, 4000, it.MonthlyPayment)
}

func TestSoftBank(t *testing.T) {
	phases := []models.PaymentPhase{{Period: "1〜12回", Amount: 3000}, {Period: "13〜24回", Amount: 3000}}

	tests := []struct {
		name          string
		offer         models.RawOffer
		wantMonthly   int
		wantRent      int
		wantExemption int
	}{
		{"first phase wins", models.RawOffer{Gross: 150000, Rent: 72000, Phases: phases}, 3000, 72000, 78000},
		{"rent without phases", models.RawOffer{Gross: 150000, Rent: 72000}, 3000, 72000, 78000},
		{"free first phase falls back to rent", models.RawOffer{Gross: 150000, Rent: 48000,
			Phases: []models.PaymentPhase{{Period: "1〜12回", Amount: 0}}}, 2000, 48000, 102000},
		{"nothing known", models.RawOffer{Gross: 150000}, 0, 150000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := tt.offer
			o.Carrier = models.SoftBank
			o.Model = "iPhone 16"
			it := normalize(t, &o)
			assert.Equal(t, tt.wantMonthly, it.MonthlyPayment)
			assert.Equal(t, tt.wantRent, it.PriceEffectiveRent)
			assert.Equal(t, tt.wantExemption, it.ProgramExemption)
			assert.Equal(t, o.Gross, it.PriceEffectiveBuyout)
			assert.Equal(t, len(o.Phases), len(it.MonthlyPaymentPhases))
		})
	}
}

func TestDocomo(t *testing.T) {
	it := normalize(t, &models.RawOffer{Carrier: models.Docomo, Model: "iPhone 17", Gross: 145640, Rent: 72820})
	assert.Equal(t, 72820, it.PriceEffectiveRent)
	assert.Equal(t, 72820, it.ProgramExemption)
	assert.Equal(t, 3034, it.MonthlyPayment)

	it = normalize(t, &models.RawOffer{Carrier: models.Docomo, Model: "iPhone 17", Gross: 120000})
	assert.Equal(t, 120000, it.PriceEffectiveRent)
	assert.Equal(t, 0, it.ProgramExemption)
	assert.Equal(t, 5000, it.MonthlyPayment)
}

func TestNormalizeNeverNegative(t *testing.T) {
	offers := []models.RawOffer{
		{Gross: 1000, Discount: 50000, Points: 90000, Rent: 5000},
		{Gross: 1000, ProgramPrice: 5000, Rent: -10},
		{Gross: 0, Discount: 10},
		{Gross: 90000, Rent: 120000, Points: 200000},
	}
	for _, c := range models.CarrierOrder {
		for _, o := range offers {
			o.Carrier = c
			o.Model = "iPhone 16"
			it := normalize(t, &o)
			for name, v := range map[string]int{
				"gross": it.PriceGross, "rent": it.PriceEffectiveRent, "buyout": it.PriceEffectiveBuyout,
				"exemption": it.ProgramExemption, "monthly": it.MonthlyPayment,
				"points": it.PointsAwarded, "discount": it.DiscountOfficial,
			} {
				assert.GreaterOrEqual(t, v, 0, "%s %s for %+v", c, name, o)
			}
		}
	}
}

func TestNormalizeCapsRentAtGross(t *testing.T) {
	it := normalize(t, &models.RawOffer{Carrier: models.AU, Model: "iPhone 16", Gross: 100000, Rent: 120000})
	assert.Equal(t, 100000, it.PriceEffectiveRent)
	assert.Equal(t, 4166, it.MonthlyPayment)

	for _, c := range models.CarrierOrder {
		o := models.RawOffer{Carrier: c, Model: "iPhone 16", Gross: 90000, Rent: 120000, ProgramPrice: 150000}
		it := normalize(t, &o)
		assert.LessOrEqual(t, it.PriceEffectiveRent, it.PriceGross, "%s rent", c)
		assert.LessOrEqual(t, it.PriceEffectiveBuyout, it.PriceGross, "%s buyout", c)
		if len(it.MonthlyPaymentPhases) == 0 && it.PriceEffectiveRent > 0 {
			assert.LessOrEqual(t, it.MonthlyPayment, it.PriceGross/programTerm, "%s monthly", c)
		}
	}

	cleaned := NewCleaner(newTestLogger()).Clean(models.AU, []*models.PricedItem{it})
	require.Len(t, cleaned, 1)
	assert.Equal(t, 4166, cleaned[0].MonthlyPayment)
}

func TestNormalizeRejectsBadInput(t *testing.T) {
	_, err := Normalize(nil)
	assert.Error(t, err)

	_, err = Normalize(&models.RawOffer{Carrier: "Unknown", Gross: 1})
	assert.ErrorContains(t, err, "no formula")

	_, err = Normalize(&models.RawOffer{Carrier: models.AU, Gross: -1})
	assert.ErrorContains(t, err, "negative gross")
}
