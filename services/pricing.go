package services

import (
	"fmt"
	"strings"

	"iphone-price-catalog/models"
)

// Installment terms used by the monthly payment formulas.
const (
	programTerm = 24
	fullTerm    = 48
)

// Rakuten 16e point override. The 16e campaign page does not always state
// the award, so a model whose resolved points fall below the threshold is
// pinned to the promoted amount. This is a one-off override for that
// promotion, not a general policy.
const (
	PointFloorModel     = "16e"
	PointFloorThreshold = 50000
	PointFloor          = 52352
)

type formula func(o *models.RawOffer) *models.PricedItem

var formulas = map[models.Carrier]formula{
	models.Rakuten:  priceRakuten,
	models.Ahamo:    priceAhamo,
	models.UQMobile: priceUQ,
	models.AU:       priceAU,
	models.SoftBank: priceSoftBank,
	models.Docomo:   priceDocomo,
}

// Normalize converts a RawOffer into a PricedItem using its carrier's
// formula. Every price-like field of the result is non-negative.
func Normalize(o *models.RawOffer) (*models.PricedItem, error) {
	if o == nil {
		return nil, fmt.Errorf("pricing: nil offer")
	}
	f, ok := formulas[o.Carrier]
	if !ok {
		return nil, fmt.Errorf("pricing: no formula for carrier %q", o.Carrier)
	}
	if o.Gross < 0 {
		return nil, fmt.Errorf("pricing: %s %s: negative gross %d", o.Carrier, o.Model, o.Gross)
	}
	return f(capAtGross(o)), nil
}

// capAtGross returns a copy of o whose rent and program prices do not
// exceed gross, so every formula derives its monthly figure from the
// capped rent.
func capAtGross(o *models.RawOffer) *models.RawOffer {
	c := *o
	if c.Gross <= 0 {
		return &c
	}
	c.Rent = min(c.Rent, c.Gross)
	c.ProgramPrice = min(c.ProgramPrice, c.Gross)
	c.InstallmentProgram = min(c.InstallmentProgram, c.Gross)
	return &c
}

// ApplyPointFloor returns the Rakuten points to award for model.
func ApplyPointFloor(model string, points int) int {
	if strings.Contains(model, PointFloorModel) && points < PointFloorThreshold {
		return PointFloor
	}
	return points
}

// program price: explicit row, else installment-derived, else half of gross.
// Rent is the explicit row when present, otherwise the program price less
// the campaign points.
func priceRakuten(o *models.RawOffer) *models.PricedItem {
	it := base(o)

	program := o.ProgramPrice
	if program <= 0 {
		program = o.InstallmentProgram
	}
	if program <= 0 {
		program = o.Gross / 2
	}

	points := clamp0(ApplyPointFloor(o.Model, o.Points))
	rent := o.Rent
	if rent <= 0 {
		rent = program - points
	}
	rent = clamp0(rent)

	it.PointsAwarded = points
	it.ProgramExemption = clamp0(o.Gross - program)
	it.PriceEffectiveRent = rent
	it.PriceEffectiveBuyout = clamp0(o.Gross - points)
	it.MonthlyPayment = monthly(rent, o.Gross, fullTerm)
	return it
}

func priceAhamo(o *models.RawOffer) *models.PricedItem {
	it := base(o)
	discount := clamp0(o.Discount)
	points := clamp0(o.Points)

	buyout := clamp0(o.Gross - discount - points)
	rent := clamp0(o.Rent)
	exemption := 0
	if rent > 0 && o.Gross > 0 {
		exemption = clamp0(o.Gross - discount - rent)
		rent = clamp0(rent - points)
	}
	if rent == 0 && buyout > 0 {
		rent = buyout
	}

	it.DiscountOfficial = discount
	it.PointsAwarded = points
	it.ProgramExemption = exemption
	it.PriceEffectiveRent = rent
	it.PriceEffectiveBuyout = buyout
	it.MonthlyPayment = monthly(rent, o.Gross, fullTerm)
	return it
}

// UQ falls back to gross/24 rather than gross/48 when rent is zero. The
// other carriers use 48; the divergence is kept pending confirmation.
func priceUQ(o *models.RawOffer) *models.PricedItem {
	it := base(o)
	discount := clamp0(o.Discount)
	points := clamp0(o.Points)

	buyout := clamp0(o.Gross - discount - points)
	rent := buyout

	it.DiscountOfficial = discount
	it.PointsAwarded = points
	it.PriceEffectiveRent = rent
	it.PriceEffectiveBuyout = buyout
	it.MonthlyPayment = monthly(rent, o.Gross, programTerm)
	return it
}

func priceAU(o *models.RawOffer) *models.PricedItem {
	it := base(o)

	rent := clamp0(o.Rent)
	if rent > 0 && o.Gross > 0 {
		it.ProgramExemption = clamp0(o.Gross - rent)
	} else if rent == 0 {
		rent = o.Gross
	}

	it.PriceEffectiveRent = rent
	it.PriceEffectiveBuyout = o.Gross
	it.MonthlyPayment = monthly(rent, o.Gross, fullTerm)
	return it
}

// The first phase amount wins when the schedule is known; without a found
// rent there is no monthly figure at all.
func priceSoftBank(o *models.RawOffer) *models.PricedItem {
	it := base(o)

	rent := clamp0(o.Rent)
	if rent > 0 {
		it.ProgramExemption = clamp0(o.Gross - rent)
	}

	switch {
	case len(it.MonthlyPaymentPhases) > 0 && it.MonthlyPaymentPhases[0].Amount >= 1:
		it.MonthlyPayment = it.MonthlyPaymentPhases[0].Amount
	case rent > 0:
		it.MonthlyPayment = rent / programTerm
	}

	if rent == 0 {
		rent = o.Gross
	}
	it.PriceEffectiveRent = rent
	it.PriceEffectiveBuyout = o.Gross
	return it
}

func priceDocomo(o *models.RawOffer) *models.PricedItem {
	it := base(o)

	rent := clamp0(o.Rent)
	if rent > 0 {
		it.ProgramExemption = clamp0(o.Gross - rent)
	} else {
		rent = o.Gross
	}

	it.PriceEffectiveRent = rent
	it.PriceEffectiveBuyout = o.Gross
	it.MonthlyPayment = monthly(rent, o.Gross, fullTerm)
	return it
}

func base(o *models.RawOffer) *models.PricedItem {
	phases := make([]models.PaymentPhase, len(o.Phases))
	copy(phases, o.Phases)
	variants := make([]models.StockEntry, len(o.Variants))
	copy(variants, o.Variants)

	return &models.PricedItem{
		Carrier:              o.Carrier,
		Model:                o.Model,
		Storage:              o.Storage,
		URL:                  o.URL,
		PriceGross:           o.Gross,
		MonthlyPaymentPhases: phases,
		Variants:             variants,
	}
}

// monthly spreads rent over the program term, or gross over zeroDivisor
// installments when there is no rent.
func monthly(rent, gross, zeroDivisor int) int {
	if rent > 0 {
		return rent / programTerm
	}
	return clamp0(gross) / zeroDivisor
}

func clamp0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
