package models

// Carrier identifies one of the supported mobile carriers. The value is the
// display name written to the catalog.
type Carrier string

const (
	Rakuten  Carrier = "Rakuten"
	Ahamo    Carrier = "ahamo"
	UQMobile Carrier = "UQ mobile"
	AU       Carrier = "au"
	SoftBank Carrier = "SoftBank"
	Docomo   Carrier = "docomo"
)

// CarrierOrder is the fixed order carriers are scraped in and concatenated
// into the catalog.
var CarrierOrder = []Carrier{Rakuten, Ahamo, UQMobile, AU, SoftBank, Docomo}

const (
	// StorageSmallest marks an offer whose storage could not be resolved and
	// is assumed to be the smallest configuration.
	StorageSmallest = "最小容量"
	StorageUnknown  = "Unknown"

	UnknownModel = "Unknown iPhone"
)

// RawOffer holds the unprocessed price facts for one (model, storage) as read
// off a carrier page. It is consumed immediately by normalization.
type RawOffer struct {
	Carrier Carrier
	Model   string
	Storage string
	URL     string

	Gross int

	// ProgramPrice is an explicitly published program price and
	// InstallmentProgram one derived from a 48-installment amount.
	ProgramPrice       int
	InstallmentProgram int

	// Rent is the effective rent found on the page, 0 when absent.
	Rent     int
	Discount int
	Points   int

	Phases   []PaymentPhase
	Variants []StockEntry
}

// PaymentPhase is one period of a phased installment schedule, e.g.
// {"1〜12回", 3000}.
type PaymentPhase struct {
	Period string `json:"period"`
	Amount int    `json:"amount"`
}

// StockEntry is the availability of one color of a (model, storage).
type StockEntry struct {
	Model     string `json:"-"`
	Storage   string `json:"-"`
	Color     string `json:"color"`
	StockText string `json:"stock_text"`
	Available bool   `json:"stock_available"`
}

// PricedItem is the canonical catalog record.
type PricedItem struct {
	Carrier              Carrier        `json:"carrier"`
	Model                string         `json:"model"`
	Storage              string         `json:"storage"`
	PriceGross           int            `json:"price_gross"`
	PriceEffectiveRent   int            `json:"price_effective_rent"`
	PriceEffectiveBuyout int            `json:"price_effective_buyout"`
	URL                  string         `json:"url"`
	DiscountOfficial     int            `json:"discount_official"`
	PointsAwarded        int            `json:"points_awarded"`
	ProgramExemption     int            `json:"program_exemption"`
	MonthlyPayment       int            `json:"monthly_payment"`
	MonthlyPaymentPhases []PaymentPhase `json:"monthly_payment_phases"`
	Variants             []StockEntry   `json:"variants"`
}

// Catalog is the snapshot produced by one full run.
type Catalog struct {
	UpdatedAt string        `json:"updated_at"`
	Items     []*PricedItem `json:"items"`
}
