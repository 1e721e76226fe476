package models

// InsightReport holds the run summary computed over a catalog.
type InsightReport struct {
	TotalItems      int
	ItemsByCarrier  map[Carrier]int
	AverageRent     float64
	MinRent         int
	MaxRent         int
	CheapestByModel map[string]*PricedItem
	CheapestOverall *PricedItem
}
