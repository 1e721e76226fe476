package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"iphone-price-catalog/models"
)

var csvHeader = []string{
	"updated_at", "carrier", "model", "storage", "price_gross", "price_effective_rent",
	"price_effective_buyout", "discount_official", "points_awarded", "program_exemption",
	"monthly_payment", "monthly_payment_phases", "variants_in_stock", "url",
}

// CSVWriter exports catalog items as a flat CSV table.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// Write appends one row per item.
func (c *CSVWriter) Write(cat *models.Catalog) error {
	for _, it := range cat.Items {
		row := []string{
			cat.UpdatedAt,
			string(it.Carrier),
			it.Model,
			it.Storage,
			strconv.Itoa(it.PriceGross),
			strconv.Itoa(it.PriceEffectiveRent),
			strconv.Itoa(it.PriceEffectiveBuyout),
			strconv.Itoa(it.DiscountOfficial),
			strconv.Itoa(it.PointsAwarded),
			strconv.Itoa(it.ProgramExemption),
			strconv.Itoa(it.MonthlyPayment),
			formatPhases(it.MonthlyPaymentPhases),
			strconv.Itoa(inStock(it.Variants)),
			it.URL,
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}

// formatPhases renders a schedule as "1〜12回:3000;13〜24回:3000".
func formatPhases(phases []models.PaymentPhase) string {
	parts := make([]string, len(phases))
	for i, p := range phases {
		parts[i] = p.Period + ":" + strconv.Itoa(p.Amount)
	}
	return strings.Join(parts, ";")
}

func inStock(variants []models.StockEntry) int {
	n := 0
	for _, v := range variants {
		if v.Available {
			n++
		}
	}
	return n
}
