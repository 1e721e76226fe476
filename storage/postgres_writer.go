package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"iphone-price-catalog/models"
	"iphone-price-catalog/utils"
)

const insertColumns = 15

// PostgresWriter mirrors the latest catalog snapshot into PostgreSQL. Every
// Write replaces the table contents; no history is kept.
type PostgresWriter struct {
	db        *sql.DB
	lastRunID uuid.UUID
}

// NewPostgresWriter opens a connection to PostgreSQL, waits for it to accept
// pings, creates the schema and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string, retry *utils.RetryConfig) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := retry.Do("postgres-ping", db.Ping); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS catalog_items (
			id                     SERIAL PRIMARY KEY,
			run_id                 UUID         NOT NULL,
			updated_at             VARCHAR(16)  NOT NULL,
			carrier                VARCHAR(20)  NOT NULL,
			model                  TEXT         NOT NULL,
			storage                VARCHAR(20)  NOT NULL,
			price_gross            INTEGER      NOT NULL DEFAULT 0,
			price_effective_rent   INTEGER      NOT NULL DEFAULT 0,
			price_effective_buyout INTEGER      NOT NULL DEFAULT 0,
			discount_official      INTEGER      NOT NULL DEFAULT 0,
			points_awarded         INTEGER      NOT NULL DEFAULT 0,
			program_exemption      INTEGER      NOT NULL DEFAULT 0,
			monthly_payment        INTEGER      NOT NULL DEFAULT 0,
			monthly_payment_phases JSONB        NOT NULL DEFAULT '[]',
			variants               JSONB        NOT NULL DEFAULT '[]',
			url                    TEXT         NOT NULL DEFAULT '',
			created_at             TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_catalog_items_carrier ON catalog_items(carrier);
		CREATE INDEX IF NOT EXISTS idx_catalog_items_model   ON catalog_items(model);
		CREATE INDEX IF NOT EXISTS idx_catalog_items_rent    ON catalog_items(price_effective_rent);
	`)
	return err
}

// Write replaces the mirrored snapshot with c inside one transaction. The
// rows are tagged with a fresh run id.
func (pw *PostgresWriter) Write(c *models.Catalog) error {
	runID := uuid.New()

	tx, err := pw.db.Begin()
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM catalog_items"); err != nil {
		return fmt.Errorf("postgres: clear: %w", err)
	}

	const batchSize = 50
	for i := 0; i < len(c.Items); i += batchSize {
		end := i + batchSize
		if end > len(c.Items) {
			end = len(c.Items)
		}
		query, args, err := buildInsert(runID, c.UpdatedAt, c.Items[i:end])
		if err != nil {
			return err
		}
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("postgres: insert batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	pw.lastRunID = runID
	return nil
}

// RunID returns the id of the last successful Write.
func (pw *PostgresWriter) RunID() uuid.UUID {
	return pw.lastRunID
}

func buildInsert(runID uuid.UUID, updatedAt string, batch []*models.PricedItem) (string, []interface{}, error) {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*insertColumns)

	for idx, it := range batch {
		phases, err := json.Marshal(nonNilPhases(it.MonthlyPaymentPhases))
		if err != nil {
			return "", nil, fmt.Errorf("postgres: encode phases: %w", err)
		}
		variants, err := json.Marshal(nonNilVariants(it.Variants))
		if err != nil {
			return "", nil, fmt.Errorf("postgres: encode variants: %w", err)
		}

		placeholders := make([]string, insertColumns)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", idx*insertColumns+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs,
			runID.String(), updatedAt, string(it.Carrier), it.Model, it.Storage,
			it.PriceGross, it.PriceEffectiveRent, it.PriceEffectiveBuyout,
			it.DiscountOfficial, it.PointsAwarded, it.ProgramExemption, it.MonthlyPayment,
			string(phases), string(variants), it.URL)
	}

	query := fmt.Sprintf(`
		INSERT INTO catalog_items (run_id, updated_at, carrier, model, storage,
			price_gross, price_effective_rent, price_effective_buyout,
			discount_official, points_awarded, program_exemption, monthly_payment,
			monthly_payment_phases, variants, url)
		VALUES %s
	`, strings.Join(valueStrings, ","))

	return query, valueArgs, nil
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// FetchAll retrieves the mirrored items in catalog order. Used by the
// insight service.
func (pw *PostgresWriter) FetchAll() ([]*models.PricedItem, error) {
	rows, err := pw.db.Query(`
		SELECT carrier, model, storage, price_gross, price_effective_rent,
		       price_effective_buyout, discount_official, points_awarded,
		       program_exemption, monthly_payment, monthly_payment_phases, variants, url
		FROM catalog_items
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var items []*models.PricedItem
	for rows.Next() {
		it := &models.PricedItem{}
		var carrier string
		var phases, variants []byte
		if err := rows.Scan(
			&carrier, &it.Model, &it.Storage, &it.PriceGross, &it.PriceEffectiveRent,
			&it.PriceEffectiveBuyout, &it.DiscountOfficial, &it.PointsAwarded,
			&it.ProgramExemption, &it.MonthlyPayment, &phases, &variants, &it.URL,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		it.Carrier = models.Carrier(carrier)
		if err := json.Unmarshal(phases, &it.MonthlyPaymentPhases); err != nil {
			return nil, fmt.Errorf("postgres: decode phases: %w", err)
		}
		if err := json.Unmarshal(variants, &it.Variants); err != nil {
			return nil, fmt.Errorf("postgres: decode variants: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func nonNilPhases(p []models.PaymentPhase) []models.PaymentPhase {
	if p == nil {
		return []models.PaymentPhase{}
	}
	return p
}

func nonNilVariants(v []models.StockEntry) []models.StockEntry {
	if v == nil {
		return []models.StockEntry{}
	}
	return v
}
