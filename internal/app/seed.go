package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SeedTenant is the tenant id demo data is seeded under.
const SeedTenant = "demo-cafe"

// Seed populates the operational tables with a small demo inventory so
// reports return rows out of the box. Idempotent: checks if data already
// exists for the demo tenant.
func Seed(ctx context.Context, db *sql.DB) error {
	var n int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items WHERE tenant_id = ?`, SeedTenant).Scan(&n); err != nil {
		return fmt.Errorf("check seed state: %w", err)
	}
	if n > 0 {
		return nil // already seeded
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	exec := func(query string, args ...any) {
		if err == nil {
			_, err = tx.ExecContext(ctx, query, args...)
		}
	}

	beverages := uuid.NewString()
	dairy := uuid.NewString()
	exec(`INSERT INTO categories (id, tenant_id, name) VALUES (?, ?, ?)`, beverages, SeedTenant, "Beverages")
	exec(`INSERT INTO categories (id, tenant_id, name) VALUES (?, ?, ?)`, dairy, SeedTenant, "Dairy")

	manager := uuid.NewString()
	barista := uuid.NewString()
	exec(`INSERT INTO users (id, tenant_id, name, email) VALUES (?, ?, ?, ?)`,
		manager, SeedTenant, "Demo Manager", "manager@example.com")
	exec(`INSERT INTO users (id, tenant_id, name, email) VALUES (?, ?, ?, ?)`,
		barista, SeedTenant, "Demo Barista", "barista@example.com")

	roastery := uuid.NewString()
	exec(`INSERT INTO suppliers (id, tenant_id, name, contact_name) VALUES (?, ?, ?, ?)`,
		roastery, SeedTenant, "City Roastery", "Sam Vega")

	type seedItem struct {
		name, barcode, unit string
		categoryID          string
		salePrice, buyPrice float64
		stockIn, stockOut   float64
	}
	items := []seedItem{
		{"Espresso Beans 1kg", "6260001000011", "kg", beverages, 48.0, 31.5, 40, 12},
		{"Cold Brew Concentrate", "6260001000028", "bottle", beverages, 9.5, 5.25, 60, 22},
		{"Whole Milk 1L", "6260001000035", "liter", dairy, 2.4, 1.6, 120, 85},
		{"Oat Milk 1L", "6260001000042", "liter", dairy, 3.1, 2.2, 80, 31},
	}

	now := time.Now().UTC()
	for i, it := range items {
		itemID := uuid.NewString()
		exec(`INSERT INTO items (id, tenant_id, category_id, name, barcode, unit, sale_price, purchase_price, created_at)
		      VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			itemID, SeedTenant, it.categoryID, it.name, it.barcode, it.unit,
			it.salePrice, it.buyPrice, now.AddDate(0, 0, -30+i))

		exec(`INSERT INTO item_suppliers (item_id, supplier_id, preferred, unit_price) VALUES (?, ?, 1, ?)`,
			itemID, roastery, it.buyPrice)

		exec(`INSERT INTO inventory_entries (id, tenant_id, item_id, user_id, quantity, entry_type, unit_price, entry_date)
		      VALUES (?, ?, ?, ?, ?, 'in', ?, ?)`,
			uuid.NewString(), SeedTenant, itemID, manager, it.stockIn, it.buyPrice, now.AddDate(0, 0, -14))
		exec(`INSERT INTO inventory_entries (id, tenant_id, item_id, user_id, quantity, entry_type, unit_price, entry_date)
		      VALUES (?, ?, ?, ?, ?, 'out', ?, ?)`,
			uuid.NewString(), SeedTenant, itemID, barista, it.stockOut, it.salePrice, now.AddDate(0, 0, -3))
	}

	if err != nil {
		return fmt.Errorf("seed demo inventory: %w", err)
	}
	return tx.Commit()
}
