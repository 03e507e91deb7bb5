// Package sqlite implements the persistence ports on a local SQLite
// database. Listing order for every collection is insertion order
// (rowid); batch writes run in a single transaction.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"economize/internal/core"
	"economize/internal/store"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// EnsureDefaults implements store.Seeder. A marker row per owner keeps
// the seeding idempotent even after the user deletes the defaults.
func (r *Repository) EnsureDefaults(ctx context.Context, ownerID string) error {
	var seeded int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM seed_state WHERE owner_id = ?`, ownerID).Scan(&seeded)
	if err != nil {
		return fmt.Errorf("check seed state: %w", err)
	}
	if seeded > 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	for _, c := range core.DefaultCategories() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO categories (id, owner_id, name, color) VALUES (?, ?, ?, ?)`,
			uuid.NewString(), ownerID, c.Name, c.Color); err != nil {
			return fmt.Errorf("seed category %q: %w", c.Name, err)
		}
	}
	for _, resp := range core.DefaultResponsibles() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO responsibles (id, owner_id, name) VALUES (?, ?, ?)`,
			uuid.NewString(), ownerID, resp.Name); err != nil {
			return fmt.Errorf("seed responsible %q: %w", resp.Name, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO seed_state (owner_id) VALUES (?)`, ownerID); err != nil {
		return fmt.Errorf("mark owner seeded: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed transaction: %w", err)
	}

	slog.InfoContext(ctx, "Seeded default data", "owner_id", ownerID)
	return nil
}

func (r *Repository) ListCards(ctx context.Context, ownerID string) ([]core.Card, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, last_four, payment_day, color FROM cards WHERE owner_id = ? ORDER BY rowid`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var out []core.Card
	for rows.Next() {
		c := core.Card{OwnerID: ownerID}
		if err := rows.Scan(&c.ID, &c.Name, &c.LastFourDigits, &c.PaymentDay, &c.Color); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) AddCard(ctx context.Context, ownerID string, c core.Card) (core.Card, error) {
	if err := c.Validate(); err != nil {
		return core.Card{}, err
	}
	c.ID = uuid.NewString()
	c.OwnerID = ownerID
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cards (id, owner_id, name, last_four, payment_day, color) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, ownerID, c.Name, c.LastFourDigits, c.PaymentDay, c.Color)
	if err != nil {
		return core.Card{}, fmt.Errorf("insert card: %w", err)
	}
	return c, nil
}

func (r *Repository) DeleteCard(ctx context.Context, ownerID, id string) error {
	return r.deleteByID(ctx, "cards", ownerID, id)
}

func (r *Repository) ListPurchases(ctx context.Context, ownerID string) ([]core.Purchase, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, card_id, item, amount_cents, purchase_date, installments, current_installment,
		        responsible_id, category, notes
		 FROM purchases WHERE owner_id = ? ORDER BY rowid`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	var out []core.Purchase
	for rows.Next() {
		p := core.Purchase{OwnerID: ownerID}
		var dateStr string
		if err := rows.Scan(&p.ID, &p.CardID, &p.Item, &p.Amount.Cents, &dateStr,
			&p.Installments, &p.CurrentInstallment, &p.ResponsibleID, &p.Category, &p.Notes); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		date, err := core.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("purchase %s has invalid date %q: %w", p.ID, dateStr, err)
		}
		p.PurchaseDate = date
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) AddPurchase(ctx context.Context, ownerID string, p core.Purchase) (core.Purchase, error) {
	if err := p.Validate(); err != nil {
		return core.Purchase{}, err
	}
	p.ID = uuid.NewString()
	p.OwnerID = ownerID
	if err := insertPurchase(ctx, r.db, ownerID, p); err != nil {
		return core.Purchase{}, err
	}
	return p, nil
}

// AddPurchases inserts the batch inside one transaction, so the write
// is all-or-nothing.
func (r *Repository) AddPurchases(ctx context.Context, ownerID string, ps []core.Purchase) error {
	for _, p := range ps {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("purchase %q: %w", p.Item, err)
		}
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch insert: %w", err)
	}
	defer tx.Rollback()

	for _, p := range ps {
		p.ID = uuid.NewString()
		p.OwnerID = ownerID
		if err := insertPurchase(ctx, tx, ownerID, p); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch insert: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertPurchase(ctx context.Context, db execer, ownerID string, p core.Purchase) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO purchases (id, owner_id, card_id, item, amount_cents, purchase_date,
		                        installments, current_installment, responsible_id, category, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, ownerID, p.CardID, p.Item, p.Amount.Cents, p.PurchaseDate.ISO(),
		p.Installments, p.CurrentInstallment, p.ResponsibleID, p.Category, p.Notes)
	if err != nil {
		return fmt.Errorf("insert purchase: %w", err)
	}
	return nil
}

// UpdatePurchase reads the row, applies the patch and writes it back.
// There is no row locking; two concurrent updates race and the last
// write wins.
func (r *Repository) UpdatePurchase(ctx context.Context, ownerID, id string, patch core.PurchasePatch) error {
	row := r.db.QueryRowContext(ctx,
		`SELECT card_id, item, amount_cents, purchase_date, installments, current_installment,
		        responsible_id, category, notes
		 FROM purchases WHERE owner_id = ? AND id = ?`,
		ownerID, id)

	p := core.Purchase{ID: id, OwnerID: ownerID}
	var dateStr string
	err := row.Scan(&p.CardID, &p.Item, &p.Amount.Cents, &dateStr,
		&p.Installments, &p.CurrentInstallment, &p.ResponsibleID, &p.Category, &p.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load purchase for update: %w", err)
	}
	date, err := core.ParseDate(dateStr)
	if err != nil {
		return fmt.Errorf("purchase %s has invalid date %q: %w", id, dateStr, err)
	}
	p.PurchaseDate = date

	patch.Apply(&p)
	if err := p.Validate(); err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE purchases
		 SET card_id = ?, item = ?, amount_cents = ?, purchase_date = ?, installments = ?,
		     current_installment = ?, responsible_id = ?, category = ?, notes = ?, updated_at = ?
		 WHERE owner_id = ? AND id = ?`,
		p.CardID, p.Item, p.Amount.Cents, p.PurchaseDate.ISO(), p.Installments,
		p.CurrentInstallment, p.ResponsibleID, p.Category, p.Notes, time.Now().UTC(),
		ownerID, id)
	if err != nil {
		return fmt.Errorf("update purchase: %w", err)
	}
	return nil
}

func (r *Repository) DeletePurchase(ctx context.Context, ownerID, id string) error {
	return r.deleteByID(ctx, "purchases", ownerID, id)
}

func (r *Repository) DeletePurchases(ctx context.Context, ownerID string, ids []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch delete: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM purchases WHERE owner_id = ? AND id = ?`, ownerID, id); err != nil {
			return fmt.Errorf("delete purchase %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch delete: %w", err)
	}
	return nil
}

func (r *Repository) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, color FROM categories WHERE owner_id = ? ORDER BY rowid`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) AddCategory(ctx context.Context, ownerID string, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	c.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, owner_id, name, color) VALUES (?, ?, ?, ?)`,
		c.ID, ownerID, c.Name, c.Color)
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}

func (r *Repository) DeleteCategory(ctx context.Context, ownerID, id string) error {
	return r.deleteByID(ctx, "categories", ownerID, id)
}

func (r *Repository) ListResponsibles(ctx context.Context, ownerID string) ([]core.Responsible, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name FROM responsibles WHERE owner_id = ? ORDER BY rowid`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list responsibles: %w", err)
	}
	defer rows.Close()

	var out []core.Responsible
	for rows.Next() {
		var resp core.Responsible
		if err := rows.Scan(&resp.ID, &resp.Name); err != nil {
			return nil, fmt.Errorf("scan responsible: %w", err)
		}
		out = append(out, resp)
	}
	return out, rows.Err()
}

func (r *Repository) AddResponsible(ctx context.Context, ownerID string, resp core.Responsible) (core.Responsible, error) {
	if err := resp.Validate(); err != nil {
		return core.Responsible{}, err
	}
	resp.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO responsibles (id, owner_id, name) VALUES (?, ?, ?)`,
		resp.ID, ownerID, resp.Name)
	if err != nil {
		return core.Responsible{}, fmt.Errorf("insert responsible: %w", err)
	}
	return resp, nil
}

func (r *Repository) DeleteResponsible(ctx context.Context, ownerID, id string) error {
	return r.deleteByID(ctx, "responsibles", ownerID, id)
}

func (r *Repository) ListCycles(ctx context.Context, ownerID string) ([]core.CardCycle, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, card_id, year, month, start_date, end_date
		 FROM cycles WHERE owner_id = ? ORDER BY rowid`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list cycles: %w", err)
	}
	defer rows.Close()

	var out []core.CardCycle
	for rows.Next() {
		var cc core.CardCycle
		var startStr, endStr string
		if err := rows.Scan(&cc.ID, &cc.CardID, &cc.Year, &cc.Month, &startStr, &endStr); err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		if cc.StartDate, err = core.ParseDate(startStr); err != nil {
			return nil, fmt.Errorf("cycle %s has invalid start date %q: %w", cc.ID, startStr, err)
		}
		if cc.EndDate, err = core.ParseDate(endStr); err != nil {
			return nil, fmt.Errorf("cycle %s has invalid end date %q: %w", cc.ID, endStr, err)
		}
		out = append(out, cc)
	}
	return out, rows.Err()
}

func (r *Repository) SaveCycle(ctx context.Context, ownerID string, cc core.CardCycle) error {
	if err := cc.Validate(); err != nil {
		return err
	}
	id := fmt.Sprintf("%s-%04d-%02d", cc.CardID, cc.Year, cc.Month)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cycles (id, owner_id, card_id, year, month, start_date, end_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(owner_id, card_id, year, month)
		 DO UPDATE SET start_date = excluded.start_date, end_date = excluded.end_date,
		               updated_at = CURRENT_TIMESTAMP`,
		id, ownerID, cc.CardID, cc.Year, cc.Month, cc.StartDate.ISO(), cc.EndDate.ISO())
	if err != nil {
		return fmt.Errorf("save cycle: %w", err)
	}
	return nil
}

func (r *Repository) deleteByID(ctx context.Context, table, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE owner_id = ? AND id = ?`, table), ownerID, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
