package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rhexdiaz/pcshop-finance-tracker/internal/core"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

var (
	// ErrProfileNotFound aliases the domain sentinel so callers can match
	// it from either package.
	ErrProfileNotFound = core.ErrProfileNotFound

	ErrTransactionNotFound = errors.New("transaction not found")
	ErrBillNotFound        = errors.New("bill not found")
	ErrGoalNotFound        = errors.New("savings goal not found")
)

// BillState pairs a bill with its posting bookkeeping.
type BillState struct {
	Bill       core.Bill
	LastPosted time.Time
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID          string
	PrincipalID string
	Action      string
	Entity      string
	EntityID    string
	Status      string
	Detail      string
	CreatedAt   time.Time
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
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

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- Profiles ---
//
// Profiles are only ever touched through single-row keyed reads and
// upserts; the role column is mutated exclusively by the provisioning
// path and the reconcile worker.

func (r *SQLiteRepository) GetProfile(ctx context.Context, id string) (core.Profile, error) {
	var (
		p         core.Profile
		role      string
		createdAt string
		updatedAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, full_name, role, created_at, updated_at FROM profiles WHERE id = ?`, id).
		Scan(&p.ID, &p.FullName, &role, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return core.Profile{}, ErrProfileNotFound
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	p.Role = core.Role(role)
	p.CreatedAt = parseTimestamp(createdAt)
	p.UpdatedAt = parseTimestamp(updatedAt)
	return p, nil
}

func (r *SQLiteRepository) UpsertProfile(ctx context.Context, p core.Profile) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("validate profile: %w", err)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, full_name, role) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET full_name = excluded.full_name, role = excluded.role, updated_at = datetime('now')`,
		p.ID, p.FullName, string(p.Role))
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}

	slog.InfoContext(ctx, "Profile upserted",
		"id", p.ID,
		"role", string(p.Role))

	return nil
}

func (r *SQLiteRepository) ListProfiles(ctx context.Context) ([]core.Profile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, full_name, role, created_at, updated_at FROM profiles ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []core.Profile
	for rows.Next() {
		var (
			p         core.Profile
			role      string
			createdAt string
			updatedAt string
		)
		if err := rows.Scan(&p.ID, &p.FullName, &role, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		p.Role = core.Role(role)
		p.CreatedAt = parseTimestamp(createdAt)
		p.UpdatedAt = parseTimestamp(updatedAt)
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// --- Transactions ---

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (kind, date, description, amount_cents, category, created_by)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		string(t.Kind), t.Date.Format(dateLayout), t.Description, t.Amount.Cents, t.Category, t.CreatedBy)
	if err != nil {
		return 0, fmt.Errorf("create transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"kind", string(t.Kind),
		"description", t.Description,
		"amount_cents", t.Amount.Cents,
		"date", t.Date.Format(dateLayout))

	return id, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	var (
		t    core.Transaction
		kind string
		date string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, kind, date, description, amount_cents, category, created_by
		 FROM transactions WHERE id = ? AND deleted_at IS NULL`, id).
		Scan(&t.ID, &kind, &date, &t.Description, &t.Amount.Cents, &t.Category, &t.CreatedBy)
	if err == sql.ErrNoRows {
		return core.Transaction{}, ErrTransactionNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	t.Kind = core.TransactionKind(kind)
	t.Date = parseDate(date)
	return t, nil
}

// ListTransactions returns all non-deleted transactions for a given month,
// newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, year, month int) ([]core.Transaction, error) {
	from, to := monthBounds(year, month)
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, date, description, amount_cents, category, created_by
		 FROM transactions
		 WHERE deleted_at IS NULL AND date >= ? AND date < ?
		 ORDER BY date DESC, id DESC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			t    core.Transaction
			kind string
			date string
		)
		if err := rows.Scan(&t.ID, &kind, &date, &t.Description, &t.Amount.Cents, &t.Category, &t.CreatedBy); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Kind = core.TransactionKind(kind)
		t.Date = parseDate(date)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SoftDeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET deleted_at = datetime('now'), version = version + 1
		 WHERE id = ? AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("soft delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (r *SQLiteRepository) MarkTransactionSynced(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET synced_at = datetime('now') WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	return nil
}

// ListUnsyncedTransactions returns up to limit non-deleted transactions
// that have not been exported yet, oldest first.
func (r *SQLiteRepository) ListUnsyncedTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, date, description, amount_cents, category, created_by
		 FROM transactions
		 WHERE deleted_at IS NULL AND synced_at IS NULL
		 ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unsynced transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			t    core.Transaction
			kind string
			date string
		)
		if err := rows.Scan(&t.ID, &kind, &date, &t.Description, &t.Amount.Cents, &t.Category, &t.CreatedBy); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Kind = core.TransactionKind(kind)
		t.Date = parseDate(date)
		out = append(out, t)
	}
	return out, rows.Err()
}

// MonthSummary aggregates the monthly profit report: total income, total
// expenses, net, and the expense breakdown by category.
func (r *SQLiteRepository) MonthSummary(ctx context.Context, year, month int) (core.MonthSummary, error) {
	summary := core.MonthSummary{Year: year, Month: month}
	from, to := monthBounds(year, month)

	err := r.db.QueryRowContext(ctx,
		`SELECT
		   COALESCE(SUM(CASE WHEN kind = 'income' THEN amount_cents ELSE 0 END), 0),
		   COALESCE(SUM(CASE WHEN kind = 'expense' THEN amount_cents ELSE 0 END), 0)
		 FROM transactions
		 WHERE deleted_at IS NULL AND date >= ? AND date < ?`, from, to).
		Scan(&summary.Income.Cents, &summary.Expenses.Cents)
	if err != nil {
		return summary, fmt.Errorf("month totals: %w", err)
	}
	summary.Net = core.Money{Cents: summary.Income.Cents - summary.Expenses.Cents}

	rows, err := r.db.QueryContext(ctx,
		`SELECT category, COALESCE(SUM(amount_cents), 0)
		 FROM transactions
		 WHERE deleted_at IS NULL AND kind = 'expense' AND date >= ? AND date < ?
		 GROUP BY category
		 ORDER BY SUM(amount_cents) DESC`, from, to)
	if err != nil {
		return summary, fmt.Errorf("month categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ca core.CategoryAmount
		if err := rows.Scan(&ca.Name, &ca.Amount.Cents); err != nil {
			return summary, fmt.Errorf("scan category: %w", err)
		}
		summary.ByCategory = append(summary.ByCategory, ca)
	}
	return summary, rows.Err()
}

// --- Bills ---

func (r *SQLiteRepository) CreateBill(ctx context.Context, b core.Bill) (int64, error) {
	var endDate any
	if !b.EndDate.IsEmpty() {
		endDate = b.EndDate.Format(dateLayout)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO bills (start_date, end_date, every, description, amount_cents, category)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		b.StartDate.Format(dateLayout), endDate, string(b.Every), b.Description, b.Amount.Cents, b.Category)
	if err != nil {
		return 0, fmt.Errorf("create bill: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("bill id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetBill(ctx context.Context, id int64) (BillState, error) {
	var (
		state      BillState
		startDate  string
		endDate    sql.NullString
		every      string
		lastPosted sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, start_date, end_date, every, description, amount_cents, category, last_posted_at
		 FROM bills WHERE id = ?`, id).
		Scan(&state.Bill.ID, &startDate, &endDate, &every,
			&state.Bill.Description, &state.Bill.Amount.Cents, &state.Bill.Category, &lastPosted)
	if err == sql.ErrNoRows {
		return BillState{}, ErrBillNotFound
	}
	if err != nil {
		return BillState{}, fmt.Errorf("get bill: %w", err)
	}
	state.Bill.StartDate = parseDate(startDate)
	if endDate.Valid {
		state.Bill.EndDate = parseDate(endDate.String)
	}
	state.Bill.Every = core.RepetitionTypes(every)
	if lastPosted.Valid {
		state.LastPosted = parseTimestamp(lastPosted.String)
	}
	return state, nil
}

func (r *SQLiteRepository) ListBills(ctx context.Context) ([]BillState, error) {
	return r.queryBills(ctx,
		`SELECT id, start_date, end_date, every, description, amount_cents, category, last_posted_at
		 FROM bills ORDER BY id`)
}

// ListActiveBills returns bills whose recurrence window covers now.
func (r *SQLiteRepository) ListActiveBills(ctx context.Context, now time.Time) ([]BillState, error) {
	today := now.Format(dateLayout)
	return r.queryBills(ctx,
		`SELECT id, start_date, end_date, every, description, amount_cents, category, last_posted_at
		 FROM bills
		 WHERE start_date <= ? AND (end_date IS NULL OR end_date >= ?)
		 ORDER BY id`, today, today)
}

func (r *SQLiteRepository) queryBills(ctx context.Context, query string, args ...any) ([]BillState, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bills: %w", err)
	}
	defer rows.Close()

	var out []BillState
	for rows.Next() {
		var (
			state      BillState
			startDate  string
			endDate    sql.NullString
			every      string
			lastPosted sql.NullString
		)
		if err := rows.Scan(&state.Bill.ID, &startDate, &endDate, &every,
			&state.Bill.Description, &state.Bill.Amount.Cents, &state.Bill.Category, &lastPosted); err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		state.Bill.StartDate = parseDate(startDate)
		if endDate.Valid {
			state.Bill.EndDate = parseDate(endDate.String)
		}
		state.Bill.Every = core.RepetitionTypes(every)
		if lastPosted.Valid {
			state.LastPosted = parseTimestamp(lastPosted.String)
		}
		out = append(out, state)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UpdateBillLastPosted(ctx context.Context, id int64, t time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bills SET last_posted_at = ? WHERE id = ?`, t.UTC().Format(timestampLayout), id)
	if err != nil {
		return fmt.Errorf("update bill last posted: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrBillNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteBill(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bills WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete bill: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrBillNotFound
	}
	return nil
}

// --- Savings goals ---

func (r *SQLiteRepository) CreateSavingsGoal(ctx context.Context, g core.SavingsGoal) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO savings_goals (name, target_cents, saved_cents) VALUES (?, ?, ?)`,
		g.Name, g.Target.Cents, g.Saved.Cents)
	if err != nil {
		return 0, fmt.Errorf("create savings goal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("savings goal id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) ListSavingsGoals(ctx context.Context) ([]core.SavingsGoal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, target_cents, saved_cents FROM savings_goals ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list savings goals: %w", err)
	}
	defer rows.Close()

	var out []core.SavingsGoal
	for rows.Next() {
		var g core.SavingsGoal
		if err := rows.Scan(&g.ID, &g.Name, &g.Target.Cents, &g.Saved.Cents); err != nil {
			return nil, fmt.Errorf("scan savings goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// AddToSavingsGoal adds deltaCents (may be negative for withdrawals) to a
// goal's saved amount, clamped at zero.
func (r *SQLiteRepository) AddToSavingsGoal(ctx context.Context, id int64, deltaCents int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE savings_goals
		 SET saved_cents = MAX(0, saved_cents + ?), updated_at = datetime('now')
		 WHERE id = ?`, deltaCents, id)
	if err != nil {
		return fmt.Errorf("update savings goal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrGoalNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteSavingsGoal(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM savings_goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete savings goal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrGoalNotFound
	}
	return nil
}

// --- Audit log ---

func (r *SQLiteRepository) InsertAuditEntry(ctx context.Context, e AuditEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, principal_id, action, entity, entity_id, status, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.PrincipalID, e.Action, e.Entity, e.EntityID, e.Status, e.Detail)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListAuditEntries returns up to limit entries, newest first.
func (r *SQLiteRepository) ListAuditEntries(ctx context.Context, limit int) ([]AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, principal_id, action, entity, entity_id, status, detail, created_at
		 FROM audit_log ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var out []AuditEntry
	for rows.Next() {
		var (
			e         AuditEntry
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.PrincipalID, &e.Action, &e.Entity, &e.EntityID, &e.Status, &e.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.CreatedAt = parseTimestamp(createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- helpers ---

const timestampLayout = "2006-01-02 15:04:05"

func monthBounds(year, month int) (from, to string) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start.Format(dateLayout), start.AddDate(0, 1, 0).Format(dateLayout)
}

func parseDate(s string) core.Date {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return core.Date{}
	}
	return core.Date{Time: t}
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
