package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"caixa/internal/core"

	_ "modernc.org/sqlite"
)

// SQLite implements EntryStore, UserStore and AccountStore over a single
// database file.
type SQLite struct {
	db *sql.DB
}

var (
	_ EntryStore   = (*SQLite)(nil)
	_ UserStore    = (*SQLite)(nil)
	_ AccountStore = (*SQLite)(nil)
)

func NewSQLite(dbPath string) (*SQLite, error) {
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

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// NewSQLiteWithDB wraps an existing connection. Used by tests to inject a
// mocked driver; migrations are the caller's responsibility.
func NewSQLiteWithDB(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// tableFor maps a kind to its table. Table names are interpolated into SQL,
// so anything but the two known kinds is rejected.
func tableFor(kind core.Kind) (string, error) {
	switch kind {
	case core.KindIncome:
		return "income_entries", nil
	case core.KindExpense:
		return "expense_entries", nil
	default:
		return "", fmt.Errorf("unknown entry kind %q", kind)
	}
}

// unavailable wraps driver failures so callers can match ErrUnavailable.
func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

func (s *SQLite) Select(ctx context.Context, kind core.Kind, ownerID string) ([]core.Entry, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, description, amount_cents, category, entry_date, paid
		 FROM `+table+`
		 WHERE owner_id = ?
		 ORDER BY entry_date DESC, id DESC`, ownerID)
	if err != nil {
		return nil, unavailable("select "+table, err)
	}
	defer rows.Close()

	var entries []core.Entry
	for rows.Next() {
		var (
			id       int64
			owner    string
			desc     string
			rawCents any
			category string
			rawDate  string
			paid     bool
		)
		if err := rows.Scan(&id, &owner, &desc, &rawCents, &category, &rawDate, &paid); err != nil {
			return nil, unavailable("scan "+table, err)
		}
		// Amounts and dates pass through the defensive coercion: a
		// non-numeric amount sums as zero, a malformed date matches no
		// month bucket.
		date, _ := core.ParseDate(rawDate)
		entries = append(entries, core.Entry{
			ID:          strconv.FormatInt(id, 10),
			OwnerID:     owner,
			Description: desc,
			Amount:      core.Money{Cents: core.CoerceCents(rawCents)},
			Category:    category,
			Date:        date,
			Paid:        paid,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate "+table, err)
	}

	return entries, nil
}

func (s *SQLite) Insert(ctx context.Context, kind core.Kind, e core.Entry) (core.Entry, error) {
	table, err := tableFor(kind)
	if err != nil {
		return core.Entry{}, err
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO `+table+` (owner_id, description, amount_cents, category, entry_date, paid)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.OwnerID, e.Description, e.Amount.Cents, e.Category, e.Date.String(), e.Paid)
	if err != nil {
		return core.Entry{}, unavailable("insert "+table, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Entry{}, unavailable("insert id "+table, err)
	}
	e.ID = strconv.FormatInt(id, 10)

	slog.InfoContext(ctx, "Entry saved",
		"table", table,
		"id", e.ID,
		"description", e.Description,
		"amount_cents", e.Amount.Cents)

	return e, nil
}

func (s *SQLite) Update(ctx context.Context, kind core.Kind, e core.Entry) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE `+table+`
		 SET description = ?, amount_cents = ?, category = ?, entry_date = ?, paid = ?
		 WHERE id = ? AND owner_id = ?`,
		e.Description, e.Amount.Cents, e.Category, e.Date.String(), e.Paid, e.ID, e.OwnerID)
	if err != nil {
		return unavailable("update "+table, err)
	}
	return nil
}

func (s *SQLite) SetPaid(ctx context.Context, kind core.Kind, id, ownerID string, paid bool) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE `+table+` SET paid = ? WHERE id = ? AND owner_id = ?`,
		paid, id, ownerID)
	if err != nil {
		return unavailable("set paid "+table, err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, kind core.Kind, id, ownerID string) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`DELETE FROM `+table+` WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return unavailable("delete "+table, err)
	}
	return nil
}

// PutUser inserts or refreshes a users row. Idempotent so the provisioning
// worker can safely reprocess a signup event.
func (s *SQLite) PutUser(ctx context.Context, u core.User) error {
	if u.Role == "" {
		u.Role = core.RoleNormal
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, role) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email`,
		u.ID, u.Name, u.Email, u.Role)
	if err != nil {
		return unavailable("put user", err)
	}
	return nil
}

// SetRole updates only the role column. The conflict clause in PutUser
// keeps roles stable across signup redeliveries, so this is the one
// write path that can grant or revoke admin.
func (s *SQLite) SetRole(ctx context.Context, id, role string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET role = ? WHERE id = ?`, role, id)
	if err != nil {
		return unavailable("set role", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	return nil
}

func (s *SQLite) GetUser(ctx context.Context, id string) (core.User, error) {
	var u core.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, role FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, fmt.Errorf("%w: user %s", ErrNotFound, id)
	}
	if err != nil {
		return core.User{}, unavailable("get user", err)
	}
	return u, nil
}

func (s *SQLite) ListUsers(ctx context.Context, actor core.User) ([]core.User, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: listing users requires the admin role", ErrPermissionDenied)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, role FROM users ORDER BY name, email`)
	if err != nil {
		return nil, unavailable("list users", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		var u core.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role); err != nil {
			return nil, unavailable("scan users", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate users", err)
	}
	return users, nil
}

// DeleteUser removes the user row, its credentials and every entry the user
// owns. Only admins may call it.
func (s *SQLite) DeleteUser(ctx context.Context, actor core.User, id string) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: deleting users requires the admin role", ErrPermissionDenied)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin delete user", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM income_entries WHERE owner_id = ?`,
		`DELETE FROM expense_entries WHERE owner_id = ?`,
		`DELETE FROM users WHERE id = ?`,
		`DELETE FROM accounts WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return unavailable("delete user", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit delete user", err)
	}

	slog.InfoContext(ctx, "User deleted", "user_id", id, "actor_id", actor.ID)
	return nil
}

func (s *SQLite) CreateAccount(ctx context.Context, a Account) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, email, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Email, a.Name, a.PasswordHash, a.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return unavailable("create account", err)
	}
	return nil
}

func (s *SQLite) GetAccountByEmail(ctx context.Context, email string) (Account, error) {
	return s.getAccount(ctx, `SELECT id, email, name, password_hash, created_at FROM accounts WHERE email = ?`, email)
}

func (s *SQLite) GetAccount(ctx context.Context, id string) (Account, error) {
	return s.getAccount(ctx, `SELECT id, email, name, password_hash, created_at FROM accounts WHERE id = ?`, id)
}

func (s *SQLite) getAccount(ctx context.Context, query, arg string) (Account, error) {
	var (
		a   Account
		raw string
	)
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, fmt.Errorf("%w: account", ErrNotFound)
	}
	if err != nil {
		return Account{}, unavailable("get account", err)
	}
	if t, perr := time.Parse(time.RFC3339, raw); perr == nil {
		a.CreatedAt = t
	}
	return a, nil
}
