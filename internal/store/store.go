// Package store persists subscriptions and small settings in SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/aboradar/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// ErrNotFound is returned when a subscription ID does not exist.
var ErrNotFound = errors.New("store: subscription not found")

// Setting keys.
const (
	SettingTheme          = "theme"
	SettingLetterTemplate = "letter_template"
)

const dateLayout = "2006-01-02"

// Store wraps the subscription database.
type Store struct {
	db *sql.DB
}

// LoadResult holds the subscriptions read back and the number of rows
// skipped because they were structurally invalid.
type LoadResult struct {
	Subscriptions []model.Subscription
	Dropped       int
}

// Open opens or creates the database at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

const selectColumns = `id, name, price, interval, start_date, category,
	contract_term_months, notice_period, notice_unit`

type scanner interface {
	Scan(dest ...any) error
}

// scanSubscription reads one row. ok is false for rows that cannot form a
// usable subscription (empty id or name, unparseable start date).
func scanSubscription(row scanner) (sub model.Subscription, ok bool, err error) {
	var (
		interval, start, unit string
		term, notice          sql.NullInt64
	)
	err = row.Scan(&sub.ID, &sub.Name, &sub.Price, &interval, &start, &sub.Category,
		&term, &notice, &unit)
	if err != nil {
		return sub, false, err
	}

	if sub.ID == "" || sub.Name == "" {
		return sub, false, nil
	}
	sub.StartDate, err = time.ParseInLocation(dateLayout, start, time.Local)
	if err != nil {
		return sub, false, nil
	}
	sub.Interval = model.Interval(interval)
	sub.NoticeUnit = model.NoticeUnit(unit)
	if sub.Category == "" {
		sub.Category = model.DefaultCategory
	}
	if term.Valid {
		sub.ContractTermMonths = model.IntPtr(int(term.Int64))
	}
	if notice.Valid {
		sub.NoticePeriod = model.IntPtr(int(notice.Int64))
	}
	return sub, true, nil
}

// List returns every subscription ordered by name.
func (s *Store) List() (LoadResult, error) {
	var lr LoadResult

	rows, err := s.db.Query("SELECT " + selectColumns + " FROM subscriptions ORDER BY name COLLATE NOCASE, id")
	if err != nil {
		return lr, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		sub, ok, err := scanSubscription(rows)
		if err != nil {
			return lr, err
		}
		if !ok {
			lr.Dropped++
			continue
		}
		lr.Subscriptions = append(lr.Subscriptions, sub)
	}
	return lr, rows.Err()
}

// Get returns the subscription with the given ID.
func (s *Store) Get(id string) (model.Subscription, error) {
	row := s.db.QueryRow("SELECT "+selectColumns+" FROM subscriptions WHERE id = ?", id)
	sub, ok, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Subscription{}, ErrNotFound
	}
	if err != nil {
		return model.Subscription{}, err
	}
	if !ok {
		return model.Subscription{}, fmt.Errorf("subscription %s is corrupt", id)
	}
	return sub, nil
}

// Put inserts a subscription or replaces the one with the same ID.
func (s *Store) Put(sub model.Subscription) error {
	if sub.ID == "" {
		return errors.New("store: subscription without id")
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO subscriptions
		(id, name, price, interval, start_date, category,
		 contract_term_months, notice_period, notice_unit, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.Name, sub.Price, string(sub.Interval), sub.StartDate.Format(dateLayout), sub.Category,
		nullInt(sub.ContractTermMonths), nullInt(sub.NoticePeriod), string(sub.NoticeUnit),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// PutAll stores several subscriptions in one transaction.
func (s *Store) PutAll(subs []model.Subscription) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO subscriptions
		(id, name, price, interval, start_date, category,
		 contract_term_months, notice_period, notice_unit, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, sub := range subs {
		_, err = stmt.Exec(sub.ID, sub.Name, sub.Price, string(sub.Interval), sub.StartDate.Format(dateLayout),
			sub.Category, nullInt(sub.ContractTermMonths), nullInt(sub.NoticePeriod), string(sub.NoticeUnit), now)
		if err != nil {
			return fmt.Errorf("storing %s: %w", sub.Name, err)
		}
	}
	return tx.Commit()
}

// Delete removes a subscription.
func (s *Store) Delete(id string) error {
	res, err := s.db.Exec("DELETE FROM subscriptions WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll removes every subscription and the saved letter template.
// The theme setting survives.
func (s *Store) DeleteAll() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM subscriptions"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM settings WHERE key = ?", SettingLetterTemplate); err != nil {
		return err
	}
	return tx.Commit()
}

// Count returns the number of stored subscriptions.
func (s *Store) Count() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM subscriptions").Scan(&count)
	return count, err
}

// Setting returns a stored setting, or "" when unset.
func (s *Store) Setting(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SetSetting stores a setting. An empty value deletes it.
func (s *Store) SetSetting(key, value string) error {
	if value == "" {
		_, err := s.db.Exec("DELETE FROM settings WHERE key = ?", key)
		return err
	}
	_, err := s.db.Exec("INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)", key, value)
	return err
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}
