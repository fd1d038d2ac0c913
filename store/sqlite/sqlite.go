/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements loyalty.MemberStore, loyalty.CatalogStore, and
  loyalty.TransactionLog on a single SQLite database. In production the
  same patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  members:      One row per account; inventory as a JSON column
  shop_items:   Catalog entries (insert-only)
  transactions: Append-only audit trail of balance mutations

PER-RECORD ATOMICITY:
  Update reads, mutates, and writes one member row inside a single SQL
  transaction, so concurrent mutations to different members never
  clobber each other and concurrent mutations to the same member
  serialize.

WAL MODE:
  The database is opened with WAL (Write-Ahead Logging): readers don't
  block, a single writer at a time, better crash recovery.

USAGE:
  store, err := sqlite.New("./data/krisflyer.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/krisflyer/loyalty-engine/loyalty"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// txTimeLayout is RFC3339 with fixed-width nanoseconds. Trailing zeros
// are kept so the lexicographic ORDER BY on created_at matches time
// order within a second.
const txTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// New creates a SQLite store at dbPath. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serializes writers; with ":memory:" it also
	// keeps every query on the same database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithClock pins the creation timestamp for lazily created members.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS members (
		id TEXT PRIMARY KEY,
		miles INTEGER NOT NULL DEFAULT 0,
		lifetime_miles INTEGER NOT NULL DEFAULT 0,
		flights_completed INTEGER NOT NULL DEFAULT 0,
		tier_name TEXT NOT NULL,
		join_date TEXT NOT NULL,
		inventory_json TEXT NOT NULL DEFAULT '{}'
	);

	-- Leaderboard scans sort by balance.
	CREATE INDEX IF NOT EXISTS idx_members_miles ON members(miles DESC);

	CREATE TABLE IF NOT EXISTS shop_items (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL,
		emoji TEXT NOT NULL,
		cost INTEGER NOT NULL,
		kind TEXT NOT NULL
	);

	-- Append-only audit trail. No UPDATE, no DELETE.
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL,
		tx_type TEXT NOT NULL,
		delta INTEGER NOT NULL,
		balance INTEGER NOT NULL,
		reason TEXT,
		item_id TEXT,
		actor TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_member
		ON transactions(member_id, created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// MEMBER STORE
// =============================================================================

func (s *Store) Get(ctx context.Context, id loyalty.MemberID) (*loyalty.Member, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, miles, lifetime_miles, flights_completed, tier_name, join_date, inventory_json
		FROM members WHERE id = ?`, string(id))
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

func (s *Store) GetOrCreate(ctx context.Context, id loyalty.MemberID) (*loyalty.Member, error) {
	return s.Update(ctx, id, func(*loyalty.Member) error { return nil })
}

// Update applies fn to the member row inside one SQL transaction,
// creating the row first if it does not exist.
func (s *Store) Update(ctx context.Context, id loyalty.MemberID, fn func(*loyalty.Member) error) (*loyalty.Member, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT id, miles, lifetime_miles, flights_completed, tier_name, join_date, inventory_json
		FROM members WHERE id = ?`, string(id))
	m, err := scanMember(row)
	if err == sql.ErrNoRows {
		m = loyalty.NewMember(id, s.now())
	} else if err != nil {
		return nil, err
	}

	if err := fn(m); err != nil {
		return nil, err
	}

	inventory, err := json.Marshal(m.Inventory)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO members (id, miles, lifetime_miles, flights_completed, tier_name, join_date, inventory_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			miles = excluded.miles,
			lifetime_miles = excluded.lifetime_miles,
			flights_completed = excluded.flights_completed,
			tier_name = excluded.tier_name,
			inventory_json = excluded.inventory_json`,
		string(m.ID), m.Miles, m.LifetimeMiles, m.FlightsCompleted,
		m.TierName, m.JoinDate.UTC().Format(time.RFC3339), string(inventory))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store) List(ctx context.Context) ([]*loyalty.Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, miles, lifetime_miles, flights_completed, tier_name, join_date, inventory_json
		FROM members`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*loyalty.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (*loyalty.Member, error) {
	var (
		m             loyalty.Member
		id            string
		joinDate      string
		inventoryJSON string
	)
	err := row.Scan(&id, &m.Miles, &m.LifetimeMiles, &m.FlightsCompleted, &m.TierName, &joinDate, &inventoryJSON)
	if err != nil {
		return nil, err
	}
	m.ID = loyalty.MemberID(id)
	if m.JoinDate, err = time.Parse(time.RFC3339, joinDate); err != nil {
		return nil, fmt.Errorf("parse join_date for %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(inventoryJSON), &m.Inventory); err != nil {
		return nil, fmt.Errorf("parse inventory for %s: %w", id, err)
	}
	if m.Inventory == nil {
		m.Inventory = make(map[loyalty.ItemID]int64)
	}
	return &m, nil
}

// =============================================================================
// CATALOG STORE
// =============================================================================

func (s *Store) GetItem(ctx context.Context, id loyalty.ItemID) (*loyalty.ShopItem, error) {
	var item loyalty.ShopItem
	var itemID, kind string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, emoji, cost, kind FROM shop_items WHERE id = ?`,
		string(id)).Scan(&itemID, &item.Name, &item.Description, &item.Emoji, &item.Cost, &kind)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	item.ID = loyalty.ItemID(itemID)
	item.Kind = loyalty.ItemKind(kind)
	return &item, nil
}

func (s *Store) InsertItem(ctx context.Context, item loyalty.ShopItem) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO shop_items (id, name, description, emoji, cost, kind)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		string(item.ID), item.Name, item.Description, item.Emoji, item.Cost, string(item.Kind))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return loyalty.ErrDuplicateItem
	}
	return nil
}

func (s *Store) ListItems(ctx context.Context) ([]loyalty.ShopItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, emoji, cost, kind FROM shop_items ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]loyalty.ShopItem, 0)
	for rows.Next() {
		var item loyalty.ShopItem
		var id, kind string
		if err := rows.Scan(&id, &item.Name, &item.Description, &item.Emoji, &item.Cost, &kind); err != nil {
			return nil, err
		}
		item.ID = loyalty.ItemID(id)
		item.Kind = loyalty.ItemKind(kind)
		items = append(items, item)
	}
	return items, rows.Err()
}

// =============================================================================
// TRANSACTION LOG
// =============================================================================

func (s *Store) AppendTransaction(ctx context.Context, tx loyalty.Transaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, member_id, tx_type, delta, balance, reason, item_id, actor, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, string(tx.MemberID), string(tx.Type), tx.Delta, tx.Balance,
		tx.Reason, string(tx.ItemID), tx.Actor, tx.CreatedAt.UTC().Format(txTimeLayout))
	return err
}

func (s *Store) Transactions(ctx context.Context, id loyalty.MemberID) ([]loyalty.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, member_id, tx_type, delta, balance, reason, item_id, actor, created_at
		FROM transactions WHERE member_id = ?
		ORDER BY created_at DESC, id`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := make([]loyalty.Transaction, 0)
	for rows.Next() {
		var tx loyalty.Transaction
		var memberID, txType, itemID, createdAt string
		if err := rows.Scan(&tx.ID, &memberID, &txType, &tx.Delta, &tx.Balance,
			&tx.Reason, &itemID, &tx.Actor, &createdAt); err != nil {
			return nil, err
		}
		tx.MemberID = loyalty.MemberID(memberID)
		tx.Type = loyalty.TransactionType(txType)
		tx.ItemID = loyalty.ItemID(itemID)
		if tx.CreatedAt, err = time.Parse(txTimeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at for tx %s: %w", tx.ID, err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// Compile-time interface checks.
var (
	_ loyalty.MemberStore    = (*Store)(nil)
	_ loyalty.CatalogStore   = (*Store)(nil)
	_ loyalty.TransactionLog = (*Store)(nil)
)
