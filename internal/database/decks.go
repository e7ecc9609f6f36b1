// Package database stores named decks in Postgres. A deck is a name
// plus counted card entries and a commander list, keyed to an owner.
package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hexproof-games/tabletop/internal/tabletop"
)

// ErrNotFound is returned when a deck id does not exist for the owner.
var ErrNotFound = errors.New("deck not found")

// Deck is a stored decklist.
type Deck struct {
	ID         string               `json:"id"`
	OwnerKey   string               `json:"ownerKey"`
	Name       string               `json:"name"`
	Entries    []tabletop.DeckEntry `json:"entries"`
	Commanders []tabletop.DeckEntry `json:"commanders"`
	CreatedAt  time.Time            `json:"createdAt"`
	UpdatedAt  time.Time            `json:"updatedAt"`
}

// Decks is the deck repository.
type Decks struct {
	pool *pgxpool.Pool
}

// Connect opens a pgx pool and verifies the connection.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

func NewDecks(pool *pgxpool.Pool) *Decks {
	return &Decks{pool: pool}
}

// Migrate creates the decks table if it does not exist.
func (d *Decks) Migrate(ctx context.Context) error {
	_, err := d.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS decks (
			id UUID PRIMARY KEY,
			owner_key TEXT NOT NULL,
			name TEXT NOT NULL,
			entries JSONB NOT NULL DEFAULT '[]',
			commanders JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (owner_key, name)
		)`)
	if err != nil {
		return fmt.Errorf("migrate decks table: %w", err)
	}
	return nil
}

// Save upserts a deck by (owner, name). A new deck gets a generated
// id; saving an existing name replaces its lists. The deck's ID field
// is filled in on return.
func (d *Decks) Save(ctx context.Context, deck *Deck) error {
	entries, err := json.Marshal(deck.Entries)
	if err != nil {
		return fmt.Errorf("encode deck entries: %w", err)
	}
	commanders, err := json.Marshal(deck.Commanders)
	if err != nil {
		return fmt.Errorf("encode deck commanders: %w", err)
	}
	if deck.ID == "" {
		deck.ID = uuid.NewString()
	}
	row := d.pool.QueryRow(ctx, `
		INSERT INTO decks (id, owner_key, name, entries, commanders)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner_key, name) DO UPDATE
			SET entries = EXCLUDED.entries,
			    commanders = EXCLUDED.commanders,
			    updated_at = now()
		RETURNING id, created_at, updated_at`,
		deck.ID, deck.OwnerKey, deck.Name, entries, commanders)
	if err := row.Scan(&deck.ID, &deck.CreatedAt, &deck.UpdatedAt); err != nil {
		return fmt.Errorf("save deck %q: %w", deck.Name, err)
	}
	return nil
}

// List returns all decks for an owner, newest first, without their
// card lists.
func (d *Decks) List(ctx context.Context, ownerKey string) ([]Deck, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, owner_key, name, created_at, updated_at
		FROM decks WHERE owner_key = $1
		ORDER BY updated_at DESC`, ownerKey)
	if err != nil {
		return nil, fmt.Errorf("list decks: %w", err)
	}
	defer rows.Close()

	var decks []Deck
	for rows.Next() {
		var deck Deck
		if err := rows.Scan(&deck.ID, &deck.OwnerKey, &deck.Name, &deck.CreatedAt, &deck.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan deck row: %w", err)
		}
		decks = append(decks, deck)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list decks: %w", err)
	}
	return decks, nil
}

// Get fetches one deck with its full card lists.
func (d *Decks) Get(ctx context.Context, ownerKey, id string) (*Deck, error) {
	var (
		deck       Deck
		entries    []byte
		commanders []byte
	)
	row := d.pool.QueryRow(ctx, `
		SELECT id, owner_key, name, entries, commanders, created_at, updated_at
		FROM decks WHERE owner_key = $1 AND id = $2`, ownerKey, id)
	err := row.Scan(&deck.ID, &deck.OwnerKey, &deck.Name, &entries, &commanders, &deck.CreatedAt, &deck.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get deck %s: %w", id, err)
	}
	if err := json.Unmarshal(entries, &deck.Entries); err != nil {
		return nil, fmt.Errorf("decode deck entries: %w", err)
	}
	if err := json.Unmarshal(commanders, &deck.Commanders); err != nil {
		return nil, fmt.Errorf("decode deck commanders: %w", err)
	}
	return &deck, nil
}

// Delete removes a deck. Deleting an absent deck returns ErrNotFound.
func (d *Decks) Delete(ctx context.Context, ownerKey, id string) error {
	tag, err := d.pool.Exec(ctx,
		`DELETE FROM decks WHERE owner_key = $1 AND id = $2`, ownerKey, id)
	if err != nil {
		return fmt.Errorf("delete deck %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
