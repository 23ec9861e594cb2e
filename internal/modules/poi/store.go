// README: Spot store backed by Postgres; loaded once at startup.
package poi

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"docent/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the spot tables if they do not exist yet.
// ord preserves the curated tour order, which is also the nearest-query
// tie-break order.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS spots (
			id   TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			lat  DOUBLE PRECISION NOT NULL,
			lng  DOUBLE PRECISION NOT NULL,
			ord  INT NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS spot_content (
			spot_id     TEXT NOT NULL REFERENCES spots(id) ON DELETE CASCADE,
			lang        TEXT NOT NULL,
			intro       TEXT NOT NULL DEFAULT '',
			content_key TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (spot_id, lang)
		);
	`)
	return err
}

// LoadAll reads every spot with its per-language content, in tour order.
func (s *Store) LoadAll(ctx context.Context) ([]*Spot, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, lat, lng FROM spots ORDER BY ord, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var spots []*Spot
	byID := map[types.ID]*Spot{}
	for rows.Next() {
		sp := &Spot{
			Intro:   map[string]string{},
			Content: map[string]string{},
		}
		if err := rows.Scan(&sp.ID, &sp.Name, &sp.Position.Lat, &sp.Position.Lng); err != nil {
			return nil, err
		}
		spots = append(spots, sp)
		byID[sp.ID] = sp
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	crows, err := s.db.Query(ctx, `
		SELECT spot_id, lang, intro, content_key FROM spot_content
	`)
	if err != nil {
		return nil, err
	}
	defer crows.Close()

	for crows.Next() {
		var spotID types.ID
		var lang, intro, key string
		if err := crows.Scan(&spotID, &lang, &intro, &key); err != nil {
			return nil, err
		}
		if sp := byID[spotID]; sp != nil {
			sp.Intro[lang] = intro
			sp.Content[lang] = key
		}
	}
	return spots, crows.Err()
}

// Upsert writes a spot and its content rows. Used by the importer.
func (s *Store) Upsert(ctx context.Context, sp *Spot, ord int) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO spots (id, name, lat, lng, ord)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			ord = EXCLUDED.ord
	`, sp.ID, sp.Name, sp.Position.Lat, sp.Position.Lng, ord); err != nil {
		return err
	}
	for lang, intro := range sp.Intro {
		if _, err := tx.Exec(ctx, `
			INSERT INTO spot_content (spot_id, lang, intro, content_key)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (spot_id, lang) DO UPDATE SET
				intro = EXCLUDED.intro,
				content_key = EXCLUDED.content_key
		`, sp.ID, lang, intro, sp.Content[lang]); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
