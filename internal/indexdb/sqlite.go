package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"climateworld/internal/config"
	"climateworld/internal/world"
)

// WorldRecord is the persisted description of a generated world. Cells are
// never stored; a world is regenerated from its config when needed.
type WorldRecord struct {
	ID            string              `json:"id"`
	Config        config.Generation   `json:"config"`
	Digest        string              `json:"digest"`
	Width         int                 `json:"width"`
	Height        int                 `json:"height"`
	OceanFraction float64             `json:"oceanFraction"`
	Biomes        map[world.Biome]int `json:"biomes,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
}

// SQLiteIndex is the registry of generated worlds.
type SQLiteIndex struct {
	db   *sql.DB
	once sync.Once
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteIndex{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS worlds (
			id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			config_json TEXT NOT NULL,
			digest TEXT NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			ocean_fraction REAL NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS worlds_created_at ON worlds(created_at);`,
		`CREATE TABLE IF NOT EXISTS world_biomes (
			world_id TEXT NOT NULL REFERENCES worlds(id) ON DELETE CASCADE,
			biome TEXT NOT NULL,
			cells INTEGER NOT NULL,
			PRIMARY KEY (world_id, biome)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		err = s.db.Close()
	})
	return err
}

// RecordWorld inserts or replaces a world and its biome histogram.
func (s *SQLiteIndex) RecordWorld(ctx context.Context, rec WorldRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("world record has no id")
	}
	cfgJSON, err := json.Marshal(rec.Config)
	if err != nil {
		return fmt.Errorf("marshal world config: %w", err)
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO worlds(id,seed,config_json,digest,width,height,ocean_fraction,created_at) VALUES(?,?,?,?,?,?,?,?)`,
		rec.ID, int64(rec.Config.Seed), string(cfgJSON), rec.Digest, rec.Width, rec.Height, rec.OceanFraction,
		created.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("insert world: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM world_biomes WHERE world_id=?`, rec.ID); err != nil {
		return fmt.Errorf("clear world biomes: %w", err)
	}
	for biome, cells := range rec.Biomes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO world_biomes(world_id,biome,cells) VALUES(?,?,?)`,
			rec.ID, biome.String(), cells,
		); err != nil {
			return fmt.Errorf("insert world biome: %w", err)
		}
	}
	return tx.Commit()
}

// LoadWorld returns the record for id, including its biome histogram.
func (s *SQLiteIndex) LoadWorld(ctx context.Context, id string) (WorldRecord, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id,config_json,digest,width,height,ocean_fraction,created_at FROM worlds WHERE id=?`, id)
	rec, err := scanWorld(row)
	if errors.Is(err, sql.ErrNoRows) {
		return WorldRecord{}, false, nil
	}
	if err != nil {
		return WorldRecord{}, false, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT biome,cells FROM world_biomes WHERE world_id=?`, id)
	if err != nil {
		return WorldRecord{}, false, fmt.Errorf("query world biomes: %w", err)
	}
	defer rows.Close()
	rec.Biomes = make(map[world.Biome]int)
	for rows.Next() {
		var (
			name  string
			cells int
		)
		if err := rows.Scan(&name, &cells); err != nil {
			return WorldRecord{}, false, err
		}
		biome, err := world.ParseBiome(name)
		if err != nil {
			return WorldRecord{}, false, fmt.Errorf("world %s: %w", id, err)
		}
		rec.Biomes[biome] = cells
	}
	if err := rows.Err(); err != nil {
		return WorldRecord{}, false, err
	}
	return rec, true, nil
}

// ListWorlds returns every recorded world, oldest first, without histograms.
func (s *SQLiteIndex) ListWorlds(ctx context.Context) ([]WorldRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id,config_json,digest,width,height,ocean_fraction,created_at FROM worlds ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query worlds: %w", err)
	}
	defer rows.Close()

	var out []WorldRecord
	for rows.Next() {
		rec, err := scanWorld(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWorld(row scanner) (WorldRecord, error) {
	var (
		rec     WorldRecord
		cfgJSON string
		created string
	)
	if err := row.Scan(&rec.ID, &cfgJSON, &rec.Digest, &rec.Width, &rec.Height, &rec.OceanFraction, &created); err != nil {
		return WorldRecord{}, err
	}
	if err := json.Unmarshal([]byte(cfgJSON), &rec.Config); err != nil {
		return WorldRecord{}, fmt.Errorf("world %s config: %w", rec.ID, err)
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return WorldRecord{}, fmt.Errorf("world %s created_at: %w", rec.ID, err)
	}
	rec.CreatedAt = t
	return rec, nil
}
