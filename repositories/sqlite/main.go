// Package sqlite keeps stored variation records in a local SQLite file, for
// imports run without the service.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	verrors "variationutil/api/errors"
	"variationutil/api/models/indexes"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS variations (
	ref        TEXT PRIMARY KEY,
	type       TEXT NOT NULL,
	name       TEXT NOT NULL,
	workspace  TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	data       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_variations_name ON variations(workspace, name);
`

type Catalog struct {
	db *sql.DB
}

func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, verrors.Wrap(verrors.KindStorage, err, "unable to open catalog %s", path)
	}
	// single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, verrors.Wrap(verrors.KindStorage, err, "unable to initialize catalog %s", path)
	}
	return &Catalog{db: db}, nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) Save(ctx context.Context, obj *indexes.StoredObject) (string, error) {
	data, err := json.Marshal(obj.Data)
	if err != nil {
		return "", err
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO variations (ref, type, name, workspace, created_at, data) VALUES (?, ?, ?, ?, ?, ?)`,
		obj.Ref, obj.Type, obj.Name, obj.Workspace, obj.CreatedAt.UnixNano(), string(data))
	if err != nil {
		return "", verrors.Wrap(verrors.KindStorage, err, "unable to save %s", obj.Ref)
	}
	return obj.Ref, nil
}

func (c *Catalog) Get(ctx context.Context, ref string) (*indexes.StoredObject, error) {
	var (
		obj     = &indexes.StoredObject{}
		created int64
		data    string
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT ref, type, name, workspace, created_at, data FROM variations WHERE ref = ?`, ref).
		Scan(&obj.Ref, &obj.Type, &obj.Name, &obj.Workspace, &created, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, verrors.New(verrors.KindNotFound, "variation %s not found", ref)
	}
	if err != nil {
		return nil, verrors.Wrap(verrors.KindStorage, err, "unable to read %s", ref)
	}

	if err := json.Unmarshal([]byte(data), &obj.Data); err != nil {
		return nil, verrors.Wrap(verrors.KindStorage, err, "stored data of %s is corrupt", ref)
	}
	obj.CreatedAt = time.Unix(0, created).UTC()
	return obj, nil
}

// List returns the records of a workspace, newest first.
func (c *Catalog) List(ctx context.Context, workspace string) ([]*indexes.StoredObject, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT ref FROM variations WHERE workspace = ? ORDER BY created_at DESC`, workspace)
	if err != nil {
		return nil, verrors.Wrap(verrors.KindStorage, err, "unable to list %s", workspace)
	}
	var refs []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			rows.Close()
			return nil, verrors.Wrap(verrors.KindStorage, err, "unable to list %s", workspace)
		}
		refs = append(refs, ref)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, verrors.Wrap(verrors.KindStorage, err, "unable to list %s", workspace)
	}

	out := make([]*indexes.StoredObject, 0, len(refs))
	for _, ref := range refs {
		obj, err := c.Get(ctx, ref)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}
