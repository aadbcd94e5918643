// Package persist implements the periodic write-through of §4.H: a
// single DB handle, three cached prepared statements, and a flush that
// walks the asset store once per timer tick or on shutdown.
package persist

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/gamelinux/prads/internal/asset"
)

const schema = `
CREATE TABLE IF NOT EXISTS assets (
	ip TEXT NOT NULL,
	service TEXT NOT NULL,
	fp TEXT NOT NULL,
	time INTEGER NOT NULL,
	mac TEXT,
	os TEXT,
	details TEXT,
	link TEXT,
	distance INTEGER,
	hostname TEXT,
	PRIMARY KEY (service, ip, fp)
);
`

// Store is the exclusive, main-thread-only handle described in §4.H
// and §5 ("the DB handle is exclusive to the main thread").
type Store struct {
	db *sql.DB

	selectStmt *sql.Stmt
	updateStmt *sql.Stmt
	insertStmt *sql.Stmt

	dbLastUpdate time.Time
}

// Open connects to a sqlite3 database at dsn and prepares the schema
// and statements. Schema/driver choice is out of scope per §1; sqlite3
// is this module's concrete pick (see DESIGN.md).
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &Store{db: db}
	if s.selectStmt, err = db.Prepare(`SELECT ip, fp, time FROM assets WHERE service = ? AND ip = ? AND fp = ?`); err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare select: %w", err)
	}
	if s.updateStmt, err = db.Prepare(`UPDATE assets SET time = ?, os = ?, details = ? WHERE ip = ? AND fp = ?`); err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare update: %w", err)
	}
	if s.insertStmt, err = db.Prepare(`INSERT INTO assets (ip, service, fp, time, mac, os, details, link, distance, hostname) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	s.selectStmt.Close()
	s.updateStmt.Close()
	s.insertStmt.Close()
	return s.db.Close()
}

// Flush walks store, persisting every entry with Time (LastSeen) >= the
// cursor, in one transaction (§4.H, I3, I4).
func (s *Store) Flush(store *asset.Store, now time.Time) (n int, err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	txSelect := tx.Stmt(s.selectStmt)
	txUpdate := tx.Stmt(s.updateStmt)
	txInsert := tx.Stmt(s.insertStmt)

	cursor := s.dbLastUpdate
	var walkErr error
	var flushed []*asset.Asset
	store.Each(func(_ string, a *asset.Asset) {
		if walkErr != nil {
			return
		}
		if a.LastSeen.Before(cursor) {
			return
		}
		row := txSelect.QueryRow(string(a.Service), a.IP, a.Fingerprint)
		var ip, fp string
		var t int64
		switch scanErr := row.Scan(&ip, &fp, &t); scanErr {
		case nil:
			if _, err := txUpdate.Exec(a.LastSeen.Unix(), a.OS, a.Details, a.IP, a.Fingerprint); err != nil {
				walkErr = fmt.Errorf("update: %w", err)
				return
			}
		case sql.ErrNoRows:
			if _, err := txInsert.Exec(a.IP, string(a.Service), a.Fingerprint, a.LastSeen.Unix(),
				a.MAC, a.OS, a.Details, a.Link, a.Distance, a.Hostname); err != nil {
				walkErr = fmt.Errorf("insert: %w", err)
				return
			}
		default:
			walkErr = fmt.Errorf("select: %w", scanErr)
			return
		}
		n++
		flushed = append(flushed, a)
	})
	if walkErr != nil {
		tx.Rollback()
		return 0, walkErr
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	for _, a := range flushed {
		a.Dirty = false
	}
	if now.After(s.dbLastUpdate) {
		s.dbLastUpdate = now
	}
	return n, nil
}

// LastUpdate returns the monotonic persistence cursor (I3).
func (s *Store) LastUpdate() time.Time {
	return s.dbLastUpdate
}
