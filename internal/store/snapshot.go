package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/tickerguard/internal/repo"
)

// ErrNoSnapshot is returned by LoadSnapshot when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no snapshot saved")

// SaveSnapshot replaces every repository record in one transaction and
// returns the snapshot's canonical digest.
func (s *Store) SaveSnapshot(ctx context.Context, snap repo.Snapshot, at time.Time) (string, error) {
	digest, err := repo.Digest(snap)
	if err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}
	blobs, err := snap.Blobs()
	if err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("save snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	ms := at.UnixMilli()
	for _, name := range repo.Names {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO repositories (name, blob, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET blob = excluded.blob, updated_at = excluded.updated_at
		`, name, string(blobs[name]), ms)
		if err != nil {
			return "", fmt.Errorf("save snapshot: write %s: %w", name, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (digest, saved_at) VALUES (?, ?)`, digest, ms,
	); err != nil {
		return "", fmt.Errorf("save snapshot: record digest: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("save snapshot: commit: %w", err)
	}
	return digest, nil
}

// LoadSnapshot reads every repository record. It returns ErrNoSnapshot for
// a fresh database.
func (s *Store) LoadSnapshot(ctx context.Context) (repo.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, blob FROM repositories
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return repo.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	defer rows.Close()

	blobs := make(map[string][]byte)
	for rows.Next() {
		var name, blob string
		if err := rows.Scan(&name, &blob); err != nil {
			return repo.Snapshot{}, fmt.Errorf("load snapshot: scan: %w", err)
		}
		blobs[name] = []byte(blob)
	}
	if err := rows.Err(); err != nil {
		return repo.Snapshot{}, fmt.Errorf("load snapshot: iterate: %w", err)
	}
	if len(blobs) == 0 {
		return repo.Snapshot{}, ErrNoSnapshot
	}

	snap, err := repo.SnapshotFromBlobs(blobs)
	if err != nil {
		return repo.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, nil
}

// LoadInto restores the saved snapshot into set. A fresh database leaves
// set untouched and reports false.
func (s *Store) LoadInto(ctx context.Context, set *repo.Set) (bool, error) {
	snap, err := s.LoadSnapshot(ctx)
	if errors.Is(err, ErrNoSnapshot) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := set.Restore(snap); err != nil {
		return false, fmt.Errorf("restore snapshot: %w", err)
	}
	return true, nil
}

// LastDigest returns the digest of the most recently saved snapshot.
func (s *Store) LastDigest(ctx context.Context) (string, error) {
	var digest string
	err := s.db.QueryRowContext(ctx, `
		SELECT digest FROM snapshots ORDER BY seq DESC LIMIT 1
	`).Scan(&digest)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoSnapshot
	}
	if err != nil {
		return "", fmt.Errorf("last digest: %w", err)
	}
	return digest, nil
}
