// Package archive persists published artifacts to BoltDB so a restart
// can serve the last good documents before the first refresh completes.
package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	artifactsBucket = "artifacts"
	metadataBucket  = "metadata"

	playlistKey = "playlist.m3u"
	epgKey      = "epg_retained.xml"

	dbFilename = "tvhmux.db"
)

// Store is a BoltDB-backed archive of the most recently published
// playlist and guide documents plus their publish timestamps.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the archive database under dir. It initializes
// the required buckets if they don't exist.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("archive directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	db, err := bbolt.Open(filepath.Join(dir, dbFilename), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open archive database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{artifactsBucket, metadataBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// SavePlaylist persists the rendered playlist and its publish time in
// one transaction.
func (s *Store) SavePlaylist(ctx context.Context, rendered string, updated time.Time) error {
	return s.save(ctx, playlistKey, []byte(rendered), updated)
}

// SaveEPG persists the rendered guide document and its publish time in
// one transaction.
func (s *Store) SaveEPG(ctx context.Context, rendered []byte, updated time.Time) error {
	return s.save(ctx, epgKey, rendered, updated)
}

func (s *Store) save(ctx context.Context, key string, content []byte, updated time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		artifacts := tx.Bucket([]byte(artifactsBucket))
		if artifacts == nil {
			return errors.New("artifacts bucket not found")
		}
		if err := artifacts.Put([]byte(key), content); err != nil {
			return err
		}

		metadata := tx.Bucket([]byte(metadataBucket))
		if metadata == nil {
			return errors.New("metadata bucket not found")
		}
		return metadata.Put([]byte(key), []byte(updated.UTC().Format(time.RFC3339Nano)))
	})
}

// LoadPlaylist returns the archived playlist and its publish time. A
// zero time and empty content mean nothing has been archived yet.
func (s *Store) LoadPlaylist(ctx context.Context) (string, time.Time, error) {
	content, updated, err := s.load(ctx, playlistKey)
	return string(content), updated, err
}

// LoadEPG returns the archived guide document and its publish time. A
// zero time and nil content mean nothing has been archived yet.
func (s *Store) LoadEPG(ctx context.Context) ([]byte, time.Time, error) {
	return s.load(ctx, epgKey)
}

func (s *Store) load(ctx context.Context, key string) ([]byte, time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, time.Time{}, err
	}

	var content []byte
	var updated time.Time

	err := s.db.View(func(tx *bbolt.Tx) error {
		artifacts := tx.Bucket([]byte(artifactsBucket))
		if artifacts == nil {
			return errors.New("artifacts bucket not found")
		}
		if v := artifacts.Get([]byte(key)); v != nil {
			content = make([]byte, len(v))
			copy(content, v)
		}

		metadata := tx.Bucket([]byte(metadataBucket))
		if metadata == nil {
			return errors.New("metadata bucket not found")
		}
		if v := metadata.Get([]byte(key)); v != nil {
			parsed, err := time.Parse(time.RFC3339Nano, string(v))
			if err != nil {
				return fmt.Errorf("corrupt archive timestamp for %s: %w", key, err)
			}
			updated = parsed
		}
		return nil
	})
	if err != nil {
		return nil, time.Time{}, err
	}

	return content, updated, nil
}
