// Package store persists sessions in a bbolt database. Each saved session
// is one key in the "sessions" bucket whose value is the engine/save JSON
// encoding.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/nathoo/parley/engine/save"
	"github.com/nathoo/parley/types"
)

var bucket = []byte("sessions")

// ErrNotFound is returned by Load for a name with no saved session.
var ErrNotFound = errors.New("store: session not found")

// Store is a bbolt-backed session store. Safe for concurrent use.
type Store struct {
	db  *bolt.DB
	log *zap.Logger
}

// Open opens (creating if needed) the database at path.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: creating %s: %w", dir, err)
		}
	}
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: creating bucket: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Close releases the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes s under name, replacing any previous save.
func (s *Store) Save(ctx context.Context, name string, sess *types.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" {
		return errors.New("store: empty save name")
	}
	js, err := save.Save(sess)
	if err != nil {
		return fmt.Errorf("store: encoding %s: %w", name, err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(name), js)
	})
	if err != nil {
		return fmt.Errorf("store: writing %s: %w", name, err)
	}
	s.log.Debug("session saved", zap.String("name", name), zap.String("session", sess.ID), zap.Int("bytes", len(js)))
	return nil
}

// Load reads the save stored under name.
func (s *Store) Load(ctx context.Context, name string) (*save.SaveData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var js []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucket).Get([]byte(name)); v != nil {
			// v is only valid inside the transaction.
			js = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: reading %s: %w", name, err)
	}
	if js == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	sd, err := save.Load(js)
	if err != nil {
		return nil, fmt.Errorf("store: decoding %s: %w", name, err)
	}
	return sd, nil
}

// Delete removes the save stored under name. Deleting a missing name is
// not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Delete([]byte(name))
	})
}

// List returns the saved names in key order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("store: listing: %w", err)
	}
	return names, nil
}
