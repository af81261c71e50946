package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"fintrack/internal/core"
)

var (
	boltBucket = []byte("fintrack")
	boltKey    = []byte("aggregate")
)

// BoltBackend keeps the encoded aggregate under a single key in a bbolt file.
type BoltBackend struct {
	db   *bolt.DB
	path string
}

func NewBoltBackend(dbPath string) (*BoltBackend, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(boltBucket); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", boltBucket, err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltBackend{db: db, path: dbPath}, nil
}

func (b *BoltBackend) Location() string { return b.path }

func (b *BoltBackend) Load(ctx context.Context) (core.Aggregate, error) {
	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(boltBucket).Get(boltKey); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return core.Aggregate{}, fmt.Errorf("read aggregate: %w", err)
	}
	if data == nil {
		return core.Aggregate{}, ErrMissing
	}
	return Decode(data)
}

func (b *BoltBackend) Save(ctx context.Context, a core.Aggregate) error {
	data, err := Encode(a)
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(boltBucket).Put(boltKey, data)
	})
}

func (b *BoltBackend) Close() error {
	return b.db.Close()
}
