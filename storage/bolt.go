package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bolt provides a BoltDB implementation of the response cache.
// Entries older than TTL are treated as missing. A zero TTL keeps entries forever.
type Bolt struct {
	DB  *bolt.DB
	TTL time.Duration
}

type boltEntry struct {
	Response string    `json:"response"`
	CachedAt time.Time `json:"cached_at"`
}

var responsesBucket = []byte("responses")

// NewBolt creates a new BoltDB client connection with the provided file path.
// It returns an initialized Bolt struct and any error encountered during database setup.
// The function ensures that required buckets exist in the database.
func NewBolt(path string, ttl time.Duration) (Bolt, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return Bolt{}, fmt.Errorf("failed to open bolt database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(responsesBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return Bolt{}, fmt.Errorf("failed to create responses bucket: %w", err)
	}

	return Bolt{DB: db, TTL: ttl}, nil
}

// CachedResponse retrieves a cached LLM response by key.
// The boolean is false when the key is missing or the entry expired.
func (b Bolt) CachedResponse(_ context.Context, key string) (string, bool, error) {
	var entry boltEntry
	found := false

	err := b.DB.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(responsesBucket)
		if bucket == nil {
			return fmt.Errorf("bucket not found")
		}

		content := bucket.Get([]byte(key))
		if content == nil {
			return nil
		}

		if err := json.Unmarshal(content, &entry); err != nil {
			return fmt.Errorf("failed to decode cached response: %w", err)
		}
		found = true

		return nil
	})
	if err != nil || !found {
		return "", false, err
	}

	if b.TTL > 0 && time.Since(entry.CachedAt) > b.TTL {
		return "", false, nil
	}

	return entry.Response, true, nil
}

// CacheResponse creates or updates the cached LLM response for key.
func (b Bolt) CacheResponse(_ context.Context, key, response string) error {
	content, err := json.Marshal(boltEntry{
		Response: response,
		CachedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode cached response: %w", err)
	}

	return b.DB.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(responsesBucket)
		if bucket == nil {
			return fmt.Errorf("bucket not found")
		}

		if err := bucket.Put([]byte(key), content); err != nil {
			return fmt.Errorf("failed to put response: %w", err)
		}

		return nil
	})
}

// Close closes the database.
func (b Bolt) Close() error {
	return b.DB.Close()
}
