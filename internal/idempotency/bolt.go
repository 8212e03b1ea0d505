package idempotency

import (
	"context"
	"encoding/json"
	"time"

	bolt "github.com/boltdb/bolt"
)

const boltBucket = "idempotency_keys"

// BoltStore keeps reservations in a single embedded file. It is meant for a
// single-node deployment; use RedisStore when several replicas share keys.
type BoltStore struct {
	db  *bolt.DB
	ttl time.Duration
	now func() time.Time
}

type boltRecord struct {
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func OpenBoltStore(path string, ttl time.Duration) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &BoltStore{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *BoltStore) Reserve(ctx context.Context, key, value string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	held := value
	reserved := false

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(boltBucket))
		now := s.now().UTC()

		if raw := b.Get([]byte(key)); raw != nil {
			var rec boltRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				return err
			}
			if now.Before(rec.ExpiresAt) {
				held = rec.Value
				return nil
			}
		}

		data, err := json.Marshal(boltRecord{Value: value, ExpiresAt: now.Add(s.ttl)})
		if err != nil {
			return err
		}
		reserved = true
		return b.Put([]byte(key), data)
	})
	if err != nil {
		return "", false, err
	}
	return held, reserved, nil
}

func (s *BoltStore) Release(ctx context.Context, key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(boltBucket)).Delete([]byte(key))
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
