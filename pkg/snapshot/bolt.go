package snapshot

import (
	"context"
	"time"

	bolt "go.etcd.io/bbolt"
)

const bucketSnapshots = "snapshots"

// BoltStore keeps snapshots in a bbolt database file.
type BoltStore struct {
	db *bolt.DB
}

var _ Store = (*BoltStore)(nil)

// OpenBolt opens or creates the database at path.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, backendError("open", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketSnapshots))
		return err
	})
	if err != nil {
		db.Close()
		return nil, backendError("open", path, err)
	}
	return &BoltStore{db: db}, nil
}

// Save stores data under key.
func (s *BoltStore) Save(_ context.Context, key string, data []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSnapshots)).Put([]byte(key), data)
	})
	if err != nil {
		return backendError("save", key, err)
	}
	return nil
}

// Load returns the data under key.
func (s *BoltStore) Load(_ context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		// v is only valid inside the transaction.
		if v := tx.Bucket([]byte(bucketSnapshots)).Get([]byte(key)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, backendError("load", key, err)
	}
	if data == nil {
		return nil, notFound(key)
	}
	return data, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *BoltStore) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSnapshots)).Delete([]byte(key))
	})
	if err != nil {
		return backendError("delete", key, err)
	}
	return nil
}

// Keys returns the stored keys in order.
func (s *BoltStore) Keys() ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSnapshots)).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, backendError("list", bucketSnapshots, err)
	}
	return keys, nil
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
