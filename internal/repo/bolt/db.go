// Package bolt keeps inscriptions and transactions in an embedded BoltDB file.
// Uniqueness rules are checked and written inside a single update transaction.
package bolt

import (
	"fmt"
	"time"

	bolt "github.com/boltdb/bolt"
)

var (
	inscriptionsBucket = []byte("inscriptions")
	activeByUserBucket = []byte("inscriptions_active_by_user")
	transactionsBucket = []byte("transactions")
)

type DB struct {
	db *bolt.DB
}

// Open opens or creates the database file and ensures every bucket exists.
func Open(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("bolt path is required")
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{inscriptionsBucket, activeByUserBucket, transactionsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

func (d *DB) Inscriptions() *InscriptionStore {
	return &InscriptionStore{db: d.db}
}

func (d *DB) Transactions() *TransactionStore {
	return &TransactionStore{db: d.db}
}
