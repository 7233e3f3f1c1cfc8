package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	bolt "github.com/boltdb/bolt"
	"github.com/google/uuid"

	"github.com/ivankudzin/oneclick/internal/domain/model"
	"github.com/ivankudzin/oneclick/internal/repo"
)

// TransactionStore keys transactions by buy order.
type TransactionStore struct {
	db *bolt.DB
}

func (s *TransactionStore) CountByBuyOrder(_ context.Context, buyOrder string) (int64, error) {
	var count int64
	err := s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(transactionsBucket).Get([]byte(strings.TrimSpace(buyOrder))) != nil {
			count = 1
		}
		return nil
	})
	return count, err
}

func (s *TransactionStore) Create(_ context.Context, record model.Transaction) (model.Transaction, error) {
	record.BuyOrder = strings.TrimSpace(record.BuyOrder)
	if record.BuyOrder == "" || record.InscriptionID == "" || record.Amount <= 0 {
		return model.Transaction{}, fmt.Errorf("invalid transaction create payload")
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Shares <= 0 {
		record.Shares = 1
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	record.CreatedAt = record.CreatedAt.UTC()

	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(transactionsBucket)
		if bucket.Get([]byte(record.BuyOrder)) != nil {
			return repo.ErrBuyOrderExists
		}
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("encode transaction: %w", err)
		}
		return bucket.Put([]byte(record.BuyOrder), data)
	})
	if err != nil {
		return model.Transaction{}, err
	}
	return record, nil
}

func (s *TransactionStore) Find(_ context.Context, filter repo.TransactionFilter) (model.Transaction, error) {
	var record model.Transaction
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(transactionsBucket).Get([]byte(strings.TrimSpace(filter.BuyOrder)))
		if raw == nil {
			return repo.ErrTransactionNotFound
		}
		if err := json.Unmarshal(raw, &record); err != nil {
			return fmt.Errorf("decode transaction: %w", err)
		}
		if userID := strings.TrimSpace(filter.UserID); userID != "" && record.UserID != userID {
			return repo.ErrTransactionNotFound
		}
		if authCode := strings.TrimSpace(filter.AuthCode); authCode != "" && record.AuthCode != authCode {
			return repo.ErrTransactionNotFound
		}
		return nil
	})
	if err != nil {
		return model.Transaction{}, err
	}
	return record, nil
}
