package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	bolt "github.com/boltdb/bolt"
	"github.com/google/uuid"

	"github.com/ivankudzin/oneclick/internal/domain/enums"
	"github.com/ivankudzin/oneclick/internal/domain/model"
	"github.com/ivankudzin/oneclick/internal/repo"
)

type InscriptionStore struct {
	db *bolt.DB
}

// inscriptionRecord is the stored form. The gateway token is hidden from the
// model's JSON, so it travels in its own field here.
type inscriptionRecord struct {
	model.Inscription
	StoredToken string `json:"token,omitempty"`
}

func (s *InscriptionStore) CountActiveByUser(_ context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(activeByUserBucket).Get([]byte(strings.TrimSpace(userID))) != nil {
			count = 1
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count active inscriptions: %w", err)
	}
	return count, nil
}

func (s *InscriptionStore) CreatePending(_ context.Context, userID string, client model.ClientInfo, now time.Time) (model.Inscription, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return model.Inscription{}, fmt.Errorf("invalid inscription create payload")
	}
	if now.IsZero() {
		now = time.Now()
	}

	record := model.Inscription{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    enums.InscriptionStatusPending,
		Client:    client,
		CreatedAt: now.UTC(),
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return putInscription(tx, record)
	})
	if err != nil {
		return model.Inscription{}, fmt.Errorf("insert pending inscription: %w", err)
	}
	return record, nil
}

func (s *InscriptionStore) FindPending(_ context.Context, id string) (model.Inscription, error) {
	var record model.Inscription
	err := s.db.View(func(tx *bolt.Tx) error {
		found, err := getInscription(tx, id)
		if err != nil {
			return err
		}
		if found.Status != enums.InscriptionStatusPending {
			return repo.ErrInscriptionNotFound
		}
		record = found
		return nil
	})
	return record, err
}

// FindActive loads a success inscription owned by userID. An empty id selects
// the user's active inscription.
func (s *InscriptionStore) FindActive(_ context.Context, id, userID string) (model.Inscription, error) {
	var record model.Inscription
	err := s.db.View(func(tx *bolt.Tx) error {
		if strings.TrimSpace(id) == "" {
			activeID := tx.Bucket(activeByUserBucket).Get([]byte(userID))
			if activeID == nil {
				return repo.ErrInscriptionNotFound
			}
			id = string(activeID)
		}
		found, err := getInscription(tx, id)
		if err != nil {
			return err
		}
		if found.Status != enums.InscriptionStatusSuccess || found.UserID != userID {
			return repo.ErrInscriptionNotFound
		}
		record = found
		return nil
	})
	return record, err
}

func (s *InscriptionStore) MarkSuccess(_ context.Context, id string, approval model.InscriptionApproval) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		record, err := getInscription(tx, id)
		if err != nil {
			return repo.ErrStatusTransition
		}
		if record.Status != enums.InscriptionStatusPending {
			return repo.ErrStatusTransition
		}
		active := tx.Bucket(activeByUserBucket)
		if active.Get([]byte(record.UserID)) != nil {
			return repo.ErrActiveInscriptionExists
		}

		record.Status = enums.InscriptionStatusSuccess
		record.Token = approval.Token
		record.AuthCode = approval.AuthCode
		record.CardType = approval.CardType
		record.CardDigits = approval.CardDigits
		if err := putInscription(tx, record); err != nil {
			return err
		}
		return active.Put([]byte(record.UserID), []byte(record.ID))
	})
}

func (s *InscriptionStore) MarkFailed(_ context.Context, id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		record, err := getInscription(tx, id)
		if err != nil || record.Status != enums.InscriptionStatusPending {
			return repo.ErrStatusTransition
		}
		record.Status = enums.InscriptionStatusFailed
		return putInscription(tx, record)
	})
}

func (s *InscriptionStore) MarkRemoved(_ context.Context, id string, removedAt time.Time) error {
	if removedAt.IsZero() {
		removedAt = time.Now()
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		record, err := getInscription(tx, id)
		if err != nil || record.Status != enums.InscriptionStatusSuccess {
			return repo.ErrStatusTransition
		}
		at := removedAt.UTC()
		record.Status = enums.InscriptionStatusRemoved
		record.RemovedAt = &at
		if err := putInscription(tx, record); err != nil {
			return err
		}
		active := tx.Bucket(activeByUserBucket)
		if string(active.Get([]byte(record.UserID))) == record.ID {
			return active.Delete([]byte(record.UserID))
		}
		return nil
	})
}

// FailPendingOlderThan fails every pending inscription created before cutoff.
func (s *InscriptionStore) FailPendingOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	var failed int64
	err := s.db.Update(func(tx *bolt.Tx) error {
		var stale []model.Inscription
		err := tx.Bucket(inscriptionsBucket).ForEach(func(k, _ []byte) error {
			record, err := getInscription(tx, string(k))
			if err != nil {
				return err
			}
			if record.Status == enums.InscriptionStatusPending && record.CreatedAt.Before(cutoff) {
				stale = append(stale, record)
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, record := range stale {
			record.Status = enums.InscriptionStatusFailed
			if err := putInscription(tx, record); err != nil {
				return err
			}
			failed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return failed, nil
}

func getInscription(tx *bolt.Tx, id string) (model.Inscription, error) {
	raw := tx.Bucket(inscriptionsBucket).Get([]byte(id))
	if raw == nil {
		return model.Inscription{}, repo.ErrInscriptionNotFound
	}
	var record inscriptionRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return model.Inscription{}, fmt.Errorf("decode inscription %s: %w", id, err)
	}
	record.Inscription.Token = record.StoredToken
	return record.Inscription, nil
}

func putInscription(tx *bolt.Tx, ins model.Inscription) error {
	data, err := json.Marshal(inscriptionRecord{Inscription: ins, StoredToken: ins.Token})
	if err != nil {
		return fmt.Errorf("encode inscription: %w", err)
	}
	return tx.Bucket(inscriptionsBucket).Put([]byte(ins.ID), data)
}
