package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/oneclick/internal/domain/enums"
	"github.com/ivankudzin/oneclick/internal/domain/model"
	"github.com/ivankudzin/oneclick/internal/repo"
)

const inscriptionColumns = `
	id,
	user_id,
	status,
	token,
	auth_code,
	card_type,
	card_digits,
	client,
	created_at,
	removed_at`

type InscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewInscriptionRepo(pool *pgxpool.Pool) *InscriptionRepo {
	return &InscriptionRepo{pool: pool}
}

func (r *InscriptionRepo) CountActiveByUser(ctx context.Context, userID string) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var count int64
	if err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM inscriptions
WHERE user_id = $1
  AND status = $2
`, strings.TrimSpace(userID), enums.InscriptionStatusSuccess).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active inscriptions: %w", err)
	}
	return count, nil
}

func (r *InscriptionRepo) CreatePending(ctx context.Context, userID string, client model.ClientInfo, now time.Time) (model.Inscription, error) {
	if r.pool == nil {
		return model.Inscription{}, fmt.Errorf("postgres pool is nil")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return model.Inscription{}, fmt.Errorf("invalid inscription create payload")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	clientJSON, err := json.Marshal(client)
	if err != nil {
		return model.Inscription{}, fmt.Errorf("marshal inscription client: %w", err)
	}

	record, err := scanInscriptionRow(r.pool.QueryRow(ctx, `
INSERT INTO inscriptions (
	id,
	user_id,
	status,
	client,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4::jsonb, $5, $5)
RETURNING`+inscriptionColumns, uuid.NewString(), userID, enums.InscriptionStatusPending, string(clientJSON), now.UTC()))
	if err != nil {
		return model.Inscription{}, fmt.Errorf("insert pending inscription: %w", err)
	}
	return record, nil
}

func (r *InscriptionRepo) FindPending(ctx context.Context, id string) (model.Inscription, error) {
	if r.pool == nil {
		return model.Inscription{}, fmt.Errorf("postgres pool is nil")
	}

	record, err := scanInscriptionRow(r.pool.QueryRow(ctx, `
SELECT`+inscriptionColumns+`
FROM inscriptions
WHERE id = $1
  AND status = $2
`, id, enums.InscriptionStatusPending))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidTextRepresentation(err) {
			return model.Inscription{}, repo.ErrInscriptionNotFound
		}
		return model.Inscription{}, fmt.Errorf("find pending inscription: %w", err)
	}
	return record, nil
}

// FindActive loads a success inscription owned by userID. An empty id selects
// the oldest active inscription of the user.
func (r *InscriptionRepo) FindActive(ctx context.Context, id, userID string) (model.Inscription, error) {
	if r.pool == nil {
		return model.Inscription{}, fmt.Errorf("postgres pool is nil")
	}

	var row pgx.Row
	if strings.TrimSpace(id) != "" {
		row = r.pool.QueryRow(ctx, `
SELECT`+inscriptionColumns+`
FROM inscriptions
WHERE id = $1
  AND user_id = $2
  AND status = $3
`, id, userID, enums.InscriptionStatusSuccess)
	} else {
		row = r.pool.QueryRow(ctx, `
SELECT`+inscriptionColumns+`
FROM inscriptions
WHERE user_id = $1
  AND status = $2
ORDER BY created_at ASC
LIMIT 1
`, userID, enums.InscriptionStatusSuccess)
	}

	record, err := scanInscriptionRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidTextRepresentation(err) {
			return model.Inscription{}, repo.ErrInscriptionNotFound
		}
		return model.Inscription{}, fmt.Errorf("find active inscription: %w", err)
	}
	return record, nil
}

func (r *InscriptionRepo) MarkSuccess(ctx context.Context, id string, approval model.InscriptionApproval) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE inscriptions
SET
	status = $3,
	token = $4,
	auth_code = $5,
	card_type = $6,
	card_digits = $7,
	updated_at = NOW()
WHERE id = $1
  AND status = $2
`, id, enums.InscriptionStatusPending, enums.InscriptionStatusSuccess,
		approval.Token, approval.AuthCode, approval.CardType, approval.CardDigits)
	if err != nil {
		if isUniqueViolation(err, activeInscriptionIndex) {
			return repo.ErrActiveInscriptionExists
		}
		return fmt.Errorf("mark inscription success: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrStatusTransition
	}
	return nil
}

func (r *InscriptionRepo) MarkFailed(ctx context.Context, id string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE inscriptions
SET
	status = $3,
	updated_at = NOW()
WHERE id = $1
  AND status = $2
`, id, enums.InscriptionStatusPending, enums.InscriptionStatusFailed)
	if err != nil {
		return fmt.Errorf("mark inscription failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrStatusTransition
	}
	return nil
}

func (r *InscriptionRepo) MarkRemoved(ctx context.Context, id string, removedAt time.Time) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if removedAt.IsZero() {
		removedAt = time.Now().UTC()
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE inscriptions
SET
	status = $3,
	removed_at = $4,
	updated_at = NOW()
WHERE id = $1
  AND status = $2
`, id, enums.InscriptionStatusSuccess, enums.InscriptionStatusRemoved, removedAt.UTC())
	if err != nil {
		return fmt.Errorf("mark inscription removed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrStatusTransition
	}
	return nil
}

// FailPendingOlderThan fails every pending inscription created before cutoff.
func (r *InscriptionRepo) FailPendingOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE inscriptions
SET
	status = $2,
	updated_at = NOW()
WHERE status = $1
  AND created_at < $3
`, enums.InscriptionStatusPending, enums.InscriptionStatusFailed, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("fail stale pending inscriptions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanInscriptionRow(row pgx.Row) (model.Inscription, error) {
	var (
		record     model.Inscription
		status     string
		token      *string
		authCode   *string
		cardType   *string
		cardDigits *string
		rawClient  []byte
	)
	if err := row.Scan(
		&record.ID,
		&record.UserID,
		&status,
		&token,
		&authCode,
		&cardType,
		&cardDigits,
		&rawClient,
		&record.CreatedAt,
		&record.RemovedAt,
	); err != nil {
		return model.Inscription{}, err
	}

	record.Status = enums.InscriptionStatus(status)
	record.Token = derefString(token)
	record.AuthCode = derefString(authCode)
	record.CardType = derefString(cardType)
	record.CardDigits = derefString(cardDigits)
	if len(rawClient) > 0 {
		if err := json.Unmarshal(rawClient, &record.Client); err != nil {
			return model.Inscription{}, fmt.Errorf("decode inscription client: %w", err)
		}
	}
	return record, nil
}
