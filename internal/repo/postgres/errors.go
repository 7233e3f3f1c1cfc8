package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	activeInscriptionIndex = "inscriptions_active_user_idx"
	transactionBuyOrderKey = "transactions_buy_order_key"
	pgUniqueViolation      = "23505"
	pgInvalidTextRepresent = "22P02"
)

// isUniqueViolation reports a 23505 error. A non-empty constraint narrows the
// match to that index.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

func isInvalidTextRepresentation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgInvalidTextRepresent
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
