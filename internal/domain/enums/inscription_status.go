package enums

type InscriptionStatus string

const (
	InscriptionStatusPending InscriptionStatus = "pending"
	InscriptionStatusSuccess InscriptionStatus = "success"
	InscriptionStatusFailed  InscriptionStatus = "failed"
	InscriptionStatusRemoved InscriptionStatus = "removed"
)

func (s InscriptionStatus) Valid() bool {
	switch s {
	case InscriptionStatusPending, InscriptionStatusSuccess, InscriptionStatusFailed, InscriptionStatusRemoved:
		return true
	default:
		return false
	}
}
