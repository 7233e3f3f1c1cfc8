package rules

import (
	"strings"

	"github.com/ivankudzin/oneclick/internal/domain/enums"
)

var inscriptionTransitions = map[enums.InscriptionStatus][]enums.InscriptionStatus{
	enums.InscriptionStatusPending: {enums.InscriptionStatusSuccess, enums.InscriptionStatusFailed},
	enums.InscriptionStatusSuccess: {enums.InscriptionStatusRemoved},
}

func CanTransitionInscription(from, to enums.InscriptionStatus) bool {
	for _, next := range inscriptionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func IsTerminalInscription(status enums.InscriptionStatus) bool {
	return len(inscriptionTransitions[status]) == 0
}

// LastFour keeps the trailing four characters of a card number as returned by
// the gateway (for example "XXXXXXXXXXXX6623" or "6623").
func LastFour(cardNumber string) string {
	trimmed := strings.TrimSpace(cardNumber)
	runes := []rune(trimmed)
	if len(runes) <= 4 {
		return trimmed
	}
	return string(runes[len(runes)-4:])
}
