package model

import (
	"time"

	"github.com/ivankudzin/oneclick/internal/domain/enums"
)

type Inscription struct {
	ID         string                  `json:"id"`
	UserID     string                  `json:"user_id"`
	Status     enums.InscriptionStatus `json:"status"`
	Token      string                  `json:"-"`
	AuthCode   string                  `json:"auth_code,omitempty"`
	CardType   string                  `json:"card_type,omitempty"`
	CardDigits string                  `json:"card_digits,omitempty"`
	Client     ClientInfo              `json:"client"`
	CreatedAt  time.Time               `json:"created_at"`
	RemovedAt  *time.Time              `json:"removed_at,omitempty"`
}

// ClientInfo is the device metadata captured when an inscription is created.
type ClientInfo struct {
	Browser        string `json:"browser,omitempty"`
	BrowserVersion string `json:"browser_version,omitempty"`
	OS             string `json:"os,omitempty"`
	UserAgent      string `json:"ua_raw"`
	IP             string `json:"ip,omitempty"`
}

type InscriptionApproval struct {
	Token      string
	AuthCode   string
	CardType   string
	CardDigits string
}
