package model

import "time"

type Transaction struct {
	ID            string    `json:"id"`
	BuyOrder      string    `json:"buy_order"`
	CommerceCode  string    `json:"commerce_code"`
	InscriptionID string    `json:"inscription_id"`
	UserID        string    `json:"user_id"`
	Amount        int64     `json:"amount"`
	Shares        int       `json:"shares"`
	AuthCode      string    `json:"auth_code"`
	ResponseCode  int       `json:"response_code"`
	PaymentType   string    `json:"payment_type"`
	Status        string    `json:"status"`
	CardDigits    string    `json:"card_digits"`
	CreatedAt     time.Time `json:"created_at"`
}
