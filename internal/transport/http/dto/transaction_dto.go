package dto

import (
	"github.com/ivankudzin/oneclick/internal/domain/model"
	"github.com/ivankudzin/oneclick/internal/infra/transbank"
)

type ChargeRequest struct {
	InscriptionID string  `json:"inscriptionId"`
	UserID        string  `json:"userId"`
	CommerceCode  string  `json:"commerceCode"`
	BuyOrder      string  `json:"buyOrder"`
	Amount        FlexInt `json:"amount"`
	Shares        FlexInt `json:"shares"`
}

type ChargeResponse struct {
	Status string            `json:"status"`
	Trx    model.Transaction `json:"trx"`
}

type RefundRequest struct {
	UserID       string  `json:"userId"`
	CommerceCode string  `json:"commerceCode"`
	BuyOrder     string  `json:"buyOrder"`
	AuthCode     string  `json:"authCode"`
	Amount       FlexInt `json:"amount"`
}

type RefundResponse struct {
	Status   string                    `json:"status"`
	Message  string                    `json:"message,omitempty"`
	Response *transbank.RefundResponse `json:"response,omitempty"`
}
