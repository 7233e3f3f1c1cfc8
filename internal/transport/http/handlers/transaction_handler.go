package handlers

import (
	"context"
	"net/http"

	"github.com/ivankudzin/oneclick/internal/domain/model"
	transactionsvc "github.com/ivankudzin/oneclick/internal/services/transactions"
	"github.com/ivankudzin/oneclick/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/oneclick/internal/transport/http/errors"
)

type TransactionService interface {
	Charge(ctx context.Context, in transactionsvc.ChargeInput) model.Envelope[transactionsvc.ChargeResult]
	Refund(ctx context.Context, in transactionsvc.RefundInput) model.Envelope[transactionsvc.RefundResult]
}

type TransactionHandler struct {
	service TransactionService
}

func NewTransactionHandler(service TransactionService) *TransactionHandler {
	return &TransactionHandler{service: service}
}

func (h *TransactionHandler) Charge(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeUnavailable(w, "TRANSACTION_SERVICE_UNAVAILABLE")
		return
	}

	var req dto.ChargeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidBody(w)
		return
	}

	env := h.service.Charge(r.Context(), transactionsvc.ChargeInput{
		InscriptionID: req.InscriptionID,
		UserID:        req.UserID,
		CommerceCode:  req.CommerceCode,
		BuyOrder:      req.BuyOrder,
		Amount:        req.Amount.Int64(),
		Shares:        req.Shares.Int64(),
	})
	if !env.IsOK() {
		httperrors.WriteClassified(w, env.Err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ChargeResponse{
		Status: string(env.Status),
		Trx:    env.Data.Trx,
	})
}

func (h *TransactionHandler) Refund(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeUnavailable(w, "TRANSACTION_SERVICE_UNAVAILABLE")
		return
	}

	var req dto.RefundRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidBody(w)
		return
	}

	env := h.service.Refund(r.Context(), transactionsvc.RefundInput{
		UserID:       req.UserID,
		CommerceCode: req.CommerceCode,
		BuyOrder:     req.BuyOrder,
		AuthCode:     req.AuthCode,
		Amount:       req.Amount.Int64(),
	})
	if !env.IsOK() {
		httperrors.WriteClassified(w, env.Err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.RefundResponse{
		Status:   string(env.Status),
		Message:  env.Message,
		Response: env.Data.Response,
	})
}
