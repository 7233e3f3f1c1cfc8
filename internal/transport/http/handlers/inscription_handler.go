package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ivankudzin/oneclick/internal/domain/model"
	inscriptionsvc "github.com/ivankudzin/oneclick/internal/services/inscriptions"
	"github.com/ivankudzin/oneclick/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/oneclick/internal/transport/http/errors"
)

// GatewayTokenParam is the query parameter the gateway appends when it sends
// the browser back to the finish callback.
const GatewayTokenParam = "TBK_TOKEN"

type InscriptionService interface {
	Create(ctx context.Context, in inscriptionsvc.CreateInput) model.Envelope[inscriptionsvc.CreateResult]
	Finish(ctx context.Context, in inscriptionsvc.FinishInput) string
	Delete(ctx context.Context, in inscriptionsvc.DeleteInput) model.Envelope[inscriptionsvc.DeleteResult]
}

type InscriptionHandler struct {
	service InscriptionService
}

func NewInscriptionHandler(service InscriptionService) *InscriptionHandler {
	return &InscriptionHandler{service: service}
}

func (h *InscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeUnavailable(w, "INSCRIPTION_SERVICE_UNAVAILABLE")
		return
	}

	var req dto.CreateInscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidBody(w)
		return
	}

	env := h.service.Create(r.Context(), inscriptionsvc.CreateInput{
		UserID: req.UserID,
		Email:  req.Email,
		Device: deviceFromRequest(r),
	})
	if !env.IsOK() {
		httperrors.WriteClassified(w, env.Err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.CreateInscriptionResponse{
		Status: string(env.Status),
		URL:    env.Data.URL,
		Token:  env.Data.Token,
	})
}

// Finish always answers with a redirect, for both the browser callback and
// the authenticated POST variant.
func (h *InscriptionHandler) Finish(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeUnavailable(w, "INSCRIPTION_SERVICE_UNAVAILABLE")
		return
	}

	target := h.service.Finish(r.Context(), inscriptionsvc.FinishInput{
		EncryptedID:  chi.URLParam(r, "hash"),
		GatewayToken: gatewayToken(r),
	})
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *InscriptionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeUnavailable(w, "INSCRIPTION_SERVICE_UNAVAILABLE")
		return
	}

	var req dto.DeleteInscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeInvalidBody(w)
		return
	}

	env := h.service.Delete(r.Context(), inscriptionsvc.DeleteInput{
		InscriptionID: req.InscriptionID,
		UserID:        req.UserID,
	})
	if !env.IsOK() {
		httperrors.WriteClassified(w, env.Err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.StatusResponse{
		Status:  string(env.Status),
		Message: env.Message,
	})
}

func gatewayToken(r *http.Request) string {
	if v := strings.TrimSpace(r.URL.Query().Get(GatewayTokenParam)); v != "" {
		return v
	}
	if r.Method == http.MethodPost && strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		return strings.TrimSpace(r.PostFormValue(GatewayTokenParam))
	}
	return ""
}
