package apiapp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ivankudzin/oneclick/internal/config"
	authsvc "github.com/ivankudzin/oneclick/internal/services/auth"
	inscriptionsvc "github.com/ivankudzin/oneclick/internal/services/inscriptions"
	ratesvc "github.com/ivankudzin/oneclick/internal/services/rate"
	transactionsvc "github.com/ivankudzin/oneclick/internal/services/transactions"
	"github.com/ivankudzin/oneclick/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService        *authsvc.Service
	InscriptionService *inscriptionsvc.Service
	TransactionService *transactionsvc.Service
	FinishLimiter      *ratesvc.Limiter
	Logger             *zap.Logger
	Config             config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	base := deps.Config.BasePath()

	var inscriptionService handlers.InscriptionService
	if deps.InscriptionService != nil {
		inscriptionService = deps.InscriptionService
	}
	var transactionService handlers.TransactionService
	if deps.TransactionService != nil {
		transactionService = deps.TransactionService
	}

	healthHandler := handlers.NewHealthHandler()
	inscriptionHandler := handlers.NewInscriptionHandler(inscriptionService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	authMW := AuthMiddleware(deps.AuthService, deps.Logger)
	finishRateMW := RateLimitMiddleware(deps.FinishLimiter, deps.Logger)

	r.Use(CORSMiddleware(deps.Config.CORS.AllowedOrigins))
	r.NotFound(writeNotFound)
	r.MethodNotAllowed(writeNotFound)

	r.Get("/health", healthHandler.Get)
	if base != "/" {
		r.Get(base+"health", healthHandler.Get)
	}

	r.With(finishRateMW).Get(base+"inscription/finish/{hash}", inscriptionHandler.Finish)

	r.Group(func(r chi.Router) {
		r.Use(authMW)
		r.Post(base+"inscription/create", inscriptionHandler.Create)
		r.Post(base+"inscription/finish/{hash}", inscriptionHandler.Finish)
		r.Post(base+"inscription/delete", inscriptionHandler.Delete)
		r.Post(base+"inscription/charge", transactionHandler.Charge)
		r.Post(base+"inscription/refund", transactionHandler.Refund)
	})
}

func writeNotFound(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"error":"not found"}` + "\n"))
}
