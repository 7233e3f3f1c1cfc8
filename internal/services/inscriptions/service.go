package inscriptions

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ivankudzin/oneclick/internal/domain/errs"
	"github.com/ivankudzin/oneclick/internal/domain/model"
	"github.com/ivankudzin/oneclick/internal/domain/rules"
	"github.com/ivankudzin/oneclick/internal/infra/transbank"
	"github.com/ivankudzin/oneclick/internal/pkg/device"
	"github.com/ivankudzin/oneclick/internal/pkg/validate"
	"github.com/ivankudzin/oneclick/internal/repo"
	authsvc "github.com/ivankudzin/oneclick/internal/services/auth"
)

const (
	ReasonMissingUserAgent       = "MISSING_UA"
	ReasonInvalidUserID          = "INVALID_USER_ID"
	ReasonInvalidEmail           = "INVALID_USER_EMAIL"
	ReasonInvalidInscriptionID   = "INVALID_INSCRIPTION_ID"
	ReasonInvalidGatewayToken    = "INVALID_TBK_TOKEN"
	ReasonActiveExists           = "ACTIVE_INSCRIPTION_EXISTS"
	ReasonActiveNotFound         = "ACTIVE_INSCRIPTION_NOT_FOUND"
	ReasonPendingNotFound        = "PENDING_INSCRIPTION_NOT_FOUND"
	ReasonMissingToken           = "MISSING_INSCRIPTION_TOKEN_PROP"
	ReasonUnexpectedResponse     = "UNEXPECTED_TBK_RESPONSE"
	ReasonGatewayRequestFailed   = "TBK_REQUEST_FAILED"
	MessageGatewayAlreadyRemoved = "inscription no longer exists in Transbank"
)

type Store interface {
	CountActiveByUser(ctx context.Context, userID string) (int64, error)
	CreatePending(ctx context.Context, userID string, client model.ClientInfo, now time.Time) (model.Inscription, error)
	FindPending(ctx context.Context, id string) (model.Inscription, error)
	FindActive(ctx context.Context, id, userID string) (model.Inscription, error)
	MarkSuccess(ctx context.Context, id string, approval model.InscriptionApproval) error
	MarkFailed(ctx context.Context, id string) error
	MarkRemoved(ctx context.Context, id string, removedAt time.Time) error
}

type Gateway interface {
	StartInscription(ctx context.Context, username, email, responseURL string) (transbank.StartInscriptionResponse, error)
	FinishInscription(ctx context.Context, token string) (transbank.FinishInscriptionResponse, error)
	DeleteInscription(ctx context.Context, tbkUser, username string) error
}

type Codec interface {
	Encrypt(plain string) (string, error)
	Decrypt(token string) (string, error)
}

type Config struct {
	CallbackBaseURL string
	SuccessURL      string
	FailedURL       string
}

type Dependencies struct {
	Store   Store
	Gateway Gateway
	Codec   Codec
	Logger  *zap.Logger
}

type Service struct {
	store   Store
	gateway Gateway
	codec   Codec
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time
}

type CreateInput struct {
	UserID string
	Email  string
	Device device.Context
}

type CreateResult struct {
	URL   string `json:"url"`
	Token string `json:"token"`
}

type FinishInput struct {
	EncryptedID  string
	GatewayToken string
}

type DeleteInput struct {
	InscriptionID string
	UserID        string
}

type DeleteResult struct{}

func NewService(deps Dependencies, cfg Config) *Service {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:   deps.Store,
		gateway: deps.Gateway,
		codec:   deps.Codec,
		cfg:     cfg,
		logger:  log,
		now:     time.Now,
	}
}

// Create opens a pending inscription and asks the gateway for the card
// enrollment redirect.
func (s *Service) Create(ctx context.Context, in CreateInput) model.Envelope[CreateResult] {
	userID := validate.Sanitize(in.UserID)
	email := strings.ToLower(validate.Sanitize(in.Email))

	if !in.Device.HasUserAgent() {
		return fail[CreateResult](s, "create", errs.Validation(ReasonMissingUserAgent))
	}
	if !validate.UserID(userID) {
		return fail[CreateResult](s, "create", errs.Validation(ReasonInvalidUserID))
	}
	if !validate.Email(email) {
		return fail[CreateResult](s, "create", errs.Validation(ReasonInvalidEmail))
	}

	active, err := s.store.CountActiveByUser(ctx, userID)
	if err != nil {
		return fail[CreateResult](s, "create", errs.Internal(err))
	}
	if active > 0 {
		return fail[CreateResult](s, "create", errs.Conflict(ReasonActiveExists))
	}

	pending, err := s.store.CreatePending(ctx, userID, device.Parse(in.Device), s.now())
	if err != nil {
		return fail[CreateResult](s, "create", errs.Internal(err))
	}

	hash, err := s.codec.Encrypt(pending.ID)
	if err != nil {
		return fail[CreateResult](s, "create", errs.Internal(err))
	}

	s.logger.Info("starting inscription",
		zap.String("inscription_id", pending.ID),
		zap.String("user_id", userID),
		callerField(ctx),
	)

	started, err := s.gateway.StartInscription(ctx, userID, email, s.callbackURL(hash))
	if err != nil {
		return fail[CreateResult](s, "create", errs.Gateway(ReasonGatewayRequestFailed, err))
	}
	if strings.TrimSpace(started.Token) == "" || strings.TrimSpace(started.URLWebpay) == "" {
		return fail[CreateResult](s, "create", errs.Gateway(ReasonUnexpectedResponse, nil))
	}

	return model.OK(CreateResult{URL: started.URLWebpay, Token: started.Token})
}

// Finish completes the enrollment and returns where the browser goes next.
// Once the inscription id is known every failure marks it failed.
func (s *Service) Finish(ctx context.Context, in FinishInput) string {
	gatewayToken := strings.TrimSpace(in.GatewayToken)
	if gatewayToken == "" {
		s.logFailure("finish", errs.Validation(ReasonInvalidGatewayToken))
		return s.failedRedirect("")
	}

	id, err := s.codec.Decrypt(strings.TrimSpace(in.EncryptedID))
	if err != nil {
		s.logFailure("finish", errs.Classify(err))
		return s.failedRedirect("")
	}
	if !validate.RecordID(id) {
		s.logFailure("finish", errs.Decode(errors.New("decrypted id is not a record id")))
		return s.failedRedirect("")
	}

	if err := s.finishResolved(ctx, id, gatewayToken); err != nil {
		s.logFailure("finish", errs.Classify(err), zap.String("inscription_id", id))
		if markErr := s.store.MarkFailed(ctx, id); markErr != nil && !errors.Is(markErr, repo.ErrStatusTransition) {
			s.logger.Error("mark inscription failed", zap.String("inscription_id", id), zap.Error(markErr))
		}
		return s.failedRedirect(id)
	}

	s.logger.Info("inscription finished", zap.String("inscription_id", id))
	return withInscriptionID(s.cfg.SuccessURL, id)
}

func (s *Service) finishResolved(ctx context.Context, id, gatewayToken string) error {
	if _, err := s.store.FindPending(ctx, id); err != nil {
		if errors.Is(err, repo.ErrInscriptionNotFound) {
			return errs.NotFound(ReasonPendingNotFound)
		}
		return errs.Internal(err)
	}

	s.logger.Debug("finishing inscription",
		zap.String("inscription_id", id),
		zap.String("tbk_token", transbank.MaskToken(gatewayToken)),
	)

	resp, err := s.gateway.FinishInscription(ctx, gatewayToken)
	if err != nil {
		return errs.Gateway(ReasonGatewayRequestFailed, err)
	}
	s.logger.Info("inscription finish response", zap.String("inscription_id", id), zap.Int("response_code", resp.ResponseCode))
	if resp.ResponseCode != 0 || strings.TrimSpace(resp.TbkUser) == "" {
		return errs.Gateway(ReasonUnexpectedResponse+":"+strconv.Itoa(resp.ResponseCode), nil)
	}

	err = s.store.MarkSuccess(ctx, id, model.InscriptionApproval{
		Token:      resp.TbkUser,
		AuthCode:   resp.AuthorizationCode,
		CardType:   resp.CardType,
		CardDigits: rules.LastFour(resp.CardNumber),
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrActiveInscriptionExists):
		return errs.Conflict(ReasonActiveExists)
	case errors.Is(err, repo.ErrStatusTransition):
		return errs.NotFound(ReasonPendingNotFound)
	default:
		return errs.Internal(err)
	}
}

// Delete removes the card at the gateway and tombstones the inscription. A
// card the gateway no longer knows is treated as already removed.
func (s *Service) Delete(ctx context.Context, in DeleteInput) model.Envelope[DeleteResult] {
	id := validate.Sanitize(in.InscriptionID)
	userID := validate.Sanitize(in.UserID)

	if !validate.RecordID(id) {
		return fail[DeleteResult](s, "delete", errs.Validation(ReasonInvalidInscriptionID))
	}
	if !validate.UserID(userID) {
		return fail[DeleteResult](s, "delete", errs.Validation(ReasonInvalidUserID))
	}

	active, err := s.store.FindActive(ctx, id, userID)
	if err != nil {
		if errors.Is(err, repo.ErrInscriptionNotFound) {
			return fail[DeleteResult](s, "delete", errs.NotFound(ReasonActiveNotFound))
		}
		return fail[DeleteResult](s, "delete", errs.Internal(err))
	}
	if strings.TrimSpace(active.Token) == "" {
		return fail[DeleteResult](s, "delete", &errs.Error{Kind: errs.KindInternal, Reason: ReasonMissingToken})
	}

	message := ""
	if err := s.gateway.DeleteInscription(ctx, active.Token, userID); err != nil {
		if !transbank.IsNotFound(err) {
			return fail[DeleteResult](s, "delete", errs.Gateway(ReasonGatewayRequestFailed, err))
		}
		message = MessageGatewayAlreadyRemoved
	}

	if err := s.store.MarkRemoved(ctx, id, s.now()); err != nil && !errors.Is(err, repo.ErrStatusTransition) {
		return fail[DeleteResult](s, "delete", errs.Internal(err))
	}

	s.logger.Info("inscription removed",
		zap.String("inscription_id", id),
		zap.String("message", message),
		callerField(ctx),
	)
	if message != "" {
		return model.OKWithMessage(DeleteResult{}, message)
	}
	return model.OK(DeleteResult{})
}

func (s *Service) callbackURL(hash string) string {
	return strings.TrimRight(s.cfg.CallbackBaseURL, "/") + "/inscription/finish/" + url.PathEscape(hash) + "/"
}

func (s *Service) failedRedirect(id string) string {
	return withInscriptionID(s.cfg.FailedURL, id)
}

func fail[T any](s *Service, op string, err *errs.Error) model.Envelope[T] {
	s.logFailure(op, err)
	return model.Fail[T](err)
}

func (s *Service) logFailure(op string, err *errs.Error, fields ...zap.Field) {
	fields = append(fields, zap.String("op", op), zap.String("reason", err.Reason), zap.Error(err))
	s.logger.Error("inscription operation failed", fields...)
}

// callerField names the authenticated service behind the request, if any.
func callerField(ctx context.Context) zap.Field {
	identity, ok := authsvc.IdentityFromContext(ctx)
	if !ok {
		return zap.Skip()
	}
	return zap.String("caller", identity.Subject)
}

func withInscriptionID(target, id string) string {
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + "inscriptionId=" + url.QueryEscape(id)
}
