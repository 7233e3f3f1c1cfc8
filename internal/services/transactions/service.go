package transactions

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ivankudzin/oneclick/internal/domain/enums"
	"github.com/ivankudzin/oneclick/internal/domain/errs"
	"github.com/ivankudzin/oneclick/internal/domain/model"
	"github.com/ivankudzin/oneclick/internal/domain/rules"
	"github.com/ivankudzin/oneclick/internal/infra/transbank"
	"github.com/ivankudzin/oneclick/internal/pkg/validate"
	"github.com/ivankudzin/oneclick/internal/repo"
	authsvc "github.com/ivankudzin/oneclick/internal/services/auth"
)

const (
	ReasonInvalidUserID        = "INVALID_USER_ID"
	ReasonInvalidInscriptionID = "INVALID_INSCRIPTION_ID"
	ReasonInvalidBuyOrder      = "INVALID_BUY_ORDER"
	ReasonInvalidAmount        = "INVALID_AMOUNT"
	ReasonInvalidShares        = "INVALID_SHARES"
	ReasonActiveNotFound       = "ACTIVE_INSCRIPTION_NOT_FOUND"
	ReasonMissingToken         = "MISSING_INSCRIPTION_TOKEN_PROP"
	ReasonBuyOrderProcessed    = "BUY_ORDER_ALREADY_PROCESSED"
	ReasonBuyOrderNotFound     = "BUY_ORDER_NOT_FOUND"
	ReasonUnexpectedResponse   = "UNEXPECTED_TBK_RESPONSE"
	ReasonGatewayRequestFailed = "TBK_REQUEST_FAILED"

	// MaxShares is the highest installment count the gateway accepts.
	MaxShares = 48

	MessageRefundAlreadyNullified = "transaction was already nullified in Transbank"
	MessageRefundAlreadySettled   = "transaction was already settled or refunded in Transbank"
)

type Store interface {
	CountByBuyOrder(ctx context.Context, buyOrder string) (int64, error)
	Create(ctx context.Context, tx model.Transaction) (model.Transaction, error)
	Find(ctx context.Context, filter repo.TransactionFilter) (model.Transaction, error)
}

type InscriptionFinder interface {
	FindActive(ctx context.Context, id, userID string) (model.Inscription, error)
}

type Gateway interface {
	Authorize(ctx context.Context, username, tbkUser, buyOrder string, details []transbank.AuthorizeDetail) (transbank.AuthorizeResponse, error)
	Refund(ctx context.Context, buyOrder, commerceCode, detailBuyOrder string, amount int64) (transbank.RefundResponse, error)
}

type Config struct {
	DefaultCommerceCode string
}

type Dependencies struct {
	Transactions Store
	Inscriptions InscriptionFinder
	Gateway      Gateway
	Logger       *zap.Logger
}

type Service struct {
	transactions Store
	inscriptions InscriptionFinder
	gateway      Gateway
	cfg          Config
	logger       *zap.Logger
	now          func() time.Time
}

type ChargeInput struct {
	InscriptionID string
	UserID        string
	CommerceCode  string
	BuyOrder      string
	Amount        int64
	Shares        int64
}

type ChargeResult struct {
	Trx model.Transaction `json:"trx"`
}

type RefundInput struct {
	UserID       string
	CommerceCode string
	BuyOrder     string
	AuthCode     string
	Amount       int64
}

type RefundResult struct {
	Response *transbank.RefundResponse `json:"response,omitempty"`
}

func NewService(deps Dependencies, cfg Config) *Service {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if strings.TrimSpace(cfg.DefaultCommerceCode) == "" {
		cfg.DefaultCommerceCode = transbank.IntegrationChildCommerceCode
	}
	return &Service{
		transactions: deps.Transactions,
		inscriptions: deps.Inscriptions,
		gateway:      deps.Gateway,
		cfg:          cfg,
		logger:       log,
		now:          time.Now,
	}
}

// Charge authorizes amount against the user's active card. A buy order is
// charged at most once.
func (s *Service) Charge(ctx context.Context, in ChargeInput) model.Envelope[ChargeResult] {
	userID := validate.Sanitize(in.UserID)
	inscriptionID := validate.Sanitize(in.InscriptionID)
	buyOrder := validate.Sanitize(in.BuyOrder)
	commerceCode := s.commerceCode(in.CommerceCode)

	if !validate.UserID(userID) {
		return s.failCharge(errs.Validation(ReasonInvalidUserID))
	}
	if buyOrder == "" {
		return s.failCharge(errs.Validation(ReasonInvalidBuyOrder))
	}
	if in.Amount <= 0 {
		return s.failCharge(errs.Validation(ReasonInvalidAmount))
	}
	if inscriptionID != "" && !validate.RecordID(inscriptionID) {
		return s.failCharge(errs.Validation(ReasonInvalidInscriptionID))
	}
	if in.Shares > MaxShares {
		return s.failCharge(errs.Validation(ReasonInvalidShares))
	}
	shares := int(in.Shares)
	if shares <= 0 {
		shares = 1
	}

	inscription, err := s.inscriptions.FindActive(ctx, inscriptionID, userID)
	if err != nil {
		if errors.Is(err, repo.ErrInscriptionNotFound) {
			return s.failCharge(errs.NotFound(ReasonActiveNotFound))
		}
		return s.failCharge(errs.Internal(err))
	}
	if strings.TrimSpace(inscription.Token) == "" {
		return s.failCharge(&errs.Error{Kind: errs.KindInternal, Reason: ReasonMissingToken})
	}

	processed, err := s.transactions.CountByBuyOrder(ctx, buyOrder)
	if err != nil {
		return s.failCharge(errs.Internal(err))
	}
	if processed > 0 {
		return s.failCharge(errs.Conflict(ReasonBuyOrderProcessed))
	}

	s.logger.Info("authorizing transaction",
		zap.String("buy_order", buyOrder),
		zap.String("inscription_id", inscription.ID),
		zap.String("commerce_code", commerceCode),
		zap.Int64("amount", in.Amount),
		zap.Int("shares", shares),
		callerField(ctx),
	)

	resp, err := s.gateway.Authorize(ctx, inscription.UserID, inscription.Token, buyOrder, []transbank.AuthorizeDetail{{
		CommerceCode:       commerceCode,
		BuyOrder:           buyOrder,
		Amount:             in.Amount,
		InstallmentsNumber: shares,
	}})
	if err != nil {
		return s.failCharge(errs.Gateway(ReasonGatewayRequestFailed, err))
	}
	if len(resp.Details) == 0 {
		return s.failCharge(errs.Gateway(ReasonUnexpectedResponse, nil))
	}
	detail := resp.Details[0]
	if detail.ResponseCode != 0 {
		return s.failCharge(errs.Gateway(ReasonUnexpectedResponse+":"+strconv.Itoa(detail.ResponseCode), nil))
	}

	recordShares := detail.InstallmentsNumber
	if recordShares <= 0 {
		recordShares = shares
	}
	trx, err := s.transactions.Create(ctx, model.Transaction{
		BuyOrder:      buyOrder,
		CommerceCode:  commerceCode,
		InscriptionID: inscription.ID,
		UserID:        inscription.UserID,
		Amount:        in.Amount,
		Shares:        recordShares,
		AuthCode:      detail.AuthorizationCode,
		ResponseCode:  detail.ResponseCode,
		PaymentType:   detail.PaymentTypeCode,
		Status:        detail.Status,
		CardDigits:    rules.LastFour(resp.CardDetail.CardNumber),
		CreatedAt:     s.now(),
	})
	if err != nil {
		if errors.Is(err, repo.ErrBuyOrderExists) {
			return s.failCharge(errs.Conflict(ReasonBuyOrderProcessed))
		}
		return s.failCharge(errs.Internal(err))
	}

	s.logger.Info("transaction authorized", zap.String("buy_order", buyOrder), zap.String("transaction_id", trx.ID))
	return model.OK(ChargeResult{Trx: trx})
}

// Refund reverses amount of a recorded charge. Reversals the gateway already
// performed are reported as ok with an advisory message.
func (s *Service) Refund(ctx context.Context, in RefundInput) model.Envelope[RefundResult] {
	userID := validate.Sanitize(in.UserID)
	buyOrder := validate.Sanitize(in.BuyOrder)
	authCode := validate.Sanitize(in.AuthCode)
	commerceCode := s.commerceCode(in.CommerceCode)

	if buyOrder == "" {
		return s.failRefund(errs.Validation(ReasonInvalidBuyOrder))
	}
	if in.Amount <= 0 {
		return s.failRefund(errs.Validation(ReasonInvalidAmount))
	}
	if userID != "" && !validate.UserID(userID) {
		return s.failRefund(errs.Validation(ReasonInvalidUserID))
	}

	if _, err := s.transactions.Find(ctx, repo.TransactionFilter{
		BuyOrder: buyOrder,
		UserID:   userID,
		AuthCode: authCode,
	}); err != nil {
		if errors.Is(err, repo.ErrTransactionNotFound) {
			return s.failRefund(errs.NotFound(ReasonBuyOrderNotFound))
		}
		return s.failRefund(errs.Internal(err))
	}

	s.logger.Info("refunding transaction",
		zap.String("buy_order", buyOrder),
		zap.Int64("amount", in.Amount),
		callerField(ctx),
	)

	resp, err := s.gateway.Refund(ctx, buyOrder, commerceCode, buyOrder, in.Amount)
	if err != nil {
		if transbank.IsUnprocessable(err) {
			s.logger.Warn("refund rejected as already settled", zap.String("buy_order", buyOrder), zap.Error(err))
			return model.OKWithMessage(RefundResult{}, MessageRefundAlreadySettled)
		}
		return s.failRefund(errs.Gateway(ReasonGatewayRequestFailed, err))
	}

	switch enums.RefundType(strings.ToUpper(strings.TrimSpace(resp.Type))) {
	case enums.RefundTypeReversed:
		s.logger.Info("transaction refunded", zap.String("buy_order", buyOrder), zap.String("type", resp.Type))
		return model.OK(RefundResult{Response: &resp})
	case enums.RefundTypeNullified, enums.RefundTypePartiallyNullified:
		s.logger.Info("transaction nullified", zap.String("buy_order", buyOrder), zap.String("type", resp.Type))
		return model.OKWithMessage(RefundResult{Response: &resp}, MessageRefundAlreadyNullified)
	default:
		refundType := resp.Type
		if refundType == "" {
			refundType = "NAN"
		}
		return s.failRefund(errs.Gateway(ReasonUnexpectedResponse+"_"+refundType, nil))
	}
}

func (s *Service) commerceCode(raw string) string {
	if code := validate.Sanitize(raw); code != "" {
		return code
	}
	return s.cfg.DefaultCommerceCode
}

func callerField(ctx context.Context) zap.Field {
	identity, ok := authsvc.IdentityFromContext(ctx)
	if !ok {
		return zap.Skip()
	}
	return zap.String("caller", identity.Subject)
}

func (s *Service) failCharge(err *errs.Error) model.Envelope[ChargeResult] {
	s.logger.Error("charge failed", zap.String("reason", err.Reason), zap.Error(err))
	return model.Fail[ChargeResult](err)
}

func (s *Service) failRefund(err *errs.Error) model.Envelope[RefundResult] {
	s.logger.Warn("refund failed", zap.String("reason", err.Reason), zap.Error(err))
	return model.Fail[RefundResult](err)
}
