package transactions

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ivankudzin/oneclick/internal/domain/enums"
	"github.com/ivankudzin/oneclick/internal/domain/errs"
	"github.com/ivankudzin/oneclick/internal/domain/model"
	"github.com/ivankudzin/oneclick/internal/infra/transbank"
	"github.com/ivankudzin/oneclick/internal/repo"
	authsvc "github.com/ivankudzin/oneclick/internal/services/auth"
)

const testUserID = "507f1f77bcf86cd799439011"

type transactionStoreStub struct {
	byBuyOrder map[string]model.Transaction
}

func newTransactionStoreStub() *transactionStoreStub {
	return &transactionStoreStub{byBuyOrder: map[string]model.Transaction{}}
}

func (s *transactionStoreStub) CountByBuyOrder(_ context.Context, buyOrder string) (int64, error) {
	if _, ok := s.byBuyOrder[buyOrder]; ok {
		return 1, nil
	}
	return 0, nil
}

func (s *transactionStoreStub) Create(_ context.Context, tx model.Transaction) (model.Transaction, error) {
	if _, ok := s.byBuyOrder[tx.BuyOrder]; ok {
		return model.Transaction{}, repo.ErrBuyOrderExists
	}
	tx.ID = uuid.NewString()
	s.byBuyOrder[tx.BuyOrder] = tx
	return tx, nil
}

func (s *transactionStoreStub) Find(_ context.Context, filter repo.TransactionFilter) (model.Transaction, error) {
	tx, ok := s.byBuyOrder[filter.BuyOrder]
	if !ok {
		return model.Transaction{}, repo.ErrTransactionNotFound
	}
	if filter.UserID != "" && tx.UserID != filter.UserID {
		return model.Transaction{}, repo.ErrTransactionNotFound
	}
	if filter.AuthCode != "" && tx.AuthCode != filter.AuthCode {
		return model.Transaction{}, repo.ErrTransactionNotFound
	}
	return tx, nil
}

type inscriptionFinderStub struct {
	active map[string]model.Inscription
	lastID string
}

func (f *inscriptionFinderStub) FindActive(_ context.Context, id, userID string) (model.Inscription, error) {
	f.lastID = id
	for _, ins := range f.active {
		if (id == "" || ins.ID == id) && ins.UserID == userID && ins.Status == enums.InscriptionStatusSuccess {
			return ins, nil
		}
	}
	return model.Inscription{}, repo.ErrInscriptionNotFound
}

type gatewayStub struct {
	authorize      transbank.AuthorizeResponse
	authorizeErr   error
	refund         transbank.RefundResponse
	refundErr      error
	authorizeCalls int
	refundCalls    int
	lastDetails    []transbank.AuthorizeDetail
}

func (g *gatewayStub) Authorize(_ context.Context, _, _, _ string, details []transbank.AuthorizeDetail) (transbank.AuthorizeResponse, error) {
	g.authorizeCalls++
	g.lastDetails = details
	return g.authorize, g.authorizeErr
}

func (g *gatewayStub) Refund(_ context.Context, _, _, _ string, _ int64) (transbank.RefundResponse, error) {
	g.refundCalls++
	return g.refund, g.refundErr
}

func approvedAuthorization(buyOrder string) transbank.AuthorizeResponse {
	return transbank.AuthorizeResponse{
		BuyOrder:   buyOrder,
		CardDetail: transbank.CardDetail{CardNumber: "XXXXXXXXXXXX6623"},
		Details: []transbank.AuthorizeResponseDetail{{
			Amount:             1500,
			Status:             "AUTHORIZED",
			AuthorizationCode:  "1213",
			PaymentTypeCode:    "VN",
			ResponseCode:       0,
			InstallmentsNumber: 1,
		}},
	}
}

func newTestService(store *transactionStoreStub, gateway *gatewayStub) (*Service, *inscriptionFinderStub) {
	active := model.Inscription{
		ID:     uuid.NewString(),
		UserID: testUserID,
		Status: enums.InscriptionStatusSuccess,
		Token:  "tbk-user",
	}
	finder := &inscriptionFinderStub{active: map[string]model.Inscription{active.ID: active}}
	svc := NewService(Dependencies{Transactions: store, Inscriptions: finder, Gateway: gateway}, Config{})
	return svc, finder
}

func TestChargeSameBuyOrderTwice(t *testing.T) {
	store := newTransactionStoreStub()
	gateway := &gatewayStub{authorize: approvedAuthorization("ORD-1")}
	svc, _ := newTestService(store, gateway)
	ctx := context.Background()

	first := svc.Charge(ctx, ChargeInput{UserID: testUserID, BuyOrder: "ORD-1", Amount: 1500})
	if !first.IsOK() {
		t.Fatalf("first charge: %+v", first)
	}
	trx := first.Data.Trx
	if trx.BuyOrder != "ORD-1" || trx.AuthCode != "1213" || trx.CardDigits != "6623" || trx.CommerceCode != transbank.IntegrationChildCommerceCode {
		t.Fatalf("unexpected transaction: %+v", trx)
	}
	if gateway.lastDetails[0].InstallmentsNumber != 1 {
		t.Fatalf("expected shares to default to 1, got %+v", gateway.lastDetails)
	}

	second := svc.Charge(ctx, ChargeInput{UserID: testUserID, BuyOrder: "ORD-1", Amount: 1500})
	if second.IsOK() || !second.Is(errs.ErrConflict) || second.Reason() != ReasonBuyOrderProcessed {
		t.Fatalf("expected BUY_ORDER_ALREADY_PROCESSED, got %+v", second)
	}
	if gateway.authorizeCalls != 1 {
		t.Fatalf("gateway must not be called for a processed buy order, calls=%d", gateway.authorizeCalls)
	}
	if len(store.byBuyOrder) != 1 {
		t.Fatalf("expected exactly one transaction, got %d", len(store.byBuyOrder))
	}
}

func TestChargeForwardsBuyOrderVerbatim(t *testing.T) {
	store := newTransactionStoreStub()
	gateway := &gatewayStub{authorize: approvedAuthorization("ORD&1")}
	svc, _ := newTestService(store, gateway)

	env := svc.Charge(context.Background(), ChargeInput{UserID: testUserID, BuyOrder: "ORD&1", CommerceCode: "597055555542", Amount: 1500})
	if !env.IsOK() {
		t.Fatalf("charge: %+v", env)
	}
	if got := gateway.lastDetails[0].BuyOrder; got != "ORD&1" {
		t.Fatalf("gateway received buy order %q", got)
	}
	if env.Data.Trx.BuyOrder != "ORD&1" {
		t.Fatalf("stored buy order %q", env.Data.Trx.BuyOrder)
	}
	if _, ok := store.byBuyOrder["ORD&1"]; !ok {
		t.Fatalf("transaction not keyed by the caller's buy order: %v", store.byBuyOrder)
	}
}

func TestChargeLogsAuthenticatedCaller(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	svc, _ := newTestService(newTransactionStoreStub(), &gatewayStub{authorize: approvedAuthorization("ORD-9")})
	svc.logger = zap.New(core)

	ctx := authsvc.WithIdentity(context.Background(), authsvc.Identity{Subject: "billing", Method: authsvc.MethodJWT})
	if env := svc.Charge(ctx, ChargeInput{UserID: testUserID, BuyOrder: "ORD-9", Amount: 100}); !env.IsOK() {
		t.Fatalf("charge: %+v", env)
	}

	entries := logs.FilterMessage("authorizing transaction").All()
	if len(entries) != 1 {
		t.Fatalf("expected one authorize log entry, got %d", len(entries))
	}
	if caller := entries[0].ContextMap()["caller"]; caller != "billing" {
		t.Fatalf("unexpected caller field: %v", caller)
	}
}

func TestChargeValidation(t *testing.T) {
	cases := []struct {
		name   string
		in     ChargeInput
		reason string
	}{
		{name: "bad user", in: ChargeInput{UserID: "u1", BuyOrder: "o", Amount: 1}, reason: ReasonInvalidUserID},
		{name: "missing buy order", in: ChargeInput{UserID: testUserID, Amount: 1}, reason: ReasonInvalidBuyOrder},
		{name: "markup buy order", in: ChargeInput{UserID: testUserID, BuyOrder: "<script></script>", Amount: 1}, reason: ReasonInvalidBuyOrder},
		{name: "zero amount", in: ChargeInput{UserID: testUserID, BuyOrder: "o"}, reason: ReasonInvalidAmount},
		{name: "malformed inscription id", in: ChargeInput{UserID: testUserID, BuyOrder: "o", Amount: 1, InscriptionID: "abc"}, reason: ReasonInvalidInscriptionID},
		{name: "too many shares", in: ChargeInput{UserID: testUserID, BuyOrder: "o", Amount: 1, Shares: MaxShares + 1}, reason: ReasonInvalidShares},
		{name: "overflowing shares", in: ChargeInput{UserID: testUserID, BuyOrder: "o", Amount: 1, Shares: 1 << 40}, reason: ReasonInvalidShares},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gateway := &gatewayStub{}
			svc, _ := newTestService(newTransactionStoreStub(), gateway)
			env := svc.Charge(context.Background(), tc.in)
			if env.IsOK() || !env.Is(errs.ErrValidation) || env.Reason() != tc.reason {
				t.Fatalf("expected %s, got %+v", tc.reason, env)
			}
			if gateway.authorizeCalls != 0 {
				t.Fatalf("validation failure must not reach the gateway")
			}
		})
	}
}

func TestChargeInscriptionResolution(t *testing.T) {
	store := newTransactionStoreStub()
	gateway := &gatewayStub{authorize: approvedAuthorization("ORD-2")}
	svc, finder := newTestService(store, gateway)

	env := svc.Charge(context.Background(), ChargeInput{
		UserID:        testUserID,
		InscriptionID: uuid.NewString(),
		BuyOrder:      "ORD-2",
		Amount:        1500,
	})
	if env.IsOK() || !env.Is(errs.ErrNotFound) || env.Reason() != ReasonActiveNotFound {
		t.Fatalf("expected ACTIVE_INSCRIPTION_NOT_FOUND, got %+v", env)
	}

	var activeID string
	for id := range finder.active {
		activeID = id
	}
	env = svc.Charge(context.Background(), ChargeInput{
		UserID:        testUserID,
		InscriptionID: activeID,
		CommerceCode:  "597055555543",
		BuyOrder:      "ORD-2",
		Amount:        1500,
		Shares:        3,
	})
	if !env.IsOK() || env.Data.Trx.InscriptionID != activeID || env.Data.Trx.CommerceCode != "597055555543" {
		t.Fatalf("expected charge on the requested inscription, got %+v", env)
	}
	if gateway.lastDetails[0].InstallmentsNumber != 3 {
		t.Fatalf("expected shares to be forwarded, got %+v", gateway.lastDetails)
	}
}

func TestChargeRejectedByGateway(t *testing.T) {
	store := newTransactionStoreStub()
	resp := approvedAuthorization("ORD-3")
	resp.Details[0].ResponseCode = -96
	svc, _ := newTestService(store, &gatewayStub{authorize: resp})

	env := svc.Charge(context.Background(), ChargeInput{UserID: testUserID, BuyOrder: "ORD-3", Amount: 1500})
	if env.IsOK() || !env.Is(errs.ErrGateway) || env.Reason() != ReasonUnexpectedResponse+":-96" {
		t.Fatalf("expected gateway rejection, got %+v", env)
	}
	if len(store.byBuyOrder) != 0 {
		t.Fatalf("rejected charge must not be recorded")
	}
}

func TestRefundClassification(t *testing.T) {
	cases := []struct {
		name    string
		gateway *gatewayStub
		ok      bool
		message string
		reason  string
	}{
		{name: "reversed", gateway: &gatewayStub{refund: transbank.RefundResponse{Type: "REVERSED"}}, ok: true},
		{name: "nullified", gateway: &gatewayStub{refund: transbank.RefundResponse{Type: "NULLIFIED"}}, ok: true, message: MessageRefundAlreadyNullified},
		{name: "partially nullified", gateway: &gatewayStub{refund: transbank.RefundResponse{Type: "PARTIALLY_NULLIFIED"}}, ok: true, message: MessageRefundAlreadyNullified},
		{name: "already settled", gateway: &gatewayStub{refundErr: &transbank.RequestError{Op: "refund", StatusCode: http.StatusUnprocessableEntity}}, ok: true, message: MessageRefundAlreadySettled},
		{name: "unknown type", gateway: &gatewayStub{refund: transbank.RefundResponse{Type: "PENDING"}}, reason: ReasonUnexpectedResponse + "_PENDING"},
		{name: "empty type", gateway: &gatewayStub{}, reason: ReasonUnexpectedResponse + "_NAN"},
		{name: "gateway fault", gateway: &gatewayStub{refundErr: &transbank.RequestError{Op: "refund", StatusCode: http.StatusInternalServerError}}, reason: ReasonGatewayRequestFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newTransactionStoreStub()
			store.byBuyOrder["ORD-1"] = model.Transaction{BuyOrder: "ORD-1", UserID: testUserID, AuthCode: "1213", Amount: 1500}
			svc, _ := newTestService(store, tc.gateway)

			env := svc.Refund(context.Background(), RefundInput{UserID: testUserID, BuyOrder: "ORD-1", AuthCode: "1213", Amount: 1500})
			if env.IsOK() != tc.ok {
				t.Fatalf("unexpected envelope: %+v", env)
			}
			if env.Message != tc.message {
				t.Fatalf("unexpected message %q want %q", env.Message, tc.message)
			}
			if !tc.ok && (!env.Is(errs.ErrGateway) || env.Reason() != tc.reason) {
				t.Fatalf("unexpected error reason %q want %q", env.Reason(), tc.reason)
			}
		})
	}
}

func TestRefundRequiresRecordedCharge(t *testing.T) {
	store := newTransactionStoreStub()
	store.byBuyOrder["ORD-1"] = model.Transaction{BuyOrder: "ORD-1", UserID: testUserID, AuthCode: "1213", Amount: 1500}
	gateway := &gatewayStub{refund: transbank.RefundResponse{Type: "REVERSED"}}
	svc, _ := newTestService(store, gateway)
	ctx := context.Background()

	cases := []struct {
		name   string
		in     RefundInput
		reason string
	}{
		{name: "unknown buy order", in: RefundInput{BuyOrder: "ORD-9", Amount: 1}, reason: ReasonBuyOrderNotFound},
		{name: "wrong auth code", in: RefundInput{BuyOrder: "ORD-1", AuthCode: "0000", Amount: 1}, reason: ReasonBuyOrderNotFound},
		{name: "missing buy order", in: RefundInput{Amount: 1}, reason: ReasonInvalidBuyOrder},
		{name: "zero amount", in: RefundInput{BuyOrder: "ORD-1"}, reason: ReasonInvalidAmount},
		{name: "bad user id", in: RefundInput{BuyOrder: "ORD-1", Amount: 1, UserID: "x"}, reason: ReasonInvalidUserID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := svc.Refund(ctx, tc.in)
			if env.IsOK() || env.Reason() != tc.reason {
				t.Fatalf("expected %s, got %+v", tc.reason, env)
			}
		})
	}
	if gateway.refundCalls != 0 {
		t.Fatalf("gateway must not be called, calls=%d", gateway.refundCalls)
	}

	env := svc.Refund(ctx, RefundInput{BuyOrder: "ORD-1", Amount: 100})
	if !env.IsOK() || env.Data.Response == nil || env.Data.Response.Type != "REVERSED" {
		t.Fatalf("expected unscoped refund to succeed, got %+v", env)
	}
}
