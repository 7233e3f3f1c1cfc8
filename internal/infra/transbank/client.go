// Package transbank is a client for the Webpay Oneclick Mall REST API.
package transbank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ivankudzin/oneclick/internal/domain/model"
)

const (
	EnvironmentIntegration = "integration"
	EnvironmentProduction  = "production"

	IntegrationBaseURL = "https://webpay3gint.transbank.cl"
	ProductionBaseURL  = "https://webpay3g.transbank.cl"

	// Public Oneclick Mall credentials for the integration environment.
	IntegrationCommerceCode      = "597055555541"
	IntegrationChildCommerceCode = "597055555542"
	IntegrationAPIKey            = "579B532A7440BB0C9079DED94D31EA1615BACEB56610332264630D42D0A36B1C"

	apiPath          = "/rswebpaytransaction/api/oneclick/v1.2"
	maxResponseBytes = 2 * 1024 * 1024
)

var ErrMissingCredentials = errors.New("transbank commerce code and api key are required in production")

type Config struct {
	Environment  string
	BaseURL      string
	CommerceCode string
	APIKey       string
}

// Archiver receives every gateway exchange. Errors are logged and otherwise
// ignored.
type Archiver interface {
	Archive(ctx context.Context, exchange model.GatewayExchange) error
}

type Client struct {
	baseURL      string
	commerceCode string
	apiKey       string
	httpClient   *http.Client
	archiver     Archiver
	logger       *zap.Logger
	now          func() time.Time
}

type RequestError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Err != nil && e.StatusCode > 0:
		return fmt.Sprintf("%s: status=%d: %v", e.Op, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.StatusCode > 0:
		return fmt.Sprintf("%s: status=%d", e.Op, e.StatusCode)
	default:
		return e.Op
	}
}

func (e *RequestError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// StatusCode returns the HTTP status carried by a gateway error, or 0.
func StatusCode(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}
	return 0
}

func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsUnprocessable reports a 422, which the refund endpoint returns for
// transactions that were already settled or refunded.
func IsUnprocessable(err error) bool {
	return StatusCode(err) == http.StatusUnprocessableEntity
}

func NewClient(cfg Config, httpClient *http.Client, log *zap.Logger) (*Client, error) {
	env := strings.ToLower(strings.TrimSpace(cfg.Environment))
	if env == "" {
		env = EnvironmentIntegration
	}

	commerceCode := strings.TrimSpace(cfg.CommerceCode)
	apiKey := strings.TrimSpace(cfg.APIKey)
	baseURL := strings.TrimSpace(cfg.BaseURL)

	switch env {
	case EnvironmentIntegration:
		if commerceCode == "" || apiKey == "" {
			commerceCode = IntegrationCommerceCode
			apiKey = IntegrationAPIKey
		}
		if baseURL == "" {
			baseURL = IntegrationBaseURL
		}
	case EnvironmentProduction:
		if commerceCode == "" || apiKey == "" {
			return nil, ErrMissingCredentials
		}
		if baseURL == "" {
			baseURL = ProductionBaseURL
		}
	default:
		return nil, fmt.Errorf("unknown transbank environment %q", cfg.Environment)
	}

	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid transbank base url: %s", baseURL)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		commerceCode: commerceCode,
		apiKey:       apiKey,
		httpClient:   httpClient,
		logger:       log,
		now:          time.Now,
	}, nil
}

// AttachArchiver records every following exchange through a.
func (c *Client) AttachArchiver(a Archiver) {
	c.archiver = a
}

func (c *Client) CommerceCode() string {
	return c.commerceCode
}

func (c *Client) StartInscription(ctx context.Context, username, email, responseURL string) (StartInscriptionResponse, error) {
	var out StartInscriptionResponse
	req := startInscriptionRequest{Username: username, Email: email, ResponseURL: responseURL}
	err := c.doJSON(ctx, call{
		op:        "start_inscription",
		reference: username,
		method:    http.MethodPost,
		path:      "/inscriptions",
		request:   req,
		masked:    req,
	}, &out, func() any {
		return StartInscriptionResponse{Token: MaskToken(out.Token), URLWebpay: out.URLWebpay}
	})
	return out, err
}

func (c *Client) FinishInscription(ctx context.Context, token string) (FinishInscriptionResponse, error) {
	var out FinishInscriptionResponse
	err := c.doJSON(ctx, call{
		op:        "finish_inscription",
		reference: MaskToken(token),
		method:    http.MethodPut,
		path:      "/inscriptions/" + url.PathEscape(token),
	}, &out, func() any {
		masked := out
		masked.TbkUser = MaskToken(out.TbkUser)
		return masked
	})
	return out, err
}

func (c *Client) DeleteInscription(ctx context.Context, tbkUser, username string) error {
	return c.doJSON(ctx, call{
		op:        "delete_inscription",
		reference: username,
		method:    http.MethodDelete,
		path:      "/inscriptions",
		request:   deleteInscriptionRequest{TbkUser: tbkUser, Username: username},
		masked:    deleteInscriptionRequest{TbkUser: MaskToken(tbkUser), Username: username},
	}, nil, nil)
}

func (c *Client) Authorize(ctx context.Context, username, tbkUser, buyOrder string, details []AuthorizeDetail) (AuthorizeResponse, error) {
	var out AuthorizeResponse
	err := c.doJSON(ctx, call{
		op:        "authorize",
		reference: buyOrder,
		method:    http.MethodPost,
		path:      "/transactions",
		request:   authorizeRequest{Username: username, TbkUser: tbkUser, BuyOrder: buyOrder, Details: details},
		masked:    authorizeRequest{Username: username, TbkUser: MaskToken(tbkUser), BuyOrder: buyOrder, Details: details},
	}, &out, func() any { return out })
	return out, err
}

func (c *Client) Refund(ctx context.Context, buyOrder, commerceCode, detailBuyOrder string, amount int64) (RefundResponse, error) {
	var out RefundResponse
	req := refundRequest{CommerceCode: commerceCode, DetailBuyOrder: detailBuyOrder, Amount: amount}
	err := c.doJSON(ctx, call{
		op:        "refund",
		reference: buyOrder,
		method:    http.MethodPost,
		path:      "/transactions/" + url.PathEscape(buyOrder) + "/refunds",
		request:   req,
		masked:    req,
	}, &out, func() any { return out })
	return out, err
}

type call struct {
	op        string
	reference string
	method    string
	path      string
	request   any
	masked    any
}

func (c *Client) doJSON(ctx context.Context, cl call, responseBody any, maskedResponse func() any) error {
	if c == nil || c.httpClient == nil {
		return &RequestError{Op: cl.op, Err: errors.New("transbank client is not initialized")}
	}

	started := c.now()
	statusCode, err := c.do(ctx, cl, responseBody)

	exchange := model.GatewayExchange{
		Operation:  cl.op,
		Reference:  cl.reference,
		Method:     cl.method,
		Path:       apiPath + cl.path,
		StatusCode: statusCode,
		Request:    cl.masked,
		Duration:   c.now().Sub(started).String(),
		At:         started.UTC(),
	}
	if err != nil {
		exchange.Error = err.Error()
	} else if maskedResponse != nil {
		exchange.Response = maskedResponse()
	}
	c.archive(ctx, exchange)

	return err
}

func (c *Client) do(ctx context.Context, cl call, responseBody any) (int, error) {
	var bodyReader io.Reader
	if cl.request != nil {
		payload, err := json.Marshal(cl.request)
		if err != nil {
			return 0, &RequestError{Op: cl.op, Err: fmt.Errorf("marshal request body: %w", err)}
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+apiPath+cl.path, bodyReader)
	if err != nil {
		return 0, &RequestError{Op: cl.op, Err: fmt.Errorf("create http request: %w", err)}
	}
	req.Header.Set("Tbk-Api-Key-Id", c.commerceCode)
	req.Header.Set("Tbk-Api-Key-Secret", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &RequestError{Op: cl.op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, &RequestError{Op: cl.op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read http response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, &RequestError{Op: cl.op, StatusCode: resp.StatusCode, Err: errors.New(errorMessage(raw, resp.StatusCode))}
	}

	if responseBody == nil || len(bytes.TrimSpace(raw)) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(raw, responseBody); err != nil {
		return resp.StatusCode, &RequestError{Op: cl.op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode http response: %w", err)}
	}
	return resp.StatusCode, nil
}

func (c *Client) archive(ctx context.Context, exchange model.GatewayExchange) {
	if c.archiver == nil {
		return
	}
	if err := c.archiver.Archive(context.WithoutCancel(ctx), exchange); err != nil {
		c.logger.Warn("archive gateway exchange failed",
			zap.String("operation", exchange.Operation),
			zap.String("reference", exchange.Reference),
			zap.Error(err),
		)
	}
}

// errorMessage extracts error_message from a gateway error body, falling back
// to the raw body or the status text.
func errorMessage(raw []byte, statusCode int) string {
	var body struct {
		ErrorMessage string `json:"error_message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && strings.TrimSpace(body.ErrorMessage) != "" {
		return strings.TrimSpace(body.ErrorMessage)
	}
	if msg := strings.TrimSpace(string(raw)); msg != "" {
		return msg
	}
	return http.StatusText(statusCode)
}

// MaskToken keeps the first three characters of a gateway token.
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	runes := []rune(token)
	if len(runes) <= 3 {
		return "****"
	}
	return string(runes[:3]) + "****"
}
