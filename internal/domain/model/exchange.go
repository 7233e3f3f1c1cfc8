package model

import "time"

// GatewayExchange is an archived gateway call. Secrets in Request and Response
// are masked before the value is built.
type GatewayExchange struct {
	Operation  string    `json:"operation"`
	Reference  string    `json:"reference"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	StatusCode int       `json:"status_code"`
	Request    any       `json:"request,omitempty"`
	Response   any       `json:"response,omitempty"`
	Error      string    `json:"error,omitempty"`
	Duration   string    `json:"duration"`
	At         time.Time `json:"at"`
}
