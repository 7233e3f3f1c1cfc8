package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/ivankudzin/oneclick/internal/domain/errs"
	"github.com/ivankudzin/oneclick/internal/pkg/device"
	httperrors "github.com/ivankudzin/oneclick/internal/transport/http/errors"
)

const (
	ReasonInvalidBody = "INVALID_REQUEST_BODY"

	maxBodyBytes = 64 << 10
)

// decodeJSON treats an empty body as an empty object. Unknown fields are
// ignored since callers send their own bookkeeping alongside the request.
func decodeJSON(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeInvalidBody(w http.ResponseWriter) {
	httperrors.WriteClassified(w, errs.Validation(ReasonInvalidBody))
}

func writeUnavailable(w http.ResponseWriter, code string) {
	httperrors.Write(w, http.StatusServiceUnavailable, httperrors.APIError{
		Code:    code,
		Message: "service is unavailable",
	})
}

func deviceFromRequest(r *http.Request) device.Context {
	return device.Context{
		UserAgent:     r.Header.Get("User-Agent"),
		ForwardedFor:  r.Header.Get("X-Forwarded-For"),
		RemoteAddress: remoteHost(r.RemoteAddr),
	}
}

func remoteHost(addr string) string {
	addr = strings.TrimSpace(addr)
	host, _, err := net.SplitHostPort(addr)
	if err == nil {
		return host
	}
	return addr
}
