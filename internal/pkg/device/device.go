package device

import (
	"strings"

	"github.com/mssola/useragent"

	"github.com/ivankudzin/oneclick/internal/domain/model"
)

// Context is the request-side signal captured when an inscription starts.
type Context struct {
	UserAgent     string
	ForwardedFor  string
	RemoteAddress string
}

func (c Context) HasUserAgent() bool {
	return strings.TrimSpace(c.UserAgent) != ""
}

// ClientIP prefers the first X-Forwarded-For hop over the socket address.
func (c Context) ClientIP() string {
	if forwarded := strings.TrimSpace(c.ForwardedFor); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return strings.TrimSpace(c.RemoteAddress)
}

func Parse(c Context) model.ClientInfo {
	raw := strings.TrimSpace(c.UserAgent)
	info := model.ClientInfo{
		UserAgent: raw,
		IP:        c.ClientIP(),
	}
	if raw == "" {
		return info
	}

	ua := useragent.New(raw)
	info.Browser, info.BrowserVersion = ua.Browser()
	info.OS = ua.OSInfo().Name
	return info
}
