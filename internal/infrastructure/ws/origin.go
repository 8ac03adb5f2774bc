package ws

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// NewUpgrader builds an upgrader whose origin policy follows allowed:
// empty means same-origin only, "*" admits any origin, anything else is an
// allow-list of scheme://host entries.
func NewUpgrader(allowed []string, log zerolog.Logger) websocket.Upgrader {
	origins, allowAll := normalizeOrigins(allowed, log)

	u := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	switch {
	case allowAll:
		u.CheckOrigin = func(*http.Request) bool { return true }
	case len(origins) > 0:
		u.CheckOrigin = func(r *http.Request) bool {
			origin, ok := normalizeOrigin(r.Header.Get("Origin"))
			if !ok {
				return false
			}
			_, found := origins[origin]
			return found
		}
	}
	// nil CheckOrigin makes gorilla enforce same-origin.
	return u
}

func normalizeOrigins(origins []string, log zerolog.Logger) (map[string]struct{}, bool) {
	normalized := make(map[string]struct{}, len(origins))
	allowAll := false

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		switch trimmed {
		case "":
			continue
		case "*":
			allowAll = true
			continue
		}

		n, ok := normalizeOrigin(trimmed)
		if !ok {
			log.Warn().Str("origin", origin).Msg("ignoring invalid origin in configuration")
			continue
		}
		normalized[n] = struct{}{}
	}
	return normalized, allowAll
}

func normalizeOrigin(origin string) (string, bool) {
	if origin == "" {
		return "", false
	}
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

// isExpectedCloseError reports errors that are routine while a socket is
// being torn down.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "use of closed network connection") ||
		strings.Contains(msg, "websocket: close sent") ||
		strings.Contains(msg, "broken pipe")
}
