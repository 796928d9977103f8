package monitor

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
)

// APIKeyHeader carries an API key when the Authorization header is not used.
const APIKeyHeader = "X-API-Key"

// APIKeyQueryParam carries an API key for websocket clients that cannot set
// headers.
const APIKeyQueryParam = "api_key"

var (
	// ErrMissingAPIKey is returned when a request carries no key.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidAPIKey is returned for an unknown key.
	ErrInvalidAPIKey = errors.New("invalid API key")

	// ErrAPIKeyDisabled is returned for a known but disabled key.
	ErrAPIKeyDisabled = errors.New("API key disabled")
)

// APIKey grants access to the protected monitor routes.
type APIKey struct {
	Name    string
	Key     string
	Enabled bool
}

// WithAPIKeys requires one of keys on every route except /healthz, /readyz
// and /version. No keys leaves the server open.
func WithAPIKeys(keys ...APIKey) ServerOption {
	return func(s *Server) {
		if len(keys) > 0 {
			s.keys = newKeyValidator(keys)
		}
	}
}

type keyValidator struct {
	mu   sync.RWMutex
	keys map[string]APIKey
}

func newKeyValidator(keys []APIKey) *keyValidator {
	m := make(map[string]APIKey, len(keys))
	for _, k := range keys {
		m[k.Key] = k
	}
	return &keyValidator{keys: m}
}

func (v *keyValidator) validate(key string) (APIKey, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	info, ok := v.keys[key]
	if !ok {
		return APIKey{}, ErrInvalidAPIKey
	}
	if !info.Enabled {
		return APIKey{}, ErrAPIKeyDisabled
	}
	return info, nil
}

type apiKeyContextKey struct{}

// APIKeyName returns the name of the key that authenticated the request.
func APIKeyName(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(apiKeyContextKey{}).(string)
	return name, ok
}

func publicPath(path string) bool {
	return path == PathHealthz || path == PathReadyz || path == PathVersion
}

func requireAPIKey(v *keyValidator, logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		key, err := extractAPIKey(r)
		if err == nil {
			var info APIKey
			if info, err = v.validate(key); err == nil {
				logger.DebugContext(r.Context(), "API key authenticated", "key_name", info.Name, "path", r.URL.Path)
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), apiKeyContextKey{}, info.Name)))
				return
			}
		}

		logger.WarnContext(r.Context(), "rejected monitor request",
			"error", err,
			"remote_addr", r.RemoteAddr,
			"path", r.URL.Path,
		)
		w.Header().Set("WWW-Authenticate", `Bearer realm="sentinel"`)
		http.Error(w, err.Error(), http.StatusUnauthorized)
	})
}

// extractAPIKey checks the Authorization bearer token, then X-API-Key, then
// the api_key query parameter.
func extractAPIKey(r *http.Request) (string, error) {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok && token != "" {
			return token, nil
		}
	}
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return key, nil
	}
	if key := r.URL.Query().Get(APIKeyQueryParam); key != "" {
		return key, nil
	}
	return "", ErrMissingAPIKey
}
