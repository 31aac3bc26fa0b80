package api

import (
	"net/http"

	"github.com/zeecm/parking/internal/auth"
	"github.com/zeecm/parking/internal/log"
)

// authMiddleware enforces API token authentication on mutating
// endpoints. With no token configured the endpoint fails closed unless
// anonymous access was explicitly enabled.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cfg := s.currentConfig()
		logger := log.WithComponentFromContext(r.Context(), "auth")

		if cfg.APIToken == "" {
			if cfg.AuthAnonymous {
				next.ServeHTTP(w, r)
				return
			}
			logger.Error().
				Str("event", "auth.fail_closed").
				Msg("PARKING_API_TOKEN not set and PARKING_AUTH_ANONYMOUS!=true, denying access")
			respondError(w, r, http.StatusUnauthorized, ErrUnauthorized)
			return
		}

		// Header-only extraction: query tokens leak into access logs.
		reqToken := auth.ExtractToken(r, false)
		if reqToken == "" {
			logger.Warn().
				Str("event", "auth.missing_token").
				Msg("authorization header missing")
			respondError(w, r, http.StatusUnauthorized, ErrUnauthorized)
			return
		}

		if !auth.AuthorizeToken(reqToken, cfg.APIToken) {
			logger.Warn().
				Str("event", "auth.invalid_token").
				Msg("invalid api token")
			respondError(w, r, http.StatusUnauthorized, ErrUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
