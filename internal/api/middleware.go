package api

import (
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/talibapp/talib-reader/internal/http/response"
)

// EnvelopeTransformer wraps every huma response body in the same
// envelope the plain chi handlers produce, so clients parse one shape
// regardless of which stack served the route.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	if v == nil {
		return v, nil
	}

	if apiErr, ok := v.(*APIError); ok {
		return &errorEnvelope{
			Success: false,
			Code:    apiErr.Code,
			Error:   apiErr.Message,
		}, nil
	}

	return &response.Envelope{
		Success: strings.HasPrefix(status, "2"),
		Data:    v,
	}, nil
}

// errorEnvelope is the envelope for error responses. The code rides
// alongside the message so clients can branch without string matching.
type errorEnvelope struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Error   string `json:"error"`
}

// rateLimitMutations caps writes per client address. Reads are never
// limited; a reader flipping pages should not starve its own saves.
func (s *Server) rateLimitMutations(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			if s.limiter != nil && !s.limiter.Allow(r.RemoteAddr) {
				response.TooManyRequests(w, "Too many requests, slow down", s.logger)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
