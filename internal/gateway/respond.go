package gateway

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"guapassist-backend/internal/apperr"

	"github.com/go-chi/chi/v5/middleware"
)

const (
	messageBadRequest   = "❌ Некорректный запрос"
	messageUnauthorized = "⛔ Неверный токен доступа"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

func (g Gateway) respondJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		g.tel.ReportWarning(report_encode, err)
	}
}

// respondError serializes err with the status of its kind, fallback is used
// when err carries no user message.
func (g Gateway) respondError(w http.ResponseWriter, err error, fallback string) {
	kind := apperr.KindOf(err)
	response := errorResponse{
		Message: apperr.MessageOf(err, fallback),
	}
	if kind != apperr.KindUnknown {
		response.Kind = kind.String()
	}
	g.respondJSON(w, response, apperr.StatusCode(kind))
}

func (g Gateway) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	err := json.NewDecoder(r.Body).Decode(out)
	if err != nil {
		g.respondError(w, apperr.Validation(messageBadRequest), "")
		return false
	}
	return true
}

func verifyAccessToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		expected := []byte(token)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			given, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(given), expected) != 1 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(errorResponse{Message: messageUnauthorized, Kind: apperr.KindAuth.String()})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (g Gateway) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status >= http.StatusInternalServerError {
			g.tel.ReportWarning(report_request, r.Method, r.URL.Path, status, middleware.GetReqID(r.Context()))
			return
		}
		g.tel.ReportDebug(
			fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			status,
			time.Since(start).String(),
		)
	})
}
