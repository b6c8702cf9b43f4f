package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"guapassist-backend/internal/apperr"
	"guapassist-backend/internal/session"
	"guapassist-backend/internal/store"

	"github.com/go-chi/chi/v5"
)

const (
	messageExistingSession = "✅ Используется существующая сессия"
	messageSessionCreated  = "✅ Сессия парсера инициализирована"
	messageSessionFound    = "✅ Активная сессия найдена"
	messageSessionMissing  = "❌ Сессия не найдена или устарела"
	messageMissingUsername = "❌ Укажите логин"
	messageLoggedOut       = "✅ Сессии завершены"
	messageRecordMissing   = "❌ Данные не найдены"
	messageRecordsDisabled = "❌ Хранилище данных отключено"
	messageRecordsDeleted  = "✅ Данные удалены"

	messageScheduleFailed = "❌ Ошибка парсера расписания"
	messageTasksFailed    = "❌ Ошибка парсера задач"
	messageReportsFailed  = "❌ Ошибка парсера отчетов"
	messageProfileFailed  = "❌ Ошибка парсера профиля"
)

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

func (g Gateway) health(w http.ResponseWriter, r *http.Request) {
	g.respondJSON(w, healthResponse{Status: "OK", Service: "GUAP Parser"}, http.StatusOK)
}

type sessionsResponse struct {
	ActiveSessions int            `json:"activeSessions"`
	Sessions       []session.Info `json:"sessions"`
}

func (g Gateway) listSessions(w http.ResponseWriter, r *http.Request) {
	sessions := g.sessions.List()
	g.respondJSON(w, sessionsResponse{
		ActiveSessions: len(sessions),
		Sessions:       sessions,
	}, http.StatusOK)
}

type statsResponse struct {
	Success  bool           `json:"success"`
	Stats    session.Stats  `json:"stats"`
	Sessions []session.Info `json:"sessions"`
}

func (g Gateway) sessionStats(w http.ResponseWriter, r *http.Request) {
	g.respondJSON(w, statsResponse{
		Success:  true,
		Stats:    g.sessions.Stats(),
		Sessions: g.sessions.List(),
	}, http.StatusOK)
}

type sessionResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	SessionActive bool   `json:"sessionActive"`
	SessionId     string `json:"sessionId,omitempty"`
}

func (g Gateway) initSession(w http.ResponseWriter, r *http.Request) {
	var creds session.Credentials
	if !g.decode(w, r, &creds) {
		return
	}
	if err := creds.Validate(); err != nil {
		g.respondError(w, err, "")
		return
	}

	if g.sessions.IsSessionActive(r.Context(), creds.Username) {
		g.respondJSON(w, sessionResponse{
			Success:       true,
			Message:       messageExistingSession,
			SessionActive: true,
			SessionId:     creds.Username,
		}, http.StatusOK)
		return
	}

	result := g.sessions.CreateSession(r.Context(), creds)
	if !result.Success {
		g.respondError(w, result.AsError(), session.MessageLoginFailed)
		return
	}
	g.respondJSON(w, sessionResponse{
		Success:       true,
		Message:       messageSessionCreated,
		SessionActive: true,
		SessionId:     result.SessionId,
	}, http.StatusOK)
}

type usernameRequest struct {
	Username string `json:"username"`
}

func (g Gateway) checkSession(w http.ResponseWriter, r *http.Request) {
	var req usernameRequest
	if !g.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		g.respondError(w, apperr.Validation(messageMissingUsername), "")
		return
	}

	active := g.sessions.IsSessionActive(r.Context(), req.Username)
	message := messageSessionMissing
	if active {
		message = messageSessionFound
	}
	g.respondJSON(w, sessionResponse{
		Success:       true,
		Message:       message,
		SessionActive: active,
	}, http.StatusOK)
}

type logoutResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Closed  bool   `json:"closed"`
}

func (g Gateway) logout(w http.ResponseWriter, r *http.Request) {
	var req usernameRequest
	if !g.decode(w, r, &req) {
		return
	}
	closed := false
	if req.Username != "" {
		closed = g.sessions.Invalidate(req.Username)
	}
	g.respondJSON(w, logoutResponse{Success: true, Message: messageLoggedOut, Closed: closed}, http.StatusOK)
}

// persist stores a successful result, failures are reported and never
// surface to the client.
func (g Gateway) persist(ctx context.Context, username string, kind store.Kind, result any) {
	if g.records == nil {
		return
	}
	err := g.records.Put(ctx, username, kind, result)
	if err != nil {
		g.tel.ReportWarning(report_persist, err, username, kind)
	}
}

type weekScheduleRequest struct {
	session.Credentials
	Year int `json:"year"`
	Week int `json:"week"`
}

func (g Gateway) weekSchedule(w http.ResponseWriter, r *http.Request) {
	var req weekScheduleRequest
	if !g.decode(w, r, &req) {
		return
	}
	result, err := g.portal.ScrapeWeekSchedule(r.Context(), req.Credentials, req.Year, req.Week)
	if err != nil {
		g.respondError(w, err, messageScheduleFailed)
		return
	}
	g.persist(r.Context(), req.Username, store.KindWeekSchedule, result)
	g.respondJSON(w, result, http.StatusOK)
}

type dayScheduleRequest struct {
	session.Credentials
	Date string `json:"date"`
}

func (g Gateway) daySchedule(w http.ResponseWriter, r *http.Request) {
	var req dayScheduleRequest
	if !g.decode(w, r, &req) {
		return
	}
	result, err := g.portal.ScrapeDaySchedule(r.Context(), req.Credentials, req.Date)
	if err != nil {
		g.respondError(w, err, messageScheduleFailed)
		return
	}
	g.persist(r.Context(), req.Username, store.KindDaySchedule, result)
	g.respondJSON(w, result, http.StatusOK)
}

func (g Gateway) tasks(w http.ResponseWriter, r *http.Request) {
	var creds session.Credentials
	if !g.decode(w, r, &creds) {
		return
	}
	result, err := g.portal.ScrapeTasks(r.Context(), creds)
	if err != nil {
		g.respondError(w, err, messageTasksFailed)
		return
	}
	g.persist(r.Context(), creds.Username, store.KindTasks, result)
	g.respondJSON(w, result, http.StatusOK)
}

func (g Gateway) reports(w http.ResponseWriter, r *http.Request) {
	var creds session.Credentials
	if !g.decode(w, r, &creds) {
		return
	}
	result, err := g.portal.ScrapeReports(r.Context(), creds)
	if err != nil {
		g.respondError(w, err, messageReportsFailed)
		return
	}
	g.persist(r.Context(), creds.Username, store.KindReports, result)
	g.respondJSON(w, result, http.StatusOK)
}

func (g Gateway) profile(w http.ResponseWriter, r *http.Request) {
	var creds session.Credentials
	if !g.decode(w, r, &creds) {
		return
	}
	result, err := g.portal.ScrapeProfile(r.Context(), creds)
	if err != nil {
		g.respondError(w, err, messageProfileFailed)
		return
	}
	g.persist(r.Context(), creds.Username, store.KindProfile, result)
	g.respondJSON(w, result, http.StatusOK)
}

type recordResponse struct {
	Success   bool            `json:"success"`
	UserId    string          `json:"userId"`
	Kind      store.Kind      `json:"kind"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Payload   json.RawMessage `json:"payload"`
}

func (g Gateway) getRecord(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	kind, err := store.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		g.respondError(w, err, "")
		return
	}
	if g.records == nil {
		g.respondJSON(w, errorResponse{Message: messageRecordsDisabled}, http.StatusNotFound)
		return
	}

	record, err := g.records.Get(r.Context(), username, kind)
	if errors.Is(err, store.ErrNotFound) {
		g.respondJSON(w, errorResponse{Message: messageRecordMissing}, http.StatusNotFound)
		return
	}
	if err != nil {
		g.respondError(w, err, messageRecordMissing)
		return
	}
	g.respondJSON(w, recordResponse{
		Success:   true,
		UserId:    record.UserId,
		Kind:      record.Kind,
		UpdatedAt: record.UpdatedAt,
		Payload:   record.Payload,
	}, http.StatusOK)
}

type recordsResponse struct {
	Success bool           `json:"success"`
	UserId  string         `json:"userId"`
	Records []store.Record `json:"records"`
}

func (g Gateway) listRecords(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if g.records == nil {
		g.respondJSON(w, errorResponse{Message: messageRecordsDisabled}, http.StatusNotFound)
		return
	}

	records, err := g.records.List(r.Context(), username)
	if err != nil {
		g.respondError(w, err, messageRecordMissing)
		return
	}
	if records == nil {
		records = []store.Record{}
	}
	g.respondJSON(w, recordsResponse{Success: true, UserId: username, Records: records}, http.StatusOK)
}

type deleteRecordsResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Deleted int64  `json:"deleted"`
}

func (g Gateway) deleteRecords(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if g.records == nil {
		g.respondJSON(w, errorResponse{Message: messageRecordsDisabled}, http.StatusNotFound)
		return
	}

	n, err := g.records.Delete(r.Context(), username)
	if err != nil {
		g.respondError(w, err, messageRecordMissing)
		return
	}
	g.respondJSON(w, deleteRecordsResponse{Success: true, Message: messageRecordsDeleted, Deleted: n}, http.StatusOK)
}

var _ Recorder = store.Store{}
