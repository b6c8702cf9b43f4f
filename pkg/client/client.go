package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"guapassist-backend/internal/apperr"
	"guapassist-backend/internal/components/telemetry"
	"guapassist-backend/internal/scrapers/guap"
	"guapassist-backend/internal/session"
	"guapassist-backend/internal/store"
	"guapassist-backend/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("guapassist.pkg.client")

type Options struct {
	BaseURL     string
	AccessToken string
	// Timeout bounds one attempt, scrapes that walk many pages take a while.
	Timeout time.Duration
	// Retries is how many times a transient failure is retried.
	Retries      int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
	// Dump writes every exchange when set, see restyutil.NewFilesystemOutput.
	Dump restyutil.InstrumentOutput
}

// Client talks to a running gateway. Failures are returned as *apperr.Error
// carrying the kind the gateway reported, only transient ones are retried.
type Client struct {
	http *resty.Client
}

type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

func kindOfStatus(status int) apperr.Kind {
	switch status {
	case http.StatusBadRequest:
		return apperr.KindValidation
	case http.StatusUnauthorized:
		return apperr.KindAuth
	default:
		return apperr.KindTransient
	}
}

// responseError converts a failed response into an *apperr.Error.
func responseError(res *resty.Response) error {
	body, _ := res.Error().(*errorBody)
	if body == nil {
		body = &errorBody{}
	}
	kind := apperr.ParseKind(body.Kind)
	if kind == apperr.KindUnknown {
		kind = kindOfStatus(res.StatusCode())
	}
	return &apperr.Error{
		Kind:    kind,
		Message: body.Message,
		Err:     fmt.Errorf("%s %s: %s", res.Request.Method, res.Request.URL, res.Status()),
	}
}

func shouldRetry(res *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if !res.IsError() {
		return false
	}
	return apperr.Retryable(responseError(res))
}

func New(options Options, tel telemetry.API) *Client {
	if options.Timeout == 0 {
		options.Timeout = 3 * time.Minute
	}
	if options.RetryWait == 0 {
		options.RetryWait = time.Second
	}
	if options.RetryMaxWait == 0 {
		options.RetryMaxWait = 10 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(options.BaseURL)
	client.SetTimeout(options.Timeout)
	client.SetHeader("content-type", "application/json")
	if options.AccessToken != "" {
		client.SetAuthToken(options.AccessToken)
	}
	client.SetError(&errorBody{})
	client.SetRetryCount(options.Retries)
	client.SetRetryWaitTime(options.RetryWait)
	client.SetRetryMaxWaitTime(options.RetryMaxWait)
	client.AddRetryCondition(shouldRetry)

	telemetry.InstrumentResty(client, telemetry.NewScopedAPI("client", tel))
	restyutil.InstrumentClient(client, tracer, options.Dump)

	return &Client{http: client}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}

	res, err := req.Execute(method, path)
	if err != nil {
		return apperr.Transient("", fmt.Errorf("%s %s: %w", method, path, err))
	}
	if res.IsError() {
		return responseError(res)
	}
	return nil
}

type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	err := c.do(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

type SessionStats struct {
	Success  bool           `json:"success"`
	Stats    session.Stats  `json:"stats"`
	Sessions []session.Info `json:"sessions"`
}

func (c *Client) Sessions(ctx context.Context) (SessionStats, error) {
	var out SessionStats
	err := c.do(ctx, http.MethodGet, "/sessions/stats", nil, &out)
	return out, err
}

type SessionStatus struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	SessionActive bool   `json:"sessionActive"`
	SessionId     string `json:"sessionId"`
	Closed        bool   `json:"closed"`
}

func (c *Client) InitSession(ctx context.Context, creds session.Credentials) (SessionStatus, error) {
	var out SessionStatus
	err := c.do(ctx, http.MethodPost, "/scrape/init-session", creds, &out)
	return out, err
}

type usernameBody struct {
	Username string `json:"username"`
}

func (c *Client) CheckSession(ctx context.Context, username string) (SessionStatus, error) {
	var out SessionStatus
	err := c.do(ctx, http.MethodPost, "/scrape/check-session", usernameBody{Username: username}, &out)
	return out, err
}

func (c *Client) Logout(ctx context.Context, username string) (SessionStatus, error) {
	var out SessionStatus
	err := c.do(ctx, http.MethodPost, "/scrape/logout", usernameBody{Username: username}, &out)
	return out, err
}

type weekBody struct {
	session.Credentials
	Year int `json:"year,omitempty"`
	Week int `json:"week,omitempty"`
}

// WeekSchedule scrapes an ISO week, zero year and week select the current one.
func (c *Client) WeekSchedule(ctx context.Context, creds session.Credentials, year, week int) (guap.WeekScheduleResult, error) {
	ctx, span := tracer.Start(ctx, "WeekSchedule")
	defer span.End()

	var out guap.WeekScheduleResult
	err := c.do(ctx, http.MethodPost, "/scrape/schedule", weekBody{Credentials: creds, Year: year, Week: week}, &out)
	return out, err
}

type dayBody struct {
	session.Credentials
	Date string `json:"date"`
}

func (c *Client) DaySchedule(ctx context.Context, creds session.Credentials, date string) (guap.DayScheduleResult, error) {
	ctx, span := tracer.Start(ctx, "DaySchedule")
	defer span.End()

	var out guap.DayScheduleResult
	err := c.do(ctx, http.MethodPost, "/scrape/daily-schedule", dayBody{Credentials: creds, Date: date}, &out)
	return out, err
}

func (c *Client) Tasks(ctx context.Context, creds session.Credentials) (guap.TasksResult, error) {
	ctx, span := tracer.Start(ctx, "Tasks")
	defer span.End()

	var out guap.TasksResult
	err := c.do(ctx, http.MethodPost, "/scrape/tasks", creds, &out)
	return out, err
}

func (c *Client) Reports(ctx context.Context, creds session.Credentials) (guap.ReportsResult, error) {
	ctx, span := tracer.Start(ctx, "Reports")
	defer span.End()

	var out guap.ReportsResult
	err := c.do(ctx, http.MethodPost, "/scrape/reports", creds, &out)
	return out, err
}

func (c *Client) Profile(ctx context.Context, creds session.Credentials) (guap.ProfileResult, error) {
	ctx, span := tracer.Start(ctx, "Profile")
	defer span.End()

	var out guap.ProfileResult
	err := c.do(ctx, http.MethodPost, "/scrape/profile", creds, &out)
	return out, err
}

// Record reads the last stored payload of a scrape.
func (c *Client) Record(ctx context.Context, username string, kind store.Kind) (store.Record, error) {
	var out store.Record
	path := fmt.Sprintf("/records/%s/%s", url.PathEscape(username), url.PathEscape(string(kind)))
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

type recordList struct {
	Records []store.Record `json:"records"`
}

// Records lists every stored payload of the user.
func (c *Client) Records(ctx context.Context, username string) ([]store.Record, error) {
	var out recordList
	err := c.do(ctx, http.MethodGet, "/records/"+url.PathEscape(username), nil, &out)
	return out.Records, err
}

type deletedRecords struct {
	Deleted int64 `json:"deleted"`
}

// DeleteRecords removes every stored payload of the user and returns how many
// there were.
func (c *Client) DeleteRecords(ctx context.Context, username string) (int64, error) {
	var out deletedRecords
	err := c.do(ctx, http.MethodDelete, "/records/"+url.PathEscape(username), nil, &out)
	return out.Deleted, err
}
