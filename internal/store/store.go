package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"guapassist-backend/internal/apperr"
	"guapassist-backend/internal/assert"
	"guapassist-backend/internal/components/chrono"
	"guapassist-backend/internal/components/telemetry"
	"guapassist-backend/internal/store/db"

	_ "github.com/lib/pq"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

const (
	report_put    = "store.put"
	report_get    = "store.get"
	report_prune  = "store.prune"
	report_list   = "store.list"
	report_delete = "store.delete"
)

// Kind names one scraper's payload.
type Kind string

const (
	KindWeekSchedule Kind = "schedule"
	KindDaySchedule  Kind = "schedule-day"
	KindTasks        Kind = "tasks"
	KindReports      Kind = "reports"
	KindProfile      Kind = "profile"
)

var kinds = []Kind{KindWeekSchedule, KindDaySchedule, KindTasks, KindReports, KindProfile}

func ParseKind(s string) (Kind, error) {
	for _, k := range kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", apperr.Validation(fmt.Sprintf("неизвестный тип записи: %s", s))
}

var ErrNotFound = errors.New("record not found")

type Record struct {
	UserId    string          `json:"userId"`
	Kind      Kind            `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

const (
	DriverSqlite   = "sqlite"
	DriverLibsql   = "libsql"
	DriverPostgres = "postgres"
)

type Config struct {
	// Driver is one of sqlite, libsql or postgres, empty disables the store.
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

func (c Config) Enabled() bool {
	return c.Driver != ""
}

// Open connects to the configured database and creates the schema.
func Open(ctx context.Context, config Config) (*sql.DB, error) {
	var database *sql.DB
	var err error

	switch config.Driver {
	case DriverSqlite:
		database, err = openSqlite(config.DSN)
	case DriverLibsql, DriverPostgres:
		if config.DSN == "" {
			return nil, fmt.Errorf("store: %s: a dsn was not specified", config.Driver)
		}
		database, err = sql.Open(config.Driver, config.DSN)
	default:
		return nil, fmt.Errorf("store: unknown driver %q", config.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", config.Driver, err)
	}

	_, err = rebind(config.Driver, database).ExecContext(ctx, db.Schema)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return database, nil
}

func openSqlite(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("a path was not specified")
	}
	if path != ":memory:" {
		_, statErr := os.Stat(path)
		if os.IsNotExist(statErr) {
			f, err := os.Create(path)
			if err != nil {
				return nil, err
			}
			f.Close()
		}
	}

	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer, and every connection to :memory: is a separate database
	database.SetMaxOpenConns(1)
	if path != ":memory:" {
		_, err = database.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			database.Close()
			return nil, err
		}
	}
	return database, nil
}

// placeholders rewrites ? into the $n placeholders postgres expects.
type placeholders struct {
	inner db.DBTX
}

func toDollar(query string) string {
	var out strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			out.WriteString("$" + strconv.Itoa(n))
			continue
		}
		out.WriteRune(r)
	}
	return out.String()
}

func (p placeholders) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return p.inner.ExecContext(ctx, toDollar(query), args...)
}

func (p placeholders) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return p.inner.QueryContext(ctx, toDollar(query), args...)
}

func (p placeholders) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return p.inner.QueryRowContext(ctx, toDollar(query), args...)
}

func rebind(driver string, database db.DBTX) db.DBTX {
	if driver == DriverPostgres {
		return placeholders{inner: database}
	}
	return database
}

// Store keeps the last successful payload of every (user, kind) pair.
type Store struct {
	qry  *db.Queries
	time chrono.API
	tel  telemetry.API
}

func NewStore(database *sql.DB, driver string, clock chrono.API, tel telemetry.API) Store {
	assert.NotNil(database, "database")
	assert.NotNil(clock, "clock")
	assert.NotNil(tel, "tel")

	return Store{
		qry:  db.New(rebind(driver, database)),
		time: clock,
		tel:  telemetry.NewScopedAPI("store", tel),
	}
}

// Put serializes value as json and replaces the stored payload.
func (s Store) Put(ctx context.Context, userId string, kind Kind, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", kind, err)
	}
	err = s.qry.UpsertRecord(ctx, db.UpsertRecordParams{
		UserID:    userId,
		Kind:      string(kind),
		Payload:   string(payload),
		UpdatedAt: s.time.Now().Unix(),
	})
	if err != nil {
		s.tel.ReportBroken(report_put, err, userId, kind)
		return fmt.Errorf("store: put %s/%s: %w", userId, kind, err)
	}
	return nil
}

func (s Store) toRecord(row db.Record) Record {
	return Record{
		UserId:    row.UserID,
		Kind:      Kind(row.Kind),
		Payload:   json.RawMessage(row.Payload),
		UpdatedAt: time.Unix(row.UpdatedAt, 0).In(s.time.Location()),
	}
}

// Get returns the payload stored for the user, ErrNotFound when there is none.
func (s Store) Get(ctx context.Context, userId string, kind Kind) (Record, error) {
	row, err := s.qry.GetRecord(ctx, db.GetRecordParams{UserID: userId, Kind: string(kind)})
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		s.tel.ReportBroken(report_get, err, userId, kind)
		return Record{}, fmt.Errorf("store: get %s/%s: %w", userId, kind, err)
	}
	return s.toRecord(row), nil
}

// List returns every record of the user ordered by kind.
func (s Store) List(ctx context.Context, userId string) ([]Record, error) {
	rows, err := s.qry.ListRecords(ctx, userId)
	if err != nil {
		s.tel.ReportBroken(report_list, err, userId)
		return nil, fmt.Errorf("store: list %s: %w", userId, err)
	}
	out := make([]Record, len(rows))
	for i, row := range rows {
		out[i] = s.toRecord(row)
	}
	return out, nil
}

// Delete removes every record of the user and returns how many were removed.
func (s Store) Delete(ctx context.Context, userId string) (int64, error) {
	n, err := s.qry.DeleteRecords(ctx, userId)
	if err != nil {
		s.tel.ReportBroken(report_delete, err, userId)
		return 0, fmt.Errorf("store: delete %s: %w", userId, err)
	}
	return n, nil
}

// Prune removes records not updated within maxAge.
func (s Store) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	before := s.time.Now().Add(-maxAge).Unix()
	n, err := s.qry.DeleteRecordsBefore(ctx, before)
	if err != nil {
		s.tel.ReportWarning(report_prune, err)
		return 0, fmt.Errorf("store: prune: %w", err)
	}
	if n > 0 {
		s.tel.ReportDebug("pruned stale records", n)
	}
	return n, nil
}
