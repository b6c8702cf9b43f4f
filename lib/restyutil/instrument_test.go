package restyutil

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

type memoryOutput struct {
	mutex    sync.Mutex
	messages map[string]string
}

func (o *memoryOutput) Write(id, contents string) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.messages[id] = contents
}

func withLevel(t *testing.T, level slog.Level) {
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	t.Cleanup(func() { slog.SetDefault(previous) })
}

func newServer(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Portal", "guap")
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte(`{"success":false}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestDumpsOnlyWhileDebugging(t *testing.T) {
	server := newServer(t)

	cases := []struct {
		name  string
		level slog.Level
		dumps int
	}{
		{"debug", slog.LevelDebug, 2},
		{"info", slog.LevelInfo, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			withLevel(t, c.level)
			output := &memoryOutput{messages: map[string]string{}}
			client := resty.New()
			InstrumentClient(client, nil, output)

			for range 2 {
				_, err := client.R().SetBody(map[string]string{"username": "u1"}).Post(server.URL + "/scrape/tasks")
				require.NoError(t, err)
			}
			require.Len(t, output.messages, c.dumps)
			if c.dumps == 0 {
				return
			}
			message := output.messages["1"]
			require.Contains(t, message, "POST "+server.URL+"/scrape/tasks")
			require.Contains(t, message, `{"username":"u1"}`)
			require.Contains(t, message, "418 ")
			require.Contains(t, message, "X-Portal: guap")
			require.Contains(t, message, `{"success":false}`)
		})
	}
}

func TestFilesystemOutput(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dumps")
	require.NoError(t, os.MkdirAll(dir, 0777))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale.http"), nil, 0600))

	output, err := NewFilesystemOutput(dir)
	require.NoError(t, err)
	output.Write("7", "contents")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	contents, err := os.ReadFile(filepath.Join(dir, "7.http"))
	require.NoError(t, err)
	require.Equal(t, "contents", string(contents))
}
