package configutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port     int      `json:"port"`
	Headless bool     `json:"headless"`
	Idle     Duration `json:"idle"`
	Settle   Duration `json:"settle"`
	Store    struct {
		Driver string `json:"driver"`
		DSN    string `json:"dsn"`
	} `json:"store"`
}

func write(t *testing.T, path, contents string) {
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "config.json5")

	_, err := ReadConfig[testConfig](name)
	require.ErrorIs(t, err, os.ErrNotExist)

	write(t, name, `{
		// defaults
		port: 3001,
		headless: true,
		idle: "30m",
		settle: 1500,
		store: { driver: "sqlite", dsn: "records.db" },
	}`)
	config, err := ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, 3001, config.Port)
	require.Equal(t, 30*time.Minute, time.Duration(config.Idle))
	require.Equal(t, 1500*time.Millisecond, time.Duration(config.Settle))

	write(t, filepath.Join(dir, "config.local.json5"), `{
		port: 4000,
		store: { dsn: "/tmp/other.db" },
	}`)
	config, err = ReadConfig[testConfig](name)
	require.NoError(t, err)
	require.Equal(t, 4000, config.Port)
	require.True(t, config.Headless)
	require.Equal(t, "sqlite", config.Store.Driver)
	require.Equal(t, "/tmp/other.db", config.Store.DSN)
}

func TestDuration(t *testing.T) {
	cases := []struct {
		input    string
		expected time.Duration
		fails    bool
	}{
		{`"15s"`, 15 * time.Second, false},
		{`'5m'`, 5 * time.Minute, false},
		{`250`, 250 * time.Millisecond, false},
		{`null`, 0, false},
		{`"soon"`, 0, true},
	}
	for _, c := range cases {
		t.Run(c.input, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalJSON([]byte(c.input))
			if c.fails {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, c.expected, time.Duration(d))
		})
	}

	require.Equal(t, 10*time.Second, Duration(0).Or(10*time.Second))
	require.Equal(t, time.Second, Duration(time.Second).Or(10*time.Second))
}

func TestSplitExt(t *testing.T) {
	prefix, ext := splitExt("config.json5")
	require.Equal(t, "config", prefix)
	require.Equal(t, "json5", ext)
}
