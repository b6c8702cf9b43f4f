package configutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration reads "15s" style strings, bare numbers are milliseconds.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if text == "null" {
		return nil
	}
	if unquoted, ok := unquote(text); ok {
		parsed, err := time.ParseDuration(unquoted)
		if err != nil {
			return fmt.Errorf("configutil: duration %s: %w", text, err)
		}
		*d = Duration(parsed)
		return nil
	}
	ms, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return fmt.Errorf("configutil: duration %s: %w", text, err)
	}
	*d = Duration(time.Duration(ms) * time.Millisecond)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(time.Duration(d).String())), nil
}

// Or returns fallback when the duration was not configured.
func (d Duration) Or(fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return time.Duration(d)
}

func unquote(text string) (string, bool) {
	if len(text) < 2 {
		return "", false
	}
	first, last := text[0], text[len(text)-1]
	if (first == '"' || first == '\'') && first == last {
		return text[1 : len(text)-1], true
	}
	return "", false
}
