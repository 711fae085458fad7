// Package logging はzerologのロガーを生成する。
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// New はlevelとpretty指定に従ってロガーを生成する。
// prettyがtrueの場合は人間が読みやすいコンソール形式、falseの場合はJSONで出力する。
// levelが空の場合はinfoとして扱う。
func New(w io.Writer, level string, pretty bool) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if level = strings.TrimSpace(level); level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Nop(), errors.Wrapf(err, "invalid log level: %q", level)
		}
		lvl = parsed
	}

	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "relay").Logger(), nil
}
