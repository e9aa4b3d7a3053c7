package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

type Builder struct {
	writer io.Writer
	level  string
	format string
}

func New() *Builder {
	return &Builder{}
}

// ToWriter directs output to w instead of stdout.
func (b *Builder) ToWriter(w io.Writer) *Builder {
	b.writer = w
	return b
}

func (b *Builder) WithLevel(level string) *Builder {
	b.level = level
	return b
}

// WithFormat selects "json" or "console".
func (b *Builder) WithFormat(format string) *Builder {
	b.format = format
	return b
}

// Make builds the logger. An unknown level falls back to info.
func (b *Builder) Make() zerolog.Logger {
	w := b.writer
	if w == nil {
		w = os.Stdout
	}
	if b.format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}

	level, err := zerolog.ParseLevel(b.level)
	if err != nil || b.level == "" {
		level = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.SyncWriter(w)).Level(level).With().Timestamp().Logger()
}
