package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options configura o logger da aplicação
type Options struct {
	Level  string
	Format string // text ou json
	File   string // opcional; recebe uma cópia de tudo que vai para o console
}

// New cria o logger que escreve no console e, se configurado, em arquivo.
// O io.Closer retornado fecha o arquivo de log.
func New(console io.Writer, opts Options) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	out := console
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		file, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("erro ao abrir arquivo de log: %w", err)
		}
		out = io.MultiWriter(console, file)
		closer = file
	}

	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if opts.Format == "json" {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	return slog.New(handler), closer, nil
}

func ParseLevel(value string) (slog.Level, error) {
	switch strings.ToLower(value) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("nível de log desconhecido: %q", value)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
