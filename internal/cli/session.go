package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/yriy-kuskov/cakereact-core/records"
	"github.com/yriy-kuskov/cakereact-core/records/config"
	"github.com/yriy-kuskov/cakereact-core/records/sqlengine"
)

// ErrUnknownConnection is returned when --connection names a connection the file does not declare.
var ErrUnknownConnection = errors.New("connection not configured")

// session is an opened connection with a Model on one table.
type session struct {
	model    *records.Model
	registry *records.Registry
}

func openSession(ctx context.Context, opts *RootOptions, table string, stderr io.Writer) (*session, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	conn, ok := cfg.Connection(opts.Connection)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConnection, opts.Connection)
	}

	logger := newLogger(stderr, opts.Verbose)

	engine, err := sqlengine.Open(ctx, conn, sqlengine.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	registry := records.NewRegistry()
	if err = registry.AddConnection(opts.Connection, engine); err != nil {
		_ = engine.Close()
		return nil, err
	}

	model, err := records.NewModel(registry, table,
		records.WithConnection(opts.Connection),
		records.WithPrimaryKey(opts.PrimaryKey),
		records.WithLogger(logger),
	)
	if err != nil {
		_ = registry.Close()
		return nil, err
	}

	return &session{model: model, registry: registry}, nil
}

func (s *session) Close() error {
	return s.registry.Close()
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
