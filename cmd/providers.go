package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/stimulus-cli/internal/config"
	"github.com/xkilldash9x/stimulus-cli/internal/display"
	"github.com/xkilldash9x/stimulus-cli/internal/observability"
	"github.com/xkilldash9x/stimulus-cli/internal/picker"
	"github.com/xkilldash9x/stimulus-cli/internal/presentation"
	"github.com/xkilldash9x/stimulus-cli/internal/stimulus"
	"github.com/xkilldash9x/stimulus-cli/internal/store"
	"github.com/xkilldash9x/stimulus-cli/internal/store/sqlite"
)

// dependencies groups the collaborators commands reach outside the process
// through. Tests replace them.
type dependencies struct {
	surfaces surfaceProvider
	sinks    sinkProvider
	pick     func(title string, items []picker.Item) (int, error)
}

func defaultDependencies() *dependencies {
	return &dependencies{
		surfaces: &defaultSurfaceProvider{in: os.Stdin, out: os.Stdout},
		sinks:    NewSinkProvider(),
		pick: func(title string, items []picker.Item) (int, error) {
			return picker.Run(title, items, tea.WithAltScreen())
		},
	}
}

// surfaceRequest describes the surface a run needs.
type surfaceRequest struct {
	Headless bool
	// Keys are scripted presses by absolute frame number. Headless only.
	Keys map[int]stimulus.Key
	// Interrupt is called when the user asks to stop the run.
	Interrupt func()
}

// surfaceProvider opens the surface a run is drawn on. The returned function
// releases it.
type surfaceProvider interface {
	Open(ctx context.Context, cfg config.Interface, req surfaceRequest) (presentation.Surface, func(), error)
}

type defaultSurfaceProvider struct {
	in  io.Reader
	out io.Writer
}

func (p *defaultSurfaceProvider) Open(ctx context.Context, cfg config.Interface, req surfaceRequest) (presentation.Surface, func(), error) {
	d := cfg.Display()
	if req.Headless {
		v := display.NewVirtual(d.Width, d.Height, display.WithKeys(req.Keys), display.WithoutRecording())
		return v, func() {}, nil
	}

	opts := []display.TerminalOption{display.WithLogger(observability.GetLogger().Named("terminal"))}
	if req.Interrupt != nil {
		opts = append(opts, display.WithInterrupt(req.Interrupt))
	}
	t, err := display.OpenTerminal(ctx, p.in, p.out, d.Width, d.Height, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open terminal display: %w", err)
	}
	// The key pump stays blocked on stdin until the process exits, so only
	// Close is called here.
	return t, func() { _ = t.Close() }, nil
}

// sinkProvider creates the run report sink selected by results.sink. A nil
// sink means reports are not persisted.
type sinkProvider interface {
	Create(ctx context.Context, cfg config.Interface) (store.Sink, func(), error)
}

type defaultSinkProvider struct{}

// NewSinkProvider returns the provider backed by real databases.
func NewSinkProvider() sinkProvider {
	return &defaultSinkProvider{}
}

func (p *defaultSinkProvider) Create(ctx context.Context, cfg config.Interface) (store.Sink, func(), error) {
	logger := observability.GetLogger()

	switch cfg.Results().Sink {
	case config.SinkPostgres:
		pool, err := pgxpool.New(ctx, cfg.Database().URL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		st, err := store.New(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to initialize store service: %w", err)
		}
		if err := st.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return st, func() {
			pool.Close()
			logger.Debug("Database connection pool closed")
		}, nil

	case config.SinkSQLite:
		st, err := sqlite.Open(cfg.Results().SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, nil, err
		}
		return st, func() {
			if err := st.Close(); err != nil {
				logger.Warn("Failed to close sqlite store", zap.Error(err))
			}
		}, nil

	default:
		return nil, func() {}, nil
	}
}
