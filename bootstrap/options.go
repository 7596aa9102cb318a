package bootstrap

import (
	"io"
	"time"

	"github.com/kbukum/phrame/logger"
)

// Option overrides one of NewApp's defaults.
type Option func(*App)

// WithLogger replaces the logger NewApp would build from cfg.Logging.
func WithLogger(l *logger.Logger) Option {
	return func(a *App) { a.Logger = l }
}

// WithGracefulTimeout bounds the stop hooks and component shutdown.
// The default is 15 seconds.
func WithGracefulTimeout(d time.Duration) Option {
	return func(a *App) { a.gracefulTimeout = d }
}

// WithOutput sends the startup summary to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(a *App) { a.out = w }
}
