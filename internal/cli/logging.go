package cli

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// setupLogging installs the default slog logger. Engine and store log
// through slog.Default, so this covers every package.
func setupLogging(w io.Writer, opts *RootOptions) {
	slog.SetDefault(slog.New(newLogHandler(w, opts)))
}

// newLogHandler returns a JSON handler, or a tint handler that only colors
// output going to a terminal.
func newLogHandler(w io.Writer, opts *RootOptions) slog.Handler {
	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}

	if opts.LogFormat == "json" {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}
	return tint.NewHandler(w, &tint.Options{
		NoColor:    !isTerminal(w),
		TimeFormat: time.Kitchen,
		Level:      level,
	})
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
