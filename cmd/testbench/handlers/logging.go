package handlers

import (
	"io"
	"os"

	"github.com/go-logr/logr"
	"gopkg.in/natefinch/lumberjack.v2"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

// LogOptions are the persistent logging flags.
type LogOptions struct {
	Verbose bool
	File    string

	// quiet keeps logs off the console while the progress view owns it.
	quiet bool
}

// stderr is where logs go besides the optional log file. Replaced in tests.
var stderr io.Writer = os.Stderr

// newLogger builds the zap backed logger. The returned closer flushes the
// log file and must be called before exit.
func newLogger(opts LogOptions) (logr.Logger, io.Closer) {
	var out io.Writer = stderr
	var closer io.Closer = nopCloser{}
	if opts.quiet {
		out = io.Discard
	}

	if opts.File != "" {
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
		}
		out = io.MultiWriter(out, file)
		closer = file
	}

	log := zap.New(
		zap.UseDevMode(opts.Verbose),
		zap.WriteTo(out),
	)
	return log.WithName("testbench"), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
