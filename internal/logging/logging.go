package logging

import (
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console logger writing one entry per line to w (stderr in
// the CLI; stdout is reserved for the listing). verbose enables debug output.
// Every entry carries the run id.
func New(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	encCfg.CallerKey = ""
	encCfg.StacktraceKey = ""
	encCfg.ConsoleSeparator = " "
	if verbose {
		encCfg.TimeKey = "T"
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(zapcore.AddSync(w)), level)
	return zap.New(core).With(zap.String("run_id", NewRunID()))
}

// NewRunID returns a short random id used to correlate one run's entries.
func NewRunID() string {
	return uuid.NewString()[:8]
}
