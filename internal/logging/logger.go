package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FileName is the log file created inside the logs directory.
const FileName = "agentx.log"

// New opens (or reuses) logsDir/agentx.log and returns a JSON zap logger
// appending to it, so failures stay inspectable after the host closes the
// terminal. The returned close func flushes and releases the file.
func New(logsDir string, verbose bool) (*zap.Logger, func() error, error) {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	path := filepath.Join(logsDir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: open log file: %w", err)
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), level)
	logger := zap.New(core, zap.AddCaller())
	closer := func() error {
		_ = logger.Sync()
		return f.Close()
	}
	return logger, closer, nil
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger {
	return zap.NewNop()
}

// Printfer is the minimal logger shape consumed by the event bridge.
type Printfer interface {
	Printf(format string, args ...any)
}

type printfLogger struct {
	sugar *zap.SugaredLogger
}

// Printf adapts a zap logger to the Printfer interface at info level.
func Printf(l *zap.Logger) Printfer {
	if l == nil {
		l = zap.NewNop()
	}
	return printfLogger{sugar: l.Sugar()}
}

func (p printfLogger) Printf(format string, args ...any) {
	p.sugar.Info(strings.TrimRight(fmt.Sprintf(format, args...), "\n"))
}
