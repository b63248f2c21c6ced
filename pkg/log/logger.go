package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// basicLogger wraps the logrus standard logger so the package-level helpers
// below and Logger write to the same sink.
type basicLogger struct {
	*logrus.Logger
}

// Level is the log level of logger (wrapper for logrus)
type Level logrus.Level

// Formatter is the formatter of logger (wrapper for logrus)
type Formatter logrus.Formatter

// Logger is the process-wide logger.
var Logger *basicLogger

const FileName = "research-assistant.log"

func init() {
	Logger = &basicLogger{logrus.StandardLogger()}
	Logger.Out = os.Stdout
	Logger.Level = logrus.InfoLevel
	Logger.Formatter = &logrus.TextFormatter{
		DisableColors: false,
		FullTimestamp: true,
	}
}

// Setup sets the level from its textual form and tees output into
// dir/research-assistant.log. The returned closer releases the file.
func Setup(level string, dir string) (io.Closer, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	SetLevel(Level(lvl))
	if dir == "" {
		return io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("make log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, FileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	// colour codes would end up in the file
	SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	SetOutput(io.MultiWriter(os.Stdout, f))
	return f, nil
}

// SetOutput sets the logger output.
func SetOutput(out io.Writer) {
	Logger.SetOutput(out)
}

// SetFormatter sets the logger formatter.
func SetFormatter(formatter Formatter) {
	Logger.SetFormatter(logrus.Formatter(formatter))
}

// SetLevel sets the logger level.
func SetLevel(level Level) {
	Logger.SetLevel(logrus.Level(level))
}

// GetLevel returns the logger level.
func GetLevel() Level {
	return Level(Logger.GetLevel())
}

var (
	PanicLevel = Level(logrus.PanicLevel)
	FatalLevel = Level(logrus.FatalLevel)
	ErrorLevel = Level(logrus.ErrorLevel)
	WarnLevel  = Level(logrus.WarnLevel)
	InfoLevel  = Level(logrus.InfoLevel)
	DebugLevel = Level(logrus.DebugLevel)

	WithError  = logrus.WithError
	WithField  = logrus.WithField
	WithFields = logrus.WithFields

	Debug   = logrus.Debug
	Info    = logrus.Info
	Warn    = logrus.Warn
	Warning = logrus.Warning
	Error   = logrus.Error
	Fatal   = logrus.Fatal

	Debugf   = logrus.Debugf
	Infof    = logrus.Infof
	Warnf    = logrus.Warnf
	Warningf = logrus.Warningf
	Errorf   = logrus.Errorf
	Fatalf   = logrus.Fatalf
)

// Fields is an alias so callers need not import logrus.
type Fields = logrus.Fields
