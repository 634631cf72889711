package logger

import (
	"io"
	"os"
	"path"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// DefaultLogLevel is the default log level
	DefaultLogLevel = zerolog.InfoLevel

	LogFileName = "data-inflater.log"

	// TimeFormat is the timestamp layout for console log lines.
	TimeFormat = "2006-01-02 15:04:05"
)

// DefaultLogWriter is the default log io.Writer implementor
var DefaultLogWriter = os.Stderr

// Logger wraps a zerolog.Logger along with the writer it logs to, so
// that sub-loggers can share (and rotate) the same output.
type Logger struct {
	*zerolog.Logger
	writer io.Writer
}

// NewSubLogger creates a sub Logger of the parent one, with the same writer
func NewSubLogger(parentLogger *Logger, childComponentName string, childComponent string) *Logger {
	subLogger := parentLogger.With().Str(childComponentName, childComponent).Logger()
	return &Logger{
		Logger: &subLogger,
		writer: parentLogger.writer,
	}
}

// NewLogger creates a New Logger
func NewLogger(logger *zerolog.Logger, writer io.Writer) *Logger {
	ret := &Logger{
		Logger: logger,
		writer: writer,
	}
	ret.Rotate()
	return ret
}

// NewDebugLogger creates a new Logger with default log writer with debug level
func NewDebugLogger() *Logger {
	logger := zerolog.New(DefaultLogWriter).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	return &Logger{
		Logger: &logger,
		writer: DefaultLogWriter,
	}
}

// NewForPath returns a console-formatted Logger that writes to the given
// path. "stdout" and "stderr" name the standard streams; anything else is
// a directory that receives a rotating log file.
func NewForPath(logPath string, level zerolog.Level) (*Logger, error) {
	var writer io.Writer

	switch logPath {
	case "stdout":
		writer = zerolog.SyncWriter(os.Stdout)
	case "stderr":
		writer = zerolog.SyncWriter(os.Stderr)
	default:
		w, err := NewRotatingWriter(logPath)
		if err != nil {
			return nil, err
		}
		writer = w
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        writer,
		TimeFormat: TimeFormat,
		NoColor:    logPath != "stdout" && logPath != "stderr",
	}

	l := zerolog.New(consoleWriter).Level(level).With().Timestamp().Logger()
	return NewLogger(&l, writer), nil
}

// Rotate will rotate the underlying Logger writer iff it is a *lumberjack.Logger
func (l *Logger) Rotate() {
	switch w := l.writer.(type) {
	case *lumberjack.Logger:
		_ = w.Rotate()
	}
}

// NewRotatingWriter creates a new io.Writer with an underlying lumberjack.Logger
func NewRotatingWriter(dirPath string) (io.Writer, error) {
	err := os.MkdirAll(dirPath, 0744)
	if err != nil {
		return nil, err
	}

	return &lumberjack.Logger{
		Filename: path.Join(dirPath, LogFileName),
	}, nil
}
