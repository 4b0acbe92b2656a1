package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

var logger = newLogger(os.Stdout, "yonmai")

func newLogger(w io.Writer, prefix string) *log.Logger {
	l := log.New(w)
	l.SetPrefix(prefix)
	l.SetReportTimestamp(true)
	l.SetTimeFormat(time.DateTime)
	l.SetReportCaller(true)
	// 包装函数多一层调用栈
	l.SetCallerOffset(1)
	return l
}

// InitLog 使用 stdout，避免 IDE 控制台把所有日志标红
func InitLog(appName string, logLevel string) {
	logger = newLogger(os.Stdout, appName)
	logger.SetLevel(ParseLevel(logLevel))
}

// ParseLevel 未识别的级别按 info 处理
func ParseLevel(logLevel string) log.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// SetLevel 配置热更新时调整级别
func SetLevel(logLevel string) {
	logger.SetLevel(ParseLevel(logLevel))
}

func Fatal(format string, args ...any) {
	if len(args) == 0 {
		logger.Fatalf(format)
	} else {
		logger.Fatalf(format, args...)
	}
}

func Info(format string, args ...any) {
	if len(args) == 0 {
		logger.Infof(format)
	} else {
		logger.Infof(format, args...)
	}
}

func Warn(format string, args ...any) {
	if len(args) == 0 {
		logger.Warnf(format)
	} else {
		logger.Warnf(format, args...)
	}
}

func Error(format string, args ...any) {
	if len(args) == 0 {
		logger.Errorf(format)
	} else {
		logger.Errorf(format, args...)
	}
}

func Debug(format string, args ...any) {
	if len(args) == 0 {
		logger.Debugf(format)
	} else {
		logger.Debugf(format, args...)
	}
}

// Scoped 带固定前缀的日志，例如 Match[<id>]；直接调用 logger，调用栈深度与包级函数一致
type Scoped struct {
	prefix string
}

func With(prefix string) Scoped {
	return Scoped{prefix: prefix + " "}
}

func (s Scoped) Debug(format string, args ...any) { logger.Debugf(s.prefix+format, args...) }

func (s Scoped) Info(format string, args ...any) { logger.Infof(s.prefix+format, args...) }

func (s Scoped) Warn(format string, args ...any) { logger.Warnf(s.prefix+format, args...) }

func (s Scoped) Error(format string, args ...any) { logger.Errorf(s.prefix+format, args...) }
