package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/teranos/measure/sym"
)

// Symbol-aware logging helpers.
// These log with the symbol as a structured field, not in the message,
// which keeps messages clean and logs queryable by symbol.
//
//	logger.PageInfow(log, "Page written", "page", n)

// PageInfow logs an info message with the page symbol (▤)
func PageInfow(l *zap.SugaredLogger, msg string, keysAndValues ...interface{}) {
	symbolw(l, zap.InfoLevel, sym.Page, msg, keysAndValues...)
}

// GrammarDebugw logs a debug message with the grammar symbol (∷)
func GrammarDebugw(l *zap.SugaredLogger, msg string, keysAndValues ...interface{}) {
	symbolw(l, zap.DebugLevel, sym.Grammar, msg, keysAndValues...)
}

// DBInfow logs an info message with the database symbol (⊔)
func DBInfow(l *zap.SugaredLogger, msg string, keysAndValues ...interface{}) {
	symbolw(l, zap.InfoLevel, sym.DB, msg, keysAndValues...)
}

// FailureWarnw logs a warning with the failure symbol (✗)
func FailureWarnw(l *zap.SugaredLogger, msg string, keysAndValues ...interface{}) {
	symbolw(l, zap.WarnLevel, sym.Failure, msg, keysAndValues...)
}

func symbolw(l *zap.SugaredLogger, level zapcore.Level, symbol, msg string, keysAndValues ...interface{}) {
	if l == nil {
		l = Logger
	}
	if l == nil {
		return
	}
	fields := append([]interface{}{FieldSymbol, symbol}, keysAndValues...)
	switch level {
	case zap.DebugLevel:
		l.Debugw(msg, fields...)
	case zap.WarnLevel:
		l.Warnw(msg, fields...)
	default:
		l.Infow(msg, fields...)
	}
}
