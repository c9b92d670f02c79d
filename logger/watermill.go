package logger

import (
	"github.com/ThreeDotsLabs/watermill"
	"go.uber.org/zap"
)

// WatermillAdapter lets watermill components log through zap.
type WatermillAdapter struct {
	l *zap.Logger
}

// NewWatermillAdapter wraps l for watermill.
func NewWatermillAdapter(l *zap.Logger) watermill.LoggerAdapter {
	return &WatermillAdapter{l: l.Named("watermill")}
}

func (a *WatermillAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.l.Error(msg, append(zapFields(fields), zap.Error(err))...)
}

func (a *WatermillAdapter) Info(msg string, fields watermill.LogFields) {
	a.l.Info(msg, zapFields(fields)...)
}

func (a *WatermillAdapter) Debug(msg string, fields watermill.LogFields) {
	a.l.Debug(msg, zapFields(fields)...)
}

// Trace maps to debug; zap has no lower level.
func (a *WatermillAdapter) Trace(msg string, fields watermill.LogFields) {
	a.l.Debug(msg, zapFields(fields)...)
}

func (a *WatermillAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &WatermillAdapter{l: a.l.With(zapFields(fields)...)}
}

func zapFields(fields watermill.LogFields) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}
