package logger

import "context"

type nopLogger struct{}

// NewNop returns a Logger that discards everything.
func NewNop() Logger { return nopLogger{} }

func (nopLogger) Debug(context.Context, string, ...Field)        {}
func (nopLogger) Info(context.Context, string, ...Field)         {}
func (nopLogger) Warn(context.Context, string, ...Field)         {}
func (nopLogger) Error(context.Context, string, error, ...Field) {}
func (nopLogger) Fatal(context.Context, string, error, ...Field) {}
func (n nopLogger) WithFields(...Field) Logger                   { return n }
func (n nopLogger) WithComponent(string) Logger                  { return n }
