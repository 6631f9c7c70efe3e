package logging

import "go.uber.org/zap"

// Zap adapts a *zap.SugaredLogger to Logger. This is the concrete
// implementation cmd/resolve wires into the resolver at startup.
type Zap struct {
	S *zap.SugaredLogger
}

// NewZap builds a Zap logger from a configured *zap.Logger.
func NewZap(l *zap.Logger) Zap {
	return Zap{S: l.Sugar()}
}

func (z Zap) Debugf(format string, args ...interface{}) { z.S.Debugf(format, args...) }
func (z Zap) Infof(format string, args ...interface{})  { z.S.Infof(format, args...) }
func (z Zap) Warnf(format string, args ...interface{})  { z.S.Warnf(format, args...) }
func (z Zap) Errorf(format string, args ...interface{}) { z.S.Errorf(format, args...) }
