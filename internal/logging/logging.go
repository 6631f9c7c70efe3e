// Package logging provides the leveled logger used across the resolver.
//
// It generalizes golang-dep's log.Logger (an io.Writer wrapper with
// Logln/Logf/LogDepfln) into a small leveled interface. Resolver packages
// depend only on the Logger interface; cmd/ wires up the concrete
// zap-backed implementation, the same layering golang-dep uses between
// its library code and main.go.
package logging

// Logger is the minimal leveled logging surface the resolver calls into:
// source clone/fetch and worktree staging, version preparation, pattern
// matches, skipped skill directories, and the hand-off to the
// backtracking solver.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Nop is a Logger that discards everything. Useful as a default so callers
// never need a nil check.
type Nop struct{}

func (Nop) Debugf(string, ...interface{}) {}
func (Nop) Infof(string, ...interface{}) {}
func (Nop) Warnf(string, ...interface{}) {}
func (Nop) Errorf(string, ...interface{}) {}
