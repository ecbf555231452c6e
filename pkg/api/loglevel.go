package api

import "log/slog"

// LogLevel controls the SDK's diagnostic verbosity. It only affects what is
// logged, never control flow.
type LogLevel string

const (
	LogInfo    LogLevel = "info"
	LogDebug   LogLevel = "debug"
	LogVerbose LogLevel = "verbose"
)

// SlogLevel maps the SDK level onto log/slog. Verbose shares slog's debug
// level; components gate their extra per-attempt detail on Verbose
// explicitly.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogDebug, LogVerbose:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
