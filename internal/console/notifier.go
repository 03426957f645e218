package console

import "log/slog"

// LogNotifier reports claim outcomes to the structured log. The embedding
// application replaces it with its own toast surface.
type LogNotifier struct{}

func (LogNotifier) Success(message string) {
	slog.Info("Claim workflow", "result", "success", "message", message)
}

func (LogNotifier) Failure(message string) {
	slog.Warn("Claim workflow", "result", "failure", "message", message)
}
