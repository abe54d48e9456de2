package core

import "context"

// Insight result texts shown to teachers when the AI coach cannot help.
// Service failures are never surfaced as errors to the UI; they degrade
// to InsightUnavailable.
const (
	InsightUnavailable = "AI service unavailable."
	InsightEmpty       = "No suggestions found."
)

// InsightService is any service that can turn a teaching prompt into a
// short free-text suggestion. Implementations do a single request/response
// round trip; no streaming, no retry.
type InsightService interface {
	Suggest(ctx context.Context, prompt string) (string, error)
}
