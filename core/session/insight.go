package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/umahiri/core"
	"github.com/trezcool/umahiri/core/catalog"
)

// BuildInsightPrompt assembles the coaching prompt for a session from its
// learning intention and the linked atoms' titles, descriptions and known
// misconceptions.
func BuildInsightPrompt(s Session, atoms []catalog.Atom) string {
	var b strings.Builder
	fmt.Fprintf(
		&b,
		"You are a Maths Education Specialist. For the learning intention %q, give 2-3 specific classroom activities. Max 60 words.",
		s.LearningIntention,
	)
	if len(atoms) > 0 {
		b.WriteString("\nLinked skills:")
		for _, a := range atoms {
			fmt.Fprintf(&b, "\n- %s: %s", a.Title, a.Description)
			if len(a.Misconceptions) > 0 {
				fmt.Fprintf(&b, " (watch for: %s)", strings.Join(a.Misconceptions, "; "))
			}
		}
	}
	return b.String()
}

// RequestInsight asks the AI coach for teaching suggestions for one
// session. Service failures are converted to the fixed fallback text, not
// errors; a non-nil error only means the session identity is unknown.
// The result is ephemeral: callers hold it in view state, it is never
// persisted. Concurrent requests for the same session may race; callers
// should bind whichever response they receive last.
func (svc *Service) RequestInsight(ctx context.Context, key Key) (string, error) {
	s, err := svc.repo.GetSession(ctx, key)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return "", ErrNotFound
		}
		return "", errors.Wrapf(err, "getting session %s", key)
	}

	prompt := BuildInsightPrompt(s, catalog.ResolveAtoms(s.AtomIDs))
	text, err := svc.insightSvc.Suggest(ctx, prompt)
	if err != nil {
		if svc.logger != nil {
			svc.logger.Warn(fmt.Sprintf("insight request for %s failed: %v", key, err), err)
		}
		return core.InsightUnavailable, nil
	}
	if text = core.CleanString(text); text == "" {
		return core.InsightEmpty, nil
	}
	return text, nil
}
