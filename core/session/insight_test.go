package session_test

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/trezcool/umahiri/core"
	"github.com/trezcool/umahiri/core/catalog"
	"github.com/trezcool/umahiri/core/session"
)

func TestService_RequestInsight(t *testing.T) {
	svc, insightSvc := setup(t)
	ctx := context.Background()

	if _, err := svc.Load(ctx); err != nil {
		t.Fatalf("Load(): %v", err)
	}
	key := session.Key{Strand: catalog.StrandPlaceValue, Number: 1}

	t.Run("unknown session", func(t *testing.T) {
		unknown := session.Key{Strand: catalog.StrandTimesTables, Number: 99}
		if _, err := svc.RequestInsight(ctx, unknown); err != session.ErrNotFound {
			t.Errorf("RequestInsight() error = %v, wantErr %v", err, session.ErrNotFound)
		}
	})

	t.Run("suggestion passthrough", func(t *testing.T) {
		got, err := svc.RequestInsight(ctx, key)
		if err != nil {
			t.Fatalf("RequestInsight(): %v", err)
		}
		if got != insightSvc.Response {
			t.Errorf("RequestInsight() = %q, want %q", got, insightSvc.Response)
		}
	})

	t.Run("service failure yields fallback, not error", func(t *testing.T) {
		insightSvc.Err = errors.New("boom")
		defer func() { insightSvc.Err = nil }()

		got, err := svc.RequestInsight(ctx, key)
		if err != nil {
			t.Fatalf("RequestInsight(): %v", err)
		}
		if got != core.InsightUnavailable {
			t.Errorf("RequestInsight() = %q, want %q", got, core.InsightUnavailable)
		}
	})

	t.Run("blank suggestion yields fallback", func(t *testing.T) {
		insightSvc.Response = "  \n\t "
		defer func() { insightSvc.Response = "Use base-ten blocks." }()

		got, err := svc.RequestInsight(ctx, key)
		if err != nil {
			t.Fatalf("RequestInsight(): %v", err)
		}
		if got != core.InsightEmpty {
			t.Errorf("RequestInsight() = %q, want %q", got, core.InsightEmpty)
		}
	})
}

func TestBuildInsightPrompt(t *testing.T) {
	s := session.Session{
		Strand:            catalog.StrandPlaceValue,
		Number:            1,
		Title:             "Placeholder Zero",
		LearningIntention: "Understand that zero holds a place.",
		AtomIDs:           []string{"PV-1.3"},
	}

	prompt := session.BuildInsightPrompt(s, catalog.ResolveAtoms(s.AtomIDs))

	for _, want := range []string{
		"Maths Education Specialist",
		`"Understand that zero holds a place."`,
		"Max 60 words",
		"Zero as Placeholder",
		"watch for:",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("BuildInsightPrompt() missing %q in:\n%s", want, prompt)
		}
	}
}

func TestBuildInsightPrompt_recordsPromptOnService(t *testing.T) {
	svc, insightSvc := setup(t)
	ctx := context.Background()

	if _, err := svc.Load(ctx); err != nil {
		t.Fatalf("Load(): %v", err)
	}
	key := session.Key{Strand: catalog.StrandTimesTables, Number: 2}
	if _, err := svc.RequestInsight(ctx, key); err != nil {
		t.Fatalf("RequestInsight(): %v", err)
	}

	if len(insightSvc.Prompts) != 1 {
		t.Fatalf("recorded %d prompts, want 1", len(insightSvc.Prompts))
	}
	if !strings.Contains(insightSvc.Prompts[0], "Linked skills:") {
		t.Errorf("prompt missing linked skills:\n%s", insightSvc.Prompts[0])
	}
}
