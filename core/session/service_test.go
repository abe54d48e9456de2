package session_test

import (
	"context"
	"reflect"
	"sort"
	"testing"

	"github.com/pkg/errors"

	"github.com/trezcool/umahiri/core"
	"github.com/trezcool/umahiri/core/catalog"
	"github.com/trezcool/umahiri/core/session"
	dummyinsight "github.com/trezcool/umahiri/services/insight/dummy"
	inmemdb "github.com/trezcool/umahiri/storage/database/inmem"
)

func setup(t *testing.T) (*session.Service, *dummyinsight.Service) {
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open(): %v", err)
	}
	insightSvc := dummyinsight.NewService("Use base-ten blocks.")
	svc := session.NewService(inmemdb.NewSessionRepository(db), insightSvc, nil)
	t.Cleanup(func() { _ = svc.Close() })
	return svc, insightSvc
}

func sortSessions(sessions []session.Session) {
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].Strand != sessions[j].Strand {
			return sessions[i].Strand < sessions[j].Strand
		}
		return sessions[i].Number < sessions[j].Number
	})
}

func statusPtr(s session.Status) *session.Status { return &s }
func strPtr(s string) *string                    { return &s }

func TestService_Load_seedsOnceAndIsIdempotent(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	first, err := svc.Load(ctx)
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}
	if len(first) != len(session.MasterSessions()) {
		t.Fatalf("Load() seeded %d sessions, want %d", len(first), len(session.MasterSessions()))
	}
	for _, s := range first {
		if s.Status != session.StatusNotTaught {
			t.Errorf("Load() seeded %s with status %s, want %s", s.Key(), s.Status, session.StatusNotTaught)
		}
	}

	// repeated loads return identical data
	sortSessions(first)
	for i := 0; i < 2; i++ {
		again, err := svc.Load(ctx)
		if err != nil {
			t.Fatalf("Load(): %v", err)
		}
		sortSessions(again)
		if !reflect.DeepEqual(again, first) {
			t.Errorf("Load() #%d = %v, want %v", i+2, again, first)
		}
	}
}

func TestService_Load_doesNotResetProgress(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	if _, err := svc.Load(ctx); err != nil {
		t.Fatalf("Load(): %v", err)
	}

	key := session.Key{Strand: catalog.StrandTimesTables, Number: 1}
	if _, err := svc.Update(ctx, key, session.UpdateSession{Status: statusPtr(session.StatusMastered)}); err != nil {
		t.Fatalf("Update(): %v", err)
	}

	sessions, err := svc.Load(ctx)
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}
	for _, s := range sessions {
		if s.Key() == key && s.Status != session.StatusMastered {
			t.Errorf("Load() reset %s to %s", key, s.Status)
		}
	}
}

func TestService_Update(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	if _, err := svc.Load(ctx); err != nil {
		t.Fatalf("Load(): %v", err)
	}
	key := session.Key{Strand: catalog.StrandPlaceValue, Number: 1}

	t.Run("unknown session", func(t *testing.T) {
		unknown := session.Key{Strand: catalog.StrandPlaceValue, Number: 99}
		if _, err := svc.Update(ctx, unknown, session.UpdateSession{TeacherNotes: strPtr("x")}); err != session.ErrNotFound {
			t.Errorf("Update() error = %v, wantErr %v", err, session.ErrNotFound)
		}
	})

	t.Run("invalid status", func(t *testing.T) {
		_, err := svc.Update(ctx, key, session.UpdateSession{Status: statusPtr("DONE")})
		var vErr *core.ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("Update() error = %v, want *core.ValidationError", err)
		}
	})

	t.Run("partial update leaves other fields alone", func(t *testing.T) {
		before, err := svc.Load(ctx)
		if err != nil {
			t.Fatalf("Load(): %v", err)
		}

		updated, err := svc.Update(ctx, key, session.UpdateSession{TeacherNotes: strPtr("tricky class")})
		if err != nil {
			t.Fatalf("Update(): %v", err)
		}
		if updated.TeacherNotes != "tricky class" {
			t.Errorf("Update() notes = %q", updated.TeacherNotes)
		}
		if updated.Status != session.StatusNotTaught {
			t.Errorf("Update() changed status to %s", updated.Status)
		}

		// exactly one record changed
		after, err := svc.Load(ctx)
		if err != nil {
			t.Fatalf("Load(): %v", err)
		}
		sortSessions(before)
		sortSessions(after)
		var changed []session.Key
		for i := range after {
			if !reflect.DeepEqual(after[i], before[i]) {
				changed = append(changed, after[i].Key())
			}
		}
		if len(changed) != 1 || changed[0] != key {
			t.Errorf("changed sessions = %v, want [%v]", changed, key)
		}
	})

	t.Run("any status transitions to any other", func(t *testing.T) {
		for _, from := range session.AllStatuses {
			for _, to := range session.AllStatuses {
				if _, err := svc.Update(ctx, key, session.UpdateSession{Status: statusPtr(from)}); err != nil {
					t.Fatalf("Update(%s): %v", from, err)
				}
				s, err := svc.Update(ctx, key, session.UpdateSession{Status: statusPtr(to)})
				if err != nil {
					t.Fatalf("Update(%s -> %s): %v", from, to, err)
				}
				if s.Status != to {
					t.Errorf("Update(%s -> %s) status = %s", from, to, s.Status)
				}
			}
		}
	})
}

func TestService_Subscribe(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	if _, err := svc.Load(ctx); err != nil {
		t.Fatalf("Load(): %v", err)
	}
	key := session.Key{Strand: catalog.StrandPlaceValue, Number: 2}

	var got [][]session.Session
	unsubscribe := svc.Subscribe(func(sessions []session.Session) {
		got = append(got, sessions)
	})

	if _, err := svc.Update(ctx, key, session.UpdateSession{Status: statusPtr(session.StatusTaughtRepeat)}); err != nil {
		t.Fatalf("Update(): %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("subscriber called %d times, want 1", len(got))
	}
	if len(got[0]) != len(session.MasterSessions()) {
		t.Errorf("snapshot has %d sessions, want %d", len(got[0]), len(session.MasterSessions()))
	}

	// no invocations after unsubscribing
	unsubscribe()
	if _, err := svc.Update(ctx, key, session.UpdateSession{Status: statusPtr(session.StatusMastered)}); err != nil {
		t.Fatalf("Update(): %v", err)
	}
	if len(got) != 1 {
		t.Errorf("subscriber called %d times after unsubscribe, want 1", len(got))
	}
}

func TestService_freshStoreSingleUpdate(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	if _, err := svc.Load(ctx); err != nil {
		t.Fatalf("Load(): %v", err)
	}

	key := session.Key{Strand: catalog.StrandTimesTables, Number: 1}
	if _, err := svc.Update(ctx, key, session.UpdateSession{Status: statusPtr(session.StatusTaughtRepeat)}); err != nil {
		t.Fatalf("Update(): %v", err)
	}

	sessions, err := svc.Load(ctx)
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}
	for _, s := range sessions {
		want := session.StatusNotTaught
		if s.Key() == key {
			want = session.StatusTaughtRepeat
		}
		if s.Status != want {
			t.Errorf("%s status = %s, want %s", s.Key(), s.Status, want)
		}
	}
}

// the scenario a reliever walks into: a fresh class, one session taught and
// mastered, the next one taught but shaky.
func TestService_endToEnd(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	if _, err := svc.Load(ctx); err != nil {
		t.Fatalf("Load(): %v", err)
	}

	steps := []struct {
		key    session.Key
		status session.Status
	}{
		{session.Key{Strand: catalog.StrandPlaceValue, Number: 1}, session.StatusMastered},
		{session.Key{Strand: catalog.StrandPlaceValue, Number: 2}, session.StatusTaughtRepeat},
		{session.Key{Strand: catalog.StrandTimesTables, Number: 1}, session.StatusTaughtRepeat},
	}
	for _, step := range steps {
		if _, err := svc.Update(ctx, step.key, session.UpdateSession{Status: statusPtr(step.status)}); err != nil {
			t.Fatalf("Update(%s): %v", step.key, err)
		}
	}

	sessions, err := svc.Load(ctx)
	if err != nil {
		t.Fatalf("Load(): %v", err)
	}
	got := keysOf(session.SelectView(sessions, session.ViewReliever))
	want := []session.Key{
		{Strand: catalog.StrandPlaceValue, Number: 2},
		{Strand: catalog.StrandTimesTables, Number: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("reliever view = %v, want %v", got, want)
	}
}
