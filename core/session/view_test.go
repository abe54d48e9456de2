package session_test

import (
	"reflect"
	"testing"

	"github.com/trezcool/umahiri/core/catalog"
	"github.com/trezcool/umahiri/core/session"
)

func makeSession(strand string, number int, status session.Status) session.Session {
	return session.Session{
		Strand: strand,
		Number: number,
		Title:  "T",
		Status: status,
	}
}

func keysOf(sessions []session.Session) []session.Key {
	keys := make([]session.Key, 0, len(sessions))
	for _, s := range sessions {
		keys = append(keys, s.Key())
	}
	return keys
}

func TestSelectView(t *testing.T) {
	pv, tt_ := catalog.StrandPlaceValue, catalog.StrandTimesTables

	// deliberately shuffled input
	collection := []session.Session{
		makeSession(tt_, 2, session.StatusMastered),
		makeSession(pv, 3, session.StatusNotTaught),
		makeSession(pv, 1, session.StatusMastered),
		makeSession(tt_, 1, session.StatusMastered),
		makeSession(pv, 2, session.StatusTaughtRepeat),
	}

	tests := []struct {
		name     string
		sessions []session.Session
		mode     session.ViewMode
		want     []session.Key
	}{
		{name: "full: empty", mode: session.ViewFull, want: []session.Key{}},
		{
			name: "full: strand then number ordering", sessions: collection, mode: session.ViewFull,
			want: []session.Key{
				{Strand: pv, Number: 1}, {Strand: pv, Number: 2}, {Strand: pv, Number: 3},
				{Strand: tt_, Number: 1}, {Strand: tt_, Number: 2},
			},
		},
		{
			name: "reliever: first non-mastered per strand", sessions: collection, mode: session.ViewReliever,
			want: []session.Key{{Strand: pv, Number: 2}},
		},
		{
			name: "reliever: fully mastered strand contributes nothing",
			sessions: []session.Session{
				makeSession(pv, 1, session.StatusMastered),
				makeSession(pv, 2, session.StatusTaughtRepeat),
				makeSession(pv, 3, session.StatusNotTaught),
				makeSession(tt_, 1, session.StatusMastered),
				makeSession(tt_, 2, session.StatusMastered),
			},
			mode: session.ViewReliever,
			want: []session.Key{{Strand: pv, Number: 2}},
		},
		{
			name: "reliever: all mastered yields empty",
			sessions: []session.Session{
				makeSession(pv, 1, session.StatusMastered),
				makeSession(tt_, 1, session.StatusMastered),
			},
			mode: session.ViewReliever,
			want: []session.Key{},
		},
		{
			name: "full: unknown strand ranks last",
			sessions: []session.Session{
				makeSession("Fractions", 1, session.StatusNotTaught),
				makeSession(tt_, 1, session.StatusNotTaught),
				makeSession(pv, 1, session.StatusNotTaught),
			},
			mode: session.ViewFull,
			want: []session.Key{{Strand: pv, Number: 1}, {Strand: tt_, Number: 1}, {Strand: "Fractions", Number: 1}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := keysOf(session.SelectView(tt.sessions, tt.mode))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SelectView() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectView_pure(t *testing.T) {
	pv := catalog.StrandPlaceValue
	sessions := []session.Session{
		makeSession(pv, 2, session.StatusNotTaught),
		makeSession(pv, 1, session.StatusMastered),
	}
	before := make([]session.Session, len(sessions))
	copy(before, sessions)

	first := session.SelectView(sessions, session.ViewReliever)
	second := session.SelectView(sessions, session.ViewReliever)

	if !reflect.DeepEqual(sessions, before) {
		t.Error("SelectView() mutated its input")
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("SelectView() not deterministic: %v != %v", first, second)
	}
}
