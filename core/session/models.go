package session

import (
	"strconv"
	"strings"
)

// Status is the mastery state of a session.
// Any status may transition directly to any other; no history is kept.
type Status string

const (
	StatusNotTaught    Status = "NOT_TAUGHT"
	StatusTaughtRepeat Status = "TAUGHT_REPEAT"
	StatusMastered     Status = "MASTERED"
)

// AllStatuses lists the closed status set in workflow order.
var AllStatuses = []Status{StatusNotTaught, StatusTaughtRepeat, StatusMastered}

func (s Status) Valid() bool {
	switch s {
	case StatusNotTaught, StatusTaughtRepeat, StatusMastered:
		return true
	}
	return false
}

type (
	// Key uniquely identifies one Session record.
	Key struct {
		Strand string `json:"strand"`
		Number int    `json:"session_number"`
	}

	// Resource is a named link attached to a session; display only.
	Resource struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	}

	// Session is one lesson plan, the unit of persistence. Title and
	// LearningIntention are immutable after creation; Status and
	// TeacherNotes are mutated field-by-field (last write wins). Records
	// are created once by seeding, never deleted and never created ad hoc.
	Session struct {
		Strand            string     `json:"strand"`
		Number            int        `json:"session_number"`
		Title             string     `json:"title"`
		LearningIntention string     `json:"learning_intention"`
		AtomIDs           []string   `json:"core_atoms"`
		Status            Status     `json:"status"`
		TeacherNotes      string     `json:"teacher_notes"`
		Resources         []Resource `json:"resources,omitempty"`
	}

	// UpdateSession is a partial update: only set fields are merged into
	// the matching record, the rest are left untouched.
	UpdateSession struct {
		Status       *Status `json:"status" validate:"omitempty,session_status"`
		TeacherNotes *string `json:"teacher_notes"`
	}
)

// ID renders a Key as an opaque document id, eg. "place-value-1".
func (k Key) ID() string {
	slug := strings.ReplaceAll(strings.ToLower(k.Strand), " ", "-")
	return slug + "-" + strconv.Itoa(k.Number)
}

func (k Key) String() string { return k.ID() }

func (s Session) Key() Key {
	return Key{Strand: s.Strand, Number: s.Number}
}

// Clone returns a deep copy; repositories hand out copies so callers can
// never alias stored state.
func (s Session) Clone() Session {
	cp := s
	cp.AtomIDs = append([]string(nil), s.AtomIDs...)
	cp.Resources = append([]Resource(nil), s.Resources...)
	return cp
}

// Apply merges the set patch fields into the session.
func (us UpdateSession) Apply(s *Session) {
	if us.Status != nil {
		s.Status = *us.Status
	}
	if us.TeacherNotes != nil {
		s.TeacherNotes = *us.TeacherNotes
	}
}
