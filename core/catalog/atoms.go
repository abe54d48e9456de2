package catalog

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/volatiletech/null/v8"
)

// Strands
const (
	StrandPlaceValue  = "Place Value"
	StrandTimesTables = "Times Tables"
)

// Strands lists the known topic strands in display order.
var Strands = []string{
	StrandPlaceValue,
	StrandTimesTables,
}

// StrandOrder returns the display rank of a strand; unknown strands rank last.
func StrandOrder(strand string) int {
	for i, s := range Strands {
		if s == strand {
			return i
		}
	}
	return len(Strands)
}

const strandMinSim = 0.6

// ClosestStrand returns the known strand most similar to s, or "" when
// nothing comes close. Comparison is case-insensitive.
func ClosestStrand(s string) string {
	ls := strings.Split(strings.ToLower(s), "")

	var best string
	var bestRatio float64
	for _, strand := range Strands {
		ratio := difflib.NewMatcher(ls, strings.Split(strings.ToLower(strand), "")).QuickRatio()
		if ratio >= strandMinSim && ratio > bestRatio {
			best, bestRatio = strand, ratio
		}
	}
	return best
}

type (
	// RetrievalQuestion is a quick-quiz prompt attached to an Atom; display only.
	RetrievalQuestion struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}

	// Atom is a single granular skill in the curriculum. Atoms are read-only
	// reference data; they are never mutated at runtime.
	Atom struct {
		ID                 string              `json:"atom_id"`
		Strand             string              `json:"strand"`
		Phase              int                 `json:"phase"`
		Title              string              `json:"title"`
		Description        string              `json:"description"`
		Misconceptions     []string            `json:"misconceptions"`
		RetrievalQuestions []RetrievalQuestion `json:"retrieval_questions,omitempty"`
		LastTested         null.Time           `json:"last_tested"`
	}
)

// MasterAtoms is the versioned atom catalog shipped with the app.
// Atom IDs are unique; format <strand-prefix>-<phase>.<index>.
var MasterAtoms = []Atom{
	{
		ID:             "PV-1.3",
		Strand:         StrandPlaceValue,
		Phase:          1,
		Title:          "Zero as Placeholder",
		Description:    "Identify that '10' is different from '1' because the '0' holds a place.",
		Misconceptions: []string{"Thinking 0 means the column doesn't exist", "Writing 10 as 1"},
		RetrievalQuestions: []RetrievalQuestion{
			{Question: "What does the 0 in 10 tell us?", Answer: "There are no ones; the 1 means one ten."},
			{Question: "Is 10 the same number as 1?", Answer: "No, the zero holds the ones place."},
		},
	},
	{
		ID:             "PV-2.1",
		Strand:         StrandPlaceValue,
		Phase:          2,
		Title:          "Teen vs. Ty",
		Description:    "Distinguish between 13 (thirteen) and 30 (thirty) by sound and symbol.",
		Misconceptions: []string{"Writing 30 when hearing thirteen", "Confusing the suffix -teen and -ty"},
		RetrievalQuestions: []RetrievalQuestion{
			{Question: "How do you write thirteen?", Answer: "13"},
			{Question: "Which is bigger, thirteen or thirty?", Answer: "Thirty (30)."},
		},
	},
	{
		ID:             "TT-1.2",
		Strand:         StrandTimesTables,
		Phase:          1,
		Title:          "Repeated Addition",
		Description:    "Transform 2+2+2 into 3 x 2.",
		Misconceptions: []string{"Confusing the number of groups with the size of the group"},
		RetrievalQuestions: []RetrievalQuestion{
			{Question: "Write 2+2+2 as a multiplication.", Answer: "3 x 2"},
		},
	},
	{
		ID:             "TT-2.1",
		Strand:         StrandTimesTables,
		Phase:          2,
		Title:          "Commutativity",
		Description:    "Understand that 5 x 2 and 2 x 5 have the same product.",
		Misconceptions: []string{"Thinking the order changes the total result"},
		RetrievalQuestions: []RetrievalQuestion{
			{Question: "Is 5 x 2 equal to 2 x 5?", Answer: "Yes, both are 10."},
		},
	},
}

var atomsByID = func() map[string]Atom {
	m := make(map[string]Atom, len(MasterAtoms))
	for _, a := range MasterAtoms {
		m[a.ID] = a
	}
	return m
}()

// AtomByID looks an atom up in the catalog.
func AtomByID(id string) (Atom, bool) {
	a, ok := atomsByID[id]
	return a, ok
}

// ResolveAtoms maps atom ids to catalog atoms, preserving order.
// Dangling ids are tolerated and simply skipped.
func ResolveAtoms(ids []string) []Atom {
	atoms := make([]Atom, 0, len(ids))
	for _, id := range ids {
		if a, ok := atomsByID[id]; ok {
			atoms = append(atoms, a)
		}
	}
	return atoms
}
