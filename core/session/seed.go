package session

import "github.com/trezcool/umahiri/core/catalog"

// masterSessions is the versioned session seed shipped with the app.
// (Strand, Number) pairs are unique; every record starts NOT_TAUGHT.
var masterSessions = []Session{
	{
		Strand:            catalog.StrandPlaceValue,
		Number:            1,
		Title:             "Placeholder Zero",
		LearningIntention: "To explain the importance of zero in two-digit numbers.",
		AtomIDs:           []string{"PV-1.3"},
		Status:            StatusNotTaught,
		Resources: []Resource{
			{Name: "Place Value Chart", URL: "https://polypad.org"},
			{Name: "Intro Video", URL: "https://youtube.com"},
		},
	},
	{
		Strand:            catalog.StrandPlaceValue,
		Number:            2,
		Title:             "Teen vs Ty Confusions",
		LearningIntention: "To accurately identify and write teen and ty numbers.",
		AtomIDs:           []string{"PV-2.1"},
		Status:            StatusNotTaught,
	},
	{
		Strand:            catalog.StrandTimesTables,
		Number:            1,
		Title:             "Repeated Addition Basics",
		LearningIntention: "To relate addition sequences to multiplication facts.",
		AtomIDs:           []string{"TT-1.2"},
		Status:            StatusNotTaught,
		Resources: []Resource{
			{Name: "Counter Arrays", URL: "https://polypad.org"},
		},
	},
	{
		Strand:            catalog.StrandTimesTables,
		Number:            2,
		Title:             "Commutative Law",
		LearningIntention: "To demonstrate that factors can be multiplied in any order.",
		AtomIDs:           []string{"TT-2.1"},
		Status:            StatusNotTaught,
	},
}

// MasterSessions returns a fresh copy of the session seed list.
func MasterSessions() []Session {
	sessions := make([]Session, 0, len(masterSessions))
	for _, s := range masterSessions {
		sessions = append(sessions, s.Clone())
	}
	return sessions
}
