package session

import (
	"sort"

	"github.com/trezcool/umahiri/core/catalog"
)

// ViewMode selects how the session collection is filtered for display.
type ViewMode string

const (
	// ViewFull shows every session, grouped by strand.
	ViewFull ViewMode = "full"
	// ViewReliever shows only the next not-yet-mastered session per strand.
	ViewReliever ViewMode = "reliever"
)

func (m ViewMode) Valid() bool {
	return m == ViewFull || m == ViewReliever
}

// SelectView computes the session list to display. Pure: the input slice
// is never mutated and identical inputs yield identical output.
//
// ViewFull returns all sessions grouped by strand (catalog order first,
// unknown strands after, alphabetically) and ascending session number
// within each strand. ViewReliever returns, per strand, the
// lowest-numbered session whose status is not MASTERED; fully mastered
// strands contribute nothing.
func SelectView(sessions []Session, mode ViewMode) []Session {
	sorted := make([]Session, len(sessions))
	copy(sorted, sessions)
	sort.SliceStable(sorted, func(i, j int) bool {
		si, sj := sorted[i], sorted[j]
		if si.Strand != sj.Strand {
			oi, oj := catalog.StrandOrder(si.Strand), catalog.StrandOrder(sj.Strand)
			if oi != oj {
				return oi < oj
			}
			return si.Strand < sj.Strand
		}
		return si.Number < sj.Number
	})

	if mode != ViewReliever {
		return sorted
	}

	next := make([]Session, 0, len(catalog.Strands))
	taken := make(map[string]bool)
	for _, s := range sorted {
		if taken[s.Strand] || s.Status == StatusMastered {
			continue
		}
		next = append(next, s)
		taken[s.Strand] = true
	}
	return next
}
