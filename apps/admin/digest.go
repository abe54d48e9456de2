package main

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/umahiri/core"
	"github.com/trezcool/umahiri/core/session"
)

type (
	// StrandDigest summarizes one strand's mastery progress.
	StrandDigest struct {
		Name         string
		Total        int
		Mastered     int
		TaughtRepeat int
		NotTaught    int
		Next         *session.Session // nil when the strand is fully mastered
	}

	digestData struct {
		Strands []StrandDigest
	}
)

// buildDigest folds the collection into per-strand counts, in catalog
// display order. Next is the same session a reliever would see.
func buildDigest(sessions []session.Session) []StrandDigest {
	sorted := session.SelectView(sessions, session.ViewFull)
	next := session.SelectView(sessions, session.ViewReliever)

	byStrand := make(map[string]*StrandDigest)
	var digests []*StrandDigest
	for _, s := range sorted {
		d, ok := byStrand[s.Strand]
		if !ok {
			d = &StrandDigest{Name: s.Strand}
			byStrand[s.Strand] = d
			digests = append(digests, d)
		}
		d.Total++
		switch s.Status {
		case session.StatusMastered:
			d.Mastered++
		case session.StatusTaughtRepeat:
			d.TaughtRepeat++
		default:
			d.NotTaught++
		}
	}
	for _, s := range next {
		s := s
		byStrand[s.Strand].Next = &s
	}

	out := make([]StrandDigest, 0, len(digests))
	for _, d := range digests {
		out = append(out, *d)
	}
	return out
}

func (cli *commandLine) sendDigest(ctx context.Context, to string) error {
	to = core.CleanString(to, true /* lower */)

	sessions, err := cli.repo.QueryAllSessions(ctx)
	if err != nil {
		return errors.Wrap(err, "querying sessions")
	}
	if len(sessions) == 0 {
		return errors.New("no session records; run `seed` first")
	}

	// one-shot process: send and wait so the digest is not dropped on exit
	cli.mailSvc.SendMessagesSync(
		&core.EmailMessage{
			To:           []mail.Address{{Address: to}},
			Subject:      fmt.Sprintf("%s progress digest", cli.conf.AppName),
			TemplateName: "progress-digest",
			TemplateData: digestData{Strands: buildDigest(sessions)},
		},
	)

	fmt.Printf("digest sent to %s\n", to)
	return nil
}
