package echoapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/umahiri/core"
	"github.com/trezcool/umahiri/core/catalog"
	"github.com/trezcool/umahiri/core/session"
)

type sessionApi struct {
	svc *session.Service
}

func registerSessionAPI(g *echo.Group, svc *session.Service) {
	api := sessionApi{svc: svc}

	sg := g.Group("/sessions")
	sg.GET("", api.query)
	sg.GET("/watch", api.watch)

	// detail endpoints
	dg := sg.Group("/:strand/:number")
	dg.PATCH("", api.update)
	dg.POST("/insight", api.insight)
}

func registerAtomAPI(g *echo.Group) {
	ag := g.Group("/atoms")
	ag.GET("", func(ctx echo.Context) error {
		return ctx.JSON(http.StatusOK, catalog.MasterAtoms)
	})
	ag.GET("/:id", func(ctx echo.Context) error {
		atom, ok := catalog.AtomByID(ctx.Param("id"))
		if !ok {
			return errHttpNotFound
		}
		return ctx.JSON(http.StatusOK, atom)
	})
}

// Handlers

func (api *sessionApi) query(ctx echo.Context) error {
	mode := session.ViewMode(core.CleanString(ctx.QueryParam("view"), true /* lower */))
	if mode == "" {
		mode = session.ViewFull
	}
	if !mode.Valid() {
		return core.NewValidationError(nil, core.FieldError{Field: "view", Error: "unknown view mode"})
	}

	sessions, err := api.svc.Load(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "loading sessions")
	}
	return ctx.JSON(http.StatusOK, session.SelectView(sessions, mode))
}

func (api *sessionApi) update(ctx echo.Context) error {
	key, err := contextKey(ctx)
	if err != nil {
		return err
	}

	var data session.UpdateSession
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSession")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	s, err := api.svc.Update(ctx.Request().Context(), key, data)
	if err != nil {
		return errors.Wrapf(err, "updating session %s", key)
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *sessionApi) insight(ctx echo.Context) error {
	key, err := contextKey(ctx)
	if err != nil {
		return err
	}

	text, err := api.svc.RequestInsight(ctx.Request().Context(), key)
	if err != nil {
		return errors.Wrapf(err, "requesting insight for %s", key)
	}
	return ctx.JSON(http.StatusOK, InsightResponse{Insight: text})
}

// watch streams collection snapshots as Server-Sent Events: one event with
// the current state on connect, then one per change until the client leaves.
func (api *sessionApi) watch(ctx echo.Context) error {
	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-store")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	flusher, ok := res.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "streaming unsupported")
	}

	send := func(sessions []session.Session) error {
		data, err := gojson.Marshal(sessions)
		if err != nil {
			return errors.Wrap(err, "encoding snapshot")
		}
		if _, err = fmt.Fprintf(res, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	// snapshots are coalesced: a slow client only misses intermediate
	// states. The callback must never block the writer that invoked it, so
	// every send is non-blocking; a concurrent callback that loses the race
	// after the drain simply drops its snapshot (at-least-once per change,
	// not per callback).
	updates := make(chan []session.Session, 1)
	unsubscribe := api.svc.Subscribe(func(sessions []session.Session) {
		offerSnapshot(updates, sessions)
	})
	defer unsubscribe()

	initial, err := api.svc.Load(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "loading sessions")
	}
	if err = send(initial); err != nil {
		return nil // client gone
	}

	done := ctx.Request().Context().Done()
	for {
		select {
		case <-done:
			return nil
		case sessions := <-updates:
			if err = send(sessions); err != nil {
				return nil
			}
		}
	}
}

// offerSnapshot queues a snapshot into a capacity-1 channel without ever
// blocking the caller: it replaces a stale pending snapshot when one is
// queued, and drops its own when a concurrent sender wins the race after
// the drain. Subscriber callbacks run on the writer's goroutine, so a
// blocking send here would wedge an unrelated update.
func offerSnapshot(updates chan []session.Session, sessions []session.Session) {
	select {
	case updates <- sessions:
		return
	default:
	}
	select {
	case <-updates:
	default:
	}
	select {
	case updates <- sessions:
	default:
	}
}

// contextKey resolves the `:strand/:number` path params into a session Key.
func contextKey(ctx echo.Context) (session.Key, error) {
	slug := ctx.Param("strand")
	strand, ok := strandFromSlug(slug)
	if !ok {
		if hint := catalog.ClosestStrand(strings.ReplaceAll(slug, "-", " ")); hint != "" {
			return session.Key{}, echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("unknown strand %q, did you mean %q?", slug, hint))
		}
		return session.Key{}, errHttpNotFound
	}
	number, err := strconv.Atoi(ctx.Param("number"))
	if err != nil || number < 1 {
		return session.Key{}, core.NewValidationError(nil, core.FieldError{Field: "session_number", Error: "must be a positive integer"})
	}
	return session.Key{Strand: strand, Number: number}, nil
}

func strandFromSlug(slug string) (string, bool) {
	for _, strand := range catalog.Strands {
		if slug == strings.ReplaceAll(strings.ToLower(strand), " ", "-") {
			return strand, true
		}
	}
	return "", false
}

type InsightResponse struct {
	Insight string `json:"insight"`
}
