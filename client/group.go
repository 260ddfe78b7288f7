package client

import (
	"context"
	"fmt"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/errgroup"

	"github.com/arloliu/go-fins/logger"
)

// Target is one server a Group reads from.
type Target struct {
	// Name identifies the target in the group outcomes. Names must be unique within one Run.
	Name string
	// Config is the session configuration of the target.
	Config *SessionConfig
	// Request is the read performed on the target.
	Request ReadRequest
}

// Outcome is the result of the latest session run against a target.
type Outcome struct {
	Result   *Result
	Err      error
	Started  time.Time
	Finished time.Time
}

// Elapsed returns how long the session run took.
func (o Outcome) Elapsed() time.Duration {
	return o.Finished.Sub(o.Started)
}

// Group runs independent sessions against several targets with bounded parallelism.
//
// Each target gets its own session, as RunSession does. A failing target never cancels the others.
// Group is goroutine-safe; outcomes can be read while Run is in progress.
type Group struct {
	limit    int
	logger   logger.Logger
	outcomes *xsync.MapOf[string, Outcome]
}

// NewGroup creates a group running at most limit sessions at once. A limit <= 0 means no limit.
// A nil logger selects the default logger.
func NewGroup(limit int, l logger.Logger) *Group {
	if l == nil {
		l = logger.GetLogger()
	}

	return &Group{
		limit:    limit,
		logger:   l,
		outcomes: xsync.NewMapOf[string, Outcome](),
	}
}

// Run performs one session run per target and blocks until all of them finished.
//
// Per-target failures are recorded in the outcomes, not returned. Run fails with ErrDuplicateTarget before
// starting anything when two targets share a name, and returns the context error when ctx was done.
func (g *Group) Run(ctx context.Context, targets []Target) error {
	seen := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		if _, ok := seen[t.Name]; ok {
			return fmt.Errorf("%w: %q", ErrDuplicateTarget, t.Name)
		}
		seen[t.Name] = struct{}{}
	}

	var eg errgroup.Group
	if g.limit > 0 {
		eg.SetLimit(g.limit)
	}

	for _, t := range targets {
		eg.Go(func() error {
			started := time.Now()
			result, err := RunSession(ctx, t.Config, t.Request)
			g.outcomes.Store(t.Name, Outcome{
				Result:   result,
				Err:      err,
				Started:  started,
				Finished: time.Now(),
			})

			if err != nil {
				g.logger.Warn("target failed", "target", t.Name, "error", err)
			} else {
				g.logger.Debug("target completed", "target", t.Name, "sid", result.SID)
			}

			return nil
		})
	}

	_ = eg.Wait()

	return ctx.Err()
}

// Outcome returns the latest outcome recorded for the named target.
func (g *Group) Outcome(name string) (Outcome, bool) {
	return g.outcomes.Load(name)
}

// Range calls f for each recorded outcome until f returns false.
func (g *Group) Range(f func(name string, outcome Outcome) bool) {
	g.outcomes.Range(f)
}

// Len returns the number of targets with a recorded outcome.
func (g *Group) Len() int {
	return g.outcomes.Size()
}
