package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mattjoyce/wikigate/internal/bus"
	"github.com/mattjoyce/wikigate/internal/docstore"
	"github.com/mattjoyce/wikigate/internal/monitor"
	"github.com/mattjoyce/wikigate/internal/results"
)

// Service owns the test-run bus handlers. A dedicated pool backs both
// addresses so runs never starve page views.
type Service struct {
	runner *Runner
	store  docstore.Store
	index  *results.Index
}

// NewService wires the runner to its collaborators. index may be nil when
// run recording is disabled.
func NewService(runner *Runner, store docstore.Store, index *results.Index) *Service {
	return &Service{runner: runner, store: store, index: index}
}

// Register binds the suite and single-test handlers onto the dedicated pool
// with monitor backpressure.
func (s *Service) Register(b *bus.Bus, pool *bus.Pool, mon *monitor.RunMonitor, maxQueue int) {
	b.RegisterWithPool(bus.AddrTestSuite, s.handler("suite"), pool, mon, maxQueue)
	b.RegisterWithPool(bus.AddrTestSingle, s.handler("single"), pool, mon, maxQueue)
}

func (s *Service) handler(runType string) bus.Handler {
	return func(ctx context.Context, env bus.Envelope) (bus.Response, error) {
		paramName := "suite"
		if runType == "single" {
			paramName = "test"
		}
		page := env.Param(paramName)
		if page == "" {
			page = env.Resource
		}
		ref := s.store.Resolve(page)

		pg, err := s.store.ReadPage(ref)
		if err != nil {
			return bus.Response{}, fmt.Errorf("read page %s: %w", ref.WikiPath, err)
		}

		summary, err := s.runner.Run(ctx, runType, ref.WikiPath, pg.Content)
		if err != nil {
			return bus.Response{}, err
		}
		completed := time.Now()

		dir, err := writeArtifacts(s.runner.historyDir, summary, completed)
		if err != nil {
			return bus.Response{}, err
		}
		summary.ArtifactDir = dir

		if s.index != nil {
			err := s.index.Record(ctx, results.Run{
				ID:          summary.RunID,
				Page:        summary.Page,
				RunType:     summary.RunType,
				Status:      summary.Status,
				Right:       summary.Right,
				Wrong:       summary.Wrong,
				Ignored:     summary.Ignored,
				Exceptions:  summary.Exceptions,
				StartedAt:   completed.Add(-time.Duration(summary.DurationMS) * time.Millisecond),
				CompletedAt: completed,
				DurationMS:  summary.DurationMS,
				ArtifactDir: dir,
			})
			if err != nil {
				return bus.Response{}, err
			}
		}

		if env.Param("format") == "junit" {
			junit, err := junitXML(summary)
			if err != nil {
				return bus.Response{}, err
			}
			return bus.Reply(200, map[string]string{"Content-Type": "application/xml"}, junit), nil
		}

		body, err := json.Marshal(summary)
		if err != nil {
			return bus.Response{}, err
		}
		return bus.JSON(200, body), nil
	}
}
