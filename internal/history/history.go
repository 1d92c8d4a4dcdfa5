// Package history serves page history, diffs and reverts over the
// version-controlled store. Reads go through a short-TTL cache; reverts are
// serialised per path and invalidate the affected cache entries.
package history

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/mattjoyce/wikigate/internal/docstore"
	"github.com/mattjoyce/wikigate/internal/log"
)

// DefaultTTL is the response cache lifetime.
const DefaultTTL = 3 * time.Second

// DiffStat summarises a diff for the JSON surface.
type DiffStat struct {
	Files   int `json:"files"`
	Hunks   int `json:"hunks"`
	Added   int `json:"added"`
	Deleted int `json:"deleted"`
}

// DiffResult is one commit's diff against its parent.
type DiffResult struct {
	Path     string   `json:"path"`
	CommitID string   `json:"commitId"`
	Unified  string   `json:"unified"`
	Stat     DiffStat `json:"stat"`
}

// Service answers history queries for a git-backed store.
type Service struct {
	store  *docstore.GitStore
	commit docstore.CommitConfig
	cache  *ttlCache
	logger *slog.Logger

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New creates the service. ttl <= 0 applies the default.
func New(store *docstore.GitStore, cc docstore.CommitConfig, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{
		store:  store,
		commit: cc,
		cache:  newTTLCache(ttl),
		logger: log.WithComponent("history"),
		locks:  make(map[string]*sync.Mutex),
	}
}

// History returns the page's version log, newest first.
func (s *Service) History(path string, limit int) (docstore.PageHistory, error) {
	ref := s.store.Resolve(path)
	if limit <= 0 {
		limit = docstore.DefaultHistoryLimit
	}
	key := fmt.Sprintf("history:%s:%d", ref.WikiPath, limit)
	if cached, ok := s.cache.get(key); ok {
		return cached.(docstore.PageHistory), nil
	}

	hist, err := s.store.History(ref, docstore.HistoryQuery{Limit: limit})
	if err != nil {
		return docstore.PageHistory{}, err
	}
	s.cache.put(key, hist)
	return hist, nil
}

// Diff returns the unified diff a commit introduced for the page, plus
// parsed stats.
func (s *Service) Diff(path, commitID string) (DiffResult, error) {
	ref := s.store.Resolve(path)
	key := fmt.Sprintf("diff:%s:%s", ref.WikiPath, commitID)
	if cached, ok := s.cache.get(key); ok {
		return cached.(DiffResult), nil
	}

	unified, err := s.store.Repo().Diff(s.pagePath(ref), commitID)
	if err != nil {
		return DiffResult{}, fmt.Errorf("diff %s at %s: %w", ref.WikiPath, commitID, err)
	}

	result := DiffResult{
		Path:     ref.WikiPath,
		CommitID: commitID,
		Unified:  unified,
		Stat:     statDiff(unified),
	}
	s.cache.put(key, result)
	return result, nil
}

// Revert restores the page as of a commit and records the revert as a new
// commit. Reverts on the same path run one at a time.
func (s *Service) Revert(path, commitID, authorName, authorEmail string) error {
	ref := s.store.Resolve(path)

	lock := s.pathLock(ref.WikiPath)
	lock.Lock()
	defer lock.Unlock()

	repo := s.store.Repo()
	pagePath := s.pagePath(ref)

	// Reverting to the commit that already holds the page's newest state is
	// a no-op; skip the empty revert commit.
	if latest, err := repo.LatestCommit(pagePath); err == nil && latest != "" && latest == commitID {
		s.logger.Info("revert skipped, already at commit", "page", ref.WikiPath, "commit", commitID)
		return nil
	}

	if err := repo.CheckoutPath(commitID, pagePath); err != nil {
		return fmt.Errorf("revert %s to %s: %w", ref.WikiPath, commitID, err)
	}
	if err := repo.Add(pagePath); err != nil {
		return fmt.Errorf("revert %s to %s: %w", ref.WikiPath, commitID, err)
	}
	message := fmt.Sprintf("wiki: revert %s to %s", ref.WikiPath, commitID)
	if err := repo.Commit(message, authorName, authorEmail, s.commit); err != nil {
		return fmt.Errorf("revert %s to %s: %w", ref.WikiPath, commitID, err)
	}

	s.logger.Info("page reverted", "page", ref.WikiPath, "commit", commitID)
	s.cache.invalidatePrefixes("history:"+ref.WikiPath+":", "diff:"+ref.WikiPath+":")
	return nil
}

func (s *Service) pagePath(ref docstore.PageRef) string {
	return filepath.Join(s.store.Repo().Root(), filepath.FromSlash(ref.WikiPath))
}

func (s *Service) pathLock(path string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	lock, ok := s.locks[path]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[path] = lock
	}
	return lock
}

// statDiff folds a unified diff into counts. An unparseable diff yields a
// zero stat rather than an error; the raw text is still served.
func statDiff(unified string) DiffStat {
	if unified == "" {
		return DiffStat{}
	}
	files, err := diff.ParseMultiFileDiff([]byte(unified))
	if err != nil {
		return DiffStat{}
	}
	var stat DiffStat
	stat.Files = len(files)
	for _, f := range files {
		stat.Hunks += len(f.Hunks)
		fs := f.Stat()
		stat.Added += int(fs.Added + fs.Changed)
		stat.Deleted += int(fs.Deleted + fs.Changed)
	}
	return stat
}
