package docstore

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mattjoyce/wikigate/internal/log"
)

const (
	contentFile    = "content.txt"
	propertiesFile = "properties.xml"
	attachmentsDir = "files"

	defaultCommitTemplate = "wiki: update %s"
)

// GitStore is the version-controlled page store. Writes land as commits;
// concurrent writers against a stale expected version are reconciled by the
// configured merge strategy.
type GitStore struct {
	root     string
	git      *GitRepo
	template string
	strategy MergeStrategy
	commit   CommitConfig
	logger   *slog.Logger
}

// NewGitStore opens (initializing if needed) a git store rooted at root.
func NewGitStore(root string, strategy MergeStrategy, cc CommitConfig) (*GitStore, error) {
	s := &GitStore{
		root:     root,
		git:      NewGitRepo(root),
		template: defaultCommitTemplate,
		strategy: strategy,
		commit:   cc,
		logger:   log.WithComponent("docstore"),
	}
	if !s.git.IsRepo() {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("create repo directory %q: %w", root, err)
		}
		if err := s.git.Init(); err != nil {
			return nil, fmt.Errorf("init repo at %q: %w", root, err)
		}
	}
	// Merge and rebase commits take their identity from repo config, not
	// from the per-commit env, so pin it here.
	if cc.CommitterName != "" {
		if err := s.git.SetConfig("user.name", cc.CommitterName); err != nil {
			return nil, err
		}
	}
	if cc.CommitterEmail != "" {
		if err := s.git.SetConfig("user.email", cc.CommitterEmail); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Repo exposes the underlying repository for the history service.
func (s *GitStore) Repo() *GitRepo {
	return s.git
}

// Resolve maps empty or missing paths to the root page.
func (s *GitStore) Resolve(wikiPath string) PageRef {
	return NewPageRef(wikiPath)
}

// ReadPage loads a page; missing files read as empty strings.
func (s *GitStore) ReadPage(ref PageRef) (Page, error) {
	dir := s.pageDir(ref)
	content, err := readIfExists(filepath.Join(dir, contentFile))
	if err != nil {
		return Page{}, err
	}
	props, err := readIfExists(filepath.Join(dir, propertiesFile))
	if err != nil {
		return Page{}, err
	}
	return Page{Ref: ref, Content: content, PropertiesXML: props}, nil
}

// WritePage writes content (and properties when present) atomically and
// records a version. A stale ExpectedVersion routes through the merge flow.
func (s *GitStore) WritePage(ref PageRef, req PageWriteRequest) error {
	dir := s.pageDir(ref)
	if req.ExpectedVersion == "" {
		return s.writeAndCommit(ref, req, dir)
	}
	current, err := s.git.CurrentCommit()
	if err != nil {
		return err
	}
	if current == "" || current == req.ExpectedVersion {
		return s.writeAndCommit(ref, req, dir)
	}
	return s.writeWithMerge(ref, req, dir)
}

// ListChildren returns direct subdirectories of the page, excluding the
// attachments directory and dot directories.
func (s *GitStore) ListChildren(ref PageRef) ([]PageRef, error) {
	return listChildPages(s.pageDir(ref), ref)
}

// TopLevel lists the pages directly under the wiki root.
func (s *GitStore) TopLevel() ([]PageRef, error) {
	return listChildPages(s.root, PageRef{})
}

// ReadProperties loads properties.xml, empty when absent.
func (s *GitStore) ReadProperties(ref PageRef) (PageProperties, error) {
	xml, err := readIfExists(filepath.Join(s.pageDir(ref), propertiesFile))
	if err != nil {
		return PageProperties{}, err
	}
	return PageProperties{XML: xml}, nil
}

// WriteProperties writes properties.xml and records a (properties) version.
func (s *GitStore) WriteProperties(ref PageRef, props PageProperties) error {
	path := filepath.Join(s.pageDir(ref), propertiesFile)
	if err := writeFileAtomic(path, []byte(props.XML)); err != nil {
		return fmt.Errorf("write properties for %s: %w", ref.WikiPath, err)
	}
	return s.commitPaths("properties", ref, "", "", path)
}

// ListAttachments returns regular files under <page>/files/.
func (s *GitStore) ListAttachments(ref PageRef) ([]AttachmentRef, error) {
	return listAttachmentFiles(filepath.Join(s.pageDir(ref), attachmentsDir), ref)
}

// ReadAttachment returns the attachment bytes.
func (s *GitStore) ReadAttachment(ref AttachmentRef) ([]byte, error) {
	path := filepath.Join(s.pageDir(ref.Page), attachmentsDir, ref.Name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read attachment %s: %w", ref.Name, err)
	}
	return data, nil
}

// WriteAttachment stores the attachment and records an (attachment) version.
func (s *GitStore) WriteAttachment(ref AttachmentRef, data []byte) error {
	path := filepath.Join(s.pageDir(ref.Page), attachmentsDir, ref.Name)
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("write attachment %s: %w", ref.Name, err)
	}
	return s.commitPaths("attachment", ref.Page, "", "", path)
}

// History reads the bounded commit log for the page, newest first.
// Unparseable lines are skipped.
func (s *GitStore) History(ref PageRef, q HistoryQuery) (PageHistory, error) {
	lines, err := s.git.Log(ref.WikiPath, q.limit())
	if err != nil {
		return PageHistory{}, err
	}
	var entries []PageHistoryEntry
	for _, line := range lines {
		if entry, ok := ParseLogLine(line); ok {
			entries = append(entries, entry)
		}
	}
	return PageHistory{Entries: entries}, nil
}

// Head returns the repository HEAD; ref is ignored for the git store.
func (s *GitStore) Head(PageRef) (string, error) {
	return s.git.CurrentCommit()
}

func (s *GitStore) writeAndCommit(ref PageRef, req PageWriteRequest, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create page dir for %s: %w", ref.WikiPath, err)
	}
	if err := writeFileAtomic(filepath.Join(dir, contentFile), []byte(req.Content)); err != nil {
		return fmt.Errorf("write page %s: %w", ref.WikiPath, err)
	}
	if req.PropertiesXML != nil {
		if err := writeFileAtomic(filepath.Join(dir, propertiesFile), []byte(*req.PropertiesXML)); err != nil {
			return fmt.Errorf("write page %s: %w", ref.WikiPath, err)
		}
	}
	return s.commitPaths("page", ref, req.AuthorName, req.AuthorEmail,
		filepath.Join(dir, contentFile), filepath.Join(dir, propertiesFile))
}

func (s *GitStore) commitPaths(reason string, ref PageRef, authorName, authorEmail string, paths ...string) error {
	var toAdd []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			toAdd = append(toAdd, p)
		}
	}
	if len(toAdd) == 0 {
		return nil
	}
	if err := s.git.Add(toAdd...); err != nil {
		return err
	}
	message := fmt.Sprintf(s.template, ref.WikiPath) + " (" + reason + ")"
	return s.git.Commit(message, authorName, authorEmail, s.commit)
}

// writeWithMerge commits the stale write on a temporary branch rooted at the
// expected version, then reconciles with the configured strategy. Cleanup
// failures on the way out are swallowed.
func (s *GitStore) writeWithMerge(ref PageRef, req PageWriteRequest, dir string) (err error) {
	currentCommit, err := s.git.CurrentCommit()
	if err != nil {
		return err
	}
	currentBranch, err := s.git.CurrentBranch()
	if err != nil {
		return err
	}
	restoreRef := currentBranch
	if currentBranch == "HEAD" {
		restoreRef = currentCommit
	}
	tempBranch := fmt.Sprintf("wikigate-tmp-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])

	defer func() {
		if cerr := s.git.Checkout(restoreRef); cerr != nil {
			s.logger.Debug("merge cleanup checkout failed", "error", cerr)
		}
		if derr := s.git.DeleteBranch(tempBranch); derr != nil {
			s.logger.Debug("merge cleanup branch delete failed", "error", derr)
		}
	}()

	if err := s.git.CreateBranch(tempBranch, req.ExpectedVersion); err != nil {
		return err
	}
	if err := s.git.Checkout(tempBranch); err != nil {
		return err
	}
	if err := s.writeAndCommit(ref, req, dir); err != nil {
		return err
	}
	if err := s.git.Checkout(restoreRef); err != nil {
		return err
	}

	switch s.strategy {
	case Ours:
		err = s.git.MergeOurs(tempBranch)
	case Theirs:
		err = s.git.MergeTheirs(tempBranch)
	case MergeCommit:
		err = s.git.MergeNoFastForward(tempBranch)
	case Rebase:
		err = s.rebaseMerge(tempBranch, restoreRef)
	case Squash:
		err = s.squashMerge(ref, req, tempBranch)
	default:
		err = s.git.MergeFastForward(tempBranch)
	}
	if err != nil {
		s.abortMergeOps()
		return s.conflictOrPassThrough(ref, req.ExpectedVersion, err)
	}
	return nil
}

func (s *GitStore) rebaseMerge(tempBranch, restoreRef string) error {
	if err := s.git.Checkout(tempBranch); err != nil {
		return err
	}
	if err := s.git.Rebase(restoreRef); err != nil {
		return err
	}
	if err := s.git.Checkout(restoreRef); err != nil {
		return err
	}
	return s.git.MergeFastForward(tempBranch)
}

func (s *GitStore) squashMerge(ref PageRef, req PageWriteRequest, tempBranch string) error {
	if err := s.git.MergeSquash(tempBranch); err != nil {
		return err
	}
	message := fmt.Sprintf(s.template, ref.WikiPath) + " (squash)"
	return s.git.Commit(message, req.AuthorName, req.AuthorEmail, s.commit)
}

func (s *GitStore) abortMergeOps() {
	if err := s.git.AbortMerge(); err != nil {
		s.logger.Debug("merge abort failed", "error", err)
	}
	if err := s.git.AbortRebase(); err != nil {
		s.logger.Debug("rebase abort failed", "error", err)
	}
}

// conflictOrPassThrough maps conflict markers in git output onto
// ConflictError; everything else propagates unchanged.
func (s *GitStore) conflictOrPassThrough(ref PageRef, expected string, err error) error {
	msg := err.Error()
	if strings.Contains(msg, "CONFLICT") || strings.Contains(msg, "Merge conflict") ||
		strings.Contains(msg, "Not possible to fast-forward") ||
		strings.Contains(msg, "not possible to fast-forward") {
		return &ConflictError{Path: ref.WikiPath, Expected: expected, Strategy: s.strategy}
	}
	return err
}

func (s *GitStore) pageDir(ref PageRef) string {
	dir := s.root
	for _, part := range strings.Split(ref.WikiPath, "/") {
		if part != "" {
			dir = filepath.Join(dir, part)
		}
	}
	return dir
}

func readIfExists(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// writeFileAtomic writes via a temp file and rename so readers never observe
// a torn write.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp-" + uuid.NewString()[:8]
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func listChildPages(dir string, ref PageRef) ([]PageRef, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list children for %s: %w", ref.WikiPath, err)
	}
	var children []PageRef
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == attachmentsDir || strings.HasPrefix(name, ".") {
			continue
		}
		children = append(children, ref.Child(name))
	}
	return children, nil
}

func listAttachmentFiles(dir string, ref PageRef) ([]AttachmentRef, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list attachments for %s: %w", ref.WikiPath, err)
	}
	var attachments []AttachmentRef
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			attachments = append(attachments, AttachmentRef{Page: ref, Name: entry.Name()})
		}
	}
	return attachments, nil
}
