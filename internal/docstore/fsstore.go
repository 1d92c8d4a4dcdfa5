package docstore

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zeebo/blake3"
)

// FSStore is the plain filesystem page store. It shares the GitStore layout
// but keeps no commit history; version tokens are BLAKE3 hashes of the
// page's current content and properties, and History is synthesized from a
// small journal kept per page.
type FSStore struct {
	root string

	mu sync.Mutex
}

// NewFSStore creates a filesystem store rooted at root.
func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory %q: %w", root, err)
	}
	return &FSStore{root: root}, nil
}

// Resolve maps empty or missing paths to the root page.
func (s *FSStore) Resolve(wikiPath string) PageRef {
	return NewPageRef(wikiPath)
}

// ReadPage loads a page; missing files read as empty strings.
func (s *FSStore) ReadPage(ref PageRef) (Page, error) {
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

// WritePage writes the page. With no merge machinery available, any stale
// ExpectedVersion is a conflict outright.
func (s *FSStore) WritePage(ref PageRef, req PageWriteRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.ExpectedVersion != "" {
		head, err := s.headLocked(ref)
		if err != nil {
			return err
		}
		if head != "" && head != req.ExpectedVersion {
			return &ConflictError{Path: ref.WikiPath, Expected: req.ExpectedVersion, Strategy: FastForward}
		}
	}

	dir := s.pageDir(ref)
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
	return s.journalLocked(ref, req, "page")
}

// ListChildren returns direct subdirectories that are pages.
func (s *FSStore) ListChildren(ref PageRef) ([]PageRef, error) {
	children, err := listChildPages(s.pageDir(ref), ref)
	if err != nil {
		return nil, err
	}
	sort.Slice(children, func(i, j int) bool { return children[i].WikiPath < children[j].WikiPath })
	return children, nil
}

// TopLevel lists the pages directly under the store root.
func (s *FSStore) TopLevel() ([]PageRef, error) {
	children, err := listChildPages(s.root, PageRef{})
	if err != nil {
		return nil, err
	}
	sort.Slice(children, func(i, j int) bool { return children[i].WikiPath < children[j].WikiPath })
	return children, nil
}

// ReadProperties loads properties.xml, empty when absent.
func (s *FSStore) ReadProperties(ref PageRef) (PageProperties, error) {
	xml, err := readIfExists(filepath.Join(s.pageDir(ref), propertiesFile))
	if err != nil {
		return PageProperties{}, err
	}
	return PageProperties{XML: xml}, nil
}

// WriteProperties writes properties.xml.
func (s *FSStore) WriteProperties(ref PageRef, props PageProperties) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := filepath.Join(s.pageDir(ref), propertiesFile)
	if err := writeFileAtomic(path, []byte(props.XML)); err != nil {
		return fmt.Errorf("write properties for %s: %w", ref.WikiPath, err)
	}
	return s.journalLocked(ref, PageWriteRequest{}, "properties")
}

// ListAttachments returns regular files under <page>/files/.
func (s *FSStore) ListAttachments(ref PageRef) ([]AttachmentRef, error) {
	return listAttachmentFiles(filepath.Join(s.pageDir(ref), attachmentsDir), ref)
}

// ReadAttachment returns the attachment bytes.
func (s *FSStore) ReadAttachment(ref AttachmentRef) ([]byte, error) {
	path := filepath.Join(s.pageDir(ref.Page), attachmentsDir, ref.Name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read attachment %s: %w", ref.Name, err)
	}
	return data, nil
}

// WriteAttachment stores the attachment, binary-safe.
func (s *FSStore) WriteAttachment(ref AttachmentRef, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := filepath.Join(s.pageDir(ref.Page), attachmentsDir, ref.Name)
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("write attachment %s: %w", ref.Name, err)
	}
	return s.journalLocked(ref.Page, PageWriteRequest{}, "attachment")
}

// History reads the per-page journal, newest first.
func (s *FSStore) History(ref PageRef, q HistoryQuery) (PageHistory, error) {
	data, err := readIfExists(s.journalPath(ref))
	if err != nil {
		return PageHistory{}, err
	}
	var entries []PageHistoryEntry
	lines := strings.Split(data, "\n")
	for i := len(lines) - 1; i >= 0 && len(entries) < q.limit(); i-- {
		if entry, ok := ParseLogLine(strings.TrimRight(lines[i], "\r")); ok {
			entries = append(entries, entry)
		}
	}
	return PageHistory{Entries: entries}, nil
}

// Head hashes the page's current content and properties into a version
// token. An absent page has an empty head.
func (s *FSStore) Head(ref PageRef) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headLocked(ref)
}

func (s *FSStore) headLocked(ref PageRef) (string, error) {
	dir := s.pageDir(ref)
	content, err := readIfExists(filepath.Join(dir, contentFile))
	if err != nil {
		return "", err
	}
	props, err := readIfExists(filepath.Join(dir, propertiesFile))
	if err != nil {
		return "", err
	}
	if content == "" && props == "" {
		return "", nil
	}
	sum := blake3.Sum256([]byte(content + "\x00" + props))
	return hex.EncodeToString(sum[:]), nil
}

// journalLocked appends one version line in the shared log-line format so
// History parses identically across store implementations.
func (s *FSStore) journalLocked(ref PageRef, req PageWriteRequest, reason string) error {
	head, err := s.headLocked(ref)
	if err != nil {
		return err
	}
	author := req.AuthorName
	email := req.AuthorEmail
	message := fmt.Sprintf(defaultCommitTemplate, ref.WikiPath) + " (" + reason + ")"
	line := strings.Join([]string{
		head,
		sanitizeField(author),
		sanitizeField(email),
		time.Now().UTC().Format(time.RFC3339),
		message,
	}, "|") + "\n"

	path := s.journalPath(ref)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("append journal for %s: %w", ref.WikiPath, err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("append journal for %s: %w", ref.WikiPath, err)
	}
	return nil
}

func (s *FSStore) journalPath(ref PageRef) string {
	return filepath.Join(s.pageDir(ref), ".journal")
}

func (s *FSStore) pageDir(ref PageRef) string {
	dir := s.root
	for _, part := range strings.Split(ref.WikiPath, "/") {
		if part != "" {
			dir = filepath.Join(dir, part)
		}
	}
	return dir
}

// sanitizeField keeps journal lines parseable: pipes and newlines are not
// allowed inside the fixed fields.
func sanitizeField(v string) string {
	v = strings.ReplaceAll(v, "|", "/")
	v = strings.ReplaceAll(v, "\n", " ")
	return v
}
