package docstore

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

var epoch = time.Unix(0, 0).UTC()

// parseISOTimestamp reads git's --date=iso-strict output (RFC 3339).
func parseISOTimestamp(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339, raw)
}

// CommitConfig is the process-wide committer identity, read once at startup.
// Blank fields leave git's own configuration in effect.
type CommitConfig struct {
	CommitterName  string
	CommitterEmail string
}

// CommitConfigFromEnv reads FITNESSE_GIT_COMMITTER_NAME/EMAIL.
func CommitConfigFromEnv() CommitConfig {
	return CommitConfig{
		CommitterName:  os.Getenv("FITNESSE_GIT_COMMITTER_NAME"),
		CommitterEmail: os.Getenv("FITNESSE_GIT_COMMITTER_EMAIL"),
	}
}

// GitRepo drives the git binary rooted at one repository. Every method shells
// out; failures carry the combined command output.
type GitRepo struct {
	root string
}

// NewGitRepo wraps the repository at root. The directory need not exist yet.
func NewGitRepo(root string) *GitRepo {
	return &GitRepo{root: root}
}

// Root returns the repository directory.
func (g *GitRepo) Root() string {
	return g.root
}

// Init creates a repository at root.
func (g *GitRepo) Init() error {
	_, err := g.run("init")
	return err
}

// IsRepo reports whether root contains a .git directory.
func (g *GitRepo) IsRepo() bool {
	info, err := os.Stat(filepath.Join(g.root, ".git"))
	return err == nil && info.IsDir()
}

// Add stages the given paths (absolute or repo-relative).
func (g *GitRepo) Add(paths ...string) error {
	args := []string{"add"}
	for _, p := range paths {
		args = append(args, g.relative(p))
	}
	_, err := g.run(args...)
	return err
}

// Commit records a commit. author fields override GIT_AUTHOR_*; the commit
// config overrides GIT_COMMITTER_*. Empty commits are allowed so repeated
// identical writes still produce distinct history entries.
func (g *GitRepo) Commit(message, authorName, authorEmail string, cc CommitConfig) error {
	env := commitEnv(authorName, authorEmail, cc)
	_, err := g.runEnv(env, "commit", "-m", message, "--allow-empty")
	return err
}

// CurrentCommit returns the sha of HEAD, or "" for an unborn branch.
func (g *GitRepo) CurrentCommit() (string, error) {
	out, err := g.run("rev-parse", "HEAD")
	if err != nil {
		if strings.Contains(err.Error(), "unknown revision") || strings.Contains(err.Error(), "ambiguous argument") {
			return "", nil
		}
		return "", err
	}
	return out, nil
}

// CurrentBranch returns the abbreviated branch name, "HEAD" when detached.
func (g *GitRepo) CurrentBranch() (string, error) {
	return g.run("rev-parse", "--abbrev-ref", "HEAD")
}

// Checkout moves HEAD to the given ref.
func (g *GitRepo) Checkout(ref string) error {
	_, err := g.run("checkout", ref)
	return err
}

// CheckoutPath restores one path to its state at commitID.
func (g *GitRepo) CheckoutPath(commitID, path string) error {
	_, err := g.run("checkout", commitID, "--", path)
	return err
}

// CreateBranch creates name at startPoint without checking it out.
func (g *GitRepo) CreateBranch(name, startPoint string) error {
	_, err := g.run("branch", name, startPoint)
	return err
}

// DeleteBranch force-deletes a branch.
func (g *GitRepo) DeleteBranch(name string) error {
	_, err := g.run("branch", "-D", name)
	return err
}

// SetConfig writes a repo-local config value.
func (g *GitRepo) SetConfig(key, value string) error {
	_, err := g.run("config", key, value)
	return err
}

// MergeFastForward merges branch, failing unless a fast-forward is possible.
func (g *GitRepo) MergeFastForward(branch string) error {
	_, err := g.run("merge", "--ff-only", branch)
	return err
}

// MergeNoFastForward merges branch with a merge commit even when a
// fast-forward would do.
func (g *GitRepo) MergeNoFastForward(branch string) error {
	_, err := g.run("merge", "--no-ff", branch)
	return err
}

// MergeOurs merges branch keeping the current side's content.
func (g *GitRepo) MergeOurs(branch string) error {
	_, err := g.run("merge", "-s", "ours", branch)
	return err
}

// MergeTheirs merges branch preferring the incoming side on conflicts.
func (g *GitRepo) MergeTheirs(branch string) error {
	_, err := g.run("merge", "-X", "theirs", branch)
	return err
}

// MergeSquash stages branch's changes without committing.
func (g *GitRepo) MergeSquash(branch string) error {
	_, err := g.run("merge", "--squash", branch)
	return err
}

// Rebase replays the current branch onto upstream.
func (g *GitRepo) Rebase(upstream string) error {
	_, err := g.run("rebase", upstream)
	return err
}

// AbortMerge cancels an in-progress merge.
func (g *GitRepo) AbortMerge() error {
	_, err := g.run("merge", "--abort")
	return err
}

// AbortRebase cancels an in-progress rebase.
func (g *GitRepo) AbortRebase() error {
	_, err := g.run("rebase", "--abort")
	return err
}

// Log returns up to limit pipe-delimited history lines for path, newest
// first: <sha>|<author>|<email>|<iso-timestamp>|<message>.
func (g *GitRepo) Log(path string, limit int) ([]string, error) {
	if limit < 1 {
		limit = 1
	}
	out, err := g.run("log", "--date=iso-strict",
		"--pretty=format:%H|%an|%ae|%ad|%s", fmt.Sprintf("-%d", limit), "--", path)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// LatestCommit returns the newest sha touching path, "" when none.
func (g *GitRepo) LatestCommit(path string) (string, error) {
	out, err := g.run("log", "-n", "1", "--pretty=format:%H", "--", path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Diff returns the unified diff for path between commitID and its parent.
func (g *GitRepo) Diff(path, commitID string) (string, error) {
	return g.run("diff", commitID+"^", commitID, "--", path)
}

func (g *GitRepo) relative(path string) string {
	if !filepath.IsAbs(path) {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(g.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (g *GitRepo) run(args ...string) (string, error) {
	return g.runEnv(nil, args...)
}

func (g *GitRepo) runEnv(extraEnv []string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = g.root
	if len(extraEnv) > 0 {
		cmd.Env = append(os.Environ(), extraEnv...)
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w\n%s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

func commitEnv(authorName, authorEmail string, cc CommitConfig) []string {
	// Blank authors never appear in authored commits: fall back to the
	// process-wide committer identity.
	if authorName == "" {
		authorName = cc.CommitterName
	}
	if authorEmail == "" {
		authorEmail = cc.CommitterEmail
	}
	var env []string
	if cc.CommitterName != "" {
		env = append(env, "GIT_COMMITTER_NAME="+cc.CommitterName)
	}
	if cc.CommitterEmail != "" {
		env = append(env, "GIT_COMMITTER_EMAIL="+cc.CommitterEmail)
	}
	if authorName != "" {
		env = append(env, "GIT_AUTHOR_NAME="+authorName)
	}
	if authorEmail != "" {
		env = append(env, "GIT_AUTHOR_EMAIL="+authorEmail)
	}
	return env
}

// ParseLogLine splits one pipe-delimited log line into a history entry.
// Messages may contain pipes; only the first four are delimiters. Returns
// false for lines that don't parse.
func ParseLogLine(line string) (PageHistoryEntry, bool) {
	if line == "" {
		return PageHistoryEntry{}, false
	}
	parts := strings.SplitN(line, "|", 5)
	if len(parts) < 5 {
		return PageHistoryEntry{}, false
	}
	entry := PageHistoryEntry{
		CommitID:    parts[0],
		AuthorName:  parts[1],
		AuthorEmail: parts[2],
		Message:     parts[4],
	}
	ts, err := parseISOTimestamp(parts[3])
	if err != nil {
		entry.Timestamp = epoch
	} else {
		entry.Timestamp = ts
	}
	return entry, true
}
