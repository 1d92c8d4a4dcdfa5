// Package policy resolves access decisions for wiki paths. A master policy
// at <root>/.fitnesse/policy.json sets the baseline; folders along the wiki
// path may carry their own policy.json whose entries are merged on the way
// down. A deny whose allowOverride is false is sticky and cannot be weakened
// by descendant policies.
package policy

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mattjoyce/wikigate/internal/log"
)

// Decision is the outcome of a policy lookup.
type Decision int

const (
	Allow Decision = iota
	Deny
	AuthRequired
)

func (d Decision) String() string {
	switch d {
	case Deny:
		return "deny"
	case AuthRequired:
		return "auth-required"
	default:
		return "allow"
	}
}

// ParseDecision maps a policy.json decision string. The auth spellings
// "auth", "auth_required" and "require_auth" are all accepted. Unknown
// strings fall back to allow.
func ParseDecision(raw string) Decision {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "deny":
		return Deny
	case "auth", "auth_required", "require_auth":
		return AuthRequired
	default:
		return Allow
	}
}

// Surface is the access class a request arrives on.
type Surface int

const (
	UI Surface = iota
	API
	MCP
)

func (s Surface) String() string {
	switch s {
	case API:
		return "api"
	case MCP:
		return "mcp"
	default:
		return "ui"
	}
}

// SurfaceFor classifies a request path into a surface.
func SurfaceFor(urlPath string) Surface {
	switch {
	case strings.HasPrefix(urlPath, "/api/"):
		return API
	case strings.HasPrefix(urlPath, "/mcp"):
		return MCP
	default:
		return UI
	}
}

// Entry is a per-surface decision triple plus the override flag that
// controls whether descendants may weaken it.
type Entry struct {
	UI            Decision
	API           Decision
	MCP           Decision
	AllowOverride bool
}

func (e Entry) decision(s Surface) Decision {
	switch s {
	case API:
		return e.API
	case MCP:
		return e.MCP
	default:
		return e.UI
	}
}

// allowAll is the degraded entry used for missing or malformed policies.
var allowAll = Entry{UI: Allow, API: Allow, MCP: Allow, AllowOverride: true}

type entryJSON struct {
	UI            string `json:"ui"`
	API           string `json:"api"`
	MCP           string `json:"mcp"`
	AllowOverride *bool  `json:"allowOverride"`
}

func (e entryJSON) entry() Entry {
	override := true
	if e.AllowOverride != nil {
		override = *e.AllowOverride
	}
	return Entry{
		UI:            ParseDecision(e.UI),
		API:           ParseDecision(e.API),
		MCP:           ParseDecision(e.MCP),
		AllowOverride: override,
	}
}

type fileJSON struct {
	Default   entryJSON            `json:"default"`
	Overrides map[string]entryJSON `json:"overrides"`
}

// policyFile is one parsed .fitnesse/policy.json.
type policyFile struct {
	present   bool
	def       Entry
	overrides map[string]Entry
}

// entryFor resolves the file's entry for a path relative to the file's
// folder: the default, replaced by the longest matching override prefix.
// Prefix matching is plain string prefix, not path-segment.
func (f policyFile) entryFor(relPath string) Entry {
	best := f.def
	bestLen := -1
	for prefix, entry := range f.overrides {
		if strings.HasPrefix(relPath, prefix) && len(prefix) > bestLen {
			best = entry
			bestLen = len(prefix)
		}
	}
	return best
}

// Resolver loads and composes policies for a wiki root. Loaded files are
// cached per folder for the process lifetime.
type Resolver struct {
	root   string
	cache  sync.Map // folder path -> policyFile
	logger *slog.Logger
}

// NewResolver creates a resolver rooted at the wiki root directory.
func NewResolver(root string) *Resolver {
	return &Resolver{root: root, logger: log.WithComponent("policy")}
}

// Decide returns the decision for a wiki path on a surface.
func (r *Resolver) Decide(wikiPath string, surface Surface) Decision {
	return r.Resolve(wikiPath).decision(surface)
}

// Resolve composes the master policy with folder policies along the path
// and returns the merged entry.
func (r *Resolver) Resolve(wikiPath string) Entry {
	wikiPath = strings.Trim(wikiPath, "/")

	master := r.load(r.root)
	acc := newAccumulator(master.entryFor(wikiPath))

	if wikiPath != "" {
		segments := strings.Split(wikiPath, "/")
		folder := r.root
		for i := 0; i < len(segments)-1; i++ {
			folder = filepath.Join(folder, segments[i])
			pf := r.load(folder)
			if !pf.present {
				continue
			}
			remaining := strings.Join(segments[i+1:], "/")
			acc.merge(pf.entryFor(remaining))
		}
	}
	return acc.entry()
}

// load reads and caches a folder's .fitnesse/policy.json. Missing files are
// cached as absent; malformed files degrade to allow-all.
func (r *Resolver) load(folder string) policyFile {
	if cached, ok := r.cache.Load(folder); ok {
		return cached.(policyFile)
	}

	pf := r.read(folder)
	actual, _ := r.cache.LoadOrStore(folder, pf)
	return actual.(policyFile)
}

func (r *Resolver) read(folder string) policyFile {
	path := filepath.Join(folder, ".fitnesse", "policy.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if folder == r.root {
			// No master policy means an open wiki.
			return policyFile{present: true, def: allowAll}
		}
		return policyFile{}
	}

	var raw fileJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		r.logger.Warn("malformed policy file, treating as allow-all", "path", path, "error", err)
		return policyFile{present: true, def: allowAll}
	}

	pf := policyFile{present: true, def: raw.Default.entry()}
	if len(raw.Overrides) > 0 {
		pf.overrides = make(map[string]Entry, len(raw.Overrides))
		for prefix, entry := range raw.Overrides {
			pf.overrides[prefix] = entry.entry()
		}
	}
	return pf
}

// accumulator tracks the merged decision and stickiness per surface.
type accumulator struct {
	decisions [3]Decision
	sticky    [3]bool
	override  bool
}

func newAccumulator(e Entry) accumulator {
	acc := accumulator{override: e.AllowOverride}
	for _, s := range []Surface{UI, API, MCP} {
		acc.decisions[s] = e.decision(s)
		acc.sticky[s] = e.decision(s) == Deny && !e.AllowOverride
	}
	return acc
}

// merge applies a descendant entry. A sticky deny survives; everything else
// is replaced by the descendant's decision.
func (a *accumulator) merge(e Entry) {
	for _, s := range []Surface{UI, API, MCP} {
		if a.sticky[s] {
			continue
		}
		a.decisions[s] = e.decision(s)
		a.sticky[s] = e.decision(s) == Deny && !e.AllowOverride
	}
	a.override = e.AllowOverride
}

func (a accumulator) entry() Entry {
	return Entry{
		UI:            a.decisions[UI],
		API:           a.decisions[API],
		MCP:           a.decisions[MCP],
		AllowOverride: a.override,
	}
}
