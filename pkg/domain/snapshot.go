package domain

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// Metadata carries engine-wide counters stored alongside the records.
type Metadata struct {
	KeyCounter      int       `json:"keyCounter"`
	ActiveProjectID string    `json:"activeProjectId,omitempty"`
	SavedAt         time.Time `json:"savedAt,omitempty"`
}

// Snapshot is the full persisted data set.
type Snapshot struct {
	Requirements []Requirement           `json:"requirements"`
	Baselines    []Baseline              `json:"baselines"`
	Reviews      []Review                `json:"reviews"`
	Documents    []Document              `json:"documents"`
	CustomFields []CustomFieldDefinition `json:"customFields"`
	Metadata     Metadata                `json:"metadata"`
}

// Empty reports whether the snapshot holds no data at all.
func (s Snapshot) Empty() bool {
	return len(s.Requirements) == 0 && len(s.Baselines) == 0 && len(s.Reviews) == 0 &&
		len(s.Documents) == 0 && len(s.CustomFields) == 0 && s.Metadata.KeyCounter == 0
}

// NormalizeSnapshot repairs a loaded snapshot so it satisfies the hierarchy and
// suspect bookkeeping invariants: nil collections become empty, duplicate
// record ids keep their first occurrence, dangling or cyclic parents are
// cleared, children and levels are recomputed, suspect flags are rebuilt from
// the links, and the key counter is raised past every key already in use.
func NormalizeSnapshot(s Snapshot, keyPrefix string) Snapshot {
	s = CloneSnapshot(s)
	if s.Baselines == nil {
		s.Baselines = []Baseline{}
	}
	if s.Reviews == nil {
		s.Reviews = []Review{}
	}
	if s.Documents == nil {
		s.Documents = []Document{}
	}
	if s.CustomFields == nil {
		s.CustomFields = []CustomFieldDefinition{}
	}

	seen := make(map[string]int, len(s.Requirements))
	reqs := make([]Requirement, 0, len(s.Requirements))
	for _, r := range s.Requirements {
		if r.ID == "" {
			continue
		}
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = len(reqs)
		reqs = append(reqs, fillRequirementDefaults(r))
	}

	for i := range reqs {
		if reqs[i].ParentID == "" {
			continue
		}
		if _, ok := seen[reqs[i].ParentID]; !ok || reqs[i].ParentID == reqs[i].ID {
			reqs[i].ParentID = ""
		}
	}
	breakParentCycles(reqs, seen)

	for i := range reqs {
		reqs[i].Children = []string{}
	}
	for i := range reqs {
		if p := reqs[i].ParentID; p != "" {
			parent := &reqs[seen[p]]
			parent.Children = append(parent.Children, reqs[i].ID)
		}
	}
	for i := range reqs {
		SortChildren(reqs[i].Children, func(id string) (Requirement, bool) {
			idx, ok := seen[id]
			if !ok {
				return Requirement{}, false
			}
			return reqs[idx], true
		})
	}
	for i := range reqs {
		reqs[i].Level = levelOf(reqs, seen, i)
	}

	maxKey := s.Metadata.KeyCounter
	for i := range reqs {
		r := &reqs[i]
		r.SuspectLinkIDs = []string{}
		for _, link := range r.TraceLinks {
			if link.IsSuspect {
				r.SuspectLinkIDs = append(r.SuspectLinkIDs, link.ID)
			}
		}
		r.HasSuspectLinks = len(r.SuspectLinkIDs) > 0
		if n, ok := KeyNumber(r.Key, keyPrefix); ok && n > maxKey {
			maxKey = n
		}
	}
	s.Metadata.KeyCounter = maxKey
	s.Requirements = reqs
	return s
}

func fillRequirementDefaults(r Requirement) Requirement {
	if r.Children == nil {
		r.Children = []string{}
	}
	if r.TraceLinks == nil {
		r.TraceLinks = []TraceLink{}
	}
	if r.VerificationMethods == nil {
		r.VerificationMethods = []VerificationMethod{}
	}
	if r.ChangeHistory == nil {
		r.ChangeHistory = []ChangeRecord{}
	}
	if r.SuspectLinkIDs == nil {
		r.SuspectLinkIDs = []string{}
	}
	if r.CustomFields == nil {
		r.CustomFields = map[string]CustomFieldValue{}
	}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	if r.Version < 1 {
		r.Version = 1
	}
	return r
}

// breakParentCycles walks every parent chain and clears the parent pointer
// that closes a loop.
func breakParentCycles(reqs []Requirement, index map[string]int) {
	const (
		unvisited = iota
		inProgress
		done
	)
	state := make([]int, len(reqs))
	for start := range reqs {
		if state[start] != unvisited {
			continue
		}
		var path []int
		cur := start
		for {
			if state[cur] == done {
				break
			}
			if state[cur] == inProgress {
				reqs[cur].ParentID = ""
				break
			}
			state[cur] = inProgress
			path = append(path, cur)
			p := reqs[cur].ParentID
			if p == "" {
				break
			}
			cur = index[p]
		}
		for _, i := range path {
			state[i] = done
		}
	}
}

func levelOf(reqs []Requirement, index map[string]int, i int) int {
	level := 0
	for p := reqs[i].ParentID; p != ""; p = reqs[index[p]].ParentID {
		level++
	}
	return level
}

// SortChildren orders sibling ids by sort order then key. Ids that do not
// resolve sort last in their existing order.
func SortChildren(ids []string, lookup func(string) (Requirement, bool)) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, aok := lookup(ids[i])
		b, bok := lookup(ids[j])
		if !aok || !bok {
			return aok && !bok
		}
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		return a.Key < b.Key
	})
}

// FormatKey renders the human-readable key for counter value n.
func FormatKey(prefix string, n int) string {
	return prefix + "-" + leftPad(strconv.Itoa(n), 4)
}

// KeyNumber extracts the counter value from a key minted with prefix.
func KeyNumber(key, prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(key, prefix+"-")
	if !ok || rest == "" {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func leftPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}
