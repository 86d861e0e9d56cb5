package core

import (
	"context"
	"time"

	"tracecore/pkg/domain"
)

// SuspectReason is recorded on links flagged by suspect propagation.
const SuspectReason = "target requirement was modified"

// AddLink creates a link on the source. When the target is a live
// requirement the inverse link is also created on the target; a self-link
// therefore stores both directions on the same record. Only the source
// gets a ledger entry and a version bump. found is false when the source does
// not exist.
func (e *Engine) AddLink(ctx context.Context, in domain.LinkInput, actor string) (_ domain.TraceLink, found bool, err error) {
	start := time.Now()
	defer func() { e.observe(ctx, "add_link", start, err) }()

	if err := in.Validate(); err != nil {
		return domain.TraceLink{}, false, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	src, ok := e.records[in.SourceID]
	if !ok {
		return domain.TraceLink{}, false, nil
	}
	now := e.now()
	link := domain.TraceLink{
		ID:          e.newID(),
		SourceID:    src.ID,
		TargetID:    in.TargetID,
		TargetType:  in.TargetType,
		LinkType:    in.LinkType,
		Description: in.Description,
		CreatedAt:   now,
		CreatedBy:   actor,
	}
	src.TraceLinks = append(src.TraceLinks, link)
	src.Version++
	src.UpdatedAt = now
	src.UpdatedBy = actor
	src.ChangeHistory = append(src.ChangeHistory, domain.ChangeRecord{
		ID:         e.newID(),
		Timestamp:  now,
		UserID:     actor,
		ChangeType: domain.ChangeTraceLinkAdded,
		FieldName:  FieldNameTraceLinks,
		NewValue:   domain.CloneTraceLink(link),
		Version:    src.Version,
	})
	touched := []string{src.ID}

	if in.TargetType == domain.TargetRequirement {
		if target, ok := e.records[in.TargetID]; ok {
			target.TraceLinks = append(target.TraceLinks, domain.TraceLink{
				ID:          e.newID(),
				SourceID:    target.ID,
				TargetID:    src.ID,
				TargetType:  domain.TargetRequirement,
				LinkType:    in.LinkType.Inverse(),
				Description: in.Description,
				CreatedAt:   now,
				CreatedBy:   actor,
			})
			if target.ID != src.ID {
				touched = append(touched, target.ID)
			}
		}
	}
	e.invalidate(touched...)
	e.scheduleFlushLocked()

	e.logger.Debug("link added", "source", src.ID, "target", in.TargetID, "type", in.LinkType)
	return domain.CloneTraceLink(link), true, nil
}

// RemoveLink deletes a link from its source and, for requirement targets,
// the matching inverse on the target. It returns false when either the
// source or the link is unknown.
func (e *Engine) RemoveLink(ctx context.Context, sourceID, linkID, actor string) bool {
	start := time.Now()
	defer e.observe(ctx, "remove_link", start, nil)

	e.mu.Lock()
	defer e.mu.Unlock()

	src, ok := e.records[sourceID]
	if !ok {
		return false
	}
	link, ok := src.Link(linkID)
	if !ok {
		return false
	}
	dropLink(src, linkID)

	now := e.now()
	src.Version++
	src.UpdatedAt = now
	src.UpdatedBy = actor
	src.ChangeHistory = append(src.ChangeHistory, domain.ChangeRecord{
		ID:         e.newID(),
		Timestamp:  now,
		UserID:     actor,
		ChangeType: domain.ChangeTraceLinkRemoved,
		FieldName:  FieldNameTraceLinks,
		OldValue:   domain.CloneTraceLink(link),
		Version:    src.Version,
	})
	touched := []string{src.ID}

	if link.TargetType == domain.TargetRequirement {
		if target, ok := e.records[link.TargetID]; ok {
			inverse := link.LinkType.Inverse()
			for _, candidate := range target.TraceLinks {
				if candidate.TargetID == src.ID && candidate.LinkType == inverse {
					dropLink(target, candidate.ID)
					touched = append(touched, target.ID)
					break
				}
			}
		}
	}
	e.invalidate(touched...)
	e.scheduleFlushLocked()

	e.logger.Debug("link removed", "source", src.ID, "link", linkID)
	return true
}

func dropLink(r *domain.Requirement, linkID string) {
	kept := make([]domain.TraceLink, 0, len(r.TraceLinks))
	for _, l := range r.TraceLinks {
		if l.ID != linkID {
			kept = append(kept, l)
		}
	}
	r.TraceLinks = kept
	r.SuspectLinkIDs = removeString(r.SuspectLinkIDs, linkID)
	r.HasSuspectLinks = len(r.SuspectLinkIDs) > 0
}

// propagateSuspectLocked scans every record and flags each link that targets
// targetID and is not yet suspect. The scan is exhaustive: its cost is the
// total number of links in the store.
func (e *Engine) propagateSuspectLocked(targetID string) int {
	marked := 0
	for _, owner := range e.index.Items() {
		if owner.ID == targetID {
			continue
		}
		ownerTouched := false
		for i := range owner.TraceLinks {
			link := &owner.TraceLinks[i]
			if link.TargetID != targetID || link.TargetType != domain.TargetRequirement || link.IsSuspect {
				continue
			}
			link.IsSuspect = true
			link.SuspectReason = SuspectReason
			if !containsString(owner.SuspectLinkIDs, link.ID) {
				owner.SuspectLinkIDs = append(owner.SuspectLinkIDs, link.ID)
			}
			owner.HasSuspectLinks = true
			ownerTouched = true
			marked++
		}
		if ownerTouched {
			e.invalidate(owner.ID)
		}
	}
	return marked
}

// ClearSuspect marks a link reviewed: the suspect flag and reason are
// cleared, verification metadata is stamped and the owner's suspect
// bookkeeping is recomputed. It returns false for unknown records or links.
func (e *Engine) ClearSuspect(ctx context.Context, recordID, linkID, actor string) bool {
	start := time.Now()
	defer e.observe(ctx, "clear_suspect", start, nil)

	e.mu.Lock()
	defer e.mu.Unlock()

	r, ok := e.records[recordID]
	if !ok {
		return false
	}
	for i := range r.TraceLinks {
		link := &r.TraceLinks[i]
		if link.ID != linkID {
			continue
		}
		now := e.now()
		link.IsSuspect = false
		link.SuspectReason = ""
		link.VerifiedAt = &now
		link.VerifiedBy = actor
		r.SuspectLinkIDs = removeString(r.SuspectLinkIDs, linkID)
		r.HasSuspectLinks = len(r.SuspectLinkIDs) > 0
		e.invalidate(r.ID)
		e.scheduleFlushLocked()
		return true
	}
	return false
}

// Links returns the links originating at id.
func (e *Engine) Links(id string) []domain.TraceLink {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.records[id]
	if !ok {
		return nil
	}
	out := make([]domain.TraceLink, 0, len(r.TraceLinks))
	for _, l := range r.TraceLinks {
		out = append(out, domain.CloneTraceLink(l))
	}
	return out
}

// SuspectLinks returns every suspect link in the store, grouped by owner in
// creation order.
func (e *Engine) SuspectLinks() []domain.TraceLink {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []domain.TraceLink
	for _, r := range e.index.Items() {
		for _, l := range r.TraceLinks {
			if l.IsSuspect {
				out = append(out, domain.CloneTraceLink(l))
			}
		}
	}
	return out
}

// Upstream resolves the targets of id's derived-from and child-of links.
// Targets that no longer exist are skipped.
func (e *Engine) Upstream(id string) []domain.Requirement {
	return e.related(id, domain.LinkType.Upstream)
}

// Downstream resolves the targets of id's derives-to and parent-of links.
func (e *Engine) Downstream(id string) []domain.Requirement {
	return e.related(id, domain.LinkType.Downstream)
}

func (e *Engine) related(id string, match func(domain.LinkType) bool) []domain.Requirement {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.records[id]
	if !ok {
		return nil
	}
	var out []domain.Requirement
	seen := make(map[string]bool)
	for _, l := range r.TraceLinks {
		if !match(l.LinkType) || seen[l.TargetID] {
			continue
		}
		target, ok := e.records[l.TargetID]
		if !ok {
			continue
		}
		seen[l.TargetID] = true
		out = append(out, domain.CloneRequirement(*target))
	}
	return out
}
