package core

import (
	"context"
	"time"

	"tracecore/pkg/domain"
)

// ImpactNode is one requirement reached by impact analysis.
type ImpactNode struct {
	ID       string                 `json:"id"`
	Key      string                 `json:"key"`
	Type     domain.RequirementType `json:"type"`
	Title    string                 `json:"title"`
	LinkType domain.LinkType        `json:"linkType"`
	Depth    int                    `json:"depth"`
	Path     []string               `json:"path"`
}

// AnalyzeImpact walks trace links depth first from startID. A single visited
// set covers the whole walk, so each requirement is reported once with the
// depth and path of its first discovery. Nodes are reported up to maxDepth
// hops away; maxDepth <= 0 or an unknown start yields nothing.
func (e *Engine) AnalyzeImpact(startID string, maxDepth int) []ImpactNode {
	start := time.Now()
	e.mu.RLock()
	defer e.mu.RUnlock()
	defer func() { e.observe(context.Background(), "impact", start, nil) }()

	if maxDepth <= 0 {
		return nil
	}
	if _, ok := e.records[startID]; !ok {
		return nil
	}
	w := impactWalk{
		records:  e.records,
		maxDepth: maxDepth,
		visited:  map[string]bool{startID: true},
	}
	w.visit(startID, 1, []string{startID})
	return w.out
}

type impactWalk struct {
	records  map[string]*domain.Requirement
	maxDepth int
	visited  map[string]bool
	out      []ImpactNode
}

func (w *impactWalk) visit(id string, depth int, path []string) {
	r := w.records[id]
	for _, link := range r.TraceLinks {
		if link.TargetType != domain.TargetRequirement || w.visited[link.TargetID] {
			continue
		}
		target, ok := w.records[link.TargetID]
		if !ok {
			continue
		}
		w.visited[target.ID] = true
		nodePath := append(append(make([]string, 0, len(path)+1), path...), target.ID)
		w.out = append(w.out, ImpactNode{
			ID:       target.ID,
			Key:      target.Key,
			Type:     target.Type,
			Title:    target.Title,
			LinkType: link.LinkType,
			Depth:    depth,
			Path:     nodePath,
		})
		if depth+1 <= w.maxDepth {
			w.visit(target.ID, depth+1, nodePath)
		}
	}
}
