package core

import (
	"math"
	"time"

	"tracecore/pkg/domain"
)

// CoverageBucket counts requirements by test coverage class.
type CoverageBucket struct {
	Total      int `json:"total"`
	Covered    int `json:"covered"`
	Partial    int `json:"partial"`
	Uncovered  int `json:"uncovered"`
	Percentage int `json:"percentage"`
}

func (b *CoverageBucket) add(coverage int) {
	b.Total++
	switch {
	case coverage >= 100:
		b.Covered++
	case coverage > 0:
		b.Partial++
	default:
		b.Uncovered++
	}
}

func (b *CoverageBucket) finish() {
	if b.Total == 0 {
		b.Percentage = 0
		return
	}
	b.Percentage = int(math.Round(float64(b.Covered) / float64(b.Total) * 100))
}

// CoverageReport aggregates coverage globally and per type and status. Every
// enumeration value has a bucket, even when empty.
type CoverageReport struct {
	Overall     CoverageBucket                            `json:"overall"`
	ByType      map[domain.RequirementType]CoverageBucket `json:"byType"`
	ByStatus    map[domain.Status]CoverageBucket          `json:"byStatus"`
	GeneratedAt time.Time                                 `json:"generatedAt"`
}

func (r CoverageReport) clone() CoverageReport {
	cp := r
	cp.ByType = make(map[domain.RequirementType]CoverageBucket, len(r.ByType))
	for k, v := range r.ByType {
		cp.ByType[k] = v
	}
	cp.ByStatus = make(map[domain.Status]CoverageBucket, len(r.ByStatus))
	for k, v := range r.ByStatus {
		cp.ByStatus[k] = v
	}
	return cp
}

// CoverageReport returns the aggregated coverage view. The report is cached
// until the next mutation.
func (e *Engine) CoverageReport() CoverageReport {
	if cached := e.coverage.Load(); cached != nil {
		return cached.clone()
	}
	e.mu.RLock()
	report := e.computeCoverageLocked()
	e.coverage.CompareAndSwap(nil, &report)
	e.mu.RUnlock()
	return report.clone()
}

func (e *Engine) computeCoverageLocked() CoverageReport {
	report := CoverageReport{
		ByType:      make(map[domain.RequirementType]CoverageBucket),
		ByStatus:    make(map[domain.Status]CoverageBucket),
		GeneratedAt: e.now(),
	}
	for _, t := range domain.AllRequirementTypes() {
		report.ByType[t] = CoverageBucket{}
	}
	for _, s := range domain.AllStatuses() {
		report.ByStatus[s] = CoverageBucket{}
	}
	for _, r := range e.records {
		report.Overall.add(r.TestCoverage)
		byType := report.ByType[r.Type]
		byType.add(r.TestCoverage)
		report.ByType[r.Type] = byType
		byStatus := report.ByStatus[r.Status]
		byStatus.add(r.TestCoverage)
		report.ByStatus[r.Status] = byStatus
	}
	report.Overall.finish()
	for k, b := range report.ByType {
		b.finish()
		report.ByType[k] = b
	}
	for k, b := range report.ByStatus {
		b.finish()
		report.ByStatus[k] = b
	}
	return report
}
