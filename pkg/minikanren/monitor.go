package minikanren

// monitor.go: lock-free monitoring and statistics for the FD solver.

import (
	"fmt"
	"sync/atomic"
	"time"
)

// SolverStats holds statistics about the FD solving process.
// All fields use atomic operations for lock-free updates.
type SolverStats struct {
	NodesExplored  int64
	Backtracks     int64
	SolutionsFound int64
	SearchTime     time.Duration
	MaxDepth       int64

	PropagationCount int64
	PropagationTime  int64
	ConstraintsAdded int64

	PeakTrailSize int64
	PeakQueueSize int64
}

// SolverMonitor provides lock-free monitoring capabilities for the FD solver.
// All operations use atomic instructions for safe concurrent access without
// locks, matching the copy-on-write architecture of the solver itself.
type SolverMonitor struct {
	stats     SolverStats
	startTime time.Time
	propStart atomic.Int64
}

// NewSolverMonitor creates a new solver monitor.
func NewSolverMonitor() *SolverMonitor {
	return &SolverMonitor{
		startTime: time.Now(),
	}
}

// GetStats returns a snapshot of the current statistics. Safe to call on a
// nil monitor.
func (m *SolverMonitor) GetStats() *SolverStats {
	if m == nil {
		return nil
	}
	return &SolverStats{
		NodesExplored:    atomic.LoadInt64(&m.stats.NodesExplored),
		Backtracks:       atomic.LoadInt64(&m.stats.Backtracks),
		SolutionsFound:   atomic.LoadInt64(&m.stats.SolutionsFound),
		SearchTime:       m.stats.SearchTime,
		MaxDepth:         atomic.LoadInt64(&m.stats.MaxDepth),
		PropagationCount: atomic.LoadInt64(&m.stats.PropagationCount),
		PropagationTime:  atomic.LoadInt64(&m.stats.PropagationTime),
		ConstraintsAdded: atomic.LoadInt64(&m.stats.ConstraintsAdded),
		PeakTrailSize:    atomic.LoadInt64(&m.stats.PeakTrailSize),
		PeakQueueSize:    atomic.LoadInt64(&m.stats.PeakQueueSize),
	}
}

// StartPropagation marks the beginning of a propagation operation.
func (m *SolverMonitor) StartPropagation() {
	if m == nil {
		return
	}
	m.propStart.Store(time.Now().UnixNano())
}

// EndPropagation marks the end of a propagation operation.
func (m *SolverMonitor) EndPropagation() {
	if m == nil {
		return
	}
	startNano := m.propStart.Load()
	if startNano != 0 {
		elapsed := time.Now().UnixNano() - startNano
		atomic.AddInt64(&m.stats.PropagationTime, elapsed)
		atomic.AddInt64(&m.stats.PropagationCount, 1)
		m.propStart.Store(0)
	}
}

// RecordBacktrack records a backtrack operation.
func (m *SolverMonitor) RecordBacktrack() {
	if m == nil {
		return
	}
	atomic.AddInt64(&m.stats.Backtracks, 1)
}

// RecordNode records exploring a search node.
func (m *SolverMonitor) RecordNode() {
	if m == nil {
		return
	}
	atomic.AddInt64(&m.stats.NodesExplored, 1)
}

// RecordSolution records finding a solution.
func (m *SolverMonitor) RecordSolution() {
	if m == nil {
		return
	}
	atomic.AddInt64(&m.stats.SolutionsFound, 1)
}

// RecordDepth records the current search depth via an atomic running max.
func (m *SolverMonitor) RecordDepth(depth int) {
	if m == nil {
		return
	}
	depth64 := int64(depth)
	for {
		old := atomic.LoadInt64(&m.stats.MaxDepth)
		if depth64 <= old {
			break
		}
		if atomic.CompareAndSwapInt64(&m.stats.MaxDepth, old, depth64) {
			break
		}
	}
}

// RecordConstraint records adding a constraint.
func (m *SolverMonitor) RecordConstraint() {
	if m == nil {
		return
	}
	atomic.AddInt64(&m.stats.ConstraintsAdded, 1)
}

// RecordTrailSize records the current trail size via an atomic running max.
func (m *SolverMonitor) RecordTrailSize(size int) {
	if m == nil {
		return
	}
	size64 := int64(size)
	for {
		old := atomic.LoadInt64(&m.stats.PeakTrailSize)
		if size64 <= old {
			break
		}
		if atomic.CompareAndSwapInt64(&m.stats.PeakTrailSize, old, size64) {
			break
		}
	}
}

// RecordQueueSize records the current propagation queue size via an atomic
// running max.
func (m *SolverMonitor) RecordQueueSize(size int) {
	if m == nil {
		return
	}
	size64 := int64(size)
	for {
		old := atomic.LoadInt64(&m.stats.PeakQueueSize)
		if size64 <= old {
			break
		}
		if atomic.CompareAndSwapInt64(&m.stats.PeakQueueSize, old, size64) {
			break
		}
	}
}

// FinishSearch marks the end of the search process.
func (m *SolverMonitor) FinishSearch() {
	if m == nil {
		return
	}
	m.stats.SearchTime = time.Since(m.startTime)
}

// String returns a formatted string representation of the statistics.
func (s *SolverStats) String() string {
	return fmt.Sprintf(
		"Solver Statistics:\n"+
			"  Nodes Explored:  %d\n"+
			"  Backtracks:      %d\n"+
			"  Solutions:       %d\n"+
			"  Max Depth:       %d\n"+
			"  Search Time:     %v\n"+
			"  Propagations:    %d\n"+
			"  Prop Time:       %v\n"+
			"  Constraints:     %d\n"+
			"  Peak Trail:      %d\n"+
			"  Peak Queue:      %d\n",
		s.NodesExplored,
		s.Backtracks,
		s.SolutionsFound,
		s.MaxDepth,
		s.SearchTime,
		s.PropagationCount,
		time.Duration(s.PropagationTime),
		s.ConstraintsAdded,
		s.PeakTrailSize,
		s.PeakQueueSize,
	)
}
