package search

import (
	"context"
	"log/slog"

	"github.com/poiesic/wayfind/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to trace how candidates were scoped and scored.
type SearchMonitor interface {
	Start(query Query, selected []string)
	Scored(utility core.Utility, score int)
	AfterScoping(candidates int)
	Finish(results []core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ Query, _ []string)    {}
func (n *noopMonitor) Scored(_ core.Utility, _ int) {}
func (n *noopMonitor) AfterScoping(_ int)           {}
func (n *noopMonitor) Finish(_ []core.SearchResult) {}

// LogMonitor traces a search to a structured logger. Each scored candidate
// is logged, so it is meant for one-off diagnosis rather than serving.
type LogMonitor struct {
	logger *slog.Logger
	level  slog.Level
}

var _ SearchMonitor = (*LogMonitor)(nil)

// NewLogMonitor returns a monitor that logs every stage at level.
// A nil logger means slog.Default().
func NewLogMonitor(logger *slog.Logger, level slog.Level) *LogMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMonitor{logger: logger, level: level}
}

func (m *LogMonitor) log(msg string, args ...any) {
	m.logger.Log(context.Background(), m.level, msg, args...)
}

func (m *LogMonitor) Start(query Query, selected []string) {
	m.log("search started", "query", query.Text, "terms", len(query.Terms), "categories", selected)
}

func (m *LogMonitor) Scored(utility core.Utility, score int) {
	m.log("candidate scored", "id", utility.ID, "name", utility.Name, "type", utility.Type, "score", score)
}

func (m *LogMonitor) AfterScoping(candidates int) {
	m.log("scoping complete", "candidates", candidates)
}

func (m *LogMonitor) Finish(results []core.SearchResult) {
	top := 0
	if len(results) > 0 {
		top = results[0].Score
	}
	m.log("search finished", "hits", len(results), "top_score", top)
}
