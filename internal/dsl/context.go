package dsl

import (
	"SearchKit/internal/analysis"
	"SearchKit/internal/engine"
)

// RewriteContext carries the collaborators available during the
// pre-execution rewrite pass. Rewrite never mutates it.
type RewriteContext struct {
	Analyzers       *analysis.Registry
	DefaultAnalyzer string
}

// Analyzer resolves an analyzer by name, falling back to the context's
// default and then to "standard".
func (c *RewriteContext) Analyzer(name string) (analysis.Analyzer, error) {
	if name == "" {
		name = c.DefaultAnalyzerName()
	}
	return c.Analyzers.Get(name)
}

// DefaultAnalyzerName returns the analyzer used when a clause does not
// name one. Rewrite output depends on it, so anything that memoizes
// rewritten trees must key on it too.
func (c *RewriteContext) DefaultAnalyzerName() string {
	if c.DefaultAnalyzer == "" {
		return "standard"
	}
	return c.DefaultAnalyzer
}

// ShardContext carries everything needed to compile a builder tree into
// an executable query against one shard. It is request-scoped.
type ShardContext struct {
	RewriteContext
	Reader *engine.IndexReader
}
