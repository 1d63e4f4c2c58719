package engine

// Query is an executable query produced by compiling a builder tree
// against a shard. Executable queries are immutable and safe for
// concurrent use; per-request state lives in the Scorer.
type Query interface {
	// Scorer returns a scorer over the matching documents of r.
	Scorer(r *IndexReader, ctx *ExecutionContext) (Scorer, error)
}

// Scorer iterates matching documents in ascending doc ID order and
// exposes the relevance score of the current document.
type Scorer interface {
	PostingsIterator

	// Score returns the score of the current document.
	// Valid only after Next() or Advance() returns true.
	Score() float32
}

// emptyScorer matches no documents.
type emptyScorer struct{}

func (emptyScorer) Next() bool          { return false }
func (emptyScorer) DocID() uint32       { return 0 }
func (emptyScorer) Freq() uint32        { return 0 }
func (emptyScorer) Advance(uint32) bool { return false }
func (emptyScorer) Cost() int64         { return 0 }
func (emptyScorer) Score() float32      { return 0 }
