package engine

import "SearchKit/internal/scoring"

// TermQuery matches documents containing the exact term and scores
// them with BM25 against the reader's field statistics.
type TermQuery struct {
	Field string
	Term  string
}

func (q *TermQuery) Scorer(r *IndexReader, _ *ExecutionContext) (Scorer, error) {
	pl := r.Postings(q.Field, q.Term)
	if pl == nil || len(pl.Entries) == 0 {
		return emptyScorer{}, nil
	}

	bm25 := scoring.NewBM25Scorer(int64(r.DocCount()), r.AvgFieldLength(q.Field))
	return &termScorer{
		SlicePostingsIterator: NewPostingsListIterator(pl),
		reader:                r,
		field:                 q.Field,
		bm25:                  bm25,
		idf:                   bm25.IDF(int64(len(pl.Entries))),
	}, nil
}

type termScorer struct {
	*SlicePostingsIterator
	reader *IndexReader
	field  string
	bm25   *scoring.BM25Scorer
	idf    float32
}

func (s *termScorer) Score() float32 {
	return s.bm25.Score(s.Freq(), s.reader.DocLength(s.field, s.DocID()), s.idf)
}

// MatchAllQuery matches every document with a score of 1.
type MatchAllQuery struct{}

func (q *MatchAllQuery) Scorer(r *IndexReader, _ *ExecutionContext) (Scorer, error) {
	return &matchAllScorer{maxDoc: r.MaxDoc(), doc: -1}, nil
}

type matchAllScorer struct {
	maxDoc uint32
	doc    int64
}

func (s *matchAllScorer) Next() bool {
	s.doc++
	return s.doc < int64(s.maxDoc)
}

func (s *matchAllScorer) DocID() uint32 { return uint32(s.doc) }
func (s *matchAllScorer) Freq() uint32  { return 1 }

func (s *matchAllScorer) Advance(target uint32) bool {
	if s.doc < int64(target) {
		s.doc = int64(target)
	}
	return s.doc < int64(s.maxDoc)
}

func (s *matchAllScorer) Cost() int64 {
	remaining := int64(s.maxDoc) - s.doc - 1
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (s *matchAllScorer) Score() float32 { return 1 }
