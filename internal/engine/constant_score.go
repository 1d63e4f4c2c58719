package engine

// ConstantScoreQuery wraps another query so every matching document
// scores a fixed 1.0, discarding the inner query's native relevance.
// Boosting is applied outside, by BoostQuery, like for every other query.
type ConstantScoreQuery struct {
	Inner Query
}

func (q *ConstantScoreQuery) Scorer(r *IndexReader, ctx *ExecutionContext) (Scorer, error) {
	inner, err := q.Inner.Scorer(r, ctx)
	if err != nil {
		return nil, err
	}
	return &fixedScoreScorer{Scorer: inner, score: 1}, nil
}

// fixedScoreScorer iterates like the wrapped scorer but reports a fixed score.
type fixedScoreScorer struct {
	Scorer
	score float32
}

func (s *fixedScoreScorer) Score() float32 { return s.score }

// BoostQuery multiplies the wrapped query's scores by a constant factor.
// It is the shared post-compilation step that applies builder boosts,
// so individual queries never scale their own scores.
type BoostQuery struct {
	Inner Query
	Boost float32
}

func (q *BoostQuery) Scorer(r *IndexReader, ctx *ExecutionContext) (Scorer, error) {
	inner, err := q.Inner.Scorer(r, ctx)
	if err != nil {
		return nil, err
	}
	return &boostScorer{Scorer: inner, boost: q.Boost}, nil
}

type boostScorer struct {
	Scorer
	boost float32
}

func (s *boostScorer) Score() float32 { return s.Scorer.Score() * s.boost }
