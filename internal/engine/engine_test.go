package engine

import (
	"fmt"
	"testing"
	"time"

	"SearchKit/internal/analysis"
)

// buildReader indexes the given documents as doc0, doc1, ... in order.
func buildReader(t *testing.T, docs []map[string]string) *IndexReader {
	t.Helper()
	r := NewIndexReader(analysis.NewRegistry(), "standard")
	for i, fields := range docs {
		if _, err := r.AddDocument(fmt.Sprintf("doc%d", i), fields); err != nil {
			t.Fatal(err)
		}
	}
	return r
}

func collectDocs(t *testing.T, s Scorer) []uint32 {
	t.Helper()
	var docs []uint32
	for s.Next() {
		docs = append(docs, s.DocID())
	}
	return docs
}

func mustScorer(t *testing.T, q Query, r *IndexReader) Scorer {
	t.Helper()
	s, err := q.Scorer(r, NewExecutionContext(time.Minute, 0))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// --- PostingsIterator Tests ---

func TestSlicePostingsIterator_Basic(t *testing.T) {
	it := NewSlicePostingsIterator([]uint32{1, 3, 5, 7}, []uint32{2, 1, 3, 1})

	var docs []uint32
	for it.Next() {
		docs = append(docs, it.DocID())
	}
	expected := []uint32{1, 3, 5, 7}
	if len(docs) != len(expected) {
		t.Fatalf("expected %d docs, got %d", len(expected), len(docs))
	}
	for i, d := range docs {
		if d != expected[i] {
			t.Errorf("doc[%d] = %d, want %d", i, d, expected[i])
		}
	}
}

func TestSlicePostingsIterator_Advance(t *testing.T) {
	it := NewSlicePostingsIterator([]uint32{1, 3, 5, 7, 9}, []uint32{1, 1, 1, 1, 1})

	if !it.Advance(4) {
		t.Fatal("Advance(4) should find doc >= 4")
	}
	if it.DocID() != 5 {
		t.Errorf("DocID = %d, want 5", it.DocID())
	}

	if !it.Advance(7) {
		t.Fatal("Advance(7) should find doc 7")
	}
	if it.DocID() != 7 {
		t.Errorf("DocID = %d, want 7", it.DocID())
	}

	if it.Advance(100) {
		t.Error("Advance(100) should return false")
	}
}

func TestSlicePostingsIterator_Empty(t *testing.T) {
	it := NewSlicePostingsIterator(nil, nil)
	if it.Next() {
		t.Error("empty iterator should return false")
	}
}

func TestSlicePostingsIterator_Freq(t *testing.T) {
	it := NewSlicePostingsIterator([]uint32{1, 2}, []uint32{5, 10})
	it.Next()
	if it.Freq() != 5 {
		t.Errorf("Freq = %d, want 5", it.Freq())
	}
	it.Next()
	if it.Freq() != 10 {
		t.Errorf("Freq = %d, want 10", it.Freq())
	}
}

// --- IndexReader Tests ---

func TestIndexReader_Stats(t *testing.T) {
	r := buildReader(t, []map[string]string{
		{"body": "alpha beta gamma"},
		{"body": "alpha"},
	})

	if r.DocCount() != 2 {
		t.Errorf("DocCount = %d, want 2", r.DocCount())
	}
	if r.DocFreq("body", "alpha") != 2 {
		t.Errorf("DocFreq(alpha) = %d, want 2", r.DocFreq("body", "alpha"))
	}
	if r.DocFreq("body", "beta") != 1 {
		t.Errorf("DocFreq(beta) = %d, want 1", r.DocFreq("body", "beta"))
	}
	if r.DocFreq("body", "missing") != 0 {
		t.Errorf("DocFreq(missing) = %d, want 0", r.DocFreq("body", "missing"))
	}

	if avg := r.AvgFieldLength("body"); avg != 2.0 {
		t.Errorf("AvgFieldLength = %f, want 2.0", avg)
	}
	if avg := r.AvgFieldLength("unseen"); avg != 1.0 {
		t.Errorf("AvgFieldLength(unseen) = %f, want 1.0", avg)
	}

	id, err := r.ExternalID(1)
	if err != nil {
		t.Fatal(err)
	}
	if id != "doc1" {
		t.Errorf("ExternalID(1) = %q, want doc1", id)
	}
	if _, err := r.ExternalID(99); err == nil {
		t.Error("expected error for unknown doc ID")
	}
}

func TestIndexReader_DuplicateID(t *testing.T) {
	r := NewIndexReader(analysis.NewRegistry(), "standard")
	if _, err := r.AddDocument("a", map[string]string{"f": "x"}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.AddDocument("a", map[string]string{"f": "y"}); err != ErrDuplicateDoc {
		t.Errorf("expected ErrDuplicateDoc, got %v", err)
	}
}

// --- TermQuery Tests ---

func TestTermQuery_Matches(t *testing.T) {
	r := buildReader(t, []map[string]string{
		{"body": "alpha beta"},
		{"body": "gamma"},
		{"body": "alpha"},
	})

	s := mustScorer(t, &TermQuery{Field: "body", Term: "alpha"}, r)
	docs := collectDocs(t, s)
	expected := []uint32{0, 2}
	if len(docs) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, docs)
	}
	for i, d := range docs {
		if d != expected[i] {
			t.Errorf("doc[%d] = %d, want %d", i, d, expected[i])
		}
	}
}

func TestTermQuery_LengthNormalization(t *testing.T) {
	r := buildReader(t, []map[string]string{
		{"body": "alpha beta gamma delta"},
		{"body": "alpha"},
	})

	s := mustScorer(t, &TermQuery{Field: "body", Term: "alpha"}, r)

	if !s.Next() {
		t.Fatal("expected first match")
	}
	longDocScore := s.Score()
	if !s.Next() {
		t.Fatal("expected second match")
	}
	shortDocScore := s.Score()

	if shortDocScore <= longDocScore {
		t.Errorf("shorter doc should score higher: short=%f long=%f", shortDocScore, longDocScore)
	}
}

func TestTermQuery_NoMatch(t *testing.T) {
	r := buildReader(t, []map[string]string{{"body": "alpha"}})
	s := mustScorer(t, &TermQuery{Field: "body", Term: "zzz"}, r)
	if s.Next() {
		t.Error("expected no matches")
	}
}

// --- MatchAllQuery Tests ---

func TestMatchAllQuery(t *testing.T) {
	r := buildReader(t, []map[string]string{
		{"body": "a"}, {"body": "b"}, {"body": "c"},
	})

	s := mustScorer(t, &MatchAllQuery{}, r)
	docs := collectDocs(t, s)
	if len(docs) != 3 {
		t.Fatalf("expected 3 docs, got %v", docs)
	}
	for i, d := range docs {
		if d != uint32(i) {
			t.Errorf("doc[%d] = %d, want %d", i, d, i)
		}
	}
}

// --- ConstantScoreQuery / BoostQuery Tests ---

func TestConstantScoreQuery_FixedScore(t *testing.T) {
	r := buildReader(t, []map[string]string{
		{"body": "alpha alpha alpha"},
		{"body": "alpha"},
	})

	q := &ConstantScoreQuery{Inner: &TermQuery{Field: "body", Term: "alpha"}}
	s := mustScorer(t, q, r)

	for s.Next() {
		if s.Score() != 1.0 {
			t.Errorf("doc %d score = %f, want 1.0", s.DocID(), s.Score())
		}
	}
}

func TestBoostQuery_ScalesScores(t *testing.T) {
	r := buildReader(t, []map[string]string{{"body": "alpha"}})

	inner := &ConstantScoreQuery{Inner: &TermQuery{Field: "body", Term: "alpha"}}
	q := &BoostQuery{Inner: inner, Boost: 2.5}
	s := mustScorer(t, q, r)

	if !s.Next() {
		t.Fatal("expected a match")
	}
	if s.Score() != 2.5 {
		t.Errorf("score = %f, want 2.5", s.Score())
	}
}

// --- BoolQuery Tests ---

func TestBoolQuery_Conjunction(t *testing.T) {
	r := buildReader(t, []map[string]string{
		{"body": "alpha beta"},
		{"body": "alpha"},
		{"body": "alpha beta gamma"},
	})

	q := &BoolQuery{Must: []Query{
		&TermQuery{Field: "body", Term: "alpha"},
		&TermQuery{Field: "body", Term: "beta"},
	}}
	docs := collectDocs(t, mustScorer(t, q, r))

	expected := []uint32{0, 2}
	if len(docs) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, docs)
	}
	for i, d := range docs {
		if d != expected[i] {
			t.Errorf("doc[%d] = %d, want %d", i, d, expected[i])
		}
	}
}

func TestBoolQuery_ConjunctionScoresSum(t *testing.T) {
	r := buildReader(t, []map[string]string{
		{"body": "alpha beta"},
	})

	a := &TermQuery{Field: "body", Term: "alpha"}
	b := &TermQuery{Field: "body", Term: "beta"}

	sa := mustScorer(t, a, r)
	sa.Next()
	sb := mustScorer(t, b, r)
	sb.Next()
	want := sa.Score() + sb.Score()

	s := mustScorer(t, &BoolQuery{Must: []Query{a, b}}, r)
	if !s.Next() {
		t.Fatal("expected a match")
	}
	if s.Score() != want {
		t.Errorf("score = %f, want %f", s.Score(), want)
	}
}

func TestBoolQuery_PureDisjunction(t *testing.T) {
	r := buildReader(t, []map[string]string{
		{"body": "alpha"},
		{"body": "beta"},
		{"body": "gamma"},
	})

	q := &BoolQuery{Should: []Query{
		&TermQuery{Field: "body", Term: "alpha"},
		&TermQuery{Field: "body", Term: "beta"},
	}}
	docs := collectDocs(t, mustScorer(t, q, r))

	expected := []uint32{0, 1}
	if len(docs) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, docs)
	}
}

func TestBoolQuery_MinimumShouldMatch(t *testing.T) {
	r := buildReader(t, []map[string]string{
		{"body": "alpha"},
		{"body": "alpha beta"},
		{"body": "alpha beta gamma"},
	})

	q := &BoolQuery{
		Should: []Query{
			&TermQuery{Field: "body", Term: "alpha"},
			&TermQuery{Field: "body", Term: "beta"},
			&TermQuery{Field: "body", Term: "gamma"},
		},
		MinimumShouldMatch: 2,
	}
	docs := collectDocs(t, mustScorer(t, q, r))

	expected := []uint32{1, 2}
	if len(docs) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, docs)
	}
}

func TestBoolQuery_MustNotExcludes(t *testing.T) {
	r := buildReader(t, []map[string]string{
		{"body": "alpha"},
		{"body": "alpha beta"},
		{"body": "alpha gamma"},
	})

	q := &BoolQuery{
		Must:    []Query{&TermQuery{Field: "body", Term: "alpha"}},
		MustNot: []Query{&TermQuery{Field: "body", Term: "beta"}},
	}
	docs := collectDocs(t, mustScorer(t, q, r))

	expected := []uint32{0, 2}
	if len(docs) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, docs)
	}
}

func TestBoolQuery_OnlyMustNot(t *testing.T) {
	r := buildReader(t, []map[string]string{
		{"body": "alpha"},
		{"body": "beta"},
		{"body": "gamma"},
	})

	q := &BoolQuery{MustNot: []Query{&TermQuery{Field: "body", Term: "beta"}}}
	docs := collectDocs(t, mustScorer(t, q, r))

	expected := []uint32{0, 2}
	if len(docs) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, docs)
	}
}

func TestBoolQuery_FilterContributesNoScore(t *testing.T) {
	r := buildReader(t, []map[string]string{
		{"body": "alpha"},
	})

	q := &BoolQuery{Filter: []Query{&TermQuery{Field: "body", Term: "alpha"}}}
	s := mustScorer(t, q, r)

	if !s.Next() {
		t.Fatal("expected a match")
	}
	if s.Score() != 0 {
		t.Errorf("filter-only score = %f, want 0", s.Score())
	}
}

func TestBoolQuery_ScoreOnlyShoulds(t *testing.T) {
	r := buildReader(t, []map[string]string{
		{"body": "alpha"},
		{"body": "alpha beta"},
	})

	must := &TermQuery{Field: "body", Term: "alpha"}
	should := &TermQuery{Field: "body", Term: "beta"}
	q := &BoolQuery{Must: []Query{must}, Should: []Query{should}}

	s := mustScorer(t, q, r)

	// Both docs match the must clause.
	if !s.Next() {
		t.Fatal("expected doc 0")
	}
	scoreWithout := s.Score()
	if !s.Next() {
		t.Fatal("expected doc 1")
	}
	scoreWith := s.Score()
	if s.Next() {
		t.Error("expected exactly 2 matches")
	}

	if scoreWith <= scoreWithout {
		t.Errorf("matching should clause must add score: with=%f without=%f", scoreWith, scoreWithout)
	}
}

// --- TopKCollector Tests ---

func TestTopKCollector_Basic(t *testing.T) {
	c := NewTopKCollector(3)

	c.Collect(1, 1.0)
	c.Collect(2, 3.0)
	c.Collect(3, 2.0)
	c.Collect(4, 5.0)
	c.Collect(5, 4.0)

	results := c.Results()
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	expectedScores := []float32{5.0, 4.0, 3.0}
	for i, r := range results {
		if r.Score != expectedScores[i] {
			t.Errorf("result[%d].Score = %f, want %f", i, r.Score, expectedScores[i])
		}
	}
}

func TestTopKCollector_TieBreaksOnDocID(t *testing.T) {
	c := NewTopKCollector(2)
	c.Collect(5, 1.0)
	c.Collect(2, 1.0)
	c.Collect(9, 1.0)

	results := c.Results()
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	// Equal scores order by ascending doc ID, and the higher doc ID loses
	// its slot.
	if results[0].DocID != 2 || results[1].DocID != 5 {
		t.Errorf("results = %v, want docs [2 5]", results)
	}
}

func TestTopKCollector_LessThanK(t *testing.T) {
	c := NewTopKCollector(10)
	c.Collect(1, 1.0)
	c.Collect(2, 2.0)

	results := c.Results()
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestTopKCollector_Empty(t *testing.T) {
	c := NewTopKCollector(10)
	if len(c.Results()) != 0 {
		t.Error("expected no results")
	}
}

// --- ExecutionContext Tests ---

func TestExecutionContext_DocLimitExceeded(t *testing.T) {
	ctx := NewExecutionContext(time.Minute, 5)
	ctx.DocsScored = 5
	if err := ctx.CheckLimits(); err != ErrDocLimitExceeded {
		t.Errorf("expected ErrDocLimitExceeded, got %v", err)
	}
	if !ctx.LimitExceeded {
		t.Error("LimitExceeded flag should be set")
	}
}

func TestExecutionContext_NoLimitExceeded(t *testing.T) {
	ctx := NewExecutionContext(time.Minute, 1000)
	ctx.DocsScored = 1
	if err := ctx.CheckLimits(); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestExecutionContext_Timeout(t *testing.T) {
	ctx := NewExecutionContext(1*time.Nanosecond, 1000)
	time.Sleep(time.Millisecond)
	// Force the amortized check to trigger.
	ctx.checkCounter = ctx.checkInterval - 1
	if err := ctx.CheckLimits(); err != ErrQueryTimeout {
		t.Errorf("expected ErrQueryTimeout, got %v", err)
	}
	if !ctx.TimedOut {
		t.Error("TimedOut flag should be set")
	}
}
