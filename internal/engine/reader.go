package engine

import (
	"errors"

	"SearchKit/internal/analysis"
)

var (
	ErrDuplicateDoc = errors.New("duplicate document ID in index")
	ErrUnknownDocID = errors.New("unknown document ID")
)

// PostingEntry is a single posting for a term in a field.
type PostingEntry struct {
	DocID uint32
	Freq  uint32
}

// PostingsList accumulates postings for a single term in a single field.
// Entries are kept in ascending doc ID order.
type PostingsList struct {
	Entries []PostingEntry
}

// IndexReader is an in-memory single-shard inverted index.
// Documents are added during a single-threaded build phase; once the
// reader is published to searchers it is read-only and safe for
// unsynchronized concurrent reads.
type IndexReader struct {
	// inverted: field → term → postings list.
	inverted map[string]map[string]*PostingsList

	// fieldLens: field → doc ID → analyzed token count.
	fieldLens   map[string]map[uint32]uint32
	fieldTotals map[string]uint64

	// external maps internal doc IDs (slice index) to external IDs.
	external           []string
	externalToInternal map[string]uint32

	// stored: doc ID → field → original value.
	stored map[uint32]map[string]string

	analyzers       *analysis.Registry
	defaultAnalyzer string
}

// NewIndexReader creates an empty reader that analyzes incoming fields
// with the given registry. If defaultAnalyzer is empty, "standard" is used.
func NewIndexReader(analyzers *analysis.Registry, defaultAnalyzer string) *IndexReader {
	if defaultAnalyzer == "" {
		defaultAnalyzer = "standard"
	}
	return &IndexReader{
		inverted:           make(map[string]map[string]*PostingsList),
		fieldLens:          make(map[string]map[uint32]uint32),
		fieldTotals:        make(map[string]uint64),
		externalToInternal: make(map[string]uint32),
		stored:             make(map[uint32]map[string]string),
		analyzers:          analyzers,
		defaultAnalyzer:    defaultAnalyzer,
	}
}

// AddDocument analyzes and indexes a document. It must only be called
// during the build phase, before the reader is shared.
func (r *IndexReader) AddDocument(externalID string, fields map[string]string) (uint32, error) {
	if _, exists := r.externalToInternal[externalID]; exists {
		return 0, ErrDuplicateDoc
	}

	analyzer, err := r.analyzers.Get(r.defaultAnalyzer)
	if err != nil {
		return 0, err
	}

	docID := uint32(len(r.external))
	r.external = append(r.external, externalID)
	r.externalToInternal[externalID] = docID

	storedFields := make(map[string]string, len(fields))
	for field, value := range fields {
		storedFields[field] = value

		tokens := analyzer.Analyze(field, value)
		freqs := make(map[string]uint32, len(tokens))
		for _, tok := range tokens {
			freqs[tok.Term]++
		}
		for term, freq := range freqs {
			r.addPosting(field, term, docID, freq)
		}

		lens, ok := r.fieldLens[field]
		if !ok {
			lens = make(map[uint32]uint32)
			r.fieldLens[field] = lens
		}
		lens[docID] = uint32(len(tokens))
		r.fieldTotals[field] += uint64(len(tokens))
	}
	r.stored[docID] = storedFields

	return docID, nil
}

func (r *IndexReader) addPosting(field, term string, docID uint32, freq uint32) {
	fieldMap, ok := r.inverted[field]
	if !ok {
		fieldMap = make(map[string]*PostingsList)
		r.inverted[field] = fieldMap
	}
	pl, ok := fieldMap[term]
	if !ok {
		pl = &PostingsList{}
		fieldMap[term] = pl
	}
	pl.Entries = append(pl.Entries, PostingEntry{DocID: docID, Freq: freq})
}

// Postings returns the postings list for a term, or nil if absent.
func (r *IndexReader) Postings(field, term string) *PostingsList {
	fieldMap, ok := r.inverted[field]
	if !ok {
		return nil
	}
	return fieldMap[term]
}

// DocFreq returns the number of documents containing the term.
func (r *IndexReader) DocFreq(field, term string) int64 {
	pl := r.Postings(field, term)
	if pl == nil {
		return 0
	}
	return int64(len(pl.Entries))
}

// DocCount returns the number of documents in the reader.
func (r *IndexReader) DocCount() int {
	return len(r.external)
}

// MaxDoc returns one past the highest assigned doc ID.
func (r *IndexReader) MaxDoc() uint32 {
	return uint32(len(r.external))
}

// AvgFieldLength returns the mean analyzed length of a field across all
// documents, or 1 when the field is unseen (avoids zero denominators).
func (r *IndexReader) AvgFieldLength(field string) float32 {
	lens, ok := r.fieldLens[field]
	if !ok || len(lens) == 0 {
		return 1
	}
	return float32(r.fieldTotals[field]) / float32(len(lens))
}

// DocLength returns the analyzed token count of a field in a document.
func (r *IndexReader) DocLength(field string, docID uint32) uint32 {
	lens, ok := r.fieldLens[field]
	if !ok {
		return 0
	}
	return lens[docID]
}

// ExternalID maps an internal doc ID back to the caller-supplied ID.
func (r *IndexReader) ExternalID(docID uint32) (string, error) {
	if int(docID) >= len(r.external) {
		return "", ErrUnknownDocID
	}
	return r.external[docID], nil
}

// StoredFields returns the stored field values of a document, or nil.
func (r *IndexReader) StoredFields(docID uint32) map[string]string {
	return r.stored[docID]
}
