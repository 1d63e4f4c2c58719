package server

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"SearchKit/internal/analysis"
	"SearchKit/internal/engine"
)

var (
	ErrIndexNotFound = errors.New("index not found")
	ErrIndexExists   = errors.New("index already exists")
)

// Document is one document submitted for ingestion. A missing ID gets a
// generated one.
type Document struct {
	ID     string            `json:"id"`
	Fields map[string]string `json:"fields"`
}

// IndexInstance holds the runtime state of a single in-memory index.
// Ingestion takes the write lock; searches read under the read lock, so
// a reader observed by a search never mutates underneath it.
type IndexInstance struct {
	Name            string
	DefaultAnalyzer string

	mu     sync.RWMutex
	reader *engine.IndexReader

	logger *slog.Logger
}

// AddDocuments analyzes and indexes a batch. It returns the IDs under
// which the documents were indexed, in input order. A duplicate ID
// fails the whole batch.
func (inst *IndexInstance) AddDocuments(docs []Document) ([]string, error) {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	ids := make([]string, len(docs))
	for i, doc := range docs {
		id := doc.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := inst.reader.AddDocument(id, doc.Fields); err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// Snapshot runs fn with the index reader under the read lock.
func (inst *IndexInstance) Snapshot(fn func(*engine.IndexReader) error) error {
	inst.mu.RLock()
	defer inst.mu.RUnlock()
	return fn(inst.reader)
}

// DocCount returns the number of indexed documents.
func (inst *IndexInstance) DocCount() int {
	inst.mu.RLock()
	defer inst.mu.RUnlock()
	return inst.reader.DocCount()
}

// IndexInfo returns summary information about an index.
func (inst *IndexInstance) IndexInfo() map[string]any {
	return map[string]any{
		"name":             inst.Name,
		"default_analyzer": inst.DefaultAnalyzer,
		"doc_count":        inst.DocCount(),
	}
}

// IndexManager manages multiple in-memory indexes within a single process.
type IndexManager struct {
	analyzers *analysis.Registry
	logger    *slog.Logger

	mu      sync.RWMutex
	indexes map[string]*IndexInstance
}

// NewIndexManager creates an empty IndexManager.
func NewIndexManager(analyzers *analysis.Registry, logger *slog.Logger) *IndexManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexManager{
		analyzers: analyzers,
		logger:    logger,
		indexes:   make(map[string]*IndexInstance),
	}
}

// Analyzers returns the shared analyzer registry.
func (m *IndexManager) Analyzers() *analysis.Registry { return m.analyzers }

// CreateIndex creates a new empty index. An empty defaultAnalyzer means
// "standard". The analyzer must exist in the registry.
func (m *IndexManager) CreateIndex(name, defaultAnalyzer string) error {
	if defaultAnalyzer == "" {
		defaultAnalyzer = "standard"
	}
	if _, err := m.analyzers.Get(defaultAnalyzer); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.indexes[name]; exists {
		return ErrIndexExists
	}

	m.indexes[name] = &IndexInstance{
		Name:            name,
		DefaultAnalyzer: defaultAnalyzer,
		reader:          engine.NewIndexReader(m.analyzers, defaultAnalyzer),
		logger:          m.logger.With("index", name),
	}
	m.logger.Info("index created", "name", name, "analyzer", defaultAnalyzer)
	return nil
}

// DeleteIndex removes an index.
func (m *IndexManager) DeleteIndex(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.indexes[name]; !exists {
		return ErrIndexNotFound
	}
	delete(m.indexes, name)
	m.logger.Info("index deleted", "name", name)
	return nil
}

// GetIndex returns the IndexInstance for the given name.
func (m *IndexManager) GetIndex(name string) (*IndexInstance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inst, exists := m.indexes[name]
	if !exists {
		return nil, ErrIndexNotFound
	}
	return inst, nil
}

// ListIndexes returns the names of all indexes.
func (m *IndexManager) ListIndexes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.indexes))
	for name := range m.indexes {
		names = append(names, name)
	}
	return names
}
