package dsl

import (
	"encoding/binary"
	"hash"
	"hash/fnv"
	"math"

	"SearchKit/internal/engine"
)

// DefaultBoost is the score multiplier applied when a clause does not set one.
const DefaultBoost float32 = 1.0

// QueryBuilder is one node in the declarative query expression tree.
//
// Builders are constructed directly or by parsing, may have boost and
// query name set during the single-threaded construction phase, and are
// treated as immutable once published into a shared tree. Rewrite and
// ToQuery are pure with respect to the receiver, so a published tree is
// safe for unsynchronized concurrent reads.
type QueryBuilder interface {
	// WriteableName returns the clause name the builder is registered under.
	WriteableName() string

	// Boost returns the score multiplier for this clause.
	Boost() float32

	// SetBoost sets the score multiplier. Only valid before the builder
	// is published into a shared tree.
	SetBoost(boost float32)

	// QueryName returns the optional user-assigned label, or "".
	QueryName() string

	// SetQueryName sets the user-assigned label. Only valid before the
	// builder is published into a shared tree.
	SetQueryName(name string)

	// Rewrite returns an equivalent, possibly simpler builder. It returns
	// the receiver itself (same reference) when no rewrite applies, so
	// callers can loop until a fixed point using identity comparison.
	Rewrite(ctx *RewriteContext) (QueryBuilder, error)

	// ToQuery compiles the builder into an executable query. A (nil, nil)
	// return signals absence: the clause imposes no constraint and
	// enclosing composites ignore it. Boost is not applied here; the
	// shared CompileQuery step applies it for every variant.
	ToQuery(ctx *ShardContext) (engine.Query, error)

	// WriteTo encodes the variant-specific payload to the wire stream.
	// Shared boost/name metadata is written by StreamOutput.WriteQuery.
	WriteTo(out *StreamOutput) error

	// EqualTo reports structural equality of variant-specific fields.
	// Shared metadata is compared by Equal.
	EqualTo(other QueryBuilder) bool

	// HashInto mixes the variant-specific fields into h. Shared metadata
	// is mixed by Hash / HashQueryInto.
	HashInto(h hash.Hash64)

	// SourceBody returns the variant-specific fields of the structured
	// clause body. Shared metadata is added by Source.
	SourceBody() map[string]any
}

// baseBuilder holds the shared metadata every clause carries.
type baseBuilder struct {
	boost     float32
	queryName string
}

func newBaseBuilder() baseBuilder {
	return baseBuilder{boost: DefaultBoost}
}

func (b *baseBuilder) Boost() float32           { return b.boost }
func (b *baseBuilder) SetBoost(boost float32)   { b.boost = boost }
func (b *baseBuilder) QueryName() string        { return b.queryName }
func (b *baseBuilder) SetQueryName(name string) { b.queryName = name }

// copyBaseTo carries shared metadata onto a builder produced by a rewrite.
func copyBaseTo(dst, src QueryBuilder) QueryBuilder {
	dst.SetBoost(src.Boost())
	dst.SetQueryName(src.QueryName())
	return dst
}

// Equal reports whether two builders are structurally equal, including
// the shared boost and query name compared once at this level.
func Equal(a, b QueryBuilder) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a == b {
		return true
	}
	if a.WriteableName() != b.WriteableName() {
		return false
	}
	if a.Boost() != b.Boost() || a.QueryName() != b.QueryName() {
		return false
	}
	return a.EqualTo(b)
}

// Hash returns a structural hash consistent with Equal: builders that
// compare equal always hash equal.
func Hash(b QueryBuilder) uint64 {
	h := fnv.New64a()
	HashQueryInto(h, b)
	return h.Sum64()
}

// HashQueryInto mixes a builder, including its shared metadata, into h.
// Composite builders use it for their nested clauses so metadata is
// counted exactly once per node.
func HashQueryInto(h hash.Hash64, b QueryBuilder) {
	hashString(h, b.WriteableName())
	hashUint32(h, math.Float32bits(b.Boost()))
	hashString(h, b.QueryName())
	b.HashInto(h)
}

func hashString(h hash.Hash64, s string) {
	hashUint32(h, uint32(len(s)))
	h.Write([]byte(s))
}

func hashUint32(h hash.Hash64, v uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	h.Write(buf[:])
}

// CompileQuery compiles a builder and applies its boost. This is the
// shared post-compilation step: variants never scale their own scores.
// Absence (nil query) passes through untouched.
func CompileQuery(b QueryBuilder, ctx *ShardContext) (engine.Query, error) {
	q, err := b.ToQuery(ctx)
	if err != nil || q == nil {
		return nil, err
	}
	if b.Boost() != DefaultBoost {
		q = &engine.BoostQuery{Inner: q, Boost: b.Boost()}
	}
	return q, nil
}

// Source renders a builder back to its structured clause form,
// {"<name>": {<variant fields>, "boost": ..., "_name": ...}}.
func Source(b QueryBuilder) map[string]any {
	body := b.SourceBody()
	body["boost"] = b.Boost()
	if b.QueryName() != "" {
		body["_name"] = b.QueryName()
	}
	return map[string]any{b.WriteableName(): body}
}
