package engine

import (
	"errors"
	"time"
)

var (
	ErrQueryTimeout     = errors.New("query execution timeout")
	ErrDocLimitExceeded = errors.New("scored document limit exceeded")
)

// ExecutionContext tracks execution limits and timeout for one search
// request. It is request-scoped and must not be shared between requests.
type ExecutionContext struct {
	Deadline time.Time

	MaxDocsScored int
	DocsScored    int

	// checkCounter amortizes time checks.
	checkCounter  int
	checkInterval int

	TimedOut      bool
	LimitExceeded bool
}

// NewExecutionContext creates a context with the given timeout and limit.
func NewExecutionContext(timeout time.Duration, maxDocs int) *ExecutionContext {
	if maxDocs <= 0 {
		maxDocs = 100_000
	}
	return &ExecutionContext{
		Deadline:      time.Now().Add(timeout),
		MaxDocsScored: maxDocs,
		checkInterval: 128,
	}
}

// CheckLimits checks whether any execution limit has been exceeded.
// Time checks are amortized to avoid calling time.Now() on every iteration.
func (ctx *ExecutionContext) CheckLimits() error {
	if ctx.DocsScored >= ctx.MaxDocsScored {
		ctx.LimitExceeded = true
		return ErrDocLimitExceeded
	}

	ctx.checkCounter++
	if ctx.checkCounter%ctx.checkInterval == 0 {
		if time.Now().After(ctx.Deadline) {
			ctx.TimedOut = true
			return ErrQueryTimeout
		}
	}
	return nil
}
