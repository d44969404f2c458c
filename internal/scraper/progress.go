package scraper

import "context"

// Stage marks where a site is in its visit.
type Stage string

const (
	StageFetching Stage = "fetching"
	StageDone     Stage = "done"
	StageFailed   Stage = "failed"
	StageSaving   Stage = "saving"
)

// Progress is one step of a run, reported as it happens.
type Progress struct {
	Site  string
	Index int // 1-based position in the registry
	Total int
	Stage Stage
	Count int // products found, for StageDone
}

// ProgressFunc receives progress updates.
type ProgressFunc func(p Progress)

type progressKey struct{}

// WithProgress returns a context carrying the given progress callback.
func WithProgress(ctx context.Context, fn ProgressFunc) context.Context {
	return context.WithValue(ctx, progressKey{}, fn)
}

// ReportProgress calls the progress callback in ctx, if any.
func ReportProgress(ctx context.Context, p Progress) {
	if fn, ok := ctx.Value(progressKey{}).(ProgressFunc); ok && fn != nil {
		fn(p)
	}
}
