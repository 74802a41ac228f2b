// Package atlas holds the content-addressed entities of an atlas build:
// source images, their scaled variants, atlas groups and output sheets.
// Each entity derives a hash from its inputs and asks the cache for the
// stored result before doing any image work.
package atlas

import (
	"context"
	"log/slog"

	"github.com/piwi3910/SpriteSlab/internal/cache"
	"github.com/piwi3910/SpriteSlab/internal/imaging"
	"github.com/piwi3910/SpriteSlab/internal/queue"
)

// Cache categories and entry versions. Bumping a version orphans every
// entry written under the previous one.
const (
	CategorySprite      = "sprite"
	CategoryScaled      = "scaledSprite"
	CategorySpritesheet = "spritesheet"

	spriteVersion = 1
	scaledVersion = 1
	sheetVersion  = 3
)

// Env carries the collaborators shared by every entity in a run.
type Env struct {
	Cache     cache.Cache
	Processor imaging.Processor
	Queue     *queue.Queue
	Logger    *slog.Logger
}

func (e *Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

// schedule runs fn on the shared queue and waits for its result.
func schedule[T any](ctx context.Context, q *queue.Queue, fn func() (T, error)) (T, error) {
	f, err := queue.Add(q, fn)
	if err != nil {
		var zero T
		return zero, err
	}
	return f.Wait(ctx)
}
