package dag

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Execute runs fn for every node, level by level. Nodes within a level run
// concurrently, at most limit at a time (limit <= 0 means unbounded). The
// first error cancels the context passed to the remaining calls, and no
// further level is started.
func (g *Graph[T]) Execute(ctx context.Context, limit int, fn func(ctx context.Context, node *Node[T]) error) error {
	levels, err := g.GetExecutionLevels()
	if err != nil {
		return err
	}

	for _, level := range levels {
		eg, egCtx := errgroup.WithContext(ctx)
		if limit > 0 {
			eg.SetLimit(limit)
		}
		for _, id := range level {
			node := g.nodes[id]
			eg.Go(func() error {
				if err := egCtx.Err(); err != nil {
					return err
				}
				return fn(egCtx, node)
			})
		}
		if err := eg.Wait(); err != nil {
			return err
		}
	}
	return nil
}
