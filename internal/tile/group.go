package tile

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Group coalesces concurrent generation of the same tile so that only one
// request does the work and the rest wait for its result.
type Group struct {
	sf singleflight.Group
}

// Do runs fn once per key among concurrent callers. shared reports whether the
// result was handed to more than one caller.
func (g *Group) Do(ctx context.Context, key string, fn func(ctx context.Context) ([]byte, error)) (data []byte, shared bool, err error) {
	ch := g.sf.DoChan(key, func() (any, error) {
		// The leader's context must not cancel the work for followers.
		return fn(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Shared, res.Err
		}
		b, _ := res.Val.([]byte)
		return b, res.Shared, nil
	}
}
