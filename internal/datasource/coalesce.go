package datasource

import (
	"context"
	"slices"

	"golang.org/x/sync/singleflight"

	"github.com/vanderheijden86/tasktree/pkg/model"
)

// Coalesced shares one in-flight fetch between concurrent callers, so a
// watcher event and a key press arriving together run `task export` once.
type Coalesced struct {
	src   Source
	group singleflight.Group
}

// Coalesce wraps src.
func Coalesce(src Source) *Coalesced {
	return &Coalesced{src: src}
}

// Fetch implements Source. Callers that joined an in-flight fetch get
// their own copy of the slice.
func (c *Coalesced) Fetch(ctx context.Context) ([]model.Task, error) {
	v, err, shared := c.group.Do("fetch", func() (any, error) {
		return c.src.Fetch(ctx)
	})
	if err != nil {
		return nil, err
	}
	tasks, _ := v.([]model.Task)
	if shared {
		tasks = slices.Clone(tasks)
	}
	return tasks, nil
}

// Describe implements Source.
func (c *Coalesced) Describe() string {
	return c.src.Describe()
}

// WatchPath implements Source.
func (c *Coalesced) WatchPath() string {
	return c.src.WatchPath()
}

// Unwrap returns the wrapped source.
func (c *Coalesced) Unwrap() Source {
	return c.src
}
