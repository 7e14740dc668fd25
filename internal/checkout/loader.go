package checkout

import (
	"context"
	"fmt"
	"sync"
)

// Loader lazily initializes the gateway exactly once for any number of
// concurrent holders, the way the dashboards de-duplicate the vendor script
// tag across mounts. A failed initialization is not cached: the next
// Acquire retries. When the last holder releases, the loader resets so a
// later acquire initializes again.
type Loader struct {
	mu     sync.Mutex
	refs   int
	loaded bool
	init   func(ctx context.Context) error
}

func NewLoader(init func(ctx context.Context) error) *Loader {
	return &Loader{init: init}
}

// Acquire ensures the gateway is initialized and returns a release func.
// On error nothing is held and release must not be called.
func (l *Loader) Acquire(ctx context.Context) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.loaded {
		if err := l.init(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}
		l.loaded = true
	}

	l.refs++

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.refs--
			if l.refs == 0 {
				l.loaded = false
			}
		})
	}

	return release, nil
}

// Loaded reports whether the loader currently holds an initialized gateway.
func (l *Loader) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}
