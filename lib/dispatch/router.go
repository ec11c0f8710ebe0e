package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/ValentinKolb/dCRUD/lib/common"
	"github.com/ValentinKolb/dCRUD/lib/mapper"
	"github.com/ValentinKolb/dCRUD/lib/pool"
	"github.com/ValentinKolb/dCRUD/lib/util"
)

type routerOptions[I comparable, T any] struct {
	routeKey func(T) I
	seed     uint64
	opts     []Option
}

// RouterOption configures a Router.
type RouterOption[I comparable, T any] func(*routerOptions[I, T])

// WithRouteKey lets the router route Create and Update by the key of the entity,
// without it those commands are distributed round-robin.
func WithRouteKey[I comparable, T any](keyOf func(T) I) RouterOption[I, T] {
	return func(o *routerOptions[I, T]) {
		o.routeKey = keyOf
	}
}

// WithSeed fixes the seed of the key hash (default: random per router).
func WithSeed[I comparable, T any](seed uint64) RouterOption[I, T] {
	return func(o *routerOptions[I, T]) {
		o.seed = seed
	}
}

// WithDispatcherOptions passes opts to every dispatcher of the router.
func WithDispatcherOptions[I comparable, T any](opts ...Option) RouterOption[I, T] {
	return func(o *routerOptions[I, T]) {
		o.opts = append(o.opts, opts...)
	}
}

// Router runs cfg.Dispatchers dispatchers against one pool. Commands that
// address a key always go to the same dispatcher, so the commands of one key
// are processed in submission order. Other commands are distributed round-robin.
type Router[C any, I comparable, T any] struct {
	dispatchers []*Dispatcher[C, I, T]
	routeKey    func(T) I
	seed        uint64
	next        atomic.Uint64
}

// NewRouter creates the dispatchers of a router, they are named <cfg.Name>-<index>.
func NewRouter[C any, I comparable, T any](m mapper.IMapper[C, I, T], p pool.IPool[C], cfg common.DispatcherConfig, opts ...RouterOption[I, T]) *Router[C, I, T] {
	o := routerOptions[I, T]{seed: util.GenerateSeed()}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.Name == "" {
		cfg.Name = common.DefaultDispatcherConfig().Name
	}

	n := max(cfg.Dispatchers, 1)
	r := &Router[C, I, T]{
		dispatchers: make([]*Dispatcher[C, I, T], n),
		routeKey:    o.routeKey,
		seed:        o.seed,
	}
	for i := range r.dispatchers {
		dcfg := cfg
		dcfg.Name = fmt.Sprintf("%s-%d", cfg.Name, i)
		r.dispatchers[i] = New(m, p, dcfg, o.opts...)
	}
	return r
}

// Start starts all dispatchers.
func (r *Router[C, I, T]) Start() {
	for _, d := range r.dispatchers {
		d.Start()
	}
}

// Submit routes cmd to one of the dispatchers (see Dispatcher.Submit).
func (r *Router[C, I, T]) Submit(ctx context.Context, cmd Command[I, T]) error {
	if cmd == nil {
		return errors.New("dispatch: nil command")
	}
	return r.dispatchers[r.route(cmd)].Submit(ctx, cmd)
}

// Close closes all dispatchers and returns their fatal errors.
func (r *Router[C, I, T]) Close() error {
	errs := make([]error, 0, len(r.dispatchers))
	for _, d := range r.dispatchers {
		if err := d.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Dispatchers returns the dispatchers of the router.
func (r *Router[C, I, T]) Dispatchers() []*Dispatcher[C, I, T] {
	return r.dispatchers
}

// WriteMetrics writes the metrics of all dispatchers to w.
func (r *Router[C, I, T]) WriteMetrics(w io.Writer) {
	for _, d := range r.dispatchers {
		d.WriteMetrics(w)
	}
}

// route returns the index of the dispatcher for cmd
func (r *Router[C, I, T]) route(cmd Command[I, T]) int {
	n := uint64(len(r.dispatchers))
	if n == 1 {
		return 0
	}
	if key, ok := r.keyOf(cmd); ok {
		return int(util.HashKey(key, r.seed) % n)
	}
	return int(r.next.Add(1) % n)
}

func (r *Router[C, I, T]) keyOf(cmd Command[I, T]) (I, bool) {
	var zero I
	switch c := cmd.(type) {
	case *ReadByID[I, T]:
		return c.ID, true
	case *DeleteByID[I, T]:
		return c.ID, true
	case *Create[I, T]:
		if r.routeKey != nil {
			return r.routeKey(c.Data), true
		}
	case *Update[I, T]:
		if r.routeKey != nil {
			return r.routeKey(c.Data), true
		}
	}
	return zero, false
}

var _ Submitter[string, struct{}] = (*Router[struct{}, string, struct{}])(nil)
