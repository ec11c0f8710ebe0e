package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dCRUD/lib/common"
	"github.com/ValentinKolb/dCRUD/lib/mapper"
	"github.com/ValentinKolb/dCRUD/lib/pool"
	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/time/rate"
)

var log = logger.GetLogger(common.LoggerDispatch)

var errMailboxClosed = errors.New("mailbox closed")

// Submitter accepts command envelopes. It is implemented by Dispatcher and Router.
type Submitter[I comparable, T any] interface {
	Submit(ctx context.Context, cmd Command[I, T]) error
}

// Dispatcher serializes commands against a pool: it takes one envelope at a
// time from its mailbox, leases a connection, runs the mapper operation and
// resolves the envelope's reply. At most one connection is leased at a time.
type Dispatcher[C any, I comparable, T any] struct {
	cfg     common.DispatcherConfig
	opts    options
	mapper  mapper.IMapper[C, I, T]
	pool    pool.IPool[C]
	mailbox mailbox[Command[I, T]]
	limiter *rate.Limiter
	metrics *dispatchMetrics

	// ctx is passed to the pool and the mapper, it ends after the loop exited
	ctx    context.Context
	cancel context.CancelFunc

	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}

	stopped atomic.Bool
	errMu   sync.Mutex
	err     error
}

// New creates a dispatcher. It does not process envelopes before Start is called,
// envelopes submitted earlier wait in the mailbox.
func New[C any, I comparable, T any](m mapper.IMapper[C, I, T], p pool.IPool[C], cfg common.DispatcherConfig, opts ...Option) *Dispatcher[C, I, T] {
	if cfg.Name == "" {
		cfg.Name = common.DefaultDispatcherConfig().Name
	}

	d := &Dispatcher[C, I, T]{
		cfg:     cfg,
		opts:    defaultOptions(),
		mapper:  m,
		pool:    p,
		mailbox: newMailbox[Command[I, T]](cfg.QueueSize),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(&d.opts)
	}

	switch {
	case d.opts.limiter != nil:
		d.limiter = d.opts.limiter
	case cfg.RateLimit > 0:
		d.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.RateBurst, 1))
	}

	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.metrics = newDispatchMetrics(cfg.Name, d.mailbox.len)
	return d
}

// Start launches the dispatch loop. Further calls are no-ops.
func (d *Dispatcher[C, I, T]) Start() {
	d.startOnce.Do(func() {
		log.Infof("%s: dispatcher started", d.cfg.Name)
		go d.run()
	})
}

// Submit hands cmd to the dispatcher. It suspends while a bounded mailbox is full.
// If the envelope is not accepted, its reply is resolved with the returned error:
// DispatcherClosed after Close, PoolClosed after the pool was closed, or the
// ctx error.
func (d *Dispatcher[C, I, T]) Submit(ctx context.Context, cmd Command[I, T]) error {
	if cmd == nil {
		return errors.New("dispatch: nil command")
	}

	var err error
	if d.stopped.Load() {
		err = d.poolClosed()
	} else if err = d.mailbox.put(ctx, cmd); errors.Is(err, errMailboxClosed) {
		if d.stopped.Load() {
			err = d.poolClosed()
		} else {
			err = mapper.NewError(mapper.RetCDispatcherClosed, fmt.Sprintf("dispatcher %s is closed", d.cfg.Name))
		}
	}

	if err != nil {
		cmd.Fail(err)
		return err
	}
	return nil
}

// Close stops accepting envelopes, processes the ones already accepted and
// returns after the loop exited. A dispatcher that was never started is
// started to drain its mailbox. Close returns the fatal error if the loop was
// stopped by one.
func (d *Dispatcher[C, I, T]) Close() error {
	d.closeOnce.Do(func() {
		d.mailbox.close()
		d.Start()
		<-d.done
		d.cancel()
	})
	return d.Err()
}

// Done is closed once the loop exited.
func (d *Dispatcher[C, I, T]) Done() <-chan struct{} {
	return d.done
}

// Err returns the error that stopped the loop, nil if it was not stopped by one.
func (d *Dispatcher[C, I, T]) Err() error {
	d.errMu.Lock()
	defer d.errMu.Unlock()
	return d.err
}

// Name returns the configured name.
func (d *Dispatcher[C, I, T]) Name() string {
	return d.cfg.Name
}

// QueueLen returns the number of envelopes waiting in the mailbox.
func (d *Dispatcher[C, I, T]) QueueLen() int {
	return d.mailbox.len()
}

// Processed returns the number of envelopes the dispatcher has resolved.
func (d *Dispatcher[C, I, T]) Processed() uint64 {
	return d.metrics.total()
}

// WriteMetrics writes the dispatcher's metrics in Prometheus text format to w.
func (d *Dispatcher[C, I, T]) WriteMetrics(w io.Writer) {
	d.metrics.write(w)
}

// --------------------------------------------------------------------------
// Dispatch loop
// --------------------------------------------------------------------------

func (d *Dispatcher[C, I, T]) run() {
	defer close(d.done)

	for cmd := range d.mailbox.recv() {
		if d.stopped.Load() {
			d.reject(cmd)
			continue
		}
		d.handle(cmd)
	}

	log.Infof("%s: dispatcher stopped", d.cfg.Name)
}

// handle processes one envelope, its reply is settled on every path. The
// connection is back in the pool and the metrics are updated before the
// caller can observe the reply.
func (d *Dispatcher[C, I, T]) handle(cmd Command[I, T]) {
	op := cmd.Op()
	start := time.Now()

	defer func() {
		if !cmd.settled() {
			cmd.Fail(mapper.NewError(mapper.RetCBackendError, fmt.Sprintf("%s: envelope was not resolved", op)))
		}
	}()

	if d.limiter != nil {
		if err := d.limiter.Wait(d.ctx); err != nil {
			err = mapper.AsBackendError(err)
			d.finish(cmd, start, err)
			cmd.Fail(err)
			return
		}
	}

	h, err := d.acquire()
	if err != nil {
		d.finish(cmd, start, err)
		cmd.Fail(err)
		if errors.Is(err, mapper.ErrPoolClosed) {
			d.stop(err)
		}
		return
	}

	resolve, broken, err := d.execute(h.Conn(), cmd)
	if broken {
		h.Discard()
	} else {
		h.Release()
	}
	d.finish(cmd, start, err)
	resolve()
}

// execute runs the mapper operation of cmd on conn. The returned resolve
// delivers the result to the reply. A panicking mapper is reported as
// BackendError and marks the connection broken.
func (d *Dispatcher[C, I, T]) execute(conn C, cmd Command[I, T]) (resolve func() bool, broken bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			perr := mapper.NewError(mapper.RetCBackendError, fmt.Sprintf("%s panicked: %v", cmd.Op(), r))
			log.Errorf("%s: %v", d.cfg.Name, perr)
			resolve = func() bool { return cmd.Fail(perr) }
			broken = true
			err = perr
		}
	}()

	switch c := cmd.(type) {
	case *ReadList[I, T]:
		list, err := d.mapper.ReadList(d.ctx, conn)
		err = mapper.AsBackendError(err)
		return func() bool { return c.Reply.Resolve(list, err) }, false, err
	case *ReadByID[I, T]:
		data, err := d.mapper.ReadByID(d.ctx, conn, c.ID)
		err = mapper.AsBackendError(err)
		return func() bool { return c.Reply.Resolve(data, err) }, false, err
	case *Create[I, T]:
		data, err := d.mapper.Create(d.ctx, conn, c.Data)
		err = mapper.AsBackendError(err)
		return func() bool { return c.Reply.Resolve(data, err) }, false, err
	case *Update[I, T]:
		data, err := d.mapper.Update(d.ctx, conn, c.Data)
		err = mapper.AsBackendError(err)
		return func() bool { return c.Reply.Resolve(data, err) }, false, err
	case *DeleteByID[I, T]:
		data, err := d.mapper.DeleteByID(d.ctx, conn, c.ID)
		err = mapper.AsBackendError(err)
		return func() bool { return c.Reply.Resolve(data, err) }, false, err
	default:
		err := mapper.NewError(mapper.RetCBackendError, fmt.Sprintf("unsupported command %T", cmd))
		return func() bool { return cmd.Fail(err) }, false, err
	}
}

// finish records the outcome of one envelope, it runs before the reply is
// resolved
func (d *Dispatcher[C, I, T]) finish(cmd Command[I, T], start time.Time, err error) {
	op := cmd.Op()
	switch {
	case cmd.receiverGone():
		log.Debugf("%s: %s finished after the caller stopped waiting (err: %v)", d.cfg.Name, op, err)
		d.metrics.observe(op, resultDropped, start)
	case err != nil:
		log.Debugf("%s: %s failed: %v", d.cfg.Name, op, err)
		d.metrics.observe(op, resultError, start)
	default:
		d.metrics.observe(op, resultOK, start)
	}
}

// reject resolves an envelope that arrived after a fatal stop
func (d *Dispatcher[C, I, T]) reject(cmd Command[I, T]) {
	err := d.poolClosed()
	d.finish(cmd, time.Now(), err)
	cmd.Fail(err)
}

// --------------------------------------------------------------------------
// Pool acquisition
// --------------------------------------------------------------------------

// acquire leases a connection, timeouts are retried AcquireRetries times with backoff
func (d *Dispatcher[C, I, T]) acquire() (*pool.Handle[C], error) {
	defer d.metrics.acquire.UpdateDuration(time.Now())

	var err error
	for attempt := 0; attempt <= d.cfg.AcquireRetries; attempt++ {
		if attempt > 0 {
			d.metrics.retries.Inc()
			wait := d.backoff(attempt)
			log.Debugf("%s: pool exhausted, retry %d/%d in %s", d.cfg.Name, attempt, d.cfg.AcquireRetries, wait)

			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-d.ctx.Done():
				timer.Stop()
				return nil, mapper.AsBackendError(d.ctx.Err())
			}
		}

		var h *pool.Handle[C]
		h, err = d.acquireOnce()
		if err == nil {
			return h, nil
		}
		if !errors.Is(err, mapper.ErrPoolExhaustedTimeout) {
			return nil, err
		}
	}
	log.Warningf("%s: %v", d.cfg.Name, err)
	return nil, err
}

func (d *Dispatcher[C, I, T]) acquireOnce() (*pool.Handle[C], error) {
	ctx := d.ctx
	if d.cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(d.ctx, d.cfg.AcquireTimeout)
		defer cancel()
	}

	h, err := d.pool.Acquire(ctx)
	switch {
	case err == nil:
		return h, nil
	case errors.Is(err, pool.ErrClosed):
		return nil, mapper.WrapError(mapper.RetCPoolClosed, "acquire connection", err)
	case errors.Is(err, pool.ErrExhausted),
		errors.Is(err, context.DeadlineExceeded) && d.ctx.Err() == nil:
		return nil, mapper.WrapError(mapper.RetCPoolExhaustedTimeout, "acquire connection", err)
	default:
		return nil, mapper.WrapError(mapper.RetCBackendError, "acquire connection", err)
	}
}

// backoff returns the jittered delay before retry number attempt (>= 1)
func (d *Dispatcher[C, I, T]) backoff(attempt int) time.Duration {
	wait := d.opts.backoffBase << (attempt - 1)
	if wait <= 0 || wait > d.opts.backoffMax {
		wait = d.opts.backoffMax
	}
	half := wait / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

// --------------------------------------------------------------------------
// Fatal stop
// --------------------------------------------------------------------------

// stop ends intake after an unrecoverable pool failure, the loop then
// resolves every remaining envelope with PoolClosed
func (d *Dispatcher[C, I, T]) stop(cause error) {
	d.errMu.Lock()
	if d.err == nil {
		d.err = cause
	}
	d.errMu.Unlock()

	if d.stopped.CompareAndSwap(false, true) {
		log.Errorf("%s: stopping dispatcher: %v", d.cfg.Name, cause)
		d.mailbox.close()
	}
}

func (d *Dispatcher[C, I, T]) poolClosed() error {
	if err := d.Err(); err != nil {
		return err
	}
	return mapper.ErrPoolClosed
}

var _ Submitter[string, struct{}] = (*Dispatcher[struct{}, string, struct{}])(nil)
