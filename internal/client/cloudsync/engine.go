// Package cloudsync keeps the local vault collections in step with a remote
// Transport.
//
// Every collection runs its own cycle: Idle, Checking (fetch the remote
// blob), Merging (union by record ID, local copy wins), Uploading (push the
// local blob) and back to Idle. A local save only uploads, so deletes reach
// the cloud; a remote change only merges and uploads when it added records.
// Enabling sync does both. Cycles of one collection never overlap; a trigger
// that arrives mid-cycle is remembered and runs when the current cycle
// finishes. Failures are logged and end the cycle; the next trigger starts
// over.
package cloudsync

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/keybox/internal/client/remote"
	"github.com/dmitrijs2005/keybox/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/keybox/internal/logging"
	"github.com/dmitrijs2005/keybox/internal/timex"
)

// Collection is a vault collection the engine can merge into and upload.
type Collection interface {
	Key() string
	// MergeRemote unions blob into the local collection and reports how
	// many records were added.
	MergeRemote(ctx context.Context, blob []byte) (int, error)
	// Blob returns the encrypted local collection, nil if never saved.
	Blob(ctx context.Context) ([]byte, error)
}

type State int

const (
	Idle State = iota
	Checking
	Merging
	Uploading
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Checking:
		return "checking"
	case Merging:
		return "merging"
	case Uploading:
		return "uploading"
	default:
		return "unknown"
	}
}

// Result describes one finished cycle.
type Result struct {
	Key      string
	Added    int
	Uploaded bool
	Err      error
}

// MergeListener is told when a cycle added remote records to a collection.
type MergeListener func(ctx context.Context, key string, added int)

const DefaultRetryInterval = 30 * time.Second

var ErrUnknownCollection = errors.New("unknown collection")

// pass selects the stages of a cycle.
type pass uint8

const (
	passMerge pass = 1 << iota
	passUpload
)

type cycle struct {
	coll Collection

	// run is held for the whole cycle.
	run sync.Mutex
	// pushed is the last blob this engine uploaded; guarded by run.
	pushed []byte

	mu      sync.Mutex
	state   State
	running bool
	pending pass
}

func (c *cycle) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

type Engine struct {
	transport remote.Transport
	settings  metadata.Repository
	logger    logging.Logger
	clock     timex.Clock

	cycles map[string]*cycle
	keys   []string

	retryInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	idle      *sync.Cond
	enabled   bool
	closed    bool
	inflight  int
	stopWatch context.CancelFunc
	listeners []MergeListener
}

type Option func(*Engine)

// WithRetryInterval sets the pause before a broken Watch is re-established.
func WithRetryInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.retryInterval = d
		}
	}
}

func NewEngine(t remote.Transport, settings metadata.Repository, l logging.Logger, clock timex.Clock, colls []Collection, opts ...Option) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		transport:     t,
		settings:      settings,
		logger:        l.With("module", "cloudsync"),
		clock:         clock,
		cycles:        make(map[string]*cycle, len(colls)),
		retryInterval: DefaultRetryInterval,
		ctx:           ctx,
		cancel:        cancel,
	}
	e.idle = sync.NewCond(&e.mu)
	for _, c := range colls {
		e.cycles[c.Key()] = &cycle{coll: c}
		e.keys = append(e.keys, c.Key())
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start restores the persisted enabled flag and, when sync is on, subscribes
// to remote changes.
func (e *Engine) Start(ctx context.Context) error {
	on, err := metadata.GetBool(ctx, e.settings, metadata.KeySyncEnabled)
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.enabled = on
	e.mu.Unlock()

	if on {
		e.subscribe()
		if err := e.transport.Synchronize(ctx); err != nil {
			e.logger.Warn(ctx, "synchronize failed", "error", err)
		}
	}
	return nil
}

func (e *Engine) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// SetEnabled persists the sync flag. Turning sync on subscribes to remote
// changes, asks the transport to synchronize, then merges the remote copy
// into every collection and uploads the result before returning.
func (e *Engine) SetEnabled(ctx context.Context, on bool) ([]Result, error) {
	if err := metadata.SetBool(ctx, e.settings, metadata.KeySyncEnabled, on); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.enabled = on
	e.mu.Unlock()

	if !on {
		e.unsubscribe()
		e.logger.Info(ctx, "cloud sync disabled")
		return nil, nil
	}

	e.logger.Info(ctx, "cloud sync enabled")
	e.subscribe()
	if err := e.transport.Synchronize(ctx); err != nil {
		e.logger.Warn(ctx, "synchronize failed", "error", err)
	}
	return e.runAll(ctx, passMerge|passUpload), nil
}

// ForceSync pushes every local collection to the cloud whether or not sync
// is enabled. Nothing is merged.
func (e *Engine) ForceSync(ctx context.Context) []Result {
	return e.runAll(ctx, passUpload)
}

// ForceRestore merges the cloud copy into every local collection whether or
// not sync is enabled, uploading the collections that gained records.
func (e *Engine) ForceRestore(ctx context.Context) []Result {
	return e.runAll(ctx, passMerge)
}

func (e *Engine) runAll(ctx context.Context, p pass) []Result {
	results := make([]Result, 0, len(e.keys))
	for _, k := range e.keys {
		results = append(results, e.runCycle(ctx, e.cycles[k], p))
	}
	return results
}

// CollectionSaved schedules an upload of key after a local save. It is
// ignored while sync is disabled.
func (e *Engine) CollectionSaved(key string) {
	e.trigger(key, passUpload)
}

// HandleRemoteChange schedules a merge of key after the remote copy changed.
// It is ignored while sync is disabled.
func (e *Engine) HandleRemoteChange(key string) {
	e.trigger(key, passMerge)
}

func (e *Engine) trigger(key string, p pass) {
	e.mu.Lock()
	c, ok := e.cycles[key]
	if !ok || !e.enabled || e.closed {
		e.mu.Unlock()
		return
	}
	e.inflight++
	e.wg.Add(1)
	e.mu.Unlock()

	c.mu.Lock()
	if c.running {
		c.pending |= p
		c.mu.Unlock()
		e.done()
		return
	}
	c.running = true
	c.mu.Unlock()

	go func() {
		defer e.done()
		for {
			// a pending upload goes first so the merge cannot bring back
			// records deleted in the meantime
			if p&passUpload != 0 {
				e.runCycle(e.ctx, c, passUpload)
			}
			if p&passMerge != 0 && e.ctx.Err() == nil {
				e.runCycle(e.ctx, c, passMerge)
			}

			c.mu.Lock()
			if c.pending == 0 || e.ctx.Err() != nil {
				c.running = false
				c.pending = 0
				c.mu.Unlock()
				return
			}
			p = c.pending
			c.pending = 0
			c.mu.Unlock()
		}
	}()
}

func (e *Engine) done() {
	e.mu.Lock()
	e.inflight--
	if e.inflight == 0 {
		e.idle.Broadcast()
	}
	e.mu.Unlock()
	e.wg.Done()
}

// runCycle runs the stages p selects. With passMerge the remote blob is
// fetched and merged first; the local blob is then pushed when p has
// passUpload or the merge added records.
func (e *Engine) runCycle(ctx context.Context, c *cycle, p pass) Result {
	c.run.Lock()
	defer c.run.Unlock()
	defer c.setState(Idle)

	key := c.coll.Key()
	res := Result{Key: key}
	log := e.logger.With("collection", key)

	if p&passMerge != 0 {
		c.setState(Checking)
		blob, err := e.transport.Get(ctx, key)
		if err != nil {
			log.Error(ctx, "fetch remote collection failed", "error", err)
			res.Err = err
			return res
		}

		if bytes.Equal(blob, c.pushed) {
			// our own upload coming back
			blob = nil
		}

		c.setState(Merging)
		added, err := c.coll.MergeRemote(ctx, blob)
		if err != nil {
			log.Error(ctx, "merge failed", "error", err)
			res.Err = err
			return res
		}
		res.Added = added
	}
	added := res.Added

	if added == 0 && p&passUpload == 0 {
		log.Debug(ctx, "nothing new from cloud")
		return res
	}

	c.setState(Uploading)
	local, err := c.coll.Blob(ctx)
	if err != nil {
		log.Error(ctx, "read local collection failed", "error", err)
		res.Err = err
		return res
	}
	if len(local) > 0 {
		if err := e.transport.Set(ctx, key, local); err != nil {
			log.Error(ctx, "upload failed", "error", err)
			res.Err = err
			return res
		}
		res.Uploaded = true
		c.pushed = local
		if err := e.transport.Synchronize(ctx); err != nil {
			log.Warn(ctx, "synchronize failed", "error", err)
		}
	}

	if err := metadata.SetTime(ctx, e.settings, metadata.KeyLastSyncAt, e.clock.Now()); err != nil {
		log.Warn(ctx, "record last sync time failed", "error", err)
	}
	log.Info(ctx, "sync cycle finished", "added", added, "uploaded", res.Uploaded, "size", len(local))

	if added > 0 {
		e.notifyMerged(ctx, key, added)
	}
	return res
}

func (e *Engine) notifyMerged(ctx context.Context, key string, added int) {
	e.mu.Lock()
	ls := append([]MergeListener(nil), e.listeners...)
	e.mu.Unlock()

	for _, fn := range ls {
		fn(ctx, key, added)
	}
}

// OnMerged registers fn to run after a cycle added remote records.
func (e *Engine) OnMerged(fn MergeListener) {
	e.mu.Lock()
	e.listeners = append(e.listeners, fn)
	e.mu.Unlock()
}

func (e *Engine) subscribe() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.stopWatch != nil {
		return
	}

	ctx, cancel := context.WithCancel(e.ctx)
	e.stopWatch = cancel
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.watchLoop(ctx)
	}()
}

func (e *Engine) unsubscribe() {
	e.mu.Lock()
	stop := e.stopWatch
	e.stopWatch = nil
	e.mu.Unlock()

	if stop != nil {
		stop()
	}
}

func (e *Engine) watchLoop(ctx context.Context) {
	for {
		err := e.transport.Watch(ctx, e.keys, e.HandleRemoteChange)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			e.logger.Warn(ctx, "watch interrupted", "error", err, "retry_in", e.retryInterval)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(e.retryInterval):
		}
	}
}

// LastSync reports when a cycle last completed an upload or merge.
func (e *Engine) LastSync(ctx context.Context) (time.Time, bool, error) {
	return metadata.GetTime(ctx, e.settings, metadata.KeyLastSyncAt)
}

// State reports the current stage of key's cycle.
func (e *Engine) State(key string) (State, error) {
	c, ok := e.cycles[key]
	if !ok {
		return Idle, ErrUnknownCollection
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, nil
}

// Keys lists the synchronized collections in registration order.
func (e *Engine) Keys() []string {
	return append([]string(nil), e.keys...)
}

// Wait blocks until every scheduled cycle has finished.
func (e *Engine) Wait() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for e.inflight > 0 {
		e.idle.Wait()
	}
}

// Close stops watching and waits for in-flight cycles.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.unsubscribe()
	e.cancel()
	e.wg.Wait()
	return nil
}
