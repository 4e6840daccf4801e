// Package cache holds the in-process employee directory cache: a full roster snapshot keyed by
// lowercased email, refreshed wholesale from the directory at most once per TTL.
//
// Reads of a single key are lock-free: the roster lives behind an atomically swapped, never
// mutated map. The swap and the fullyLoaded/lastRefresh pair change together under mu, so a reader
// holding mu never sees a loaded flag next to a half-built map. Anything that iterates the roster
// must go through mu as well. A separate CAS flag admits at most one refresh at a time.
package cache

import (
	"commitlens/internal/ports"
	"commitlens/internal/state"
	"commitlens/internal/types"
	"commitlens/internal/worker"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultTTL = 24 * time.Hour

	// DefaultCheckInterval is how often RunAutoRefresh looks at the cache age.
	DefaultCheckInterval = time.Hour

	// waitPoll is the polling interval used while waiting for an in-flight refresh to finish.
	waitPoll = 20 * time.Millisecond
)

// EmailMapper normalizes a raw address before it is used as a cache key.
type EmailMapper interface {
	Map(email string) string
}

// RefreshOutcome describes one refresh attempt.
type RefreshOutcome struct {
	RunID    string
	OK       bool
	Count    int
	Err      error
	Started  time.Time
	Duration time.Duration
}

// Stats is a point-in-time view of the cache for health reporting.
type Stats struct {
	Entries     int       `json:"entries"`
	FullyLoaded bool      `json:"fullyLoaded"`
	LastRefresh time.Time `json:"lastRefresh"`
	Refreshing  bool      `json:"refreshing"`
	Fetches     int64     `json:"fetches"`
}

type Directory struct {
	fetcher     ports.DirectoryFetcher
	mapper      EmailMapper
	store       ports.StateStore
	creds       ports.CredentialStore
	dispatcher  ports.Dispatcher
	interactive func(context.Context) bool
	onRefresh   func(context.Context, RefreshOutcome)
	now         func() time.Time
	ttl         time.Duration

	entries atomic.Pointer[map[string]types.CacheEntry]

	mu          sync.Mutex
	fullyLoaded bool
	lastRefresh time.Time

	refreshing atomic.Bool
	fetches    atomic.Int64
}

type Option func(*Directory)

// WithStateStore persists the roster after each successful refresh and enables Save/Load.
func WithStateStore(s ports.StateStore) Option {
	return func(d *Directory) { d.store = s }
}

// WithCredentialStore is where SetCredentials writes new directory credentials.
func WithCredentialStore(c ports.CredentialStore) Option {
	return func(d *Directory) { d.creds = c }
}

// WithDispatcher sends stale-triggered refreshes to disp when interactive(ctx) is true for the
// calling context. A nil interactive check defaults to worker.IsInteractive.
func WithDispatcher(disp ports.Dispatcher, interactive func(context.Context) bool) Option {
	return func(d *Directory) {
		d.dispatcher = disp
		if interactive != nil {
			d.interactive = interactive
		}
	}
}

// WithRefreshHook is called after every refresh attempt, successful or not.
func WithRefreshHook(fn func(context.Context, RefreshOutcome)) Option {
	return func(d *Directory) { d.onRefresh = fn }
}

func WithClock(now func() time.Time) Option {
	return func(d *Directory) { d.now = now }
}

func WithTTL(ttl time.Duration) Option {
	return func(d *Directory) { d.ttl = ttl }
}

func NewDirectory(fetcher ports.DirectoryFetcher, mapper EmailMapper, opts ...Option) *Directory {
	d := &Directory{
		fetcher:     fetcher,
		mapper:      mapper,
		interactive: worker.IsInteractive,
		now:         time.Now,
		ttl:         DefaultTTL,
	}
	empty := map[string]types.CacheEntry{}
	d.entries.Store(&empty)
	for _, o := range opts {
		o(d)
	}
	return d
}

// Lookup resolves email to an employee. The address is normalized first; on a miss the cache is
// refreshed if stale, and finally the unnormalized address is tried. The directory is never
// queried for a single employee: after a full load, a miss means there is no such employee.
func (d *Directory) Lookup(ctx context.Context, email string) (*types.EmployeeRecord, bool) {
	key := types.EmailKey(d.mapEmail(email))
	if rec, ok := d.get(key); ok {
		return rec, true
	}

	d.mu.Lock()
	if rec, ok := d.get(key); ok {
		d.mu.Unlock()
		return rec, true
	}
	stale := d.staleLocked()
	d.mu.Unlock()

	if stale {
		d.triggerRefresh(ctx)
	}

	if rec, ok := d.get(key); ok {
		return rec, true
	}
	if orig := types.EmailKey(email); orig != key {
		if rec, ok := d.get(orig); ok {
			return rec, true
		}
	}
	return nil, false
}

// Refresh fetches the full roster and replaces the cache. If another refresh is in flight it
// returns ErrRefreshInProgress immediately without waiting.
func (d *Directory) Refresh(ctx context.Context) error {
	if !d.refreshing.CompareAndSwap(false, true) {
		return types.ErrRefreshInProgress
	}
	defer d.refreshing.Store(false)
	return d.runRefresh(ctx)
}

// ForceRefresh waits for any in-flight refresh to finish and then runs its own.
// It returns ctx.Err() if ctx ends while waiting.
func (d *Directory) ForceRefresh(ctx context.Context) error {
	if err := d.acquire(ctx); err != nil {
		return err
	}
	defer d.refreshing.Store(false)
	return d.runRefresh(ctx)
}

// Clear drops every entry and marks the cache maximally stale, so the next lookup refreshes.
// It waits for an in-flight refresh first and holds off new ones while clearing, so a racing
// refresh can never repopulate the cache behind it.
func (d *Directory) Clear(ctx context.Context) error {
	if err := d.acquire(ctx); err != nil {
		return err
	}
	defer d.refreshing.Store(false)

	empty := map[string]types.CacheEntry{}
	d.mu.Lock()
	d.entries.Store(&empty)
	d.fullyLoaded = false
	d.lastRefresh = time.Time{}
	d.mu.Unlock()
	log.Info("directory cache cleared")

	if err := d.Save(ctx); err != nil {
		log.WithError(err).Warn("failed to persist cleared directory cache")
	}
	return nil
}

// SetCredentials stores new directory credentials and clears the cache so the next lookup
// fetches with them. The cache is cleared even if storing the credentials failed.
func (d *Directory) SetCredentials(ctx context.Context, token, baseURL string) error {
	var credErr error
	if d.creds == nil {
		credErr = types.Err(types.ErrConfig, nil, "no credential store configured")
	} else {
		credErr = d.creds.SetDirectoryCredentials(token, baseURL)
	}
	return errors.Join(credErr, d.Clear(ctx))
}

// Snapshot copies the cache into its persisted form.
func (d *Directory) Snapshot() types.CacheState {
	d.mu.Lock()
	defer d.mu.Unlock()
	cur := *d.entries.Load()
	out := make(map[string]types.CacheEntry, len(cur))
	for k, v := range cur {
		out[k] = v
	}
	return types.CacheState{
		Employees:       out,
		LastCacheUpdate: state.FormatTime(d.lastRefresh),
	}
}

// Restore replaces the cache with a persisted state. A state whose timestamp does not parse is
// loaded but treated as maximally stale.
func (d *Directory) Restore(st types.CacheState) {
	next := make(map[string]types.CacheEntry, len(st.Employees))
	for k, e := range st.Employees {
		email := e.Email
		if email == "" {
			email = k
		}
		key := types.EmailKey(email)
		if key == "" {
			continue
		}
		next[key] = e
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries.Store(&next)
	d.fullyLoaded = len(next) > 0
	d.lastRefresh = st.LastUpdate()
}

// Save writes a snapshot to the state store, if one is configured.
func (d *Directory) Save(ctx context.Context) error {
	if d.store == nil {
		return nil
	}
	if err := d.store.Save(ctx, d.Snapshot()); err != nil {
		return types.Err(types.ErrPersist, err, "save directory cache")
	}
	return nil
}

// Load restores the cache from the state store. Nothing persisted yet is not an error.
func (d *Directory) Load(ctx context.Context) error {
	if d.store == nil {
		return nil
	}
	st, err := d.store.Load(ctx)
	if err != nil {
		return types.Err(types.ErrDataStoreAccess, err, "load directory cache")
	}
	if st == nil {
		return nil
	}
	d.Restore(*st)
	log.WithFields(log.Fields{
		"entries":     len(st.Employees),
		"lastRefresh": st.LastCacheUpdate,
	}).Info("directory cache restored")
	return nil
}

func (d *Directory) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Stats{
		Entries:     len(*d.entries.Load()),
		FullyLoaded: d.fullyLoaded,
		LastRefresh: d.lastRefresh,
		Refreshing:  d.refreshing.Load(),
		Fetches:     d.fetches.Load(),
	}
}

func (d *Directory) mapEmail(email string) string {
	if d.mapper == nil {
		return email
	}
	return d.mapper.Map(email)
}

func (d *Directory) get(key string) (*types.EmployeeRecord, bool) {
	if key == "" {
		return nil, false
	}
	e, ok := (*d.entries.Load())[key]
	if !ok {
		return nil, false
	}
	rec := e.EmployeeRecord
	return &rec, true
}

func (d *Directory) staleLocked() bool {
	return d.now().Sub(d.lastRefresh) >= d.ttl
}

// triggerRefresh is the opportunistic refresh from the read path: interactive callers hand it to
// the dispatcher, everyone else runs it inline. Either way a refresh already in flight wins.
func (d *Directory) triggerRefresh(ctx context.Context) {
	if d.dispatcher != nil && d.interactive(ctx) {
		bg := context.WithoutCancel(ctx)
		if !d.dispatcher.Submit(func() { d.logRefresh(d.refreshIfStale(bg)) }) {
			log.Debug("refresh dispatch rejected, will retry on a later lookup")
		}
		return
	}
	d.logRefresh(d.refreshIfStale(ctx))
}

// RunAutoRefresh checks the cache age every interval and refreshes it once the TTL has passed,
// so entries that keep getting hits are still renewed. It blocks until ctx ends.
// With a dispatcher configured the refresh runs there; otherwise it runs on this goroutine.
func (d *Directory) RunAutoRefresh(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = DefaultCheckInterval
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			d.autoRefresh(ctx)
		}
	}
}

func (d *Directory) autoRefresh(ctx context.Context) {
	d.mu.Lock()
	stale := d.staleLocked()
	d.mu.Unlock()
	if !stale {
		return
	}
	if d.dispatcher != nil {
		if !d.dispatcher.Submit(func() { d.logRefresh(d.refreshIfStale(ctx)) }) {
			log.Debug("scheduled refresh rejected by dispatcher, retrying next tick")
		}
		return
	}
	d.logRefresh(d.refreshIfStale(ctx))
}

// refreshIfStale is Refresh for the read path. Staleness is re-checked once the flag is held, so a
// reader that saw a stale cache just before another refresh finished does not fetch again.
func (d *Directory) refreshIfStale(ctx context.Context) error {
	if !d.refreshing.CompareAndSwap(false, true) {
		return types.ErrRefreshInProgress
	}
	defer d.refreshing.Store(false)

	d.mu.Lock()
	stale := d.staleLocked()
	d.mu.Unlock()
	if !stale {
		return nil
	}
	return d.runRefresh(ctx)
}

func (d *Directory) logRefresh(err error) {
	if err != nil && !errors.Is(err, types.ErrRefreshInProgress) {
		log.WithError(err).Debug("opportunistic refresh did not complete")
	}
}

// acquire takes the refresh flag, polling until the in-flight holder releases it or ctx ends.
func (d *Directory) acquire(ctx context.Context) error {
	if d.refreshing.CompareAndSwap(false, true) {
		return nil
	}
	t := time.NewTicker(waitPoll)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if d.refreshing.CompareAndSwap(false, true) {
				return nil
			}
		}
	}
}

// runRefresh does the fetch and swap. The caller holds the refresh flag.
func (d *Directory) runRefresh(ctx context.Context) error {
	out := RefreshOutcome{RunID: uuid.NewString(), Started: d.now()}
	logger := log.WithField("run_id", out.RunID)
	d.fetches.Add(1)

	records, err := d.fetcher.FetchAll(ctx)
	now := d.now()
	next := make(map[string]types.CacheEntry, len(records))
	for _, rec := range records {
		key := types.EmailKey(rec.Email)
		if key == "" {
			continue
		}
		next[key] = types.CacheEntry{EmployeeRecord: rec, Timestamp: now}
	}
	if err == nil && len(next) == 0 {
		err = errors.New("directory returned no employees with an email")
	}
	if err != nil {
		out.Err = types.Err(types.ErrRefreshFailed, err, "")
		out.Duration = d.now().Sub(out.Started)
		logger.WithError(err).Warn("directory refresh failed, keeping previous cache")
		d.emit(ctx, out)
		return out.Err
	}

	d.mu.Lock()
	d.entries.Store(&next)
	d.fullyLoaded = true
	d.lastRefresh = now
	d.mu.Unlock()

	out.OK = true
	out.Count = len(next)
	out.Duration = d.now().Sub(out.Started)
	logger.WithFields(log.Fields{
		"employees": out.Count,
		"duration":  out.Duration.String(),
	}).Info("directory cache refreshed")

	if err := d.Save(ctx); err != nil {
		logger.WithError(err).Error("failed to persist directory cache")
	}
	d.emit(ctx, out)
	return nil
}

func (d *Directory) emit(ctx context.Context, out RefreshOutcome) {
	if d.onRefresh != nil {
		d.onRefresh(ctx, out)
	}
}
