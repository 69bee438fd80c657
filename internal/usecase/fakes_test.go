package usecase

import (
	"context"
	"errors"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/user/sitewatch-service/internal/entity"
	"github.com/user/sitewatch-service/internal/repository"
)

type memorySiteRepo struct {
	mu      sync.Mutex
	nextID  int64
	sites   map[int64]entity.Site
	logs    *memoryLogRepo
	saveErr error
}

func newMemorySiteRepo(logs *memoryLogRepo) *memorySiteRepo {
	return &memorySiteRepo{sites: make(map[int64]entity.Site), logs: logs}
}

func (r *memorySiteRepo) Create(_ context.Context, site *entity.Site) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	site.ID = r.nextID
	r.sites[site.ID] = *site
	return nil
}

func (r *memorySiteRepo) Get(_ context.Context, id int64) (*entity.Site, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sites[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r *memorySiteRepo) List(_ context.Context) ([]*entity.Site, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Site, 0, len(r.sites))
	for _, s := range r.sites {
		s := s
		out = append(out, &s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memorySiteRepo) ListDue(ctx context.Context, now time.Time) ([]*entity.Site, error) {
	all, _ := r.List(ctx)
	var due []*entity.Site
	for _, s := range all {
		if s.Enabled && s.IsDue(now) {
			due = append(due, s)
		}
	}
	return due, nil
}

func (r *memorySiteRepo) Save(_ context.Context, site *entity.Site) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	if _, ok := r.sites[site.ID]; !ok {
		return repository.ErrNotFound
	}
	r.sites[site.ID] = *site
	return nil
}

func (r *memorySiteRepo) SetEnabled(_ context.Context, id int64, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sites[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.Enabled = enabled
	r.sites[id] = s
	return nil
}

func (r *memorySiteRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	if _, ok := r.sites[id]; !ok {
		r.mu.Unlock()
		return repository.ErrNotFound
	}
	delete(r.sites, id)
	r.mu.Unlock()
	if r.logs != nil {
		r.logs.deleteSite(id)
	}
	return nil
}

func (r *memorySiteRepo) Ping(context.Context) error { return nil }

func (r *memorySiteRepo) snapshot(id int64) entity.Site {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sites[id]
}

type memoryLogRepo struct {
	mu     sync.Mutex
	nextID int64
	logs   []entity.SiteLog
}

func newMemoryLogRepo() *memoryLogRepo { return &memoryLogRepo{} }

func (r *memoryLogRepo) Insert(_ context.Context, log *entity.SiteLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	log.ID = r.nextID
	r.logs = append(r.logs, *log)
	return nil
}

func (r *memoryLogRepo) TrimToLatest(_ context.Context, siteID int64, keep int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ordered := r.newestFirst(siteID)
	if len(ordered) <= keep {
		return 0, nil
	}
	drop := make(map[int64]bool)
	for _, l := range ordered[keep:] {
		drop[l.ID] = true
	}
	kept := r.logs[:0]
	for _, l := range r.logs {
		if !drop[l.ID] {
			kept = append(kept, l)
		}
	}
	r.logs = kept
	return int64(len(drop)), nil
}

func (r *memoryLogRepo) ListLatest(_ context.Context, siteID int64, limit int) ([]*entity.SiteLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ordered := r.newestFirst(siteID)
	if len(ordered) > limit {
		ordered = ordered[:limit]
	}
	out := make([]*entity.SiteLog, len(ordered))
	for i := range ordered {
		out[i] = &ordered[i]
	}
	return out, nil
}

func (r *memoryLogRepo) newestFirst(siteID int64) []entity.SiteLog {
	var out []entity.SiteLog
	for _, l := range r.logs {
		if l.SiteID == siteID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (r *memoryLogRepo) deleteSite(siteID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.logs[:0]
	for _, l := range r.logs {
		if l.SiteID != siteID {
			kept = append(kept, l)
		}
	}
	r.logs = kept
}

func (r *memoryLogRepo) byType(siteID int64, t entity.EventType) []entity.SiteLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.SiteLog
	for _, l := range r.logs {
		if l.SiteID == siteID && l.EventType == t {
			out = append(out, l)
		}
	}
	return out
}

// scanStep is one scripted scanner response.
type scanStep struct {
	result *entity.ScanResult
	err    error
}

type fakeScanner struct {
	mu    sync.Mutex
	steps []scanStep
	calls int
	scan  func(url string) (*entity.ScanResult, error)
}

func (s *fakeScanner) Scan(_ context.Context, url, _ string, _ bool) (*entity.ScanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.scan != nil {
		return s.scan(url)
	}
	if len(s.steps) == 0 {
		return nil, errors.New("no scripted scan left")
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	return step.result, step.err
}

func (s *fakeScanner) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// eventLog keeps the order of outbound calls across fakes.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

type sentMessage struct {
	kind    string
	path    string
	message string
}

type fakeNotifier struct {
	mu     sync.Mutex
	sent   []sentMessage
	err    error
	failOn map[string]error // per message kind, checked before err
	events *eventLog
}

func (n *fakeNotifier) record(kind, path, msg string) error {
	n.mu.Lock()
	n.sent = append(n.sent, sentMessage{kind: kind, path: path, message: msg})
	n.mu.Unlock()
	if n.events != nil {
		n.events.add(kind)
	}
	if err, ok := n.failOn[kind]; ok {
		return err
	}
	return n.err
}

func (n *fakeNotifier) SendText(_ context.Context, message string) error {
	return n.record("text", "", message)
}

func (n *fakeNotifier) SendPhoto(_ context.Context, path, caption string) error {
	return n.record("photo", path, caption)
}

func (n *fakeNotifier) SendDocument(_ context.Context, path, caption string) error {
	return n.record("document", path, caption)
}

func (n *fakeNotifier) messages() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMessage(nil), n.sent...)
}

type fakeFetcher struct {
	mu      sync.Mutex
	fetched []string
	err     error
	events  *eventLog
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, url)
	f.mu.Unlock()
	if f.events != nil {
		f.events.add("fetch")
	}
	if f.err != nil {
		return "", f.err
	}
	return "/tmp/downloads/" + path.Base(url), nil
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[int64]bool
}

func newFakeLocker() *fakeLocker { return &fakeLocker{held: make(map[int64]bool)} }

func (l *fakeLocker) TryLock(_ context.Context, siteID int64, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[siteID] {
		return false, nil
	}
	l.held[siteID] = true
	return true, nil
}

func (l *fakeLocker) Unlock(_ context.Context, siteID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, siteID)
	return nil
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
