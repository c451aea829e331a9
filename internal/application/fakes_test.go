package application

import (
	"context"
	"errors"
	"strings"
	"sync"

	"archie-core-attribution-layer/internal/domain"
	"archie-core-attribution-layer/internal/infrastructure/repository"
	"archie-core-attribution-layer/internal/ports"
)

var errBoom = errors.New("boom")

// flakyStore wraps a MemoryStore and fails chosen operations on chosen tables
type flakyStore struct {
	*repository.MemoryStore
	mu   sync.Mutex
	fail map[string]error // "op:table"
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStore: repository.NewMemoryStore(), fail: map[string]error{}}
}

func (s *flakyStore) failOn(op, table string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[op+":"+table] = err
}

func (s *flakyStore) check(op, table string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fail[op+":"+table]
}

func (s *flakyStore) Select(ctx context.Context, table string, filters ports.Filter) ([]ports.Row, error) {
	if err := s.check("select", table); err != nil {
		return nil, err
	}
	return s.MemoryStore.Select(ctx, table, filters)
}

func (s *flakyStore) Insert(ctx context.Context, table string, row ports.Row) (ports.Row, error) {
	if err := s.check("insert", table); err != nil {
		return nil, err
	}
	return s.MemoryStore.Insert(ctx, table, row)
}

func (s *flakyStore) Update(ctx context.Context, table string, patch ports.Row, filters ports.Filter) (ports.Row, error) {
	if err := s.check("update", table); err != nil {
		return nil, err
	}
	return s.MemoryStore.Update(ctx, table, patch, filters)
}

type fakeGenerator struct {
	ids   []string
	err   error
	calls int
}

func (g *fakeGenerator) Generate(ctx context.Context) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	id := g.ids[0]
	g.ids = g.ids[1:]
	return id, nil
}

// fakeCrypto is a reversible marker encoding
type fakeCrypto struct{}

func (fakeCrypto) Encrypt(plaintext string) (string, error) { return "enc:" + plaintext, nil }

func (fakeCrypto) Decrypt(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, "enc:") {
		return "", errors.New("not encrypted")
	}
	return strings.TrimPrefix(ciphertext, "enc:"), nil
}

// fakeAssets is an in-memory theme asset API
type fakeAssets struct {
	mu        sync.Mutex
	mainTheme uint64
	layouts   map[uint64]string
	tokens    []string
	puts      int
	putErr    error
	getErr    error

	// hang makes GetAsset block until its context is done
	hang bool

	// started is closed when GetAsset is entered; GetAsset then waits for proceed
	started chan struct{}
	proceed chan struct{}
	seenCtx context.Context
}

func (f *fakeAssets) MainThemeID(ctx context.Context, shopDomain, accessToken string) (uint64, error) {
	return f.mainTheme, nil
}

func (f *fakeAssets) ListAssetKeys(ctx context.Context, shopDomain, accessToken string, themeID uint64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, accessToken)
	keys := []string{"assets/app.js"}
	if _, ok := f.layouts[themeID]; ok {
		keys = append(keys, ports.LayoutAssetKey)
	}
	return keys, nil
}

func (f *fakeAssets) GetAsset(ctx context.Context, shopDomain, accessToken string, themeID uint64, key string) (string, error) {
	if f.started != nil {
		close(f.started)
		<-f.proceed
		f.seenCtx = ctx
	}
	if f.hang {
		<-ctx.Done()
		return "", ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.layouts[themeID], nil
}

func (f *fakeAssets) PutAsset(ctx context.Context, shopDomain, accessToken string, themeID uint64, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.puts++
	f.layouts[themeID] = value
	return nil
}

func (f *fakeAssets) layout(themeID uint64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.layouts[themeID]
}

type recordedEvents struct {
	mu     sync.Mutex
	events []*domain.InstallationEvent
}

func (r *recordedEvents) Publish(event *domain.InstallationEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}
