package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"listing_server/server/listing/domain"
	"listing_server/server/listing/repository"
)

type fakeStore struct {
	mu          sync.Mutex
	objects     map[string][]byte
	putCalls    int
	failPutAt   int // 1-based put index to fail at, 0 = never
	failDeletes map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}, failDeletes: map[string]bool{}}
}

func (s *fakeStore) Put(_ context.Context, key string, body []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putCalls++
	if s.failPutAt > 0 && s.putCalls >= s.failPutAt {
		return fmt.Errorf("injected put failure at call %d", s.putCalls)
	}
	s.objects[key] = body
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDeletes[key] {
		return fmt.Errorf("injected delete failure for %s", key)
	}
	delete(s.objects, key)
	return nil
}

func (s *fakeStore) ResolvePublicURL(key string) string {
	return "https://cdn.test/" + key
}

func (s *fakeStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

func (s *fakeStore) get(key string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects[key]
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

func (s *fakeStore) seed(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		s.objects[key] = []byte("seeded")
	}
}

type fakeRepo struct {
	mu                 sync.Mutex
	nextID             int64
	listings           map[int64]domain.Listing
	images             map[int64][]domain.ImageAsset
	pending            []repository.PendingDeletion
	pendingSeq         int64
	failInsertImages   bool
	insertListingCalls int
	insertImagesCalls  int
	deleteListingCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{listings: map[int64]domain.Listing{}, images: map[int64][]domain.ImageAsset{}}
}

func (r *fakeRepo) InsertListing(_ context.Context, l domain.Listing) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertListingCalls++
	r.nextID++
	l.ID = r.nextID
	l.CreatedAt = time.Now()
	r.listings[l.ID] = l
	return l.ID, nil
}

func (r *fakeRepo) InsertImages(_ context.Context, listingID int64, assets []domain.ImageAsset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertImagesCalls++
	if r.failInsertImages {
		return fmt.Errorf("injected image row failure")
	}
	stored := make([]domain.ImageAsset, len(assets))
	copy(stored, assets)
	for i := range stored {
		stored[i].ID = int64(i + 1)
		stored[i].ListingID = listingID
	}
	r.images[listingID] = stored
	return nil
}

func (r *fakeRepo) DeleteListing(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteListingCalls++
	delete(r.listings, id)
	delete(r.images, id)
	return nil
}

func (r *fakeRepo) GetWithImages(_ context.Context, id int64) (domain.Listing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return domain.Listing{}, domain.ErrNotFound
	}
	l.Images = r.images[id]
	return l, nil
}

func (r *fakeRepo) AddPendingDeletion(ctx context.Context, objectKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pendingSeq++
	r.pending = append(r.pending, repository.PendingDeletion{ID: r.pendingSeq, ObjectKey: objectKey, CreatedAt: time.Now()})
	return nil
}

func (r *fakeRepo) ListPendingDeletions(_ context.Context, limit int) ([]repository.PendingDeletion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit > len(r.pending) {
		limit = len(r.pending)
	}
	out := make([]repository.PendingDeletion, limit)
	copy(out, r.pending[:limit])
	return out, nil
}

func (r *fakeRepo) RemovePendingDeletion(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.pending {
		if p.ID == id {
			r.pending = append(r.pending[:i], r.pending[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *fakeRepo) dbCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertListingCalls + r.insertImagesCalls + r.deleteListingCalls
}

type fakeGate struct {
	mu        sync.Mutex
	allowed   bool
	remaining int
	resetAt   time.Time
	calls     int
}

func (g *fakeGate) CheckAndConsume(context.Context, string) (bool, int, time.Time, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	return g.allowed, g.remaining, g.resetAt, nil
}

type fakeEvents struct {
	mu        sync.Mutex
	published []string
}

func (e *fakeEvents) Publish(_ context.Context, routingKey string, _ any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.published = append(e.published, routingKey)
	return nil
}

func newTestService() (*ListingService, *fakeRepo, *fakeStore, *fakeGate) {
	repo := newFakeRepo()
	store := newFakeStore()
	gate := &fakeGate{allowed: true, remaining: 9, resetAt: time.Now().Add(time.Hour)}
	svc := NewListingService(repo, store, gate, &fakeEvents{})
	return svc, repo, store, gate
}
