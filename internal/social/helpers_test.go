package social

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/bandmate/backend/internal/models"
	"github.com/bandmate/backend/internal/store"
)

var errInjected = errors.New("injected store failure")

// faultyStore fails writes to chosen documents until healed.
type faultyStore struct {
	store.Store

	mu       sync.Mutex
	failOn   map[string]bool
	failFind bool
}

func newFaultyStore(base store.Store) *faultyStore {
	return &faultyStore{Store: base, failOn: make(map[string]bool)}
}

func (f *faultyStore) breakDoc(kind models.Kind, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn[string(kind)+"/"+id] = true
}

func (f *faultyStore) heal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn = make(map[string]bool)
	f.failFind = false
}

func (f *faultyStore) broken(kind models.Kind, id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failOn[string(kind)+"/"+id]
}

func (f *faultyStore) Update(ctx context.Context, kind models.Kind, id string, u store.Update) error {
	if f.broken(kind, id) {
		return errInjected
	}
	return f.Store.Update(ctx, kind, id, u)
}

func (f *faultyStore) Delete(ctx context.Context, kind models.Kind, id string) error {
	if f.broken(kind, id) {
		return errInjected
	}
	return f.Store.Delete(ctx, kind, id)
}

func (f *faultyStore) FindIDs(ctx context.Context, kind models.Kind, field, value string) ([]string, error) {
	f.mu.Lock()
	fail := f.failFind
	f.mu.Unlock()
	if fail {
		return nil, errInjected
	}
	return f.Store.FindIDs(ctx, kind, field, value)
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *faultyStore) {
	t.Helper()
	s := newFaultyStore(store.NewMemoryStore())
	e := New(s, WithClock(func() time.Time { return fixedNow }), WithPasswordCost(bcrypt.MinCost))
	return e, s
}

func mustRegister(t *testing.T, e *Engine, username string) string {
	t.Helper()
	user, err := e.RegisterUser(context.Background(), RegisterUserInput{
		Email:     username + "@example.com",
		Password:  "supersecret",
		Username:  username,
		FirstName: username,
		LastName:  "Tester",
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return user.ID
}

func mustBand(t *testing.T, e *Engine, name string) string {
	t.Helper()
	band, err := e.CreateBand(context.Background(), CreateBandInput{Name: name})
	if err != nil {
		t.Fatalf("create band %s: %v", name, err)
	}
	return band.ID
}

func mustDoc(t *testing.T, s store.Store, kind models.Kind, id string) models.Document {
	t.Helper()
	doc, err := s.Get(context.Background(), kind, id)
	if err != nil {
		t.Fatalf("get %s/%s: %v", kind, id, err)
	}
	return doc
}

func count(values []string, want string) int {
	n := 0
	for _, v := range values {
		if v == want {
			n++
		}
	}
	return n
}
