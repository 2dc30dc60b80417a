package session

import (
	"sync"
)

// Repository is the session access surface handed to the orchestrator. It
// fronts the FileStore with an in-memory cache so an active session keeps a
// single authoritative in-process copy; reloads from disk happen only on
// cache misses. It is a constructed dependency, not a process-wide singleton.
type Repository interface {
	Create(theme string) (*Session, error)
	Get(id string) (*Session, error)
	Save(s *Session) error
	List() ([]Info, error)
	Store() *FileStore
}

type cachedRepository struct {
	mu     sync.Mutex
	store  *FileStore
	cache  map[string]*Session
	budget func() int // token threshold for new sessions
}

// NewRepository creates a Repository over store. budget returns the token
// threshold applied to newly created sessions (80% of the configured model's
// context window); it is evaluated once per Create.
func NewRepository(store *FileStore, budget func() int) Repository {
	return &cachedRepository{
		store:  store,
		cache:  make(map[string]*Session),
		budget: budget,
	}
}

func (r *cachedRepository) Create(theme string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.store.Create(theme, r.budget())
	if err != nil {
		return nil, err
	}
	r.cache[s.ID] = s
	return s, nil
}

func (r *cachedRepository) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.cache[id]; ok {
		return s, nil
	}
	s, err := r.store.Get(id)
	if err != nil {
		return nil, err
	}
	r.cache[id] = s
	return s, nil
}

func (r *cachedRepository) Save(s *Session) error {
	return r.store.Save(s)
}

func (r *cachedRepository) List() ([]Info, error) {
	return r.store.List()
}

func (r *cachedRepository) Store() *FileStore {
	return r.store
}
