package session

import "sync"

// SourceRef is the session's record of a source file the client may ask
// to fetch lazily via the `source` request.
type SourceRef struct {
	Name            string
	Path            string
	Origin          string
	SourceReference int
	content         string
	hasContent      bool
}

// SourceRegistry tracks loaded sources keyed by path for `loadedSources`
// and content keyed by SourceReference for lazy `source` fetches.
type SourceRegistry struct {
	mu        sync.Mutex
	byPath    map[string]*SourceRef
	byRefID   map[int]*SourceRef
	nextRefID int
}

func NewSourceRegistry() *SourceRegistry {
	return &SourceRegistry{
		byPath:    make(map[string]*SourceRef),
		byRefID:   make(map[int]*SourceRef),
		nextRefID: 1,
	}
}

// Register records a source as loaded. If path already has on-disk content,
// SourceReference stays 0 (clients read it directly from disk); otherwise a
// reference id is allocated for lazy `source` fetches.
func (r *SourceRegistry) Register(name, path, origin string, needsFetch bool) *SourceRef {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byPath[path]; ok {
		existing.Name = name
		existing.Origin = origin
		return existing
	}

	ref := &SourceRef{Name: name, Path: path, Origin: origin}
	if needsFetch {
		ref.SourceReference = r.nextRefID
		r.nextRefID++
		r.byRefID[ref.SourceReference] = ref
	}
	r.byPath[path] = ref
	return ref
}

// SetContent fulfills a previously-registered lazy source reference.
func (r *SourceRegistry) SetContent(refID int, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ref, ok := r.byRefID[refID]; ok {
		ref.content = content
		ref.hasContent = true
	}
}

// Content returns the cached content for refID, if any was set via
// SetContent. The backend is the source of truth for fetching content that
// isn't cached yet; this registry only remembers it once fetched.
func (r *SourceRegistry) Content(refID int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ref, ok := r.byRefID[refID]
	if !ok || !ref.hasContent {
		return "", false
	}
	return ref.content, true
}

// List returns every currently-loaded source.
func (r *SourceRegistry) List() []SourceRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SourceRef, 0, len(r.byPath))
	for _, ref := range r.byPath {
		out = append(out, *ref)
	}
	return out
}
