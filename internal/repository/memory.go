package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/encore-live/server/internal/domain"
)

// MemoryStore is an in-process implementation of every repository interface.
//
// It backs unit tests and environments without PostgreSQL. The vote commit
// path mirrors the store-native atomic routine under one mutex; the separate
// TwoStepCastVote method is the documented degraded mode — read counter,
// increment, write back — which is NOT linearizable and loses updates when
// two voters race between its read and write. It exists so the race the
// engine is designed around can be exercised in tests.
type MemoryStore struct {
	mu         sync.Mutex
	requests   map[string]*domain.Request
	requesters map[string][]*domain.Requester // request id -> insertion order
	votes      map[string]map[string]bool     // request id -> user id set
	songs      map[string]*domain.Song
	setLists   map[string]*domain.SetList
	setSongs   map[string][]*domain.SetListSong

	// FailNext, when set, makes the next mutating call return the error and
	// leave state untouched. Simulates store-level failures in tests.
	FailNext error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests:   make(map[string]*domain.Request),
		requesters: make(map[string][]*domain.Requester),
		votes:      make(map[string]map[string]bool),
		songs:      make(map[string]*domain.Song),
		setLists:   make(map[string]*domain.SetList),
		setSongs:   make(map[string][]*domain.SetListSong),
	}
}

func (m *MemoryStore) takeFailure() error {
	err := m.FailNext
	m.FailNext = nil
	return err
}

func cloneRequest(r *domain.Request) *domain.Request {
	clone := *r
	clone.Requesters = nil
	return &clone
}

// Create inserts a request, enforcing the one-pending-per-title constraint.
func (m *MemoryStore) Create(ctx context.Context, req *domain.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	for _, existing := range m.requests {
		if !existing.IsPlayed && existing.Title == req.Title {
			return domain.ErrDuplicatePendingTitle
		}
	}
	m.requests[req.ID] = cloneRequest(req)
	return nil
}

// GetByID returns a request copy, or nil.
func (m *MemoryStore) GetByID(ctx context.Context, id string) (*domain.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	req, ok := m.requests[id]
	if !ok {
		return nil, nil
	}
	return cloneRequest(req), nil
}

// GetPendingByTitle returns the non-played request with this exact title, or nil.
func (m *MemoryStore) GetPendingByTitle(ctx context.Context, title string) (*domain.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, req := range m.requests {
		if !req.IsPlayed && req.Title == title {
			return cloneRequest(req), nil
		}
	}
	return nil, nil
}

// ListQueue returns non-played requests, highest votes first, oldest first on ties.
func (m *MemoryStore) ListQueue(ctx context.Context) ([]*domain.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var queue []*domain.Request
	for _, req := range m.requests {
		if !req.IsPlayed {
			queue = append(queue, cloneRequest(req))
		}
	}
	sort.Slice(queue, func(i, j int) bool {
		if queue[i].Votes != queue[j].Votes {
			return queue[i].Votes > queue[j].Votes
		}
		return queue[i].CreatedAt.Before(queue[j].CreatedAt)
	})
	return queue, nil
}

// ListAll returns every request, newest first.
func (m *MemoryStore) ListAll(ctx context.Context) ([]*domain.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]*domain.Request, 0, len(m.requests))
	for _, req := range m.requests {
		all = append(all, cloneRequest(req))
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return all, nil
}

// AddRequester attaches an attendee to a request.
func (m *MemoryStore) AddRequester(ctx context.Context, r *domain.Requester) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	if _, ok := m.requests[r.RequestID]; !ok {
		return domain.ErrRequestNotFound
	}
	clone := *r
	m.requesters[r.RequestID] = append(m.requesters[r.RequestID], &clone)
	return nil
}

// ListRequesters returns attendees in insertion order.
func (m *MemoryStore) ListRequesters(ctx context.Context, requestID string) ([]*domain.Requester, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	attached := m.requesters[requestID]
	out := make([]*domain.Requester, len(attached))
	for i, r := range attached {
		clone := *r
		out[i] = &clone
	}
	return out, nil
}

// SetLockedExclusive unlocks every other request, then sets the target's flag.
func (m *MemoryStore) SetLockedExclusive(ctx context.Context, id string, locked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	target, ok := m.requests[id]
	if !ok || target.IsPlayed {
		return domain.ErrRequestNotFound
	}
	if locked {
		for _, req := range m.requests {
			if req.ID != id {
				req.IsLocked = false
			}
		}
	}
	target.IsLocked = locked
	return nil
}

// MarkPlayed finalizes a request; idempotent.
func (m *MemoryStore) MarkPlayed(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	req, ok := m.requests[id]
	if !ok {
		return domain.ErrRequestNotFound
	}
	req.IsPlayed = true
	req.IsLocked = false
	return nil
}

// ResetQueue finalizes every live request and purges all votes, atomically
// under the store mutex.
func (m *MemoryStore) ResetQueue(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return 0, err
	}
	cleared := 0
	for _, req := range m.requests {
		if !req.IsPlayed {
			req.IsPlayed = true
			req.IsLocked = false
			req.Votes = 0
			cleared++
		}
	}
	m.votes = make(map[string]map[string]bool)
	return cleared, nil
}

// AddVoteAtomic mirrors the server-side routine: insert guarded by the pair
// set, increment only on a fresh insert, all under one lock.
func (m *MemoryStore) AddVoteAtomic(ctx context.Context, requestID, userID string) (bool, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return false, 0, err
	}
	req, ok := m.requests[requestID]
	if !ok {
		return false, 0, domain.ErrRequestNotFound
	}
	users := m.votes[requestID]
	if users == nil {
		users = make(map[string]bool)
		m.votes[requestID] = users
	}
	if users[userID] {
		return false, req.Votes, nil
	}
	users[userID] = true
	req.Votes++
	return true, req.Votes, nil
}

// TwoStepCastVote is the degraded client-driven path: the counter update is a
// separate read-modify-write after the insert, so two racing voters can both
// read the same stale count. Kept only for stores without an atomic routine.
func (m *MemoryStore) TwoStepCastVote(ctx context.Context, requestID, userID string) (bool, int, error) {
	m.mu.Lock()
	req, ok := m.requests[requestID]
	if !ok {
		m.mu.Unlock()
		return false, 0, domain.ErrRequestNotFound
	}
	users := m.votes[requestID]
	if users == nil {
		users = make(map[string]bool)
		m.votes[requestID] = users
	}
	if users[userID] {
		votes := req.Votes
		m.mu.Unlock()
		return false, votes, nil
	}
	users[userID] = true
	stale := req.Votes
	m.mu.Unlock()

	// Race window: another voter can update between the read above and the
	// write below.
	m.mu.Lock()
	defer m.mu.Unlock()
	req.Votes = stale + 1
	return true, req.Votes, nil
}

// Count returns the vote-row count for a request.
func (m *MemoryStore) Count(ctx context.Context, requestID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.votes[requestID]), nil
}

// HasVoted reports whether the pair exists.
func (m *MemoryStore) HasVoted(ctx context.Context, requestID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.votes[requestID][userID], nil
}

// Songs returns the store's SongRepository view.
func (m *MemoryStore) Songs() SongRepository { return (*memorySongs)(m) }

type memorySongs MemoryStore

func (m *memorySongs) Create(ctx context.Context, song *domain.Song) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *song
	m.songs[song.ID] = &clone
	return nil
}

func (m *memorySongs) GetByID(ctx context.Context, id string) (*domain.Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	song, ok := m.songs[id]
	if !ok {
		return nil, nil
	}
	clone := *song
	return &clone, nil
}

func (m *memorySongs) List(ctx context.Context) ([]*domain.Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	songs := make([]*domain.Song, 0, len(m.songs))
	for _, s := range m.songs {
		clone := *s
		songs = append(songs, &clone)
	}
	sort.Slice(songs, func(i, j int) bool { return songs[i].Title < songs[j].Title })
	return songs, nil
}

// SetLists returns the store's SetListRepository view.
func (m *MemoryStore) SetLists() SetListRepository { return (*memorySetLists)(m) }

type memorySetLists MemoryStore

func cloneSetList(sl *domain.SetList) *domain.SetList {
	clone := *sl
	clone.Songs = nil
	return &clone
}

func (m *memorySetLists) Create(ctx context.Context, sl *domain.SetList, songs []*domain.SetListSong) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := (*MemoryStore)(m).takeFailure(); err != nil {
		return err
	}
	m.setLists[sl.ID] = cloneSetList(sl)
	m.setSongs[sl.ID] = copySetListSongs(sl.ID, songs)
	return nil
}

func (m *memorySetLists) Update(ctx context.Context, sl *domain.SetList, songs []*domain.SetListSong) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := (*MemoryStore)(m).takeFailure(); err != nil {
		return err
	}
	existing, ok := m.setLists[sl.ID]
	if !ok {
		return domain.ErrSetListNotFound
	}
	existing.Name = sl.Name
	existing.Date = sl.Date
	existing.Notes = sl.Notes
	existing.UpdatedAt = time.Now()
	m.setSongs[sl.ID] = copySetListSongs(sl.ID, songs)
	return nil
}

func copySetListSongs(setListID string, songs []*domain.SetListSong) []*domain.SetListSong {
	out := make([]*domain.SetListSong, len(songs))
	for i, s := range songs {
		clone := *s
		clone.SetListID = setListID
		clone.Position = i
		out[i] = &clone
	}
	return out
}

func (m *memorySetLists) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.setLists[id]; !ok {
		return domain.ErrSetListNotFound
	}
	delete(m.setLists, id)
	delete(m.setSongs, id)
	return nil
}

func (m *memorySetLists) GetByID(ctx context.Context, id string) (*domain.SetList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sl, ok := m.setLists[id]
	if !ok {
		return nil, nil
	}
	out := cloneSetList(sl)
	out.Songs = copySetListSongs(id, m.setSongs[id])
	return out, nil
}

func (m *memorySetLists) List(ctx context.Context) ([]*domain.SetList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lists := make([]*domain.SetList, 0, len(m.setLists))
	for _, sl := range m.setLists {
		lists = append(lists, cloneSetList(sl))
	}
	sort.Slice(lists, func(i, j int) bool {
		if !lists[i].Date.Equal(lists[j].Date) {
			return lists[i].Date.After(lists[j].Date)
		}
		return lists[i].CreatedAt.After(lists[j].CreatedAt)
	})
	return lists, nil
}

func (m *memorySetLists) SetActive(ctx context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := (*MemoryStore)(m).takeFailure(); err != nil {
		return err
	}
	target, ok := m.setLists[id]
	if !ok {
		return domain.ErrSetListNotFound
	}
	if active {
		for _, sl := range m.setLists {
			if sl.ID != id {
				sl.IsActive = false
			}
		}
	}
	target.IsActive = active
	target.UpdatedAt = time.Now()
	return nil
}

func (m *memorySetLists) GetActive(ctx context.Context) (*domain.SetList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var active *domain.SetList
	for _, sl := range m.setLists {
		if !sl.IsActive {
			continue
		}
		if active == nil || sl.UpdatedAt.After(active.UpdatedAt) {
			active = sl
		}
	}
	if active == nil {
		return nil, nil
	}
	out := cloneSetList(active)
	out.Songs = copySetListSongs(active.ID, m.setSongs[active.ID])
	return out, nil
}
