package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"studysync/internal/models"
)

// ErrInjected is returned by MemStore operations configured to fail.
var ErrInjected = errors.New("injected failure")

// MemStore is an in-memory page store with the method set of the Notion
// client. Pages are listed in creation order. Configure the Fail* fields and
// Delay before first use.
type MemStore struct {
	Delay       time.Duration
	FailQuery   bool            // keyed queries fail
	FailScan    bool            // unfiltered queries fail
	FailCreate  map[string]bool // by key
	FailArchive map[string]bool // by page id

	mu       sync.Mutex
	pages    []*models.Page
	nextID   int
	queries  int
	creates  int
	updates  int
	archives int
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{FailCreate: map[string]bool{}, FailArchive: map[string]bool{}}
}

// Seed inserts p as-is and returns its id, generating one when empty.
func (s *MemStore) Seed(p models.Page) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	if p.ID == "" {
		p.ID = fmt.Sprintf("page-%d", s.nextID)
	}
	s.pages = append(s.pages, &p)
	return p.ID
}

func (s *MemStore) QueryPages(_ context.Context, filter models.PageFilter, pageSize int, cursor string) (models.PageList, error) {
	s.sleep()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries++
	if filter.Key == "" && s.FailScan {
		return models.PageList{}, ErrInjected
	}
	if filter.Key != "" && s.FailQuery {
		return models.PageList{}, ErrInjected
	}

	var matched []models.Page
	for _, p := range s.pages {
		if filter.Key != "" && (p.Key != filter.Key || p.Archived) {
			continue
		}
		matched = append(matched, *p)
	}

	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil {
			return models.PageList{}, fmt.Errorf("bad cursor %q", cursor)
		}
		start = n
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	start = min(start, len(matched))
	end := min(start+pageSize, len(matched))
	list := models.PageList{Pages: matched[start:end]}
	if end < len(matched) {
		list.NextCursor = strconv.Itoa(end)
	}
	return list, nil
}

func (s *MemStore) CreatePage(_ context.Context, f models.PageFields) (string, error) {
	s.sleep()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailCreate[f.Key] {
		return "", ErrInjected
	}
	s.creates++
	s.nextID++
	id := fmt.Sprintf("page-%d", s.nextID)
	p := &models.Page{ID: id, Name: f.Name, Key: f.Key, Level: f.Level, Duration: f.Duration, Seconds: f.Seconds}
	if !f.WeekStart.IsZero() {
		ws := f.WeekStart
		p.WeekStart = &ws
	}
	s.pages = append(s.pages, p)
	return id, nil
}

func (s *MemStore) UpdatePage(_ context.Context, id string, f models.PageFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pages {
		if p.ID == id {
			s.updates++
			p.Key, p.Level, p.Duration, p.Seconds = f.Key, f.Level, f.Duration, f.Seconds
			return nil
		}
	}
	return fmt.Errorf("page %s not found", id)
}

func (s *MemStore) ArchivePage(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailArchive[id] {
		return ErrInjected
	}
	for _, p := range s.pages {
		if p.ID == id {
			s.archives++
			p.Archived = true
			return nil
		}
	}
	return fmt.Errorf("page %s not found", id)
}

// Active returns the non-archived pages sorted by key.
func (s *MemStore) Active() []models.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Page
	for _, p := range s.pages {
		if !p.Archived {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Counts returns the number of queries, creates and updates served.
func (s *MemStore) Counts() (queries, creates, updates int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries, s.creates, s.updates
}

// Archives returns the number of pages archived.
func (s *MemStore) Archives() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.archives
}

func (s *MemStore) sleep() {
	if s.Delay > 0 {
		time.Sleep(s.Delay)
	}
}
