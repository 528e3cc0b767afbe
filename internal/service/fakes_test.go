package service_test

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/mtlprog/hrscore/internal/cache"
	"github.com/mtlprog/hrscore/internal/domain"
	"github.com/mtlprog/hrscore/internal/repository"
)

const (
	orgA = "org-a"
	orgB = "org-b"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func ptr[T any](v T) *T { return &v }

// memStore is an in-memory implementation of every store interface.
type memStore struct {
	mu        sync.Mutex
	employees map[string]*domain.Employee
	tasks     map[string]*domain.Task
	history   []*domain.ScoreLogEntry
	events    []*domain.TaskEvent
	seq       int

	// stall makes every read wait for ctx to end.
	stall bool
	// gate, when set, holds every read until it is closed or ctx ends.
	gate chan struct{}
	// failRead makes every read fail.
	failRead error
	// failInsert makes Insert fail.
	failInsert error
	// reads counts read calls.
	reads int
}

func newMemStore() *memStore {
	return &memStore{
		employees: make(map[string]*domain.Employee),
		tasks:     make(map[string]*domain.Task),
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return prefix + "-" + strconv.Itoa(m.seq)
}

func (m *memStore) addEmployee(e *domain.Employee) *domain.Employee {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.OrgID == "" {
		e.OrgID = orgA
	}
	if e.ID == "" {
		e.ID = m.nextID("emp")
	}
	e.IsActive = true
	m.employees[e.ID] = e
	return e
}

func (m *memStore) addTask(t *domain.Task) *domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.OrgID == "" {
		t.OrgID = orgA
	}
	if t.ID == "" {
		t.ID = m.nextID("task")
	}
	if t.Status == "" {
		t.Status = domain.TaskStatusAssigned
	}
	if t.Complexity == 0 {
		t.Complexity = 1
	}
	m.tasks[t.ID] = t
	return t
}

func (m *memStore) addHistory(employeeID string, score *float64, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.employees[employeeID]
	m.history = append(m.history, &domain.ScoreLogEntry{
		ID:         m.nextID("log"),
		EmployeeID: employeeID,
		OrgID:      e.OrgID,
		Score:      score,
		ComputedAt: at,
	})
}

func (m *memStore) historyLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history)
}

func (m *memStore) read(ctx context.Context) error {
	m.mu.Lock()
	m.reads++
	stall, gate, failRead := m.stall, m.gate, m.failRead
	m.mu.Unlock()
	if stall {
		<-ctx.Done()
		return ctx.Err()
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return failRead
}

func (m *memStore) readCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

func (m *memStore) GetByID(ctx context.Context, orgID, taskID string) (*domain.Task, error) {
	if err := m.read(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok || t.OrgID != orgID || t.IsDeleted {
		return nil, domain.ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) ListByEmployee(ctx context.Context, orgID, employeeID string) ([]*domain.Task, error) {
	if err := m.read(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Task{}
	for _, t := range m.tasks {
		if t.OrgID == orgID && !t.IsDeleted && t.IsAssignedTo(employeeID) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) CountOpenByEmployees(ctx context.Context, orgID string, ids []string) (map[string]int, error) {
	if err := m.read(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int, len(ids))
	for _, id := range ids {
		counts[id] = 0
	}
	for _, t := range m.tasks {
		if t.OrgID != orgID || t.IsDeleted || t.IsCompleted() || t.EmployeeID == nil {
			continue
		}
		if _, ok := counts[*t.EmployeeID]; ok {
			counts[*t.EmployeeID]++
		}
	}
	return counts, nil
}

func (m *memStore) RequiredSkillsByJobTitle(ctx context.Context, orgID, jobTitle string) ([][]string, error) {
	if err := m.read(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	lists := [][]string{}
	for _, t := range m.tasks {
		if t.OrgID != orgID || t.IsDeleted || t.EmployeeID == nil {
			continue
		}
		e := m.employees[*t.EmployeeID]
		if e != nil && e.IsActive && e.JobTitle != nil && *e.JobTitle == jobTitle {
			lists = append(lists, t.RequiredSkills)
		}
	}
	return lists, nil
}

func (m *memStore) ApplyTransition(
	ctx context.Context,
	orgID, taskID string,
	newStatus domain.TaskStatus,
	at time.Time,
	check repository.TransitionCheck,
) (*domain.Task, *domain.TaskEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[taskID]
	if !ok || t.OrgID != orgID || t.IsDeleted {
		return nil, nil, domain.ErrTaskNotFound
	}
	cp := *t
	if check != nil {
		if err := check(&cp); err != nil {
			return nil, nil, err
		}
	}
	event := &domain.TaskEvent{
		ID:        m.nextID("event"),
		TaskID:    taskID,
		OrgID:     orgID,
		OldStatus: t.Status,
		NewStatus: newStatus,
		CreatedAt: at,
	}
	t.Status = newStatus
	t.UpdatedAt = at
	if newStatus == domain.TaskStatusCompleted {
		t.CompletedAt = &at
	}
	m.events = append(m.events, event)
	updated := *t
	return &updated, event, nil
}

func (m *memStore) GetByTaskID(ctx context.Context, orgID, taskID string) ([]*domain.TaskEvent, error) {
	if err := m.read(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.TaskEvent{}
	for _, e := range m.events {
		if e.OrgID == orgID && e.TaskID == taskID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

type employeeStore struct{ *memStore }

func (s employeeStore) GetByID(ctx context.Context, orgID, employeeID string) (*domain.Employee, error) {
	if err := s.read(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.employees[employeeID]
	if !ok || e.OrgID != orgID {
		return nil, domain.ErrEmployeeNotFound
	}
	cp := *e
	return &cp, nil
}

func (s employeeStore) ListActive(ctx context.Context, orgID string, department *string) ([]*domain.Employee, error) {
	if err := s.read(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*domain.Employee{}
	for _, e := range s.employees {
		if e.OrgID != orgID || !e.IsActive {
			continue
		}
		if department != nil && (e.Department == nil || *e.Department != *department) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type historyStore struct{ *memStore }

func (s historyStore) Insert(_ context.Context, entry *domain.ScoreLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInsert != nil {
		return s.failInsert
	}
	entry.ID = s.nextID("log")
	cp := *entry
	s.history = append(s.history, &cp)
	return nil
}

func (s historyStore) QueryRange(ctx context.Context, orgID, employeeID string, since time.Time) ([]*domain.ScoreLogEntry, error) {
	if err := s.read(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*domain.ScoreLogEntry{}
	for _, e := range s.history {
		if e.OrgID == orgID && e.EmployeeID == employeeID && !e.ComputedAt.Before(since) {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s historyStore) LatestPerEmployee(ctx context.Context, orgID string, ids []string) (map[string]*domain.ScoreLogEntry, error) {
	if err := s.read(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	latest := make(map[string]*domain.ScoreLogEntry)
	for _, e := range s.history {
		if e.OrgID != orgID || !slices.Contains(ids, e.EmployeeID) {
			continue
		}
		if cur, ok := latest[e.EmployeeID]; !ok || !e.ComputedAt.Before(cur.ComputedAt) {
			cp := *e
			latest[e.EmployeeID] = &cp
		}
	}
	return latest, nil
}

func (m *memStore) GetOrgStats(ctx context.Context, orgID string, now time.Time) (*repository.OrgTaskStats, error) {
	if err := m.read(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &repository.OrgTaskStats{TasksByStatus: map[string]int{
		string(domain.TaskStatusAssigned):   0,
		string(domain.TaskStatusInProgress): 0,
		string(domain.TaskStatusCompleted):  0,
	}}
	for _, e := range m.employees {
		if e.OrgID == orgID && e.IsActive {
			stats.ActiveEmployees++
		}
	}
	for _, t := range m.tasks {
		if t.OrgID != orgID || t.IsDeleted {
			continue
		}
		stats.TasksByStatus[string(t.Status)]++
		if !t.IsCompleted() && t.DueDate != nil && t.DueDate.Before(now) {
			stats.OverdueCount++
		}
	}
	return stats, nil
}

// failingCache fails every operation.
type failingCache struct{}

var errCacheDown = errors.New("cache down")

func (failingCache) Get(context.Context, string) ([]byte, error) { return nil, errCacheDown }
func (failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return errCacheDown
}
func (failingCache) Delete(context.Context, ...string) error { return errCacheDown }

// cacheBackends returns every cache variant a read path must behave the same with.
func cacheBackends(t *testing.T) map[string]cache.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]cache.Cache{
		"none":    cache.NewNoop(),
		"memory":  cache.NewMemory(),
		"redis":   cache.NewRedis(client),
		"failing": failingCache{},
	}
}

// recordingDispatcher captures enqueued events.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []domain.TaskCompletedEvent
	err    error
}

func (d *recordingDispatcher) OnTaskCompleted(_ context.Context, e domain.TaskCompletedEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.events = append(d.events, e)
	return nil
}

func (d *recordingDispatcher) recorded() []domain.TaskCompletedEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.events)
}
