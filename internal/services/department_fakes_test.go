package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"hr-backoffice/internal/entities"
	"hr-backoffice/internal/repositories"
	"hr-backoffice/pkg/deppath"
	apperrors "hr-backoffice/pkg/errors"
	"hr-backoffice/pkg/eventbus"
)

// memoryDepartmentStore is an in-memory DepartmentRepositoryInterface. Transactions are
// emulated by memoryTxManager with snapshot and restore.
type memoryDepartmentStore struct {
	mu     sync.Mutex
	rows   map[uint64]*entities.Department
	nextID uint64

	locks           []bool
	failUpdatePaths error
}

func newMemoryDepartmentStore() *memoryDepartmentStore {
	return &memoryDepartmentStore{rows: make(map[uint64]*entities.Department), nextID: 1}
}

func cloneDepartment(d *entities.Department) *entities.Department {
	c := *d
	if d.ParentID != nil {
		parentID := *d.ParentID
		c.ParentID = &parentID
	}
	if d.ManagerID != nil {
		managerID := *d.ManagerID
		c.ManagerID = &managerID
	}
	return &c
}

func (s *memoryDepartmentStore) snapshot() (map[uint64]*entities.Department, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make(map[uint64]*entities.Department, len(s.rows))
	for id, d := range s.rows {
		rows[id] = cloneDepartment(d)
	}
	return rows, s.nextID
}

func (s *memoryDepartmentStore) restore(rows map[uint64]*entities.Department, nextID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = rows
	s.nextID = nextID
}

// put writes a row directly, bypassing the service, to simulate drift or corruption.
func (s *memoryDepartmentStore) put(d entities.Department) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[d.ID] = cloneDepartment(&d)
	if d.ID >= s.nextID {
		s.nextID = d.ID + 1
	}
}

func (s *memoryDepartmentStore) get(id uint64) *entities.Department {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.rows[id]; ok {
		return cloneDepartment(d)
	}
	return nil
}

func (s *memoryDepartmentStore) filter(keep func(d *entities.Department) bool, less func(a, b *entities.Department) bool) []*entities.Department {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*entities.Department, 0)
	for _, d := range s.rows {
		if keep(d) {
			result = append(result, cloneDepartment(d))
		}
	}
	sort.Slice(result, func(i, j int) bool { return less(result[i], result[j]) })
	return result
}

func bySiblingOrder(a, b *entities.Department) bool {
	if a.SortOrder != b.SortOrder {
		return a.SortOrder < b.SortOrder
	}
	return a.ID < b.ID
}

func byLevelThenSiblingOrder(a, b *entities.Department) bool {
	if a.Level != b.Level {
		return a.Level < b.Level
	}
	return bySiblingOrder(a, b)
}

func (s *memoryDepartmentStore) FindByID(_ context.Context, _ pgx.Tx, id uint64) (*entities.Department, error) {
	if d := s.get(id); d != nil {
		return d, nil
	}
	return nil, apperrors.ErrNotFound
}

func (s *memoryDepartmentStore) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id uint64) (*entities.Department, error) {
	return s.FindByID(ctx, tx, id)
}

func (s *memoryDepartmentStore) FindByCode(_ context.Context, _ pgx.Tx, code string) (*entities.Department, error) {
	found := s.filter(func(d *entities.Department) bool { return d.Code == code }, bySiblingOrder)
	if len(found) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return found[0], nil
}

func (s *memoryDepartmentStore) FindByIDs(_ context.Context, _ pgx.Tx, ids []uint64) ([]*entities.Department, error) {
	wanted := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	return s.filter(func(d *entities.Department) bool { return wanted[d.ID] }, func(a, b *entities.Department) bool {
		if a.Level != b.Level {
			return a.Level < b.Level
		}
		return a.ID < b.ID
	}), nil
}

func (s *memoryDepartmentStore) FindAll(_ context.Context, _ pgx.Tx) ([]*entities.Department, error) {
	return s.filter(func(*entities.Department) bool { return true }, bySiblingOrder), nil
}

func (s *memoryDepartmentStore) FindSubtree(_ context.Context, _ pgx.Tx, path string, _ bool) ([]*entities.Department, error) {
	return s.filter(func(d *entities.Department) bool { return deppath.IsPrefixOf(path, d.DepPath) }, byLevelThenSiblingOrder), nil
}

func (s *memoryDepartmentStore) FindChildren(_ context.Context, _ pgx.Tx, parentID *uint64) ([]*entities.Department, error) {
	return s.filter(func(d *entities.Department) bool {
		if parentID == nil {
			return d.ParentID == nil
		}
		return d.ParentID != nil && *d.ParentID == *parentID
	}, bySiblingOrder), nil
}

func (s *memoryDepartmentStore) FindByLevel(_ context.Context, _ pgx.Tx, level int) ([]*entities.Department, error) {
	return s.filter(func(d *entities.Department) bool { return d.Level == level }, bySiblingOrder), nil
}

func (s *memoryDepartmentStore) SearchByName(_ context.Context, _ pgx.Tx, term string) ([]*entities.Department, error) {
	term = strings.ToLower(term)
	return s.filter(func(d *entities.Department) bool {
		return strings.Contains(strings.ToLower(d.Name), term)
	}, byLevelThenSiblingOrder), nil
}

func (s *memoryDepartmentStore) CountChildren(ctx context.Context, tx pgx.Tx, id uint64) (int, error) {
	children, _ := s.FindChildren(ctx, tx, &id)
	return len(children), nil
}

func (s *memoryDepartmentStore) ExistsByName(_ context.Context, _ pgx.Tx, name string, excludeID uint64) (bool, error) {
	found := s.filter(func(d *entities.Department) bool { return d.Name == name && d.ID != excludeID }, bySiblingOrder)
	return len(found) > 0, nil
}

func (s *memoryDepartmentStore) ExistsByCode(_ context.Context, _ pgx.Tx, code string, excludeID uint64) (bool, error) {
	found := s.filter(func(d *entities.Department) bool { return d.Code == code && d.ID != excludeID }, bySiblingOrder)
	return len(found) > 0, nil
}

func (s *memoryDepartmentStore) Create(_ context.Context, _ pgx.Tx, d entities.Department) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.rows {
		if existing.Name == d.Name {
			return 0, apperrors.NewAlreadyExistsError("name", d.Name)
		}
		if existing.Code == d.Code {
			return 0, apperrors.NewAlreadyExistsError("code", d.Code)
		}
	}
	if d.ParentID != nil {
		if _, ok := s.rows[*d.ParentID]; !ok {
			return 0, apperrors.NewHierarchyError(apperrors.ReasonParentInvalid, "parent department does not exist")
		}
	}

	now := time.Now()
	d.ID = s.nextID
	d.DepPath = ""
	d.Level = 0
	d.CreatedAt = &now
	d.UpdatedAt = &now
	s.nextID++
	s.rows[d.ID] = cloneDepartment(&d)
	return d.ID, nil
}

func (s *memoryDepartmentStore) Update(_ context.Context, _ pgx.Tx, d entities.Department) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[d.ID]
	if !ok {
		return apperrors.NewNotFoundError("department", d.ID)
	}
	row.Name, row.Code, row.SortOrder, row.Enabled = d.Name, d.Code, d.SortOrder, d.Enabled
	row.ManagerID, row.UpdatedBy = d.ManagerID, d.UpdatedBy
	return nil
}

func (s *memoryDepartmentStore) UpdatePath(_ context.Context, _ pgx.Tx, id uint64, path string, level int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return apperrors.NewNotFoundError("department", id)
	}
	row.DepPath, row.Level = path, level
	return nil
}

func (s *memoryDepartmentStore) UpdateParent(_ context.Context, _ pgx.Tx, id uint64, parentID *uint64, updatedBy *uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok {
		return apperrors.NewNotFoundError("department", id)
	}
	row.ParentID, row.UpdatedBy = parentID, updatedBy
	return nil
}

func (s *memoryDepartmentStore) UpdatePaths(ctx context.Context, tx pgx.Tx, updates []repositories.PathUpdate) error {
	for i, u := range updates {
		// Fail after the first row so the rollback has something to undo.
		if s.failUpdatePaths != nil && i == 1 {
			return s.failUpdatePaths
		}
		if err := s.UpdatePath(ctx, tx, u.ID, u.DepPath, u.Level); err != nil {
			return err
		}
	}
	return nil
}

func (s *memoryDepartmentStore) Delete(_ context.Context, _ pgx.Tx, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return apperrors.NewNotFoundError("department", id)
	}
	delete(s.rows, id)
	return nil
}

func (s *memoryDepartmentStore) LockHierarchy(_ context.Context, _ pgx.Tx, exclusive bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks = append(s.locks, exclusive)
	return nil
}

type memoryTxManager struct {
	store     *memoryDepartmentStore
	commits   int
	rollbacks int
}

func (m *memoryTxManager) RunInTransaction(_ context.Context, fn func(tx pgx.Tx) error) error {
	rows, nextID := m.store.snapshot()
	if err := fn(nil); err != nil {
		m.store.restore(rows, nextID)
		m.rollbacks++
		return err
	}
	m.commits++
	return nil
}

type staticDependents map[uint64]int

func (c staticDependents) CountByDepartment(_ context.Context, _ pgx.Tx, departmentID uint64) (int, error) {
	return c[departmentID], nil
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string]string
	failGet bool
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]string)}
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		c.entries[key] = string(v)
	case string:
		c.entries[key] = v
	default:
		return errors.New("unsupported cache value")
	}
	return nil
}

func (c *memoryCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return "", errors.New("connection refused")
	}
	value, ok := c.entries[key]
	if !ok {
		return "", repositories.ErrCacheMiss
	}
	return value, nil
}

func (c *memoryCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.entries, key)
	}
	return nil
}

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event eventbus.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, 0, len(p.events))
	for _, e := range p.events {
		names = append(names, e.Name())
	}
	return names
}
