package service

import (
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/tradeworks/backoffice_api/internal/models"
	"github.com/tradeworks/backoffice_api/internal/repository"
)

// In-memory stores backing the service tests.

type stubItemStore struct {
	items  map[int]*models.PricebookItem
	nextID int
}

func newStubItemStore() *stubItemStore {
	return &stubItemStore{items: map[int]*models.PricebookItem{}, nextID: 1}
}

func (s *stubItemStore) add(item *models.PricebookItem) *models.PricebookItem {
	if item.ID == 0 {
		item.ID = s.nextID
	}
	if item.ID >= s.nextID {
		s.nextID = item.ID + 1
	}
	s.items[item.ID] = item
	return item
}

func (s *stubItemStore) List(filter *repository.ItemFilter) ([]models.PricebookItem, int, error) {
	var out []models.PricebookItem
	for _, item := range s.items {
		if item.IsActive {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (s *stubItemStore) GetByID(id int) (*models.PricebookItem, error) {
	item, ok := s.items[id]
	if !ok || !item.IsActive {
		return nil, sql.ErrNoRows
	}
	copied := *item
	return &copied, nil
}

func (s *stubItemStore) GetByItemCode(code string) (*models.PricebookItem, error) {
	for _, item := range s.items {
		if item.IsActive && strings.EqualFold(item.ItemCode, code) {
			copied := *item
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubItemStore) Create(item *models.PricebookItem) error {
	item.CreatedAt = time.Now()
	s.add(item)
	return nil
}

func (s *stubItemStore) Update(item *models.PricebookItem) error {
	if _, ok := s.items[item.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *item
	s.items[item.ID] = &copied
	return nil
}

func (s *stubItemStore) SoftDelete(id int) error {
	item, ok := s.items[id]
	if !ok || !item.IsActive {
		return sql.ErrNoRows
	}
	item.IsActive = false
	return nil
}

func (s *stubItemStore) Categories() ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, item := range s.items {
		if item.Category != nil && !seen[*item.Category] {
			seen[*item.Category] = true
			out = append(out, *item.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *stubItemStore) ListWithDefaultSupplier() ([]models.PricebookItem, error) {
	var out []models.PricebookItem
	for _, item := range s.items {
		if item.IsActive && item.DefaultSupplierID != nil {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type stubHistoryStore struct {
	histories map[int]*models.PriceHistory
	nextID    int
}

func newStubHistoryStore() *stubHistoryStore {
	return &stubHistoryStore{histories: map[int]*models.PriceHistory{}, nextID: 1}
}

func (s *stubHistoryStore) add(h *models.PriceHistory) *models.PriceHistory {
	if h.ID == 0 {
		h.ID = s.nextID
	}
	if h.ID >= s.nextID {
		s.nextID = h.ID + 1
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now()
	}
	s.histories[h.ID] = h
	return h
}

func (s *stubHistoryStore) ListByItem(itemID int) ([]models.PriceHistory, error) {
	var out []models.PriceHistory
	for _, h := range s.histories {
		if h.PricebookItemID == itemID {
			out = append(out, *h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *stubHistoryStore) ListByItems(itemIDs []int) (map[int][]models.PriceHistory, error) {
	out := map[int][]models.PriceHistory{}
	for _, id := range itemIDs {
		histories, _ := s.ListByItem(id)
		if len(histories) > 0 {
			out[id] = histories
		}
	}
	return out, nil
}

func (s *stubHistoryStore) GetByID(itemID, historyID int) (*models.PriceHistory, error) {
	h, ok := s.histories[historyID]
	if !ok || h.PricebookItemID != itemID {
		return nil, sql.ErrNoRows
	}
	copied := *h
	return &copied, nil
}

func (s *stubHistoryStore) LatestForSupplier(itemID, supplierID int) (*models.PriceHistory, error) {
	var latest *models.PriceHistory
	for _, h := range s.histories {
		if h.PricebookItemID != itemID || h.SupplierID == nil || *h.SupplierID != supplierID {
			continue
		}
		if latest == nil || h.CreatedAt.After(latest.CreatedAt) {
			latest = h
		}
	}
	if latest == nil {
		return nil, sql.ErrNoRows
	}
	copied := *latest
	return &copied, nil
}

func (s *stubHistoryStore) Create(h *models.PriceHistory) error {
	s.add(h)
	return nil
}

func (s *stubHistoryStore) Update(h *models.PriceHistory) error {
	existing, ok := s.histories[h.ID]
	if !ok || existing.PricebookItemID != h.PricebookItemID {
		return sql.ErrNoRows
	}
	copied := *h
	s.histories[h.ID] = &copied
	return nil
}

func (s *stubHistoryStore) Delete(itemID, historyID int) (bool, error) {
	h, ok := s.histories[historyID]
	if !ok || h.PricebookItemID != itemID {
		return false, nil
	}
	delete(s.histories, historyID)
	return true, nil
}

type stubContactStore struct {
	contacts map[int]*models.Contact
	items    *stubItemStore
	history  *stubHistoryStore
	nextID   int
}

func newStubContactStore(items *stubItemStore, history *stubHistoryStore) *stubContactStore {
	return &stubContactStore{
		contacts: map[int]*models.Contact{},
		items:    items,
		history:  history,
		nextID:   1,
	}
}

func (s *stubContactStore) add(c *models.Contact) *models.Contact {
	if c.ID == 0 {
		c.ID = s.nextID
	}
	if c.ID >= s.nextID {
		s.nextID = c.ID + 1
	}
	s.contacts[c.ID] = c
	return c
}

func (s *stubContactStore) List(filter *repository.ContactFilter) ([]models.Contact, int, error) {
	var out []models.Contact
	for _, c := range s.contacts {
		if c.IsActive {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (s *stubContactStore) GetByID(id int) (*models.Contact, error) {
	c, ok := s.contacts[id]
	if !ok || !c.IsActive {
		return nil, sql.ErrNoRows
	}
	copied := *c
	return &copied, nil
}

func (s *stubContactStore) GetByFullName(name string) (*models.Contact, error) {
	for _, c := range s.contacts {
		if c.IsActive && strings.EqualFold(c.FullName, name) {
			copied := *c
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubContactStore) Create(c *models.Contact) error {
	c.CreatedAt = time.Now()
	s.add(c)
	return nil
}

func (s *stubContactStore) Update(c *models.Contact) error {
	if _, ok := s.contacts[c.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *c
	s.contacts[c.ID] = &copied
	return nil
}

func (s *stubContactStore) SoftDelete(id int) error {
	c, ok := s.contacts[id]
	if !ok || !c.IsActive {
		return sql.ErrNoRows
	}
	c.IsActive = false
	return nil
}

func (s *stubContactStore) ReassignPriceHistories(fromID, toID int) (int64, error) {
	var n int64
	for _, h := range s.history.histories {
		if h.SupplierID != nil && *h.SupplierID == fromID {
			to := toID
			h.SupplierID = &to
			n++
		}
	}
	return n, nil
}

func (s *stubContactStore) ReassignDefaultSupplier(fromID, toID int) (int64, error) {
	var n int64
	for _, item := range s.items.items {
		if item.DefaultSupplierID != nil && *item.DefaultSupplierID == fromID {
			to := toID
			item.DefaultSupplierID = &to
			n++
		}
	}
	return n, nil
}

func (s *stubContactStore) SupplierItemIDs(supplierID int) ([]int, error) {
	ids := map[int]bool{}
	for _, item := range s.items.items {
		if item.DefaultSupplierID != nil && *item.DefaultSupplierID == supplierID {
			ids[item.ID] = true
		}
	}
	for _, h := range s.history.histories {
		if h.SupplierID != nil && *h.SupplierID == supplierID {
			ids[h.PricebookItemID] = true
		}
	}
	var out []int
	for id := range ids {
		out = append(out, id)
	}
	sort.Ints(out)
	return out, nil
}

type stubDocumentStore struct {
	documents map[int]*models.Document
	nextID    int
}

func newStubDocumentStore() *stubDocumentStore {
	return &stubDocumentStore{documents: map[int]*models.Document{}, nextID: 1}
}

func (s *stubDocumentStore) List(status string, page, limit int) ([]models.Document, int, error) {
	var out []models.Document
	for _, d := range s.documents {
		if status == "" || string(d.Status) == status {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

func (s *stubDocumentStore) GetByID(id int) (*models.Document, error) {
	d, ok := s.documents[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *d
	return &copied, nil
}

func (s *stubDocumentStore) Create(d *models.Document) error {
	d.ID = s.nextID
	s.nextID++
	d.CreatedAt = time.Now()
	copied := *d
	s.documents[d.ID] = &copied
	return nil
}

func (s *stubDocumentStore) GetPendingForAnalysis(limit int) ([]models.Document, error) {
	var out []models.Document
	for _, d := range s.documents {
		if d.Status != models.DocumentStatusPending {
			continue
		}
		d.Status = models.DocumentStatusProcessing
		out = append(out, *d)
		if len(out) == limit {
			break
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubDocumentStore) SaveExtraction(d *models.Document) error {
	if _, ok := s.documents[d.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *d
	s.documents[d.ID] = &copied
	return nil
}

func (s *stubDocumentStore) Requeue(id int) error {
	d, ok := s.documents[id]
	if !ok {
		return sql.ErrNoRows
	}
	d.Status = models.DocumentStatusPending
	d.FailureReason = nil
	return nil
}

type stubScheduleStore struct {
	tasks      map[int]*models.ScheduleTask
	entries    map[int]*models.TimesheetEntry
	nextTaskID int
	nextEntry  int
}

func newStubScheduleStore() *stubScheduleStore {
	return &stubScheduleStore{
		tasks:      map[int]*models.ScheduleTask{},
		entries:    map[int]*models.TimesheetEntry{},
		nextTaskID: 1,
		nextEntry:  1,
	}
}

func (s *stubScheduleStore) ListTasks(filter *repository.TaskFilter) ([]models.ScheduleTask, error) {
	var out []models.ScheduleTask
	for _, t := range s.tasks {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubScheduleStore) GetTaskByID(id int) (*models.ScheduleTask, error) {
	t, ok := s.tasks[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *t
	return &copied, nil
}

func (s *stubScheduleStore) CreateTask(t *models.ScheduleTask) error {
	t.ID = s.nextTaskID
	s.nextTaskID++
	copied := *t
	s.tasks[t.ID] = &copied
	return nil
}

func (s *stubScheduleStore) UpdateTask(t *models.ScheduleTask) error {
	if _, ok := s.tasks[t.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *t
	s.tasks[t.ID] = &copied
	return nil
}

func (s *stubScheduleStore) DeleteTask(id int) error {
	if _, ok := s.tasks[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.tasks, id)
	return nil
}

func (s *stubScheduleStore) CreateTimesheetEntry(e *models.TimesheetEntry) error {
	e.ID = s.nextEntry
	s.nextEntry++
	copied := *e
	s.entries[e.ID] = &copied
	return nil
}

func (s *stubScheduleStore) ListTimesheetEntries(resourceID int, from, to time.Time) ([]models.TimesheetEntry, error) {
	var out []models.TimesheetEntry
	for _, e := range s.entries {
		if e.ResourceID == resourceID && !e.WorkDate.Before(from) && !e.WorkDate.After(to) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubScheduleStore) FindOverlapping(resourceID int, workDate time.Time, startMinute, endMinute int) ([]models.TimesheetEntry, error) {
	var out []models.TimesheetEntry
	for _, e := range s.entries {
		if e.ResourceID == resourceID && e.WorkDate.Equal(workDate) &&
			e.StartMinute < endMinute && e.EndMinute > startMinute {
			out = append(out, *e)
		}
	}
	return out, nil
}
