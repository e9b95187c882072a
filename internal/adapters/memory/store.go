// Package memory provides in-memory persistence adapters.
// They implement the same ports as the sqlite adapter and back tests and
// the --memory serve mode.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/0xcro3dile/chemstock/internal/domain/entities"
	"github.com/0xcro3dile/chemstock/internal/domain/ports"
)

// Store is an in-memory implementation of the repository ports.
type Store struct {
	mu            sync.RWMutex
	chemicals     map[string]entities.Chemical
	documents     map[string]entities.SDSDocument
	borrowings    map[string]entities.Borrowing
	users         map[string]entities.User
	notifications map[string]entities.Notification
	profiles      map[string]map[string]string // table -> userID -> number
	seq           int64
	order         map[string]int64 // insertion order of every record
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		chemicals:     make(map[string]entities.Chemical),
		documents:     make(map[string]entities.SDSDocument),
		borrowings:    make(map[string]entities.Borrowing),
		users:         make(map[string]entities.User),
		notifications: make(map[string]entities.Notification),
		profiles:      make(map[string]map[string]string),
		order:         make(map[string]int64),
	}
}

func (s *Store) touch(id string) {
	if _, ok := s.order[id]; !ok {
		s.seq++
		s.order[id] = s.seq
	}
}

func (s *Store) byInsertion(ids []string) {
	sort.Slice(ids, func(i, j int) bool { return s.order[ids[i]] < s.order[ids[j]] })
}

// ListAll returns the catalog in insertion order.
func (s *Store) ListAll(ctx context.Context) ([]entities.CatalogEntry, error) {
	chems, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]entities.CatalogEntry, len(chems))
	for i, c := range chems {
		out[i] = c.Entry()
	}
	return out, nil
}

// Create stores a new chemical.
func (s *Store) Create(ctx context.Context, c *entities.Chemical) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chemicals[c.ID]; ok {
		return fmt.Errorf("chemical %s: %w", c.ID, entities.ErrConflict)
	}
	s.chemicals[c.ID] = *c
	s.touch(c.ID)
	return nil
}

// Get returns one chemical.
func (s *Store) Get(ctx context.Context, id string) (*entities.Chemical, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.chemicals[id]
	if !ok {
		return nil, fmt.Errorf("chemical %s: %w", id, entities.ErrNotFound)
	}
	return &c, nil
}

// Update replaces a chemical.
func (s *Store) Update(ctx context.Context, c *entities.Chemical) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chemicals[c.ID]; !ok {
		return fmt.Errorf("chemical %s: %w", c.ID, entities.ErrNotFound)
	}
	s.chemicals[c.ID] = *c
	return nil
}

// Delete removes a chemical.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chemicals[id]; !ok {
		return fmt.Errorf("chemical %s: %w", id, entities.ErrNotFound)
	}
	for _, b := range s.borrowings {
		if b.ChemicalID == id {
			return fmt.Errorf("chemical %s has borrowings: %w", id, entities.ErrConflict)
		}
	}
	delete(s.chemicals, id)
	for docID, d := range s.documents {
		if d.ChemicalID == id {
			d.ChemicalID = ""
			s.documents[docID] = d
		}
	}
	return nil
}

// List returns every chemical in insertion order.
func (s *Store) List(ctx context.Context) ([]entities.Chemical, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.chemicals))
	for id := range s.chemicals {
		ids = append(ids, id)
	}
	s.byInsertion(ids)

	out := make([]entities.Chemical, len(ids))
	for i, id := range ids {
		out[i] = s.chemicals[id]
	}
	return out, nil
}

// AdjustQuantity adds delta to a chemical's stock.
func (s *Store) AdjustQuantity(ctx context.Context, id string, delta float64) (*entities.Chemical, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chemicals[id]
	if !ok {
		return nil, fmt.Errorf("chemical %s: %w", id, entities.ErrNotFound)
	}
	if c.Quantity+delta < 0 {
		return nil, fmt.Errorf("%w: %s has %.2f %s left", entities.ErrInsufficientStock, c.Name, c.Quantity, c.Unit)
	}
	c.Quantity += delta
	s.chemicals[id] = c
	return &c, nil
}

// SaveDocument inserts or replaces an SDS record.
func (s *Store) SaveDocument(ctx context.Context, doc *entities.SDSDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.documents[doc.ID] = *doc
	s.touch(doc.ID)
	return nil
}

// GetDocument returns one SDS record.
func (s *Store) GetDocument(ctx context.Context, id string) (*entities.SDSDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.documents[id]
	if !ok {
		return nil, fmt.Errorf("sds document %s: %w", id, entities.ErrNotFound)
	}
	return &d, nil
}

// ListDocuments returns SDS records matching filter in insertion order.
func (s *Store) ListDocuments(ctx context.Context, filter entities.SDSFilter) ([]entities.SDSDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, d := range s.documents {
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		if filter.ChemicalID != "" && d.ChemicalID != filter.ChemicalID {
			continue
		}
		ids = append(ids, id)
	}
	s.byInsertion(ids)

	out := make([]entities.SDSDocument, len(ids))
	for i, id := range ids {
		out[i] = s.documents[id]
	}
	return out, nil
}

// DeleteDocument removes an SDS record.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[id]; !ok {
		return fmt.Errorf("sds document %s: %w", id, entities.ErrNotFound)
	}
	delete(s.documents, id)
	return nil
}

// CreateBorrowing stores a new borrowing.
func (s *Store) CreateBorrowing(ctx context.Context, b *entities.Borrowing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.borrowings[b.ID] = *b
	s.touch(b.ID)
	return nil
}

// GetBorrowing returns one borrowing.
func (s *Store) GetBorrowing(ctx context.Context, id string) (*entities.Borrowing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.borrowings[id]
	if !ok {
		return nil, fmt.Errorf("borrowing %s: %w", id, entities.ErrNotFound)
	}
	return &b, nil
}

// TransitionBorrowing replaces a borrowing that is still in status from and
// applies stockDelta to its chemical under one lock.
func (s *Store) TransitionBorrowing(ctx context.Context, b *entities.Borrowing, from entities.BorrowingStatus, stockDelta float64) (*entities.Chemical, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.borrowings[b.ID]
	if !ok {
		return nil, fmt.Errorf("borrowing %s: %w", b.ID, entities.ErrNotFound)
	}
	if current.Status != from {
		return nil, fmt.Errorf("%w: borrowing %s is %s, not %s", entities.ErrInvalidTransition, b.ID, current.Status, from)
	}
	c, ok := s.chemicals[b.ChemicalID]
	if !ok {
		return nil, fmt.Errorf("chemical %s: %w", b.ChemicalID, entities.ErrNotFound)
	}
	if c.Quantity+stockDelta < 0 {
		return nil, fmt.Errorf("%w: %s has %.2f %s left", entities.ErrInsufficientStock, c.Name, c.Quantity, c.Unit)
	}

	c.Quantity += stockDelta
	s.chemicals[c.ID] = c
	s.borrowings[b.ID] = *b
	return &c, nil
}

// ListBorrowings returns borrowings matching filter in insertion order.
func (s *Store) ListBorrowings(ctx context.Context, filter entities.BorrowingFilter) ([]entities.Borrowing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, b := range s.borrowings {
		if filter.UserID != "" && b.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		ids = append(ids, id)
	}
	s.byInsertion(ids)

	out := make([]entities.Borrowing, len(ids))
	for i, id := range ids {
		out[i] = s.borrowings[id]
	}
	return out, nil
}

// CreateUser stores a new account. Emails are unique.
func (s *Store) CreateUser(ctx context.Context, u *entities.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == u.Email {
			return fmt.Errorf("user %s: %w", u.Email, entities.ErrConflict)
		}
	}
	s.users[u.ID] = *u
	s.touch(u.ID)
	return nil
}

// DeleteUser removes an account and its profile rows.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return fmt.Errorf("user %s: %w", id, entities.ErrNotFound)
	}
	delete(s.users, id)
	delete(s.order, id)
	for _, rows := range s.profiles {
		delete(rows, id)
	}
	return nil
}

// GetUser returns one account.
func (s *Store) GetUser(ctx context.Context, id string) (*entities.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, entities.ErrNotFound)
	}
	return &u, nil
}

// GetUserByEmail returns the account with the given email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*entities.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", email, entities.ErrNotFound)
}

// ListUsers returns every account in insertion order.
func (s *Store) ListUsers(ctx context.Context) ([]entities.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	s.byInsertion(ids)

	out := make([]entities.User, len(ids))
	for i, id := range ids {
		out[i] = s.users[id]
	}
	return out, nil
}

// SetPushToken stores the device token of a user.
func (s *Store) SetPushToken(ctx context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, entities.ErrNotFound)
	}
	u.PushToken = token
	s.users[userID] = u
	return nil
}

// SaveNotification stores a notification.
func (s *Store) SaveNotification(ctx context.Context, n *entities.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications[n.ID] = *n
	s.touch(n.ID)
	return nil
}

// ListNotifications returns the notifications of userID, newest first.
func (s *Store) ListNotifications(ctx context.Context, userID string) ([]entities.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, n := range s.notifications {
		if n.UserID == userID {
			ids = append(ids, id)
		}
	}
	s.byInsertion(ids)

	out := make([]entities.Notification, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, s.notifications[ids[i]])
	}
	return out, nil
}

// MarkNotificationRead flags a notification of userID as read.
func (s *Store) MarkNotificationRead(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return fmt.Errorf("notification %s: %w", id, entities.ErrNotFound)
	}
	n.Read = true
	s.notifications[id] = n
	return nil
}

// ProfileLookups maps every role to its profile family: admins and lab
// assistants share the staff table.
func (s *Store) ProfileLookups() map[entities.Role]ports.ProfileLookup {
	staff := s.Profiles("staff")
	return map[entities.Role]ports.ProfileLookup{
		entities.RoleAdmin:        staff,
		entities.RoleLabAssistant: staff,
		entities.RoleLecturer:     s.Profiles("lecturers"),
		entities.RoleStudent:      s.Profiles("students"),
	}
}

// Profiles returns the profile lookup backed by the named table.
func (s *Store) Profiles(table string) *ProfileTable {
	return &ProfileTable{store: s, table: table}
}

// ProfileTable implements ports.ProfileLookup for one profile family.
type ProfileTable struct {
	store *Store
	table string
}

// FindProfileID returns the profile number of userID.
func (p *ProfileTable) FindProfileID(ctx context.Context, userID string) (string, error) {
	p.store.mu.RLock()
	defer p.store.mu.RUnlock()

	number, ok := p.store.profiles[p.table][userID]
	if !ok {
		return "", fmt.Errorf("%s profile of %s: %w", p.table, userID, entities.ErrNotFound)
	}
	return number, nil
}

// CreateProfile stores the profile number of userID.
func (p *ProfileTable) CreateProfile(ctx context.Context, userID, number string) error {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()

	rows := p.store.profiles[p.table]
	if rows == nil {
		rows = make(map[string]string)
		p.store.profiles[p.table] = rows
	}
	for _, n := range rows {
		if n == number {
			return fmt.Errorf("%s profile %s: %w", p.table, number, entities.ErrConflict)
		}
	}
	rows[userID] = number
	return nil
}
