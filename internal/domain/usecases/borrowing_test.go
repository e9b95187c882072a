package usecases

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/chemstock/internal/adapters/memory"
	"github.com/0xcro3dile/chemstock/internal/domain/entities"
)

// mockPush records pushes and optionally fails them.
type mockPush struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *mockPush) Send(ctx context.Context, deviceToken, title, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, deviceToken+"|"+title)
	return m.err
}

// staleBorrowings serves the first read of every borrowing forever, as a
// concurrent request that loaded it before another one changed it would see.
type staleBorrowings struct {
	*memory.Store
	mu   sync.Mutex
	seen map[string]entities.Borrowing
}

func (s *staleBorrowings) GetBorrowing(ctx context.Context, id string) (*entities.Borrowing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.seen[id]; ok {
		return &b, nil
	}
	b, err := s.Store.GetBorrowing(ctx, id)
	if err != nil {
		return nil, err
	}
	s.seen[id] = *b
	return b, nil
}

type borrowingFixture struct {
	uc     *BorrowingUseCase
	store  *memory.Store
	push   *mockPush
	notify *NotificationUseCase
	clock  time.Time
}

func newBorrowingFixture(t *testing.T) *borrowingFixture {
	t.Helper()
	store := memory.NewStore()
	push := &mockPush{}
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, &entities.User{ID: "stu", Email: "s@uni.edu", Role: entities.RoleStudent, PushToken: "device-stu"}))
	require.NoError(t, store.Create(ctx, &entities.Chemical{ID: "acetone", Name: "Acetone", Quantity: 10, Unit: "mL"}))

	f := &borrowingFixture{store: store, push: push, clock: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	f.notify = NewNotificationUseCase(store, store, push, nil)
	f.uc = NewBorrowingUseCase(store, store, f.notify, nil, 48*time.Hour)
	f.uc.now = func() time.Time { return f.clock }
	return f
}

func (f *borrowingFixture) stock(t *testing.T) float64 {
	t.Helper()
	c, err := f.store.Get(context.Background(), "acetone")
	require.NoError(t, err)
	return c.Quantity
}

func TestBorrowing_FullLifecycle(t *testing.T) {
	f := newBorrowingFixture(t)
	ctx := context.Background()

	b, err := f.uc.Request(ctx, "stu", entities.BorrowingRequest{ChemicalID: "acetone", Quantity: 3, Purpose: "titration"})
	require.NoError(t, err)
	assert.Equal(t, entities.BorrowingPending, b.Status)
	assert.InDelta(t, 10, f.stock(t), 1e-9)

	b, err = f.uc.Approve(ctx, b.ID, "lab")
	require.NoError(t, err)
	assert.Equal(t, entities.BorrowingApproved, b.Status)
	assert.Equal(t, "lab", b.ApprovedBy)
	require.NotNil(t, b.DueAt)
	assert.Equal(t, f.clock.Add(48*time.Hour), *b.DueAt)
	assert.InDelta(t, 7, f.stock(t), 1e-9)

	f.clock = f.clock.Add(24 * time.Hour)
	b, err = f.uc.Return(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BorrowingReturned, b.Status)
	require.NotNil(t, b.ReturnedAt)
	assert.Equal(t, f.clock, *b.ReturnedAt)
	assert.InDelta(t, 10, f.stock(t), 1e-9)

	notes, err := f.notify.List(ctx, "stu")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "Borrowing returned", notes[0].Title)
	assert.Equal(t, "Borrowing approved", notes[1].Title)
	assert.Equal(t, []string{"device-stu|Borrowing approved", "device-stu|Borrowing returned"}, f.push.sent)
}

func TestBorrowing_RequestValidation(t *testing.T) {
	f := newBorrowingFixture(t)
	ctx := context.Background()

	_, err := f.uc.Request(ctx, "stu", entities.BorrowingRequest{ChemicalID: "acetone", Quantity: 0})
	assert.ErrorIs(t, err, entities.ErrValidation)

	_, err = f.uc.Request(ctx, "stu", entities.BorrowingRequest{ChemicalID: "acetone", Quantity: 11})
	assert.ErrorIs(t, err, entities.ErrInsufficientStock)

	_, err = f.uc.Request(ctx, "stu", entities.BorrowingRequest{ChemicalID: "nope", Quantity: 1})
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestBorrowing_ApproveChecksStockAtApprovalTime(t *testing.T) {
	f := newBorrowingFixture(t)
	ctx := context.Background()

	first, err := f.uc.Request(ctx, "stu", entities.BorrowingRequest{ChemicalID: "acetone", Quantity: 6})
	require.NoError(t, err)
	second, err := f.uc.Request(ctx, "stu", entities.BorrowingRequest{ChemicalID: "acetone", Quantity: 6})
	require.NoError(t, err)

	_, err = f.uc.Approve(ctx, first.ID, "lab")
	require.NoError(t, err)
	_, err = f.uc.Approve(ctx, second.ID, "lab")
	assert.ErrorIs(t, err, entities.ErrInsufficientStock)

	got, _ := f.uc.Get(ctx, second.ID)
	assert.Equal(t, entities.BorrowingPending, got.Status)
	assert.InDelta(t, 4, f.stock(t), 1e-9)
}

func TestBorrowing_InvalidTransitions(t *testing.T) {
	f := newBorrowingFixture(t)
	ctx := context.Background()

	b, _ := f.uc.Request(ctx, "stu", entities.BorrowingRequest{ChemicalID: "acetone", Quantity: 1})

	_, err := f.uc.Return(ctx, b.ID)
	assert.ErrorIs(t, err, entities.ErrInvalidTransition)

	_, err = f.uc.Reject(ctx, b.ID, "lab")
	require.NoError(t, err)

	_, err = f.uc.Approve(ctx, b.ID, "lab")
	assert.ErrorIs(t, err, entities.ErrInvalidTransition)
	_, err = f.uc.Reject(ctx, b.ID, "lab")
	assert.ErrorIs(t, err, entities.ErrInvalidTransition)
	assert.InDelta(t, 10, f.stock(t), 1e-9)

	_, err = f.uc.Approve(ctx, "missing", "lab")
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestBorrowing_StaleReadCannotApproveTwice(t *testing.T) {
	f := newBorrowingFixture(t)
	ctx := context.Background()
	b, _ := f.uc.Request(ctx, "stu", entities.BorrowingRequest{ChemicalID: "acetone", Quantity: 2})

	stale := NewBorrowingUseCase(&staleBorrowings{Store: f.store, seen: map[string]entities.Borrowing{}}, f.store, nil, nil, 0)
	_, err := stale.Approve(ctx, b.ID, "lab")
	require.NoError(t, err)
	assert.InDelta(t, 8, f.stock(t), 1e-9)

	_, err = stale.Approve(ctx, b.ID, "lab")
	assert.ErrorIs(t, err, entities.ErrInvalidTransition)
	assert.InDelta(t, 8, f.stock(t), 1e-9)

	_, err = stale.Reject(ctx, b.ID, "lab")
	assert.ErrorIs(t, err, entities.ErrInvalidTransition)

	got, _ := f.uc.Get(ctx, b.ID)
	assert.Equal(t, entities.BorrowingApproved, got.Status)
}

func TestBorrowing_ConcurrentTransitionsMoveStockOnce(t *testing.T) {
	f := newBorrowingFixture(t)
	ctx := context.Background()
	b, _ := f.uc.Request(ctx, "stu", entities.BorrowingRequest{ChemicalID: "acetone", Quantity: 3})

	race := func(op func() error) (ok, invalid int) {
		var mu sync.Mutex
		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := op()
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					ok++
				case errors.Is(err, entities.ErrInvalidTransition):
					invalid++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()
		return ok, invalid
	}

	ok, invalid := race(func() error {
		_, err := f.uc.Approve(ctx, b.ID, "lab")
		return err
	})
	assert.Equal(t, 1, ok)
	assert.Equal(t, 7, invalid)
	assert.InDelta(t, 7, f.stock(t), 1e-9)

	ok, invalid = race(func() error {
		_, err := f.uc.Return(ctx, b.ID)
		return err
	})
	assert.Equal(t, 1, ok)
	assert.Equal(t, 7, invalid)
	assert.InDelta(t, 10, f.stock(t), 1e-9)
}

func TestBorrowing_PushFailureDoesNotFailApproval(t *testing.T) {
	f := newBorrowingFixture(t)
	f.push.err = errors.New("gateway down")
	ctx := context.Background()

	b, _ := f.uc.Request(ctx, "stu", entities.BorrowingRequest{ChemicalID: "acetone", Quantity: 1})
	_, err := f.uc.Approve(ctx, b.ID, "lab")
	require.NoError(t, err)

	notes, _ := f.notify.List(ctx, "stu")
	assert.Len(t, notes, 1)
}

func TestBorrowing_ListingsAndOverdue(t *testing.T) {
	f := newBorrowingFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.CreateUser(ctx, &entities.User{ID: "lec", Email: "l@uni.edu", Role: entities.RoleLecturer}))

	due := f.clock.Add(time.Hour)
	late, _ := f.uc.Request(ctx, "stu", entities.BorrowingRequest{ChemicalID: "acetone", Quantity: 1, DueAt: &due})
	onTime, _ := f.uc.Request(ctx, "lec", entities.BorrowingRequest{ChemicalID: "acetone", Quantity: 1})
	_, _ = f.uc.Request(ctx, "stu", entities.BorrowingRequest{ChemicalID: "acetone", Quantity: 1})

	_, err := f.uc.Approve(ctx, late.ID, "lab")
	require.NoError(t, err)
	_, err = f.uc.Approve(ctx, onTime.ID, "lab")
	require.NoError(t, err)

	mine, err := f.uc.ListForUser(ctx, "stu")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	pending, err := f.uc.ListAll(ctx, entities.BorrowingPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	all, err := f.uc.ListAll(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	overdue, err := f.uc.Overdue(ctx, f.clock.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, late.ID, overdue[0].ID)

	f.clock = f.clock.Add(2 * time.Hour)
	sent, err := f.uc.RemindOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	notes, _ := f.notify.List(ctx, "stu")
	assert.Equal(t, "Borrowing overdue", notes[0].Title)
}
