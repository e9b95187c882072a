// Package ports defines interfaces for external dependencies.
// Use cases depend on these abstractions; adapters implement them.
package ports

import (
	"context"
	"io"
	"time"

	"github.com/0xcro3dile/chemstock/internal/domain/entities"
)

// CatalogReader lists every chemical as a catalog entry.
type CatalogReader interface {
	// ListAll returns id and name of every chemical, in a stable order.
	ListAll(ctx context.Context) ([]entities.CatalogEntry, error)
}

// ChemicalRepository persists chemical stock.
type ChemicalRepository interface {
	CatalogReader

	Create(ctx context.Context, c *entities.Chemical) error
	Get(ctx context.Context, id string) (*entities.Chemical, error)
	Update(ctx context.Context, c *entities.Chemical) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]entities.Chemical, error)

	// AdjustQuantity adds delta to the stock atomically. It fails with
	// entities.ErrInsufficientStock if the result would be negative.
	AdjustQuantity(ctx context.Context, id string, delta float64) (*entities.Chemical, error)
}

// SDSRepository persists SDS document records.
type SDSRepository interface {
	SaveDocument(ctx context.Context, doc *entities.SDSDocument) error
	GetDocument(ctx context.Context, id string) (*entities.SDSDocument, error)
	ListDocuments(ctx context.Context, filter entities.SDSFilter) ([]entities.SDSDocument, error)
	DeleteDocument(ctx context.Context, id string) error
}

// BorrowingRepository persists borrowings.
type BorrowingRepository interface {
	CreateBorrowing(ctx context.Context, b *entities.Borrowing) error
	GetBorrowing(ctx context.Context, id string) (*entities.Borrowing, error)

	// TransitionBorrowing stores b only if the stored borrowing is still in
	// status from, and adds stockDelta to its chemical in the same step.
	// It fails with entities.ErrInvalidTransition when the status has moved
	// on and with entities.ErrInsufficientStock when stock would go
	// negative. Nothing is written when it fails.
	TransitionBorrowing(ctx context.Context, b *entities.Borrowing, from entities.BorrowingStatus, stockDelta float64) (*entities.Chemical, error)

	ListBorrowings(ctx context.Context, filter entities.BorrowingFilter) ([]entities.Borrowing, error)
}

// UserRepository persists accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, u *entities.User) error
	// DeleteUser removes an account together with its profile.
	DeleteUser(ctx context.Context, id string) error
	GetUser(ctx context.Context, id string) (*entities.User, error)
	GetUserByEmail(ctx context.Context, email string) (*entities.User, error)
	ListUsers(ctx context.Context) ([]entities.User, error)
	SetPushToken(ctx context.Context, userID, token string) error
}

// ProfileLookup resolves the role-specific profile identifier of a user.
// There is one lookup per role family (staff, lecturer, student).
type ProfileLookup interface {
	FindProfileID(ctx context.Context, userID string) (string, error)
	CreateProfile(ctx context.Context, userID, number string) error
}

// NotificationRepository persists in-app notifications.
type NotificationRepository interface {
	SaveNotification(ctx context.Context, n *entities.Notification) error
	ListNotifications(ctx context.Context, userID string) ([]entities.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id string) error
}

// DocumentStore keeps the raw SDS files.
type DocumentStore interface {
	// Put stores data under a name derived from name and returns the final name.
	Put(ctx context.Context, name string, data []byte) (string, error)

	// Open returns a reader for a stored file.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Remove deletes a stored file. Missing files are not an error.
	Remove(ctx context.Context, name string) error
}

// PushSender delivers a push message through an external messaging service.
type PushSender interface {
	Send(ctx context.Context, deviceToken, title, body string) error
}

// TokenService issues and verifies session tokens.
type TokenService interface {
	Issue(claims entities.Claims) (token string, expiresAt time.Time, err error)
	Verify(token string) (*entities.Claims, error)
}

// PasswordHasher hashes and checks passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)
