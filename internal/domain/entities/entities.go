// Package entities contains core business entities.
// These are plain domain objects with no knowledge of storage, HTTP or any adapter.
package entities

import "time"

// Chemical is a stocked chemical record.
type Chemical struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Formula   string     `json:"formula,omitempty"`
	CASNumber string     `json:"cas_number,omitempty"`
	Quantity  float64    `json:"quantity"`
	Unit      string     `json:"unit"`
	Location  string     `json:"location,omitempty"`
	Hazard    string     `json:"hazard,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Entry returns the catalog view of the chemical.
func (c Chemical) Entry() CatalogEntry {
	return CatalogEntry{ID: c.ID, Name: c.Name}
}

// CatalogEntry is the read-only snapshot of a chemical used for name resolution.
type CatalogEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MatchResult is a resolved catalog entry and its edit distance to the label.
type MatchResult struct {
	Entry    CatalogEntry `json:"entry"`
	Distance int          `json:"distance"`
}

// SDSStatus tells whether an SDS document is linked to a chemical.
type SDSStatus string

const (
	SDSMatched     SDSStatus = "matched"
	SDSNeedsReview SDSStatus = "needs_review"
)

// SDSDocument is a stored safety data sheet.
type SDSDocument struct {
	ID           string    `json:"id"`
	ChemicalID   string    `json:"chemical_id,omitempty"`
	OriginalName string    `json:"original_name"`
	StoredName   string    `json:"stored_name"`
	Label        string    `json:"label"`
	Distance     int       `json:"distance"`
	Status       SDSStatus `json:"status"`
	Size         int64     `json:"size"`
	UploadedBy   string    `json:"uploaded_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SDSFilter narrows document listings. Zero values match everything.
type SDSFilter struct {
	Status     SDSStatus
	ChemicalID string
}

// Upload is one file handed to the bulk SDS import.
type Upload struct {
	Name string
	Data []byte
}

// ImportItem is the per-file outcome of a bulk import.
type ImportItem struct {
	FileName    string         `json:"file_name"`
	Label       string         `json:"label"`
	Document    *SDSDocument   `json:"document,omitempty"`
	Match       *MatchResult   `json:"match,omitempty"`
	Suggestions []CatalogEntry `json:"suggestions,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// ImportReport summarizes a bulk import. Items keep the input order.
type ImportReport struct {
	Items       []ImportItem `json:"items"`
	Matched     int          `json:"matched"`
	NeedsReview int          `json:"needs_review"`
	Failed      int          `json:"failed"`
}

// Role is a user's role tag.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleLabAssistant Role = "lab_assistant"
	RoleLecturer     Role = "lecturer"
	RoleStudent      Role = "student"
)

// Roles lists every known role.
var Roles = []Role{RoleAdmin, RoleLabAssistant, RoleLecturer, RoleStudent}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role manages stock and approvals.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleLabAssistant
}

// User is an account. The role-specific profile lives in its own store.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	PushToken    string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewUser carries registration input. ProfileNumber is the staff,
// lecturer or student number.
type NewUser struct {
	Email         string `json:"email"`
	Name          string `json:"name"`
	Password      string `json:"password"`
	Role          Role   `json:"role"`
	ProfileNumber string `json:"profile_number"`
}

// Profile is the role-specific identity resolved at login.
type Profile struct {
	Role      Role   `json:"role"`
	ProfileID string `json:"profile_id"`
	Name      string `json:"name"`
}

// Claims are the verified contents of a session token.
type Claims struct {
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	ProfileID string    `json:"profile_id"`
	Name      string    `json:"name"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Session is returned by a successful login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
	Profile   Profile   `json:"profile"`
}

// BorrowingStatus is the lifecycle state of a borrowing.
type BorrowingStatus string

const (
	BorrowingPending  BorrowingStatus = "pending"
	BorrowingApproved BorrowingStatus = "approved"
	BorrowingRejected BorrowingStatus = "rejected"
	BorrowingReturned BorrowingStatus = "returned"
)

// CanTransition reports whether a borrowing may move from s to next.
func (s BorrowingStatus) CanTransition(next BorrowingStatus) bool {
	switch s {
	case BorrowingPending:
		return next == BorrowingApproved || next == BorrowingRejected
	case BorrowingApproved:
		return next == BorrowingReturned
	default:
		return false
	}
}

// Borrowing is a checkout of some quantity of a chemical.
type Borrowing struct {
	ID          string          `json:"id"`
	ChemicalID  string          `json:"chemical_id"`
	UserID      string          `json:"user_id"`
	Quantity    float64         `json:"quantity"`
	Purpose     string          `json:"purpose,omitempty"`
	Status      BorrowingStatus `json:"status"`
	RequestedAt time.Time       `json:"requested_at"`
	ApprovedBy  string          `json:"approved_by,omitempty"`
	BorrowedAt  *time.Time      `json:"borrowed_at,omitempty"`
	DueAt       *time.Time      `json:"due_at,omitempty"`
	ReturnedAt  *time.Time      `json:"returned_at,omitempty"`
}

// BorrowingRequest carries the input of a new borrowing.
type BorrowingRequest struct {
	ChemicalID string     `json:"chemical_id"`
	Quantity   float64    `json:"quantity"`
	Purpose    string     `json:"purpose"`
	DueAt      *time.Time `json:"due_at"`
}

// Notification is an in-app message for one user.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// BorrowingFilter narrows borrowing listings. Zero values match everything.
type BorrowingFilter struct {
	UserID string
	Status BorrowingStatus
}
