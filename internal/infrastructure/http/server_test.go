package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/0xcro3dile/chemstock/internal/adapters/memory"
	"github.com/0xcro3dile/chemstock/internal/adapters/token"
	"github.com/0xcro3dile/chemstock/internal/domain/entities"
	"github.com/0xcro3dile/chemstock/internal/domain/usecases"
)

type testAPI struct {
	t       *testing.T
	store   *memory.Store
	files   *memory.Files
	auth    *usecases.AuthUseCase
	handler http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := memory.NewStore()
	files := memory.NewFiles()

	tokens, err := token.NewJWTService("test-secret", time.Hour)
	require.NoError(t, err)
	auth := usecases.NewAuthUseCase(store, store.ProfileLookups(), tokens, token.NewBcryptHasher(bcrypt.MinCost), nil)
	notifications := usecases.NewNotificationUseCase(store, store, nil, nil)

	srv := NewServer(Services{
		Auth:          auth,
		Inventory:     usecases.NewInventoryUseCase(store, nil),
		Resolver:      usecases.NewChemicalResolver(store),
		SDS:           usecases.NewSDSImportUseCase(store, store, files, nil, 2, 3),
		Borrowings:    usecases.NewBorrowingUseCase(store, store, notifications, nil, 0),
		Notifications: notifications,
	}, Options{}, nil)

	return &testAPI{t: t, store: store, files: files, auth: auth, handler: srv.Handler()}
}

// signIn registers a user with role and returns a bearer token.
func (a *testAPI) signIn(email string, role entities.Role) (string, *entities.User) {
	a.t.Helper()
	ctx := context.Background()
	user, err := a.auth.Register(ctx, entities.NewUser{
		Email: email, Name: "Test " + string(role), Password: "password123", Role: role, ProfileNumber: "N-" + email,
	})
	require.NoError(a.t, err)
	session, err := a.auth.Login(ctx, email, "password123")
	require.NoError(a.t, err)
	return session.Token, user
}

func (a *testAPI) addChemical(name string, qty float64) *entities.Chemical {
	a.t.Helper()
	now := time.Now()
	c := &entities.Chemical{ID: "chem-" + strings.ReplaceAll(strings.ToLower(name), " ", "-"), Name: name, Quantity: qty, Unit: "g", CreatedAt: now, UpdatedAt: now}
	require.NoError(a.t, a.store.Create(context.Background(), c))
	return c
}

func (a *testAPI) do(method, path, tok string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestServer_Health(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do("GET", "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_RequiresAuth(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do("GET", "/api/chemicals", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decode[map[string]string](t, rec)["error"])

	rec = api.do("GET", "/api/chemicals", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_LoginSetsCookie(t *testing.T) {
	api := newTestAPI(t)
	api.signIn("ada@uni.edu", entities.RoleLecturer)

	rec := api.do("POST", "/api/auth/login", "", loginRequest{Email: "ADA@uni.edu", Password: "password123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	session := decode[entities.Session](t, rec)
	assert.Equal(t, entities.RoleLecturer, session.Profile.Role)
	assert.Equal(t, "N-ada@uni.edu", session.Profile.ProfileID)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest("GET", "/api/auth/me", nil)
	req.AddCookie(cookies[0])
	me := httptest.NewRecorder()
	api.handler.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code)
	got := decode[meResponse](t, me)
	assert.Equal(t, "ada@uni.edu", got.User.Email)
	assert.Equal(t, "N-ada@uni.edu", got.Profile.ProfileID)
}

func TestServer_LoginFailures(t *testing.T) {
	api := newTestAPI(t)
	api.signIn("ada@uni.edu", entities.RoleStudent)

	wrongPassword := api.do("POST", "/api/auth/login", "", loginRequest{Email: "ada@uni.edu", Password: "nope"})
	unknownUser := api.do("POST", "/api/auth/login", "", loginRequest{Email: "bob@uni.edu", Password: "password123"})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownUser.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownUser.Body.String())

	malformed := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, malformed)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Logout(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do("POST", "/api/auth/logout", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestServer_CreateUserAdminOnly(t *testing.T) {
	api := newTestAPI(t)
	admin, _ := api.signIn("root@uni.edu", entities.RoleAdmin)
	student, _ := api.signIn("stu@uni.edu", entities.RoleStudent)

	in := entities.NewUser{Email: "new@uni.edu", Name: "New", Password: "password123", Role: entities.RoleLabAssistant, ProfileNumber: "ST-9"}

	rec := api.do("POST", "/api/users", student, in)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do("POST", "/api/users", admin, in)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")

	rec = api.do("POST", "/api/users", admin, in)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do("GET", "/api/users", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]entities.User](t, rec), 3)
}

func TestServer_ChemicalCRUDAndRoles(t *testing.T) {
	api := newTestAPI(t)
	assistant, _ := api.signIn("lab@uni.edu", entities.RoleLabAssistant)
	student, _ := api.signIn("stu@uni.edu", entities.RoleStudent)

	in := entities.Chemical{Name: "Éthanol", Formula: "C2H5OH", Quantity: 500, Unit: "mL"}

	rec := api.do("POST", "/api/chemicals", student, in)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do("POST", "/api/chemicals", assistant, in)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[entities.Chemical](t, rec)
	assert.NotEmpty(t, created.ID)

	rec = api.do("POST", "/api/chemicals", assistant, entities.Chemical{Name: "", Unit: "g"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do("GET", "/api/chemicals?q=ethanol", student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]entities.Chemical](t, rec), 1)

	rec = api.do("GET", "/api/chemicals?q=benzene", student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	in.Quantity = 250
	rec = api.do("PUT", "/api/chemicals/"+created.ID, assistant, in)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 250, decode[entities.Chemical](t, rec).Quantity, 1e-9)

	rec = api.do("DELETE", "/api/chemicals/"+created.ID, assistant, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do("GET", "/api/chemicals/"+created.ID, student, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Resolve(t *testing.T) {
	api := newTestAPI(t)
	tok, _ := api.signIn("stu@uni.edu", entities.RoleStudent)
	api.addChemical("Sodium Chloride", 10)
	api.addChemical("Sodium Hydroxide", 10)

	rec := api.do("GET", "/api/resolve?label=03_Sodum_Chlorid.pdf", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[resolveResponse](t, rec)
	assert.Equal(t, "sodum chlorid", got.Label)
	require.NotNil(t, got.Match)
	assert.Equal(t, "Sodium Chloride", got.Match.Entry.Name)
	assert.Equal(t, 2, got.Match.Distance)
	assert.Empty(t, got.Suggestions)

	rec = api.do("GET", "/api/resolve?label=sodium", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got = decode[resolveResponse](t, rec)
	assert.Nil(t, got.Match)
	assert.Len(t, got.Suggestions, 2)

	rec = api.do("GET", "/api/resolve", tok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func multipartBody(t *testing.T, files map[string]string, order []string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range order {
		fw, err := mw.CreateFormFile(uploadField, name)
		require.NoError(t, err)
		fw.Write([]byte(files[name]))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestServer_SDSImportFlow(t *testing.T) {
	api := newTestAPI(t)
	staff, _ := api.signIn("lab@uni.edu", entities.RoleLabAssistant)
	student, _ := api.signIn("stu@uni.edu", entities.RoleStudent)
	acetone := api.addChemical("Acetone", 1000)

	body, ctype := multipartBody(t, map[string]string{
		"01_Acetone.pdf":     "%PDF acetone",
		"02_Unobtainium.pdf": "%PDF mystery",
	}, []string{"01_Acetone.pdf", "02_Unobtainium.pdf"})

	req := httptest.NewRequest("POST", "/api/sds/import", bytes.NewReader(body.Bytes()))
	req.Header.Set("Content-Type", ctype)
	req.Header.Set("Authorization", "Bearer "+student)
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest("POST", "/api/sds/import", bytes.NewReader(body.Bytes()))
	req.Header.Set("Content-Type", ctype)
	req.Header.Set("Authorization", "Bearer "+staff)
	rec = httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	report := decode[entities.ImportReport](t, rec)
	require.Len(t, report.Items, 2)
	assert.Equal(t, 1, report.Matched)
	assert.Equal(t, 1, report.NeedsReview)
	assert.Equal(t, acetone.ID, report.Items[0].Document.ChemicalID)
	assert.Equal(t, "01_acetone.pdf", report.Items[0].Document.StoredName)
	assert.Equal(t, entities.SDSNeedsReview, report.Items[1].Document.Status)

	rec = api.do("GET", "/api/sds?status=needs_review", student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pending := decode[[]entities.SDSDocument](t, rec)
	require.Len(t, pending, 1)

	rec = api.do("POST", "/api/sds/"+pending[0].ID+"/assign", staff, assignRequest{ChemicalID: acetone.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, entities.SDSMatched, decode[entities.SDSDocument](t, rec).Status)

	rec = api.do("GET", "/api/chemicals/"+acetone.ID+"/sds", student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]entities.SDSDocument](t, rec), 2)

	rec = api.do("GET", "/api/sds/"+report.Items[0].Document.ID+"/file", student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF acetone", rec.Body.String())

	rec = api.do("DELETE", "/api/sds/"+report.Items[0].Document.ID, staff, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotContains(t, api.files.Names(), "01_acetone.pdf")

	rec = api.do("GET", "/api/sds?status=bogus", student, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_SDSImportRequiresFiles(t *testing.T) {
	api := newTestAPI(t)
	staff, _ := api.signIn("lab@uni.edu", entities.RoleAdmin)

	body, ctype := multipartBody(t, nil, nil)
	req := httptest.NewRequest("POST", "/api/sds/import", body)
	req.Header.Set("Content-Type", ctype)
	req.Header.Set("Authorization", "Bearer "+staff)
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do("POST", "/api/sds/import", staff, map[string]string{"not": "multipart"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_BorrowingLifecycle(t *testing.T) {
	api := newTestAPI(t)
	staff, _ := api.signIn("lab@uni.edu", entities.RoleLabAssistant)
	student, studentUser := api.signIn("stu@uni.edu", entities.RoleStudent)
	other, _ := api.signIn("other@uni.edu", entities.RoleLecturer)
	chem := api.addChemical("Acetone", 10)

	rec := api.do("POST", "/api/borrowings", student, entities.BorrowingRequest{ChemicalID: chem.ID, Quantity: 4, Purpose: "lab 2"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	b := decode[entities.Borrowing](t, rec)
	assert.Equal(t, studentUser.ID, b.UserID)
	assert.Equal(t, entities.BorrowingPending, b.Status)

	rec = api.do("POST", "/api/borrowings", student, entities.BorrowingRequest{ChemicalID: chem.ID, Quantity: 40})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do("POST", "/api/borrowings/"+b.ID+"/approve", student, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do("GET", "/api/borrowings/"+b.ID, other, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do("POST", "/api/borrowings/"+b.ID+"/approve", staff, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	approved := decode[entities.Borrowing](t, rec)
	assert.Equal(t, entities.BorrowingApproved, approved.Status)
	assert.NotNil(t, approved.DueAt)

	stock, _ := api.store.Get(context.Background(), chem.ID)
	assert.InDelta(t, 6, stock.Quantity, 1e-9)

	rec = api.do("POST", "/api/borrowings/"+b.ID+"/approve", staff, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do("POST", "/api/borrowings/"+b.ID+"/return", other, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do("POST", "/api/borrowings/"+b.ID+"/return", student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stock, _ = api.store.Get(context.Background(), chem.ID)
	assert.InDelta(t, 10, stock.Quantity, 1e-9)

	rec = api.do("GET", "/api/borrowings", student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]entities.Borrowing](t, rec), 1)

	rec = api.do("GET", "/api/borrowings", other, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]entities.Borrowing](t, rec))

	rec = api.do("GET", "/api/borrowings?status=returned", staff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]entities.Borrowing](t, rec), 1)

	rec = api.do("GET", "/api/notifications", student, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	notes := decode[[]entities.Notification](t, rec)
	require.Len(t, notes, 2)

	rec = api.do("POST", "/api/notifications/"+notes[0].ID+"/read", student, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do("POST", "/api/notifications/"+notes[1].ID+"/read", other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_RegisterDevice(t *testing.T) {
	api := newTestAPI(t)
	tok, user := api.signIn("stu@uni.edu", entities.RoleStudent)

	rec := api.do("POST", "/api/notifications/devices", tok, deviceRequest{Token: " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do("POST", "/api/notifications/devices", tok, deviceRequest{Token: "fcm-123"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	got, _ := api.store.GetUser(context.Background(), user.ID)
	assert.Equal(t, "fcm-123", got.PushToken)
}

func TestServer_CORSPreflight(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest("OPTIONS", "/api/chemicals", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestServer_CORSAllowList(t *testing.T) {
	srv := NewServer(Services{}, Options{AllowedOrigins: []string{"https://lab.uni.edu"}}, nil)
	h := srv.corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://lab.uni.edu")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://lab.uni.edu", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_RecoversFromPanic(t *testing.T) {
	srv := NewServer(Services{}, Options{}, nil)
	h := srv.recoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		entities.ErrNotFound:           http.StatusNotFound,
		entities.ErrValidation:         http.StatusBadRequest,
		entities.ErrInvalidCredentials: http.StatusUnauthorized,
		entities.ErrUnauthorized:       http.StatusUnauthorized,
		entities.ErrForbidden:          http.StatusForbidden,
		entities.ErrConflict:           http.StatusConflict,
		entities.ErrInvalidTransition:  http.StatusConflict,
		entities.ErrInsufficientStock:  http.StatusConflict,
		io.ErrUnexpectedEOF:            http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusFor(err), err.Error())
	}
}
