// Package http provides the HTTP server infrastructure.
// Clean Architecture: Framework/driver layer - outermost circle.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/0xcro3dile/chemstock/internal/domain/entities"
	"github.com/0xcro3dile/chemstock/internal/domain/usecases"
)

// Services are the use cases the API exposes.
type Services struct {
	Auth          *usecases.AuthUseCase
	Inventory     *usecases.InventoryUseCase
	Resolver      *usecases.ChemicalResolver
	SDS           *usecases.SDSImportUseCase
	Borrowings    *usecases.BorrowingUseCase
	Notifications *usecases.NotificationUseCase
}

// Options tune the server.
type Options struct {
	Addr           string
	AllowedOrigins []string
	MaxUploadBytes int64
	SecureCookie   bool
	Suggestions    int
}

// Server is the HTTP server for the inventory API.
type Server struct {
	auth          *usecases.AuthUseCase
	inventory     *usecases.InventoryUseCase
	resolver      *usecases.ChemicalResolver
	sds           *usecases.SDSImportUseCase
	borrowings    *usecases.BorrowingUseCase
	notifications *usecases.NotificationUseCase
	logger        *zap.Logger
	opts          Options
}

// NewServer creates a new HTTP server.
func NewServer(svc Services, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 64 << 20
	}
	if opts.Suggestions <= 0 {
		opts.Suggestions = 3
	}
	return &Server{
		auth:          svc.Auth,
		inventory:     svc.Inventory,
		resolver:      svc.Resolver,
		sds:           svc.SDS,
		borrowings:    svc.Borrowings,
		notifications: svc.Notifications,
		logger:        logger,
		opts:          opts,
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	staff := []entities.Role{entities.RoleAdmin, entities.RoleLabAssistant}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.HandleFunc("GET /api/auth/me", s.require(s.handleMe))
	mux.HandleFunc("POST /api/users", s.require(s.handleCreateUser, entities.RoleAdmin))
	mux.HandleFunc("GET /api/users", s.require(s.handleListUsers, entities.RoleAdmin))

	mux.HandleFunc("GET /api/chemicals", s.require(s.handleListChemicals))
	mux.HandleFunc("GET /api/chemicals/expiring", s.require(s.handleExpiringChemicals, staff...))
	mux.HandleFunc("GET /api/chemicals/{id}", s.require(s.handleGetChemical))
	mux.HandleFunc("GET /api/chemicals/{id}/sds", s.require(s.handleChemicalDocuments))
	mux.HandleFunc("POST /api/chemicals", s.require(s.handleCreateChemical, staff...))
	mux.HandleFunc("PUT /api/chemicals/{id}", s.require(s.handleUpdateChemical, staff...))
	mux.HandleFunc("DELETE /api/chemicals/{id}", s.require(s.handleDeleteChemical, staff...))
	mux.HandleFunc("GET /api/resolve", s.require(s.handleResolve))

	mux.HandleFunc("POST /api/sds/import", s.require(s.handleImportSDS, staff...))
	mux.HandleFunc("GET /api/sds", s.require(s.handleListSDS))
	mux.HandleFunc("GET /api/sds/{id}", s.require(s.handleGetSDS))
	mux.HandleFunc("GET /api/sds/{id}/file", s.require(s.handleSDSFile))
	mux.HandleFunc("POST /api/sds/{id}/assign", s.require(s.handleAssignSDS, staff...))
	mux.HandleFunc("DELETE /api/sds/{id}", s.require(s.handleDeleteSDS, staff...))

	mux.HandleFunc("GET /api/borrowings", s.require(s.handleListBorrowings))
	mux.HandleFunc("GET /api/borrowings/overdue", s.require(s.handleOverdueBorrowings, staff...))
	mux.HandleFunc("GET /api/borrowings/{id}", s.require(s.handleGetBorrowing))
	mux.HandleFunc("POST /api/borrowings", s.require(s.handleRequestBorrowing))
	mux.HandleFunc("POST /api/borrowings/{id}/approve", s.require(s.handleApproveBorrowing, staff...))
	mux.HandleFunc("POST /api/borrowings/{id}/reject", s.require(s.handleRejectBorrowing, staff...))
	mux.HandleFunc("POST /api/borrowings/{id}/return", s.require(s.handleReturnBorrowing))

	mux.HandleFunc("GET /api/notifications", s.require(s.handleListNotifications))
	mux.HandleFunc("POST /api/notifications/devices", s.require(s.handleRegisterDevice))
	mux.HandleFunc("POST /api/notifications/{id}/read", s.require(s.handleMarkRead))

	return s.recoveryMiddleware(s.corsMiddleware(s.loggingMiddleware(mux)))
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute, // bulk uploads
		WriteTimeout:      5 * time.Minute,
	}

	s.logger.Info("chemstock server starting", zap.String("addr", s.opts.Addr))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
