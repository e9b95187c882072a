package main

import (
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/0xcro3dile/chemstock/internal/adapters/filestore"
	"github.com/0xcro3dile/chemstock/internal/adapters/memory"
	"github.com/0xcro3dile/chemstock/internal/adapters/push"
	"github.com/0xcro3dile/chemstock/internal/adapters/sqlite"
	"github.com/0xcro3dile/chemstock/internal/adapters/token"
	"github.com/0xcro3dile/chemstock/internal/config"
	"github.com/0xcro3dile/chemstock/internal/domain/entities"
	"github.com/0xcro3dile/chemstock/internal/domain/ports"
	"github.com/0xcro3dile/chemstock/internal/domain/usecases"
	chttp "github.com/0xcro3dile/chemstock/internal/infrastructure/http"
)

// repository is what both persistence adapters provide.
type repository interface {
	ports.ChemicalRepository
	ports.SDSRepository
	ports.BorrowingRepository
	ports.UserRepository
	ports.NotificationRepository
	ProfileLookups() map[entities.Role]ports.ProfileLookup
}

// app wires adapters into use cases.
type app struct {
	services chttp.Services
	closers  []io.Closer
}

// newApp builds the object graph. inMemory swaps sqlite and the SDS
// directory for volatile stores.
func newApp(cfg *config.Config, logger *zap.Logger, inMemory bool) (*app, error) {
	a := &app{}

	var (
		repo  repository
		files ports.DocumentStore
	)
	if inMemory {
		repo = memory.NewStore()
		files = memory.NewFiles()
		logger.Warn("running with in-memory storage, data is lost on exit")
	} else {
		store, err := sqlite.NewStore(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store)
		repo = store

		disk, err := filestore.NewDiskStore(cfg.Storage.SDSDir)
		if err != nil {
			a.Close()
			return nil, err
		}
		files = disk
	}

	var sender ports.PushSender
	if cfg.Push.Endpoint != "" {
		sender = push.NewHTTPSender(cfg.Push.Endpoint, cfg.Push.APIKey, cfg.PushTimeout())
	} else {
		sender = push.NewLogSender(logger.Named("push"))
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		// CLI tools that never issue tokens run without a secret.
		secret = "unset"
	}
	tokens, err := token.NewJWTService(secret, cfg.TokenTTL())
	if err != nil {
		a.Close()
		return nil, err
	}

	notifications := usecases.NewNotificationUseCase(repo, repo, sender, logger.Named("notify"))
	a.services = chttp.Services{
		Auth:          usecases.NewAuthUseCase(repo, repo.ProfileLookups(), tokens, token.NewBcryptHasher(cfg.Auth.BcryptCost), logger.Named("auth")),
		Inventory:     usecases.NewInventoryUseCase(repo, logger.Named("inventory")),
		Resolver:      usecases.NewChemicalResolver(repo),
		SDS:           usecases.NewSDSImportUseCase(repo, repo, files, logger.Named("sds"), cfg.Import.Workers, cfg.Import.Suggestions),
		Borrowings:    usecases.NewBorrowingUseCase(repo, repo, notifications, logger.Named("borrowing"), cfg.LoanPeriod()),
		Notifications: notifications,
	}
	return a, nil
}

// Close releases the stores.
func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
