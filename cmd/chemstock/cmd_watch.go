package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/0xcro3dile/chemstock/internal/adapters/filestore"
	"github.com/0xcro3dile/chemstock/internal/adapters/filewatcher"
	"github.com/0xcro3dile/chemstock/internal/domain/entities"
	"github.com/0xcro3dile/chemstock/internal/domain/ports"
	"github.com/0xcro3dile/chemstock/internal/domain/usecases"
)

// processedDir is where imported inbox files are moved, relative to the inbox.
const processedDir = "processed"

func newWatchCmd(c *cli) *cobra.Command {
	var settle time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Import SDS files dropped into the inbox directory",
		Long: `watch imports every PDF in the inbox, then each PDF written there later.

A new file is imported once no write to it has been seen for --settle, so
copies in progress are not read half-way. Imported files are moved to the
processed/ subdirectory; files that fail stay in the inbox for the next run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := c.cfg.Import.InboxDir
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("creating inbox: %w", err)
			}

			a, err := newApp(c.cfg, c.logger, false)
			if err != nil {
				return err
			}
			defer a.Close()

			watcher, err := filewatcher.NewFSNotifyWatcher(filestore.PDFExtensions, c.logger.Named("watcher"))
			if err != nil {
				return err
			}
			defer watcher.Stop()

			return watchInbox(cmd.Context(), dir, a.services.SDS, watcher, settle, c.logger)
		},
	}
	cmd.Flags().DurationVar(&settle, "settle", 2*time.Second, "quiet time after the last write before a file is imported")
	return cmd
}

// watchInbox imports what is already in dir, then every PDF created there
// once it settles, until the watcher's event stream ends.
func watchInbox(ctx context.Context, dir string, sds *usecases.SDSImportUseCase, watcher ports.FileWatcher, settle time.Duration, logger *zap.Logger) error {
	events, err := watcher.Watch(ctx, dir)
	if err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	done := filepath.Join(dir, processedDir)

	existing, err := filestore.LoadDir(ctx, dir)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		report, err := sds.ImportBatch(ctx, existing, "")
		if err != nil {
			logger.Error("importing existing inbox files failed", zap.Error(err))
		}
		if report != nil {
			for i, item := range report.Items {
				archiveImported(filepath.Join(dir, existing[i].Name), done, &item, logger)
			}
		}
	}

	tick := settle / 2
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	// path -> time of the last create or write
	pending := make(map[string]time.Time)

	logger.Info("watching inbox", zap.String("dir", dir), zap.Duration("settle", settle))
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				if ctx.Err() == nil {
					for path := range pending {
						importInboxFile(ctx, path, done, sds, logger)
					}
				}
				return nil
			}
			switch ev.Operation {
			case ports.FileCreated, ports.FileModified:
				pending[ev.Path] = time.Now()
			case ports.FileDeleted:
				delete(pending, ev.Path)
			}
		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < settle {
					continue
				}
				delete(pending, path)
				importInboxFile(ctx, path, done, sds, logger)
			}
		}
	}
}

func importInboxFile(ctx context.Context, path, done string, sds *usecases.SDSImportUseCase, logger *zap.Logger) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		logger.Debug("inbox file gone before import", zap.String("path", path))
		return
	}
	item, err := sds.ImportFile(ctx, path, "")
	if err != nil {
		logger.Error("inbox import failed", zap.String("path", path), zap.Error(err))
		return
	}
	archiveImported(path, done, item, logger)
}

// archiveImported moves a successfully imported file out of the inbox.
func archiveImported(path, done string, item *entities.ImportItem, logger *zap.Logger) {
	if item.Error != "" || item.Document == nil {
		logger.Error("inbox import failed", zap.String("file", item.FileName), zap.String("error", item.Error))
		return
	}
	if item.Match != nil {
		logger.Info("sds imported",
			zap.String("file", item.FileName),
			zap.String("chemical", item.Match.Entry.Name),
			zap.Int("distance", item.Match.Distance))
	} else {
		logger.Info("sds needs review", zap.String("file", item.FileName), zap.String("label", item.Label))
	}
	if _, err := filestore.MoveInto(done, path); err != nil {
		logger.Error("moving imported file failed", zap.String("path", path), zap.Error(err))
	}
}
