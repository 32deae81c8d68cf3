// Package watcher feeds files dropped into an inbox directory through the
// submission pipeline. A drop is named <student_id>__<filename>; accepted
// drops are removed from the inbox and rejected ones are renamed with a
// .rejected suffix so they are not picked up again.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"examgate/internal/logging"
)

// settleChecks bounds how long a growing drop is waited on before giving up.
const settleChecks = 25

// Submitter runs the submission pipeline for one dropped file. filename is
// the declared submission name, path the file's current inbox location.
type Submitter interface {
	Submit(ctx context.Context, studentID, filename, path string) error
}

// Watcher monitors the inbox directory for dropped submission files.
type Watcher struct {
	fsWatcher   *fsnotify.Watcher
	submitter   Submitter
	inbox       string
	logger      *logging.Logger
	settleDelay time.Duration
}

// NewWatcher creates an inbox watcher with fsnotify initialization.
func NewWatcher(submitter Submitter, inbox string, logger *logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		fsWatcher:   fsw,
		submitter:   submitter,
		inbox:       inbox,
		logger:      logger,
		settleDelay: 200 * time.Millisecond,
	}, nil
}

// Start creates the inbox if needed, sweeps files that were dropped while
// nothing was watching, and begins the event loop.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.inbox, 0o755); err != nil {
		return fmt.Errorf("failed to create inbox directory: %w", err)
	}

	if err := w.Scan(ctx); err != nil {
		w.logger.WithContext("error", err.Error()).Warn("initial inbox scan failed")
	}

	if err := w.fsWatcher.Add(w.inbox); err != nil {
		return fmt.Errorf("failed to watch inbox: %w", err)
	}

	go w.eventLoop(ctx)

	w.logger.WithContext("inbox", w.inbox).Debug("inbox watcher started")
	return nil
}

// Scan processes every eligible file currently in the inbox.
func (w *Watcher) Scan(ctx context.Context) error {
	entries, err := os.ReadDir(w.inbox)
	if err != nil {
		return fmt.Errorf("failed to read inbox: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !shouldProcess(entry.Name()) {
			continue
		}
		w.handleFile(ctx, filepath.Join(w.inbox, entry.Name()))
	}
	return nil
}

// Close releases the fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsWatcher.Close()
}

// eventLoop processes filesystem events until the context is cancelled.
func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.fsWatcher.Close()
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !shouldProcess(filepath.Base(event.Name)) {
				continue
			}
			w.handleFile(ctx, event.Name)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.WithContext("error", err.Error()).Error("inbox watcher error")
		}
	}
}

// handleFile submits one dropped file once its size has settled. Processing
// is synchronous, so a Write event that fires after the drop was handled
// finds the file already gone and becomes a no-op.
func (w *Watcher) handleFile(ctx context.Context, path string) {
	logger := w.logger.WithContext("file_path", path)

	studentID, filename, ok := ParseDropName(filepath.Base(path))
	if !ok {
		logger.Warn("ignoring drop without a <student>__<filename> name")
		w.reject(path)
		return
	}

	if err := w.waitSettle(path); err != nil {
		logger.WithContext("error", err.Error()).Warn("dropped file never settled")
		return
	}

	if err := w.submitter.Submit(ctx, studentID, filename, path); err != nil {
		logger.WithContext("error", err.Error()).Info("drop rejected")
		w.reject(path)
		return
	}

	if err := os.Remove(path); err != nil {
		logger.WithContext("error", err.Error()).Warn("failed to remove accepted drop")
		return
	}
	logger.WithFields(map[string]interface{}{
		"student_id": studentID,
		"filename":   filename,
	}).Info("drop accepted")
}

// waitSettle waits until the file size stops changing between two checks,
// so a drop still being copied in is not submitted half-written.
func (w *Watcher) waitSettle(path string) error {
	lastSize := int64(-1)
	for i := 0; i < settleChecks; i++ {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if info.Size() == lastSize {
			return nil
		}
		lastSize = info.Size()
		time.Sleep(w.settleDelay)
	}
	return fmt.Errorf("file size still changing after %d checks", settleChecks)
}

// reject sets a drop aside under a .rejected suffix so the inbox does not
// reprocess it.
func (w *Watcher) reject(path string) {
	if err := os.Rename(path, path+".rejected"); err != nil {
		w.logger.WithFields(map[string]interface{}{
			"file_path": path,
			"error":     err.Error(),
		}).Warn("failed to set rejected drop aside")
	}
}

// ParseDropName splits a drop filename into student ID and submission
// filename. The two parts are joined by the first "__"; both must be
// non-empty.
func ParseDropName(name string) (studentID, filename string, ok bool) {
	idx := strings.Index(name, "__")
	if idx <= 0 || idx+2 >= len(name) {
		return "", "", false
	}
	return name[:idx], name[idx+2:], true
}

// shouldProcess filters out hidden files, half-written temp files, and
// drops already set aside as rejected.
func shouldProcess(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	if strings.HasSuffix(name, ".tmp") || strings.HasSuffix(name, ".rejected") {
		return false
	}
	return true
}
