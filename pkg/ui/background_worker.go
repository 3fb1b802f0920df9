// Package ui provides the terminal issue browser for sqf.
// This file implements the BackgroundWorker that re-imports the issues file
// off the UI thread whenever it changes on disk.
package ui

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	json "github.com/goccy/go-json"

	"github.com/saimonmoore/sonarqube/pkg/loader"
	"github.com/saimonmoore/sonarqube/pkg/model"
	"github.com/saimonmoore/sonarqube/pkg/store"
)

// WorkerState represents the current state of the background worker.
type WorkerState int

const (
	// WorkerIdle means the worker is waiting for file changes.
	WorkerIdle WorkerState = iota
	// WorkerProcessing means the worker is importing the issues file.
	WorkerProcessing
	// WorkerStopped means the worker has been stopped.
	WorkerStopped
)

func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "idle"
	case WorkerProcessing:
		return "processing"
	case WorkerStopped:
		return "stopped"
	default:
		return fmt.Sprintf("WorkerState(%d)", int(s))
	}
}

// WorkerError wraps errors with phase and retry context.
type WorkerError struct {
	Phase   string    // "load" or "import"
	Cause   error     // The underlying error
	Time    time.Time // When the error occurred
	Retries int       // Consecutive failures including this one
}

func (e WorkerError) Error() string {
	return fmt.Sprintf("%s failed: %v (retries: %d)", e.Phase, e.Cause, e.Retries)
}

func (e WorkerError) Unwrap() error {
	return e.Cause
}

// Sender delivers messages to the running program. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// IssuesImportedMsg is sent after the issues file was imported into the store.
type IssuesImportedMsg struct {
	Count    int
	Hash     string
	Duration time.Duration
}

// ImportErrorMsg is sent when loading or importing the issues file fails.
type ImportErrorMsg struct {
	Err         *WorkerError
	Recoverable bool // True if we expect to recover on next file change
}

// BackgroundWorker watches the issues file and re-imports it into the
// store. Changes arriving while an import runs are coalesced into a single
// follow-up import.
type BackgroundWorker struct {
	issuesPath    string
	debounceDelay time.Duration
	store         *store.Store

	mu       sync.RWMutex
	state    WorkerState
	dirty    bool // True if a change came in while processing
	started  bool
	lastHash string

	lastError  *WorkerError
	errorCount int

	watcher *fsnotify.Watcher
	program Sender

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup
}

// WorkerConfig configures the BackgroundWorker.
type WorkerConfig struct {
	IssuesPath    string
	Store         *store.Store
	DebounceDelay time.Duration
	Program       Sender
}

// NewBackgroundWorker creates a new background worker. Without an issues
// path the worker never imports anything.
func NewBackgroundWorker(cfg WorkerConfig) (*BackgroundWorker, error) {
	if cfg.IssuesPath != "" && cfg.Store == nil {
		return nil, fmt.Errorf("background worker: store is required")
	}
	if cfg.DebounceDelay == 0 {
		cfg.DebounceDelay = 200 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &BackgroundWorker{
		issuesPath:    cfg.IssuesPath,
		debounceDelay: cfg.DebounceDelay,
		store:         cfg.Store,
		program:       cfg.Program,
		state:         WorkerIdle,
		ctx:           ctx,
		cancel:        cancel,
		done:          make(chan struct{}),
	}

	if cfg.IssuesPath != "" {
		fw, err := fsnotify.NewWatcher()
		if err != nil {
			cancel()
			return nil, err
		}
		w.watcher = fw
	}

	return w, nil
}

// Start begins watching for file changes.
// Start is idempotent - calling it multiple times has no effect.
func (w *BackgroundWorker) Start() error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = true
	w.mu.Unlock()

	if w.watcher == nil {
		close(w.done)
		return nil
	}

	// Watch the directory so editors that replace the file by rename are
	// still picked up.
	if err := w.watcher.Add(filepath.Dir(w.issuesPath)); err != nil {
		close(w.done)
		return fmt.Errorf("watching %s: %w", w.issuesPath, err)
	}
	go w.watchLoop()
	return nil
}

// Stop halts the background worker and cleans up resources.
// Stop is idempotent - calling it multiple times has no effect.
func (w *BackgroundWorker) Stop() {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	w.state = WorkerStopped
	wasStarted := w.started
	w.mu.Unlock()

	w.cancel()

	if w.watcher != nil {
		w.watcher.Close()
	}

	if wasStarted {
		select {
		case <-w.done:
		case <-time.After(2 * time.Second):
		}
	}
	w.wg.Wait()
}

// TriggerRefresh manually triggers an import.
// Has no effect if the worker is stopped; coalesces if already processing.
func (w *BackgroundWorker) TriggerRefresh() {
	w.mu.Lock()
	if w.state == WorkerStopped {
		w.mu.Unlock()
		return
	}
	if w.state == WorkerProcessing {
		w.dirty = true
		w.mu.Unlock()
		return
	}
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		w.process()
	}()
}

// SetProgram sets where import results are sent. The program is usually
// created after the worker, since the model holds the worker.
func (w *BackgroundWorker) SetProgram(p Sender) {
	w.mu.Lock()
	w.program = p
	w.mu.Unlock()
}

// State returns the current worker state.
func (w *BackgroundWorker) State() WorkerState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// watchLoop debounces file events for the issues file.
func (w *BackgroundWorker) watchLoop() {
	defer close(w.done)

	target := filepath.Clean(w.issuesPath)
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case evt, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) != target {
				continue
			}
			if !evt.Op.Has(fsnotify.Write) && !evt.Op.Has(fsnotify.Create) && !evt.Op.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounceDelay)
			} else {
				timer.Reset(w.debounceDelay)
			}
			fire = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("watchLoop: watcher error: %v", err)

		case <-fire:
			fire = nil
			w.TriggerRefresh()
		}
	}
}

// process imports the issues file, then re-runs once if a change arrived
// in the meantime.
func (w *BackgroundWorker) process() {
	for {
		w.mu.Lock()
		if w.state != WorkerIdle {
			if w.state == WorkerProcessing {
				w.dirty = true
			}
			w.mu.Unlock()
			return
		}
		w.state = WorkerProcessing
		w.dirty = false
		w.mu.Unlock()

		msg := w.importFile()

		w.mu.Lock()
		if w.state == WorkerStopped {
			w.mu.Unlock()
			return
		}
		wasDirty := w.dirty
		w.state = WorkerIdle
		program := w.program
		w.mu.Unlock()

		if program != nil && msg != nil {
			program.Send(msg)
		}
		if !wasDirty {
			return
		}
	}
}

// safeCompute executes fn and recovers from any panics.
// Returns a WorkerError if fn panics or fails, nil otherwise.
func (w *BackgroundWorker) safeCompute(phase string, fn func() error) *WorkerError {
	var result *WorkerError
	func() {
		defer func() {
			if r := recover(); r != nil {
				result = &WorkerError{
					Phase: phase,
					Cause: fmt.Errorf("panic: %v\n%s", r, debug.Stack()),
					Time:  time.Now(),
				}
			}
		}()
		if err := fn(); err != nil {
			result = &WorkerError{
				Phase: phase,
				Cause: err,
				Time:  time.Now(),
			}
		}
	}()
	return result
}

// recordError tracks an error and updates error state.
func (w *BackgroundWorker) recordError(err *WorkerError) {
	w.mu.Lock()
	w.lastError = err
	if err != nil {
		w.errorCount++
		err.Retries = w.errorCount
	} else {
		w.errorCount = 0
	}
	w.mu.Unlock()
}

// LastError returns the most recent error (nil if last operation succeeded).
func (w *BackgroundWorker) LastError() *WorkerError {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastError
}

// importFile loads the issues file and replaces the store contents. It
// returns the message for the UI, or nil when nothing changed.
func (w *BackgroundWorker) importFile() tea.Msg {
	if w.issuesPath == "" {
		return nil
	}
	start := time.Now()

	var issues []model.Issue
	if werr := w.safeCompute("load", func() error {
		var err error
		issues, err = loader.LoadIssuesFromFile(w.issuesPath)
		return err
	}); werr != nil {
		log.Printf("importFile: error loading %s: %v", w.issuesPath, werr)
		w.recordError(werr)
		return ImportErrorMsg{Err: werr, Recoverable: true}
	}

	hash, err := issuesHash(issues)
	if err != nil {
		log.Printf("importFile: hashing issues: %v", err)
	}

	w.mu.RLock()
	lastHash := w.lastHash
	w.mu.RUnlock()
	if hash != "" && hash == lastHash {
		log.Printf("importFile: content unchanged (hash=%s), skipping import", hashPrefix(hash))
		w.recordError(nil)
		return nil
	}

	if werr := w.safeCompute("import", func() error {
		return w.store.ReplaceIssues(w.ctx, w.issuesPath, issues)
	}); werr != nil {
		log.Printf("importFile: import error: %v", werr)
		w.recordError(werr)
		return ImportErrorMsg{Err: werr, Recoverable: true}
	}

	w.recordError(nil)
	w.mu.Lock()
	w.lastHash = hash
	w.mu.Unlock()

	elapsed := time.Since(start)
	log.Printf("importFile: imported %d issues (total=%v, hash=%s)", len(issues), elapsed, hashPrefix(hash))
	return IssuesImportedMsg{Count: len(issues), Hash: hash, Duration: elapsed}
}

// issuesHash fingerprints the decoded issues so whitespace-only edits do not
// trigger a re-import.
func issuesHash(issues []model.Issue) (string, error) {
	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, i := range issues {
		if err := enc.Encode(i); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// LastHash returns the content hash from the last successful import.
func (w *BackgroundWorker) LastHash() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastHash
}

// ResetHash clears the stored content hash, forcing the next import
// to run even if content is unchanged.
func (w *BackgroundWorker) ResetHash() {
	w.mu.Lock()
	w.lastHash = ""
	w.mu.Unlock()
}

// hashPrefix returns up to 16 characters of hash for logging.
func hashPrefix(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}
