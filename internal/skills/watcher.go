package skills

import (
	"context"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"clausewise/internal/logging"
)

// Watcher hot-reloads the skill set when anything under the skills
// directory changes. Rapid editor save bursts are debounced into one
// reload.
type Watcher struct {
	mu      sync.Mutex
	watcher *fsnotify.Watcher
	loader  *Loader
	onLoad  func([]*Skill)

	debounce time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// NewWatcher creates a watcher over the loader's directory. onLoad (may be
// nil) observes each completed reload.
func NewWatcher(loader *Loader, onLoad func([]*Skill)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:  fsw,
		loader:   loader,
		onLoad:   onLoad,
		debounce: 500 * time.Millisecond,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; a missing directory is tolerated
// and simply never fires events.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.loader.Dir()); err != nil {
		logging.Debugf(logging.CategorySkills, "watch failed (dir may not exist): %v", err)
	} else {
		logging.Debugf(logging.CategorySkills, "watching skills directory: %s", w.loader.Dir())
	}
	// Watch each skill subdirectory too; SKILL.md edits happen there.
	for _, skill := range w.loader.List() {
		_ = w.watcher.Add(skill.Path)
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	_ = w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logging.Debugf(logging.CategorySkills, "fs event: %s %s", event.Op, event.Name)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerCh = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
		case <-timerCh:
			timer = nil
			timerCh = nil
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Debugf(logging.CategorySkills, "watch error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	loaded := w.loader.LoadAll()
	// New skill directories need their own watch for SKILL.md edits.
	for _, skill := range loaded {
		_ = w.watcher.Add(skill.Path)
	}
	if w.onLoad != nil {
		w.onLoad(loaded)
	}
}
