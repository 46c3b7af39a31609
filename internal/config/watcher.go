package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/fsnotify/fsnotify"

	"github.com/dshills/inkstorm/internal/logging"
)

// DefaultDebounce is the watcher's settle window. Editors often save
// with several rapid filesystem operations; changes within the window
// collapse into one callback.
const DefaultDebounce = 200 * time.Millisecond

// Watcher watches one configuration file and invokes a callback after
// changes settle. The file's directory is watched rather than the file
// itself, so atomic replace-by-rename saves keep working.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func()

	fw  *fsnotify.Watcher
	log *bolt.Logger

	closeCh   chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Watch starts watching the config file at path. The callback runs on
// the watcher's goroutine; it must not call Close. A non-positive
// debounce uses DefaultDebounce.
func Watch(path string, debounce time.Duration, onChange func(), log *bolt.Logger) (*Watcher, error) {
	if log == nil {
		log = logging.Get()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(absPath)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		path:     absPath,
		debounce: debounce,
		onChange: onChange,
		fw:       fw,
		log:      log,
		closeCh:  make(chan struct{}),
	}

	w.wg.Add(1)
	go w.processLoop()

	log.Debug().Str("path", absPath).Msg("config watcher started")
	return w, nil
}

// Path returns the watched file path.
func (w *Watcher) Path() string {
	return w.path
}

// Close stops the watcher. Safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closeCh)
		w.wg.Wait()
		err = w.fw.Close()
	})
	return err
}

// processLoop drains filesystem events, debouncing changes to the
// watched file into single callback invocations.
func (w *Watcher) processLoop() {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !w.relevant(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Str("path", w.path).Err(err).Msg("config watcher error")

		case <-fire:
			timer = nil
			fire = nil
			w.log.Info().Str("path", w.path).Msg("config file changed")
			w.onChange()
		}
	}
}

// relevant filters directory events down to content changes of the
// watched file.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Base(ev.Name) != filepath.Base(w.path) {
		return false
	}
	return ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Rename)
}
