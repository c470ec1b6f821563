// Package cfgwatch contains the watcher of the configuration file.
package cfgwatch

import (
	"bytes"
	"crypto/sha256"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Watch watches the configuration file and reports content changes
type Watch struct {
	file    string
	log     log.FieldLogger
	watcher *fsnotify.Watcher
	updates chan struct{}
	done    chan struct{}
	closed  chan struct{}
	hash    [sha256.Size]byte
}

// sendUpdate sends an update over the updates channel
func (w *Watch) sendUpdate() {
	// send an update or abort if we are shutting down
	select {
	case w.updates <- struct{}{}:
	case <-w.done:
	}
}

// readHash returns the hash of the file content
func (w *Watch) readHash() ([sha256.Size]byte, error) {
	b, err := os.ReadFile(w.file)
	if err != nil {
		return [sha256.Size]byte{}, err
	}
	return sha256.Sum256(b), nil
}

// handleEvent compares file hashes to see if the file changed and sends an
// update notification
func (w *Watch) handleEvent() {
	hash, err := w.readHash()
	if err != nil {
		// file is being replaced or was removed
		w.log.WithError(err).Debug("Config watcher could not read config")
		return
	}

	if bytes.Equal(hash[:], w.hash[:]) {
		return
	}

	w.hash = hash
	w.sendUpdate()
}

// start starts watching
func (w *Watch) start() {
	defer close(w.closed)
	defer close(w.updates)
	defer func() {
		if err := w.watcher.Close(); err != nil {
			w.log.WithError(err).Error("Config watcher close error")
		}
	}()

	// watch file
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				w.log.Error("Config watcher got unexpected " +
					"close of events channel")
				return
			}
			if event.Name == w.file {
				w.log.WithFields(log.Fields{
					"name": event.Name,
					"op":   event.Op,
				}).Debug("Config watcher handling file event")
				w.handleEvent()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				w.log.Error("Config watcher got unexpected " +
					"close of errors channel")
				return
			}
			w.log.WithError(err).Error("Config watcher error event")

		case <-w.done:
			return
		}
	}
}

// Start starts watching. Only changes after Start are reported.
func (w *Watch) Start() error {
	// create watcher
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	// add config folder to watcher, the file itself is replaced on save
	if err := watcher.Add(filepath.Dir(w.file)); err != nil {
		_ = watcher.Close()
		return err
	}

	if hash, err := w.readHash(); err == nil {
		w.hash = hash
	}
	w.watcher = watcher
	go w.start()
	return nil
}

// Stop stops watching
func (w *Watch) Stop() {
	close(w.done)
	<-w.closed
}

// Updates returns the channel for config file updates
func (w *Watch) Updates() chan struct{} {
	return w.updates
}

// NewWatch returns a new Watch for file
func NewWatch(file string, logger log.FieldLogger) *Watch {
	return &Watch{
		file:    filepath.Clean(file),
		log:     logger,
		updates: make(chan struct{}),
		done:    make(chan struct{}),
		closed:  make(chan struct{}),
	}
}
