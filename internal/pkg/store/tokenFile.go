package store

import (
	"path/filepath"
	"strings"
	"sync"

	"bitbucket.org/airenas/callnotes/internal/pkg/cmdapp"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

//TokenFile keeps refresh token in a file
type TokenFile struct {
	path string

	lock    sync.Mutex
	last    string
	watcher *fsnotify.Watcher
}

//NewTokenFile creates file token store
func NewTokenFile(path string) (*TokenFile, error) {
	if path == "" {
		return nil, errors.New("No token file")
	}
	cmdapp.Log.Infof("Token file: %s", path)
	return &TokenFile{path: path}, nil
}

//Load returns stored token, "" if the file is missing
func (tf *TokenFile) Load() (string, error) {
	b, err := readFile(tf.path)
	if err != nil {
		return "", err
	}
	res := strings.TrimSpace(string(b))
	tf.lock.Lock()
	tf.last = res
	tf.lock.Unlock()
	return res, nil
}

//Save overwrites the token
func (tf *TokenFile) Save(token string) error {
	tf.lock.Lock()
	defer tf.lock.Unlock()
	if err := writeFile(tf.path, []byte(token), 0o600); err != nil {
		return err
	}
	tf.last = token
	return nil
}

//Watch calls onChange when the token file is rewritten by another process
func (tf *TokenFile) Watch(onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "Can't init watcher")
	}
	// the file is replaced by rename, so the dir is watched
	if err := w.Add(filepath.Dir(tf.path)); err != nil {
		w.Close()
		return errors.Wrapf(err, "Can't watch %s", filepath.Dir(tf.path))
	}
	tf.lock.Lock()
	tf.watcher = w
	tf.lock.Unlock()
	go tf.watch(w, onChange)
	return nil
}

func (tf *TokenFile) watch(w *fsnotify.Watcher, onChange func()) {
	name := filepath.Clean(tf.path)
	for {
		select {
		case e, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != name || e.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if tf.changed() {
				cmdapp.Log.Infof("Token file changed: %s", tf.path)
				onChange()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			cmdapp.Log.Warnf("Token file watcher: %v", err)
		}
	}
}

func (tf *TokenFile) changed() bool {
	b, err := readFile(tf.path)
	if err != nil || b == nil {
		return false
	}
	tf.lock.Lock()
	defer tf.lock.Unlock()
	v := strings.TrimSpace(string(b))
	if v == tf.last {
		return false
	}
	tf.last = v
	return true
}

//Close stops watching
func (tf *TokenFile) Close() {
	tf.lock.Lock()
	defer tf.lock.Unlock()
	if tf.watcher != nil {
		tf.watcher.Close()
		tf.watcher = nil
	}
}
