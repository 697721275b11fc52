package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// File keeps best times in a YAML document mapping each key to its seconds.
// The whole document is rewritten on every Set.
type File struct {
	mu    sync.Mutex
	path  string
	times map[string]int
	log   logrus.FieldLogger
}

// OpenFile loads the best times saved at path. A missing file is an empty
// store; it is created on the first Set.
func OpenFile(path string, log logrus.FieldLogger) (*File, error) {
	if path == "" {
		return nil, errors.New("best time file path is empty")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	f := &File{
		path:  path,
		times: map[string]int{},
		log:   log.WithField("file", path),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading best times: %w", err)
	}
	if err := yaml.Unmarshal(data, &f.times); err != nil {
		return nil, fmt.Errorf("parsing best times %s: %w", path, err)
	}
	if f.times == nil {
		f.times = map[string]int{}
	}
	return f, nil
}

func (f *File) Get(key string) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	seconds, ok := f.times[key]
	return seconds, ok
}

func (f *File) Set(key string, seconds int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.times[key] = seconds
	if err := f.save(); err != nil {
		f.log.WithError(err).WithField("key", key).Error("failed to save best time")
	}
}

// save replaces the file atomically so a crash never leaves half a document
func (f *File) save() error {
	data, err := yaml.Marshal(f.times)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

func (f *File) Close() error {
	return nil
}
