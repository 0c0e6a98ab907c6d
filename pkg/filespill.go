// Package pkg provides shared utilities for genprog.
package pkg

import (
	"encoding/gob"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileSpill is a generic append-only collection backed by a gob file, used
// to keep large trial logs off the heap. A brute-force run can evaluate on
// the order of 1e5 candidates; their reports go here.
type FileSpill[T any] interface {
	Len() uint64
	Path() string
	Append(item T) error
	AppendBatch(items []T) error
	Range(f func(index uint64, item T) error) error
	Close() error
}

type fileSpillImpl[T any] struct {
	path    string
	file    *os.File
	encoder *gob.Encoder
	mu      sync.Mutex
	length  uint64
}

// NewFileSpill creates a FileSpill for items of type T in the system temp
// directory.
func NewFileSpill[T any]() (FileSpill[T], error) {
	dir := filepath.Join(os.TempDir(), "genprog-spill")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create spill directory: %w", err)
	}

	file, err := os.CreateTemp(dir, "trials-*.gob")
	if err != nil {
		return nil, fmt.Errorf("create spill file: %w", err)
	}

	slog.Debug("created spill file", "path", file.Name())

	return &fileSpillImpl[T]{
		path:    file.Name(),
		file:    file,
		encoder: gob.NewEncoder(file),
	}, nil
}

// Path implements FileSpill.
func (f *fileSpillImpl[T]) Path() string {
	return f.path
}

// Len implements FileSpill.
func (f *fileSpillImpl[T]) Len() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.length
}

// Append implements FileSpill.
func (f *fileSpillImpl[T]) Append(item T) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.encoder.Encode(item); err != nil {
		return fmt.Errorf("encode spill item %d: %w", f.length, err)
	}

	f.length++

	return nil
}

// AppendBatch implements FileSpill.
func (f *fileSpillImpl[T]) AppendBatch(items []T) error {
	for _, item := range items {
		if err := f.Append(item); err != nil {
			return err
		}
	}

	return nil
}

// Range implements FileSpill. Items are decoded in append order.
func (f *fileSpillImpl[T]) Range(fn func(index uint64, item T) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.Open(f.path)
	if err != nil {
		return fmt.Errorf("open spill file: %w", err)
	}

	defer func() {
		if err := file.Close(); err != nil {
			slog.Warn("failed to close spill file", "path", f.path, "error", err)
		}
	}()

	decoder := gob.NewDecoder(file)

	var item T

	for i := uint64(0); i < f.length; i++ {
		if err := decoder.Decode(&item); err != nil {
			return fmt.Errorf("decode spill item %d: %w", i, err)
		}

		if err := fn(i, item); err != nil {
			return err
		}
	}

	return nil
}

// Close implements FileSpill.
func (f *fileSpillImpl[T]) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.file == nil {
		return nil
	}

	if err := f.file.Close(); err != nil {
		return fmt.Errorf("close spill file: %w", err)
	}

	f.file = nil

	return nil
}
