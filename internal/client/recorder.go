package client

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"screening-backend/internal/shared/util"
)

// Recorder owns the session's single local audio artifact. Replacing a
// recording deletes the previous file before the new one is written, so at
// most one live file exists at any time.
type Recorder struct {
	dir string

	mu      sync.Mutex
	current string
}

// NewRecorder creates a Recorder storing artifacts under dir.
func NewRecorder(dir string) *Recorder {
	return &Recorder{dir: dir}
}

// Replace stores a new recording, deleting any prior artifact first.
// Returns the path of the stored file.
func (r *Recorder) Replace(fileName string, src io.Reader) (string, error) {
	sanitized, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("invalid file name: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != "" {
		if err := os.Remove(r.current); err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("remove previous recording: %w", err)
		}
		r.current = ""
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create recording dir: %w", err)
	}

	dst := filepath.Join(r.dir, sanitized)
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create recording: %w", err)
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("write recording: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("close recording: %w", err)
	}

	r.current = dst
	return dst, nil
}

// Current returns the path of the live recording, if one exists.
func (r *Recorder) Current() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.current != ""
}

// Open opens the live recording for reading.
func (r *Recorder) Open() (io.ReadCloser, error) {
	path, ok := r.Current()
	if !ok {
		return nil, fmt.Errorf("no recording available")
	}
	return os.Open(path)
}

// Discard removes the live recording, if any.
func (r *Recorder) Discard() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == "" {
		return nil
	}
	if err := os.Remove(r.current); err != nil && !os.IsNotExist(err) {
		return err
	}
	r.current = ""
	return nil
}
