package languages

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

// ErrUnsupported indicates a language code outside the supported set.
var ErrUnsupported = errors.New("unsupported language")

// supported lists the language codes the ASR models cover.
var supported = map[string]struct{}{
	"en": {},
	"de": {},
	"es": {},
	"zh": {},
	"el": {},
	"ar": {},
}

// IsSupported reports whether the given code has an ASR model.
func IsSupported(code string) bool {
	_, ok := supported[strings.ToLower(strings.TrimSpace(code))]
	return ok
}

// Supported returns the supported codes in sorted order.
func Supported() []string {
	out := make([]string, 0, len(supported))
	for code := range supported {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Service keeps the active language used for subsequent uploads. The mobile
// client sets it once per session before uploading.
type Service struct {
	mu     sync.RWMutex
	active string
}

// NewService constructs a Service with an optional default language.
func NewService(defaultCode string) *Service {
	s := &Service{}
	if defaultCode != "" && IsSupported(defaultCode) {
		s.active = strings.ToLower(strings.TrimSpace(defaultCode))
	}
	return s
}

// Set validates and stores the active language code.
func (s *Service) Set(code string) error {
	normalized := strings.ToLower(strings.TrimSpace(code))
	if normalized == "" {
		return ErrUnsupported
	}
	if !IsSupported(normalized) {
		return ErrUnsupported
	}
	s.mu.Lock()
	s.active = normalized
	s.mu.Unlock()
	return nil
}

// Active returns the active language code, or "" when none is set.
func (s *Service) Active() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}
