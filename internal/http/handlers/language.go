package handlers

import (
	"fmt"
	"strings"

	"github.com/uplas/uplas-backend/internal/pkg/apperr"
)

// Languages resolves request language codes against the configured set. An
// empty code falls back to the default; an unknown one is rejected so bad
// codes fail at the edge instead of deep inside a pipeline.
type Languages struct {
	def       string
	supported map[string]string
}

func NewLanguages(def string, supported []string) *Languages {
	if def == "" {
		def = "en-US"
	}
	l := &Languages{
		def:       def,
		supported: make(map[string]string, len(supported)+1),
	}
	l.supported[strings.ToLower(def)] = def
	for _, code := range supported {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		l.supported[strings.ToLower(code)] = code
	}
	return l
}

// Resolve returns the canonical form of code, the default when code is
// empty, or ErrInvalidArgument when the code is not supported.
func (l *Languages) Resolve(code string) (string, error) {
	if l == nil {
		return code, nil
	}
	if strings.TrimSpace(code) == "" {
		return l.def, nil
	}
	if canonical, ok := l.supported[strings.ToLower(strings.TrimSpace(code))]; ok {
		return canonical, nil
	}
	return "", fmt.Errorf("%w: unsupported language %q", apperr.ErrInvalidArgument, code)
}
