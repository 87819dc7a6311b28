// Package clipboard copies the global summary to the system clipboard.
package clipboard

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

const errorCopyFormat = "copy %d bytes to clipboard: %w"

// ErrUnavailable reports that no clipboard utility exists on this system.
var ErrUnavailable = errors.New("system clipboard unavailable")

// Copier copies textual data to the system clipboard.
type Copier interface {
	Copy(text string) error
}

// CopierFunc adapts a function to Copier.
type CopierFunc func(text string) error

// Copy calls copierFunc(text).
func (copierFunc CopierFunc) Copy(text string) error {
	return copierFunc(text)
}

// Service implements Copier using github.com/atotto/clipboard.
type Service struct {
	write       func(string) error
	unsupported bool
}

// NewService returns a Service bound to the system clipboard.
func NewService() *Service {
	return &Service{write: clipboard.WriteAll, unsupported: clipboard.Unsupported}
}

// Copy writes text to the system clipboard.
func (service *Service) Copy(text string) error {
	if service.unsupported {
		return ErrUnavailable
	}
	if writeError := service.write(text); writeError != nil {
		return fmt.Errorf(errorCopyFormat, len(text), writeError)
	}
	return nil
}

var _ Copier = (*Service)(nil)
