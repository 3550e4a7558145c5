package cli

import (
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue/token"

	"github.com/roach88/timeline/internal/compiler"
	"github.com/roach88/timeline/internal/ir"
)

// LoadError represents an error that occurred while loading documents.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Line returns the source line of the error, or 0.
func (e *LoadError) Line() int {
	if e.Pos.IsValid() {
		return e.Pos.Line()
	}
	return 0
}

// loadDocuments loads every document at path (a .cue or YAML file, or a
// CUE package directory).
func loadDocuments(path string) ([]*ir.Document, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", path)}
		}
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing %s: %v", path, err)}
	}

	docs, err := compiler.LoadDocuments(path)
	if err != nil {
		var cErr *compiler.CompileError
		if errors.As(err, &cErr) {
			return nil, &LoadError{Code: ErrCodeLoadFailed, Message: cErr.Field + ": " + cErr.Message, Pos: cErr.Pos}
		}
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
	}
	return docs, nil
}

// loadDocument loads exactly one document from path.
func loadDocument(path string) (*ir.Document, error) {
	docs, err := loadDocuments(path)
	if err != nil {
		return nil, err
	}
	if len(docs) != 1 {
		return nil, &LoadError{
			Code:    ErrCodeLoadFailed,
			Message: fmt.Sprintf("%s: expected one scenario, found %d", path, len(docs)),
		}
	}
	return docs[0], nil
}

// loadErrorCode returns the code of a LoadError, or ErrCodeGeneric.
func loadErrorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return ErrCodeGeneric
}
