// Package apperr defines the expected-outcome taxonomy shared by every
// service: validation, permission, conflict and not-found. Each category is
// a registered root error; runtime errors wrap a root so callers can match
// with errors.Is and the transport layer can map to a status code.
package apperr

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

var (
	// ErrValidation covers malformed or inconsistent input: a broken
	// signing order, an ambiguous signature source, a document that does
	// not belong to the envelope creator.
	ErrValidation = register(http.StatusBadRequest, "validation failed")

	// ErrPermission covers an actor lacking a specific capability: not
	// the creator, not the current signer. "Not your turn" and "already
	// acted" both land here.
	ErrPermission = register(http.StatusForbidden, "permission denied")

	// ErrConflict covers an entity not being in the status the requested
	// transition needs.
	ErrConflict = register(http.StatusConflict, "conflict")

	// ErrNotFound covers both true absence and lack of view access, so a
	// caller cannot distinguish an envelope that does not exist from one
	// it may not see.
	ErrNotFound = register(http.StatusNotFound, "not found")
)

// Error is a root error. Roots are created only at package init through
// register, which guarantees one root per status code.
type Error struct {
	status int
	desc   string
}

var usedStatuses = map[int]*Error{}

func register(status int, desc string) *Error {
	if e, ok := usedStatuses[status]; ok {
		panic(fmt.Sprintf("status %d already registered: %q", status, e.desc))
	}
	err := &Error{status: status, desc: desc}
	usedStatuses[status] = err
	return err
}

func (e *Error) Error() string { return e.desc }

// HTTPStatus is the transport mapping for this category.
func (e *Error) HTTPStatus() int { return e.status }

// New returns an error in this category with a caller-facing description
// and a captured stack.
func (e *Error) New(desc string) error {
	return errors.Wrap(e, desc)
}

// Newf is New with formatting.
func (e *Error) Newf(format string, args ...interface{}) error {
	return errors.Wrapf(e, format, args...)
}

// Is reports whether err belongs to the given root category.
func Is(err error, root *Error) bool {
	return stderrors.Is(err, root)
}

// StatusOf maps an error to its HTTP status. Errors outside the taxonomy
// map to 500.
func StatusOf(err error) int {
	var root *Error
	if stderrors.As(err, &root) {
		return root.HTTPStatus()
	}
	return http.StatusInternalServerError
}
