package crudgrid

import (
	"net/http"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"modernc.org/sqlite"
)

// Error kinds surfaced by the validator and the data access layer.
var (
	ErrNotAllowed    = errors.New("not allowed")
	ErrInvalidFormat = errors.New("not in a safe format")
	ErrNotFound      = errors.New("not found")
	ErrDataAccess    = errors.New("data access failure")
)

// DataAccessError wraps a driver error raised while running a statement.
type DataAccessError struct {
	Op  string
	Err error
}

func (e *DataAccessError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *DataAccessError) Unwrap() error { return e.Err }

func (e *DataAccessError) Is(target error) bool { return target == ErrDataAccess }

func dataAccess(op string, err error) error {
	if err == nil {
		return nil
	}
	return errors.WithStack(&DataAccessError{Op: op, Err: err})
}

func notAllowed(format string, args ...interface{}) error {
	return errors.Wrapf(ErrNotAllowed, format, args...)
}

func notFound(format string, args ...interface{}) error {
	return errors.Wrapf(ErrNotFound, format, args...)
}

func invalidFormat(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidFormat, format, args...)
}

// StatusCode maps an error returned by this package to an HTTP status.
// Validation failures are client errors, constraint violations are
// conflicts and everything else coming from the driver is a server error.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidFormat):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case isConstraintViolation(err):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func isConstraintViolation(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1062, // duplicate entry
			1451, 1452, // foreign key
			1048: // column cannot be null
			return true
		}
		return false
	}

	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		// class 23: integrity constraint violation
		return pgErr.Code.Class() == "23"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		// SQLITE_CONSTRAINT and its extended codes
		return liteErr.Code()&0xff == 19
	}
	return false
}
