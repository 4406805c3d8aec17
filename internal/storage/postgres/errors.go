package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"dishdash-be/internal/apperr"

	"github.com/lib/pq"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// translate maps driver failures onto the apperr taxonomy and keeps the
// cause in the chain.
func translate(err error, op string) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == uniqueViolation:
			return &apperr.Error{Kind: apperr.ErrConflict, Message: conflictMessage(pqErr), Err: err}
		case pqErr.Code == foreignKeyViolation:
			return &apperr.Error{Kind: apperr.ErrInvalidInput, Message: "referenced record does not exist", Err: err}
		case pqErr.Code.Class() == "22":
			// Data exceptions: values out of range for their column.
			return &apperr.Error{Kind: apperr.ErrInvalidInput, Message: "value out of range", Err: err}
		case pqErr.Code.Class() == "08", pqErr.Code.Class() == "57":
			return apperr.Unavailable(err, "%s: database unavailable", op)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	var netErr net.Error
	switch {
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr):
		return apperr.Unavailable(err, "%s: database unavailable", op)
	case errors.Is(err, context.Canceled):
		return apperr.Unavailable(err, "%s: request cancelled", op)
	}

	return fmt.Errorf("%s: %w", op, err)
}

func conflictMessage(e *pq.Error) string {
	switch {
	case strings.Contains(e.Constraint, "email"):
		return "email already registered"
	case strings.Contains(e.Constraint, "idempotency"):
		return "duplicate idempotency key"
	}
	return "record already exists"
}
