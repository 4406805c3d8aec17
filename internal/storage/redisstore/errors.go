package redisstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"dishdash-be/internal/apperr"

	"github.com/go-redis/redis/v8"
)

// translate maps client failures onto the apperr taxonomy. Errors that are
// already classified pass through untouched.
func translate(err error, op string) error {
	if err == nil {
		return nil
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}

	var netErr net.Error
	switch {
	case errors.Is(err, redis.TxFailedErr):
		return &apperr.Error{Kind: apperr.ErrConflict, Message: "record changed concurrently", Err: err}
	case errors.Is(err, redis.ErrClosed),
		errors.Is(err, io.EOF),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr),
		strings.Contains(err.Error(), "pool timeout"):
		return apperr.Unavailable(err, "%s: redis unavailable", op)
	case errors.Is(err, context.Canceled):
		return apperr.Unavailable(err, "%s: request cancelled", op)
	}

	return fmt.Errorf("%s: %w", op, err)
}
