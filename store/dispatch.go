package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// handlerFunc is one command implementation. Handlers resolve their own
// collection handle per attempt so a client rebuild between attempts is
// picked up automatically.
type handlerFunc func(ctx context.Context, req Request) (any, error)

// Execute dispatches a request to its command handler inside the bounded
// retry loop. It validates the request first: an unrecognized command or a
// missing collection name is a structured failure with zero retries and
// zero backing-store calls. Execute never panics past this boundary.
func (s *Store) Execute(ctx context.Context, req Request) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("handler panic", "command", req.Command, "panic", r)
			result = fail("Internal error", fmt.Errorf("panic: %v", r))
		}
	}()

	if req.Collection == "" {
		return fail("Collection name is required", ErrMissingCollection)
	}
	handler, found := s.handlerFor(req.Command)
	if !found {
		return fail(
			fmt.Sprintf("Unrecognized command: %s", req.Command),
			fmt.Errorf("%w: %q", ErrUnknownCommand, req.Command),
		)
	}

	data, err := s.withRetry(ctx, func(ctx context.Context) (any, error) {
		return handler(ctx, req)
	})
	if err != nil {
		return fail(failureMessage(err), err)
	}
	return ok(data)
}

// handlerFor maps a command tag to its handler function.
func (s *Store) handlerFor(cmd Command) (handlerFunc, bool) {
	switch cmd {
	case CmdCreate:
		return s.handleCreate, true
	case CmdRead:
		return s.handleRead, true
	case CmdUpdate:
		return s.handleUpdate, true
	case CmdDelete:
		return s.handleDelete, true
	case CmdVerify:
		return s.handleVerify, true
	case CmdAppend:
		return s.handleAppend, true
	case CmdUpdateField:
		return s.handleUpdateField, true
	case CmdDeleteField:
		return s.handleDeleteField, true
	case CmdCreateVideo:
		return s.handleCreateVideo, true
	case CmdGetVideo:
		return s.handleGetVideo, true
	case CmdDeleteVideo:
		return s.handleDeleteVideo, true
	default:
		return nil, false
	}
}

// withRetry runs op up to MaxAttempts times with exponential backoff.
// A transient failure triggers a client rebuild before the next attempt;
// the rebuild consumes part of that attempt's budget rather than looping
// on its own. Validation and not-found failures return immediately.
func (s *Store) withRetry(ctx context.Context, op func(context.Context) (any, error)) (any, error) {
	var lastErr error
	delay := s.config.RetryBaseDelay

	for attempt := 1; attempt <= s.config.MaxAttempts; attempt++ {
		data, err := op(ctx)
		if err == nil {
			return data, nil
		}
		lastErr = err

		switch Classify(err) {
		case KindValidation, KindNotFound:
			return nil, err
		case KindTransient:
			if attempt == s.config.MaxAttempts {
				break
			}
			s.logger.Warn("transient failure, rebuilding client",
				"attempt", attempt,
				"error", err,
			)
			if _, rerr := s.reconnect(ctx); rerr != nil {
				lastErr = rerr
			}
		default:
			if attempt == s.config.MaxAttempts {
				break
			}
			s.logger.Warn("operation failed, retrying",
				"attempt", attempt,
				"error", err,
			)
		}

		if attempt == s.config.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return nil, lastErr
}

// failureMessage picks the human-readable message for a failed operation.
// The technical detail travels separately in Result.Message.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "Record not found"
	case errors.Is(err, ErrBlobCorrupt):
		return "Video data is corrupt"
	case errors.Is(err, ErrUnavailable):
		return "Database unavailable"
	case Classify(err) == KindValidation:
		return "Invalid request"
	case Classify(err) == KindTransient:
		return "Database unavailable"
	default:
		return "Operation failed"
	}
}
