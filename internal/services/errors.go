package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	// ErrTransfer marks a network fetch that failed or returned a non-success status.
	ErrTransfer = errors.New("transfer error")
	// ErrPermission marks directory write access that was denied or revoked.
	ErrPermission = errors.New("permission denied")
	// ErrWrite marks a local persistence failure (disk full, quota, I/O).
	ErrWrite = errors.New("write error")
	// ErrTimeout marks a transfer aborted by the per-task timeout policy.
	ErrTimeout = errors.New("timeout")
	// ErrMalformedSource marks a candidate URL or filename that could not be parsed.
	ErrMalformedSource = errors.New("malformed source")
	// ErrNoDirectory marks a batch started without a usable directory handle.
	ErrNoDirectory = errors.New("no usable directory")
)

// Kind classifies an error for task bookkeeping and presentation.
type Kind string

const (
	KindNone       Kind = ""
	KindTransfer   Kind = "transfer"
	KindPermission Kind = "permission"
	KindWrite      Kind = "write"
	KindTimeout    Kind = "timeout"
	KindMalformed  Kind = "malformed"
	KindDirectory  Kind = "directory"
)

const maxSummaryRunes = 160

// Wrap builds an error message that includes scope context while tagging it with
// the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, scope, operation, message string, err error) error {
	detail := buildDetail(scope, operation, message)
	if marker == nil {
		marker = ErrTransfer
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// KindOf maps an error to its taxonomy kind. Timeouts win over transfer
// errors so a deadline hit mid-stream is reported as a timeout. Errors
// without a marker are treated as transfer failures.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrPermission):
		return KindPermission
	case errors.Is(err, ErrWrite):
		return KindWrite
	case errors.Is(err, ErrMalformedSource):
		return KindMalformed
	case errors.Is(err, ErrNoDirectory):
		return KindDirectory
	default:
		return KindTransfer
	}
}

// Summary renders a short single-line message suitable for a failed task.
func Summary(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(err.Error())
	if idx := strings.IndexAny(msg, "\r\n"); idx >= 0 {
		msg = strings.TrimSpace(msg[:idx])
	}
	if utf8.RuneCountInString(msg) > maxSummaryRunes {
		runes := []rune(msg)
		msg = string(runes[:maxSummaryRunes-1]) + "…"
	}
	return msg
}

func buildDetail(scope, operation, message string) string {
	parts := make([]string, 0, 3)
	if scope = strings.TrimSpace(scope); scope != "" {
		parts = append(parts, scope)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
