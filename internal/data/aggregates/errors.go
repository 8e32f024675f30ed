package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/Joshykins/stupid-neko-sub001/internal/domain/aggregates"
)

var (
	ErrValidation = errors.New("ledger validation")
	ErrInvariant  = errors.New("ledger invariant violation")
	// ErrConflict marks a lost race: a moved running total, a taken in-progress slot.
	ErrConflict  = errors.New("ledger conflict")
	ErrRetryable = errors.New("ledger retryable")
)

func tagged(sentinel error, msg string) error {
	return errors.Join(sentinel, errors.New(strings.TrimSpace(msg)))
}

func ValidationError(msg string) error { return tagged(ErrValidation, msg) }
func InvariantError(msg string) error  { return tagged(ErrInvariant, msg) }
func ConflictError(msg string) error   { return tagged(ErrConflict, msg) }
func RetryableError(msg string) error  { return tagged(ErrRetryable, msg) }

// sentinelCodes is checked in order before any driver-specific mapping.
var sentinelCodes = []struct {
	err  error
	code domainagg.ErrorCode
}{
	{ErrValidation, domainagg.CodeValidation},
	{ErrInvariant, domainagg.CodeInvariantViolation},
	{ErrConflict, domainagg.CodeConflict},
	{ErrRetryable, domainagg.CodeRetryable},
	{gorm.ErrRecordNotFound, domainagg.CodeNotFound},
	{gorm.ErrDuplicatedKey, domainagg.CodeConflict},
	{context.Canceled, domainagg.CodeRetryable},
	{context.DeadlineExceeded, domainagg.CodeRetryable},
}

// postgresCodes maps SQLSTATEs the ledgers can hit.
var postgresCodes = map[string]domainagg.ErrorCode{
	"23505": domainagg.CodeConflict,           // unique_violation
	"23503": domainagg.CodePreconditionFailed, // foreign_key_violation
	"40001": domainagg.CodeRetryable,          // serialization_failure
	"40P01": domainagg.CodeRetryable,          // deadlock_detected
	"55P03": domainagg.CodeRetryable,          // lock_not_available
}

// sqliteMessages covers sqlite, which reports constraint and lock failures
// only through the message text.
var sqliteMessages = []struct {
	needle string
	code   domainagg.ErrorCode
}{
	{"unique constraint failed", domainagg.CodeConflict},
	{"duplicate key", domainagg.CodeConflict},
	{"already exists", domainagg.CodeConflict},
	{"foreign key constraint failed", domainagg.CodePreconditionFailed},
	{"database is locked", domainagg.CodeRetryable},
	{"database table is locked", domainagg.CodeRetryable},
	{"deadlock", domainagg.CodeRetryable},
	{"serialization", domainagg.CodeRetryable},
	{"timeout", domainagg.CodeRetryable},
	{"temporar", domainagg.CodeRetryable},
}

// MapError codes a write failure under op. Errors already carrying a code pass
// through unchanged; anything unrecognized is internal.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var coded *domainagg.Error
	if errors.As(err, &coded) {
		return err
	}
	return domainagg.Wrap(classify(err), op, err)
}

func classify(err error) domainagg.ErrorCode {
	for _, s := range sentinelCodes {
		if errors.Is(err, s.err) {
			return s.code
		}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if code, ok := postgresCodes[strings.TrimSpace(pgErr.Code)]; ok {
			return code
		}
	}
	msg := strings.ToLower(err.Error())
	for _, m := range sqliteMessages {
		if strings.Contains(msg, m.needle) {
			return m.code
		}
	}
	return domainagg.CodeInternal
}
