package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// Ledger engine taxonomy. Insufficient funds is NOT an error: a short box
// produces a partial application plus a pending payment, signalled through
// the ApplicationResult, never through this channel.
var (
	// ErrorBoxNotFound: a box id was supplied but does not resolve. The
	// whole transaction is aborted before any mutation.
	ErrorBoxNotFound = errors.New("operating box not found")

	// ErrorInvalidAmount: amount <= 0, or an overflow computed negative.
	ErrorInvalidAmount = errors.New("transaction amount must be greater than zero")

	// ErrorMissingResponsibleParty: an expense overflowed on a transaction
	// that requires a responsible party, and none is resolvable.
	ErrorMissingResponsibleParty = errors.New("responsible party is required for overflow")

	// ErrorConcurrentModification: lock contention the engine could not
	// resolve. Safe to retry the whole Apply/Reverse from scratch.
	ErrorConcurrentModification = errors.New("concurrent modification detected")

	// ErrorAlreadyApplied: the entry already has a box movement; applying
	// again without an intervening reversal would double-count.
	ErrorAlreadyApplied = errors.New("transaction already applied to a box")
)

// WrapBoxError attaches box/entry identifiers so callers can log and report
// without guessing.
func WrapBoxError(err error, boxId int, entryId int) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("box=%d entry=%d: %w", boxId, entryId, err)
}

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
