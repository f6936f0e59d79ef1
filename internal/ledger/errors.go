package ledger

import "errors"

// Sentinel failures surfaced to callers. None of these is fatal to the
// process; each is scoped to the single triggering action.
var (
	// ErrNotAuthenticated means no user identity was available.
	ErrNotAuthenticated = errors.New("not signed in")

	// ErrAlreadyPlanned means the entry is already in today's plan set.
	ErrAlreadyPlanned = errors.New("already added for today")

	// ErrPartialApply means a completion removed the plan entry but failed
	// to append the log entry. Store state may have diverged from what the
	// caller last saw; the caller must re-sync from the live subscription
	// rather than trust optimistic local state.
	ErrPartialApply = errors.New("completion partially applied")

	// ErrNotInCatalog means the named item is not in the built-in catalog.
	ErrNotInCatalog = errors.New("not in catalog")
)
