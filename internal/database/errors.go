package database

import "github.com/koustreak/datri-oracle/internal/errs"

// --- Constructor helpers shared by the builder and row scanners ---

// errQuery wraps cause, keeping the kind a driver already assigned.
func errQuery(msg string, cause error) *errs.Error {
	kind := errs.KindOf(cause)
	if kind == errs.ErrKindUnknown {
		kind = errs.ErrKindQueryFailed
	}
	return errs.Wrap(kind, msg, cause)
}

func errInvalidInput(msg string) *errs.Error {
	return errs.New(errs.ErrKindInvalidInput, msg)
}
