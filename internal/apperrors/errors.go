package apperrors

import "errors"

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrSaveInFlight indicates that a session already has a save request
// outstanding; no second save (or any other mutation) is accepted until it
// resolves.
var ErrSaveInFlight = errors.New("save already in flight")

// ErrSaveFailed indicates that the remote ledger store rejected an update.
// The session's working edits are retained so the user can retry.
var ErrSaveFailed = errors.New("save failed")
