package picks

import "errors"

// Sentinel kinds for pick validation.
var (
	ErrHalfFull        = errors.New("only 2 players can be selected from each half of the draw")
	ErrDuplicatePick   = errors.New("player already selected")
	ErrWrongTournament = errors.New("entry belongs to another tournament")
	ErrNotReady        = errors.New("exactly 2 players from each half are required")
	ErrHalfMismatch    = errors.New("draw half does not match the draw")
)
