package proximity

import "github.com/rotisserie/eris"

// Failure taxonomy for a proximity search. All of these are recoverable:
// callers are expected to report the diagnostic and carry on, never to treat
// them as fatal.
var (
	// ErrMissingReference means neither a postal code nor a city was supplied.
	ErrMissingReference = eris.New("proximity: no reference place was provided")

	// ErrReferenceNotFound means the selector did not match any row.
	ErrReferenceNotFound = eris.New("proximity: reference place not found")

	// ErrNoGeocodedData means the dataset has no rows with both coordinates.
	ErrNoGeocodedData = eris.New("proximity: dataset has no geocoded rows")

	// ErrInvalidRadius means the radius was zero, negative, or not a number.
	ErrInvalidRadius = eris.New("proximity: radius must be a positive number of kilometers")
)
