package sim

import "errors"

// Errors returned by the store and connection manager. Callers match them with errors.Is;
// returned errors wrap these with the offending indices.
var (
	// ErrCapacityExceeded means the cell or connection arena is full. Recoverable: the caller
	// drops or queues the request.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrInvalidIndex means a cell or connection index is outside the active range.
	ErrInvalidIndex = errors.New("invalid index")

	// ErrInvalidCell means a connection endpoint is not an active cell.
	ErrInvalidCell = errors.New("invalid cell")

	// ErrSelfConnection means both endpoints of a requested bond are the same cell.
	ErrSelfConnection = errors.New("self connection")

	// ErrDuplicate means the two cells are already bonded.
	ErrDuplicate = errors.New("duplicate connection")

	// ErrNoFreeSlot means an endpoint already holds MaxAdhesionsPerCell bonds.
	ErrNoFreeSlot = errors.New("no free adhesion slot")

	// ErrNotActive means the connection index refers to an inactive slot.
	ErrNotActive = errors.New("connection not active")

	// ErrBadSceneHeader means a scene blob failed header or version validation.
	ErrBadSceneHeader = errors.New("bad scene header")
)
