package heap

import "errors"

var (
	// ErrOutOfMemory indicates that no free fragment large enough was
	// found, or the request exceeds the per-call capacity limit. The
	// instance's OOM counter has been incremented.
	ErrOutOfMemory = errors.New("heap: out of memory")

	// ErrBadRef indicates a reference that is out of bounds, misaligned,
	// or does not address a live allocation. The heap state is untouched.
	ErrBadRef = errors.New("heap: bad reference")

	// ErrArenaTooSmall indicates an arena below MinArenaSize.
	ErrArenaTooSmall = errors.New("heap: arena smaller than MinArenaSize")

	// ErrArenaMisaligned indicates an arena whose base address is not a
	// multiple of Alignment. Use the arena package to obtain aligned
	// buffers.
	ErrArenaMisaligned = errors.New("heap: arena base not aligned")

	// ErrBadInstance indicates that Attach found no valid instance record
	// at the arena base.
	ErrBadInstance = errors.New("heap: arena does not hold a valid instance")
)
