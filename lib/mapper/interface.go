package mapper

import "context"

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IMapper is the CRUD contract of a resource mapper.
// C is the connection type the mapper works on, I the key type and T the entity type.
//
// Every method receives a connection that is already checked out by the caller.
// A mapper never acquires or releases connections itself, the lifetime of the
// connection belongs to whoever passed it in.
//
// Errors are returned as *Error with one of the RetC* codes, so callers can use
// errors.Is(err, ErrNotFound) and friends.
type IMapper[C any, I comparable, T any] interface {
	// ReadList returns all entities visible to the mapper.
	// The order is stable within one call, an empty result is not an error.
	ReadList(ctx context.Context, conn C) (list []T, err error)
	// ReadByID returns the entity with the given key or a NotFound error.
	ReadByID(ctx context.Context, conn C, id I) (data T, err error)
	// Create persists a new entity and returns it as stored, which may differ
	// from the input (e.g. an assigned key). Returns Conflict if the key is taken.
	Create(ctx context.Context, conn C, data T) (created T, err error)
	// Update replaces the addressed entity and returns the post-update state.
	// Returns NotFound if the entity does not exist.
	Update(ctx context.Context, conn C, data T) (updated T, err error)
	// DeleteByID removes the entity with the given key and returns its last state.
	// Returns NotFound if the entity does not exist.
	DeleteByID(ctx context.Context, conn C, id I) (deleted T, err error)
}
