package model

import "time"

// Share is a directed read-only grant from an owner to a viewer,
// stored in the `shares` table. The edge id belongs to the owner:
// viewers never see it, they only learn the owner's email.
type Share struct {
	ID           string    // shares.id (opaque token)
	OwnerID      uint64    // shares.owner_id
	SharedWithID uint64    // shares.shared_with_id
	CreatedAt    time.Time // shares.created_at
}
