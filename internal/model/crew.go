package model

import "time"

// Crew represents a running club.  A crew owns its memberships and
// sessions logically: deleting a crew only marks it deleted and leaves
// the dependent rows in place for historical integrity.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – display name of the crew.
//  Description – free-form description shown on the crew page.
//  Region      – city or area where the crew runs.
//  ImageURL    – reference to the crew image (managed elsewhere).
//  DeletedAt   – soft-delete marker; nil means the crew is active.
//  CreatedAt   – creation timestamp.
type Crew struct {
	ID          uint64     // crews.id
	Name        string     // crews.name
	Description string     // crews.description
	Region      string     // crews.region
	ImageURL    string     // crews.image_url
	DeletedAt   *time.Time // crews.deleted_at (nullable)
	CreatedAt   time.Time  // crews.created_at
}

// IsDeleted reports whether the crew has been soft-deleted.  Every read
// path must consult this (or the equivalent SQL filter) so that deleted
// crews never surface in listings or joins.
func (c *Crew) IsDeleted() bool { return c.DeletedAt != nil }
