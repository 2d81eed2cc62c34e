// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting driver errors. ErrNotFound in particular is what handlers
// translate into the deliberately reused 404 on enumeration-sensitive
// paths.
package repository

import "errors"

// ErrNotFound is returned when a row does not exist or is not owned by
// the caller. The two cases are indistinguishable on purpose.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when a user insert hits the unique email
// constraint. Handlers translate this into the registration race check.
var ErrEmailExists = errors.New("email already exists")
