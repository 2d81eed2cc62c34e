package model

// ShiftMap maps an ISO date string (YYYY-MM-DD) to a label id. The map
// is stored as one serialized blob per user in the `calendars` table and
// is always replaced as a whole, never merged. A shift may reference a
// label that no longer exists; consumers must render such entries as
// unlabeled rather than fail.
type ShiftMap map[string]string
