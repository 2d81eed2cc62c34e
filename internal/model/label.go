package model

// Label is a user-defined shift label from the `labels` table. Labels
// are strictly owner-scoped: every repository query filters by both id
// and user id.
type Label struct {
	ID        string // labels.id (opaque token)
	UserID    uint64 // labels.user_id
	ShortCode string // labels.short_code (1-4 chars shown on calendar cells)
	Name      string // labels.name
	Color     string // labels.color (#rrggbb)
}

// DefaultLabels are seeded for every new account at verification time.
var DefaultLabels = []Label{
	{ShortCode: "E", Name: "Early Shift", Color: "#22c55e"},
	{ShortCode: "L", Name: "Late Shift", Color: "#3b82f6"},
	{ShortCode: "N", Name: "Night Shift", Color: "#8b5cf6"},
}
