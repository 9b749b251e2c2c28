package notifications

import (
	"slices"
	"time"
)

// Type classifies a notification.
type Type string

const (
	TypeMessage   Type = "message"
	TypeSystem    Type = "system"
	TypeMilestone Type = "milestone"
	TypeMeeting   Type = "meeting"
	TypeDocument  Type = "document"
	TypeAlert     Type = "alert"
	TypeInfo      Type = "info"
	TypeSuccess   Type = "success"
	TypeWarning   Type = "warning"
	TypeError     Type = "error"
)

var knownTypes = []Type{
	TypeMessage, TypeSystem, TypeMilestone, TypeMeeting, TypeDocument,
	TypeAlert, TypeInfo, TypeSuccess, TypeWarning, TypeError,
}

// Types returns every known notification type.
func Types() []Type {
	return slices.Clone(knownTypes)
}

// Valid reports whether t is one of Types.
func (t Type) Valid() bool {
	return slices.Contains(knownTypes, t)
}

// Notification is a persisted message addressed to exactly one user.
// ID and UserID never change after creation.
type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"userId"`
	Type      Type       `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	ActionURL string     `json:"actionUrl"`
	CreatedAt time.Time  `json:"createdAt"`
}

// UpdateFields lists the editable fields of a notification. Nil fields are left untouched.
type UpdateFields struct {
	Title     *string `json:"title,omitempty"`
	Message   *string `json:"message,omitempty"`
	ActionURL *string `json:"actionUrl,omitempty"`
}

// IsEmpty reports whether no field is set.
func (f UpdateFields) IsEmpty() bool {
	return f.Title == nil && f.Message == nil && f.ActionURL == nil
}

// Apply returns n with the provided fields overwritten.
func (f UpdateFields) Apply(n Notification) Notification {
	if f.Title != nil {
		n.Title = *f.Title
	}
	if f.Message != nil {
		n.Message = *f.Message
	}
	if f.ActionURL != nil {
		n.ActionURL = *f.ActionURL
	}
	return n
}

// ListOptions filters and paginates list queries. Results are always ordered
// by CreatedAt, newest first.
type ListOptions struct {
	OnlyUnread bool
	Types      []Type // empty means any type
	Limit      int    // 0 means no limit
	Offset     int
}

// Matches reports whether n passes the OnlyUnread and Types filters.
func (o ListOptions) Matches(n Notification) bool {
	if o.OnlyUnread && n.Read {
		return false
	}
	if len(o.Types) > 0 && !slices.Contains(o.Types, n.Type) {
		return false
	}
	return true
}

// Paginate applies Offset and Limit to an already filtered and ordered slice.
func (o ListOptions) Paginate(items []Notification) []Notification {
	if o.Offset >= len(items) {
		return []Notification{}
	}
	items = items[max(o.Offset, 0):]
	if o.Limit > 0 && o.Limit < len(items) {
		items = items[:o.Limit]
	}
	return items
}
