package notifications

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/dmitrymomot/notifyhub/pkg/validator"
)

// ChannelStream is the channel key controlling live delivery over the event
// stream. Other channel keys are stored as given.
const ChannelStream = "stream"

// TypePreference holds a user's settings for one notification type.
type TypePreference struct {
	Enabled  bool            `json:"enabled"`
	Channels map[string]bool `json:"channels"`
}

// Preferences are the per-type settings of one user.
type Preferences struct {
	UserID    string                  `json:"userId"`
	Types     map[Type]TypePreference `json:"types"`
	UpdatedAt time.Time               `json:"updatedAt,omitzero"`
}

// DefaultPreferences enables every known type with no channel overrides.
func DefaultPreferences(userID string) Preferences {
	types := make(map[Type]TypePreference, len(knownTypes))
	for _, t := range knownTypes {
		types[t] = TypePreference{Enabled: true, Channels: map[string]bool{}}
	}
	return Preferences{UserID: userID, Types: types}
}

// Enabled reports whether notifications of type t should be stored.
// Types without an entry are enabled.
func (p Preferences) Enabled(t Type) bool {
	tp, ok := p.Types[t]
	return !ok || tp.Enabled
}

// Delivers reports whether type t may be pushed on channel. A channel is on
// unless explicitly set to false.
func (p Preferences) Delivers(t Type, channel string) bool {
	tp, ok := p.Types[t]
	if !ok {
		return true
	}
	if !tp.Enabled {
		return false
	}
	on, set := tp.Channels[channel]
	return !set || on
}

// Clone returns a deep copy.
func (p Preferences) Clone() Preferences {
	out := p
	out.Types = make(map[Type]TypePreference, len(p.Types))
	for t, tp := range p.Types {
		channels := make(map[string]bool, len(tp.Channels))
		maps.Copy(channels, tp.Channels)
		out.Types[t] = TypePreference{Enabled: tp.Enabled, Channels: channels}
	}
	return out
}

// TypePreferencePatch is a partial TypePreference. A nil Enabled keeps the
// current flag; each supplied channel key overwrites that channel only.
type TypePreferencePatch struct {
	Enabled  *bool           `json:"enabled,omitempty"`
	Channels map[string]bool `json:"channels,omitempty"`
}

// PreferencesPatch is a partial update keyed by type.
type PreferencesPatch map[Type]TypePreferencePatch

// Validate rejects unknown types and empty channel names.
func (patch PreferencesPatch) Validate() error {
	var errs validator.ValidationErrors
	for t, tp := range patch {
		if !t.Valid() {
			errs.Add(validator.ValidationError{
				Field:   "types." + string(t),
				Message: "unknown notification type",
				Key:     "validation.one_of",
			})
		}
		for ch := range tp.Channels {
			if ch == "" {
				errs.Add(validator.ValidationError{
					Field:   "types." + string(t) + ".channels",
					Message: "channel name must not be empty",
					Key:     "validation.required",
				})
			}
		}
	}
	if errs.IsEmpty() {
		return nil
	}
	return errors.Join(ErrValidation, errs)
}

// Merge applies patch shallowly on top of a copy of p.
func (p Preferences) Merge(patch PreferencesPatch) Preferences {
	out := p.Clone()
	for t, tp := range patch {
		cur, ok := out.Types[t]
		if !ok {
			cur = TypePreference{Enabled: true, Channels: map[string]bool{}}
		}
		if tp.Enabled != nil {
			cur.Enabled = *tp.Enabled
		}
		maps.Copy(cur.Channels, tp.Channels)
		out.Types[t] = cur
	}
	return out
}

// PreferenceStorage persists preferences. Load reports found=false when the
// user never saved any.
type PreferenceStorage interface {
	Load(ctx context.Context, userID string) (Preferences, bool, error)
	Save(ctx context.Context, prefs Preferences) error
}

// PreferenceRegistry resolves effective preferences on top of a PreferenceStorage.
type PreferenceRegistry struct {
	storage PreferenceStorage
	// Set is read-merge-write, serialized here so concurrent patches do not lose updates.
	mu sync.Mutex
}

// NewPreferenceRegistry reads and writes preferences through storage.
func NewPreferenceRegistry(storage PreferenceStorage) *PreferenceRegistry {
	return &PreferenceRegistry{storage: storage}
}

// Get returns the stored preferences of userID, or DefaultPreferences.
func (r *PreferenceRegistry) Get(ctx context.Context, userID string) (Preferences, error) {
	prefs, found, err := r.storage.Load(ctx, userID)
	if err != nil {
		return Preferences{}, fmt.Errorf("%w: load preferences: %w", ErrStorage, err)
	}
	if !found {
		return DefaultPreferences(userID), nil
	}
	// Types added after the user last saved are enabled.
	merged := DefaultPreferences(userID)
	maps.Copy(merged.Types, prefs.Clone().Types)
	merged.UpdatedAt = prefs.UpdatedAt
	return merged, nil
}

// Set merges patch onto the current preferences, saves and returns the result.
func (r *PreferenceRegistry) Set(ctx context.Context, userID string, patch PreferencesPatch) (Preferences, error) {
	if err := patch.Validate(); err != nil {
		return Preferences{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur, err := r.Get(ctx, userID)
	if err != nil {
		return Preferences{}, err
	}

	next := cur.Merge(patch)
	next.UserID = userID
	next.UpdatedAt = time.Now().UTC()

	if err := r.storage.Save(ctx, next); err != nil {
		return Preferences{}, fmt.Errorf("%w: save preferences: %w", ErrStorage, err)
	}
	return next, nil
}

// Allows reports whether userID has type t enabled.
func (r *PreferenceRegistry) Allows(ctx context.Context, userID string, t Type) (bool, error) {
	prefs, err := r.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return prefs.Enabled(t), nil
}
