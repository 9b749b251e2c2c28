package pgstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dmitrymomot/notifyhub/pkg/notifications"
	"github.com/dmitrymomot/notifyhub/pkg/pg"
)

// Preferences stores one JSONB document of per-type settings per user.
type Preferences struct {
	db DB
}

var _ notifications.PreferenceStorage = (*Preferences)(nil)

// NewPreferences stores one JSONB document per user.
func NewPreferences(db DB) *Preferences {
	return &Preferences{db: db}
}

func (p *Preferences) Load(ctx context.Context, userID string) (notifications.Preferences, bool, error) {
	var (
		raw       []byte
		updatedAt time.Time
	)
	err := p.db.QueryRow(ctx,
		`SELECT types, updated_at FROM notification_preferences WHERE user_id = $1`, userID,
	).Scan(&raw, &updatedAt)
	if pg.IsNotFoundError(err) {
		return notifications.Preferences{}, false, nil
	}
	if err != nil {
		return notifications.Preferences{}, false, err
	}

	prefs := notifications.Preferences{UserID: userID, UpdatedAt: updatedAt.UTC()}
	if err := json.Unmarshal(raw, &prefs.Types); err != nil {
		return notifications.Preferences{}, false, err
	}
	return prefs, true, nil
}

func (p *Preferences) Save(ctx context.Context, prefs notifications.Preferences) error {
	raw, err := json.Marshal(prefs.Types)
	if err != nil {
		return err
	}
	if prefs.UpdatedAt.IsZero() {
		prefs.UpdatedAt = time.Now().UTC()
	}

	_, err = p.db.Exec(ctx,
		`INSERT INTO notification_preferences (user_id, types, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET types = EXCLUDED.types, updated_at = EXCLUDED.updated_at`,
		prefs.UserID, raw, prefs.UpdatedAt,
	)
	return err
}
