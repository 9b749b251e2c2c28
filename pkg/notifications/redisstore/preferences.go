// Package redisstore keeps notification preferences in Redis, one JSON
// document per user.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/notifyhub/pkg/notifications"
)

// DefaultKeyPrefix is used when NewPreferences gets an empty prefix.
const DefaultKeyPrefix = "notifyhub:"

// Preferences implements notifications.PreferenceStorage on plain string keys.
type Preferences struct {
	client redis.UniversalClient
	prefix string
}

var _ notifications.PreferenceStorage = (*Preferences)(nil)

// NewPreferences keeps preferences under keyPrefix+"prefs:"+userID. An empty
// prefix means DefaultKeyPrefix.
func NewPreferences(client redis.UniversalClient, keyPrefix string) *Preferences {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &Preferences{client: client, prefix: keyPrefix}
}

func (p *Preferences) key(userID string) string {
	return p.prefix + "prefs:" + userID
}

func (p *Preferences) Load(ctx context.Context, userID string) (notifications.Preferences, bool, error) {
	raw, err := p.client.Get(ctx, p.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return notifications.Preferences{}, false, nil
	}
	if err != nil {
		return notifications.Preferences{}, false, err
	}

	var prefs notifications.Preferences
	if err := json.Unmarshal(raw, &prefs); err != nil {
		return notifications.Preferences{}, false, err
	}
	prefs.UserID = userID
	return prefs, true, nil
}

func (p *Preferences) Save(ctx context.Context, prefs notifications.Preferences) error {
	if prefs.UpdatedAt.IsZero() {
		prefs.UpdatedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	return p.client.Set(ctx, p.key(prefs.UserID), raw, 0).Err()
}

// Delete drops the stored document; the user falls back to defaults.
func (p *Preferences) Delete(ctx context.Context, userID string) error {
	return p.client.Del(ctx, p.key(userID)).Err()
}
