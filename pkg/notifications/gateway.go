package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/dmitrymomot/notifyhub/pkg/async"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/validator"
)

const (
	MaxTitleLength     = 200
	MaxMessageLength   = 5000
	MaxActionURLLength = 2048
	MaxListLimit       = 100

	DefaultBroadcastConcurrency = 8
)

// SuppressionMode decides what happens to a notification whose type the
// recipient disabled.
type SuppressionMode int

const (
	// SuppressPush stores the record but does not push it live.
	SuppressPush SuppressionMode = iota
	// SuppressAll drops the record and Create returns ErrSuppressed.
	SuppressAll
)

// Publisher pushes a stored notification to live subscribers of key and
// returns how many accepted it.
type Publisher interface {
	Publish(ctx context.Context, key string, n Notification) int
}

// Gateway is the entry point for every notification operation. It is the only
// component that talks to both the storage and the live bus.
type Gateway struct {
	store       Storage
	bus         Publisher
	prefs       *PreferenceRegistry
	directory   Directory
	suppression SuppressionMode
	concurrency int
	logger      *slog.Logger
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithLogger sets the logger for delivery and broadcast events. Nil is ignored.
func WithLogger(l *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithPreferences sets the registry consulted before storing and pushing.
// Defaults to an in-memory registry.
func WithPreferences(r *PreferenceRegistry) GatewayOption {
	return func(g *Gateway) {
		if r != nil {
			g.prefs = r
		}
	}
}

// WithDirectory sets the recipient source for AllUsers broadcasts.
func WithDirectory(d Directory) GatewayOption {
	return func(g *Gateway) {
		if d != nil {
			g.directory = d
		}
	}
}

// WithSuppression decides what Create does for a type the recipient
// disabled. Defaults to SuppressPush.
func WithSuppression(mode SuppressionMode) GatewayOption {
	return func(g *Gateway) {
		g.suppression = mode
	}
}

// WithBroadcastConcurrency bounds concurrent creates during a broadcast.
func WithBroadcastConcurrency(n int) GatewayOption {
	return func(g *Gateway) {
		if n > 0 {
			g.concurrency = n
		}
	}
}

// NewGateway wires storage and the live bus. Without options it uses
// in-memory preferences, an empty directory and DefaultBroadcastConcurrency.
func NewGateway(store Storage, bus Publisher, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		store:       store,
		bus:         bus,
		prefs:       NewPreferenceRegistry(NewMemoryPreferences()),
		directory:   StaticDirectory(nil),
		concurrency: DefaultBroadcastConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With(logger.Component("notifications"))
	return g
}

// CreateInput describes a notification for one recipient.
type CreateInput struct {
	UserID    string `json:"userId"`
	Type      Type   `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	ActionURL string `json:"actionUrl"`
}

func (in CreateInput) normalize() CreateInput {
	in.UserID = strings.TrimSpace(in.UserID)
	in.Type = Type(strings.TrimSpace(string(in.Type)))
	if in.Type == "" {
		in.Type = TypeInfo
	}
	in.Title = normalizeText(in.Title)
	in.Message = normalizeText(in.Message)
	in.ActionURL = strings.TrimSpace(in.ActionURL)
	return in
}

func (in CreateInput) validate() error {
	err := validator.Apply(
		validator.Required("userId", in.UserID),
		validator.OneOf("type", in.Type, knownTypes),
		validator.Required("title", in.Title),
		validator.MaxLen("title", in.Title, MaxTitleLength),
		validator.Required("message", in.Message),
		validator.MaxLen("message", in.Message, MaxMessageLength),
		validator.When(in.ActionURL != "", validator.ValidLink("actionUrl", in.ActionURL)),
		validator.MaxLen("actionUrl", in.ActionURL, MaxActionURLLength),
	)
	if err != nil {
		return errors.Join(ErrValidation, err)
	}
	return nil
}

func normalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Create validates and stores a notification, then pushes the stored record
// to the recipient's live streams unless their preferences suppress it.
func (g *Gateway) Create(ctx context.Context, in CreateInput) (Notification, error) {
	in = in.normalize()
	if err := in.validate(); err != nil {
		return Notification{}, err
	}

	push := true
	prefs, err := g.prefs.Get(ctx, in.UserID)
	if err != nil {
		// Preferences are advisory; an unavailable backend must not block delivery.
		g.logger.LogAttrs(ctx, slog.LevelWarn, "preferences unavailable, delivering anyway",
			logger.UserID(in.UserID),
			logger.Error(err),
		)
	} else {
		if !prefs.Enabled(in.Type) && g.suppression == SuppressAll {
			return Notification{}, ErrSuppressed
		}
		push = prefs.Delivers(in.Type, ChannelStream)
	}

	stored, err := g.store.Create(ctx, Notification{
		UserID:    in.UserID,
		Type:      in.Type,
		Title:     in.Title,
		Message:   in.Message,
		ActionURL: in.ActionURL,
	})
	if err != nil {
		return Notification{}, storageError("create", err)
	}

	if !push {
		g.logger.LogAttrs(ctx, slog.LevelDebug, "live push suppressed by preferences",
			logger.NotificationID(stored.ID),
			logger.UserID(stored.UserID),
		)
		return stored, nil
	}

	delivered := g.bus.Publish(ctx, stored.UserID, stored)
	g.logger.LogAttrs(ctx, slog.LevelDebug, "notification created",
		logger.NotificationID(stored.ID),
		logger.UserID(stored.UserID),
		logger.Count(delivered),
	)
	return stored, nil
}

// Target selects broadcast recipients.
type Target struct {
	all     bool
	userIDs []string
}

// AllUsers targets every user known to the Gateway's Directory.
func AllUsers() Target { return Target{all: true} }

// Users targets an explicit list. Duplicates and blanks are dropped.
func Users(ids ...string) Target { return Target{userIDs: dedupe(ids)} }

// All reports whether t addresses every user in the Directory.
func (t Target) All() bool { return t.all }

// BroadcastInput is CreateInput without the recipient.
type BroadcastInput struct {
	Type      Type   `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	ActionURL string `json:"actionUrl"`
}

func (in BroadcastInput) forUser(userID string) CreateInput {
	return CreateInput{
		UserID:    userID,
		Type:      in.Type,
		Title:     in.Title,
		Message:   in.Message,
		ActionURL: in.ActionURL,
	}
}

// BroadcastResult summarises a broadcast. Recipients = Created + Skipped + Failed.
type BroadcastResult struct {
	Recipients int `json:"recipients"`
	Created    int `json:"created"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// CreateBroadcast creates one independent notification per recipient. Each
// recipient goes through Create, so live pushes and preferences apply per
// user. Per-recipient failures are logged and counted, they never abort the
// rest of the broadcast.
func (g *Gateway) CreateBroadcast(ctx context.Context, target Target, in BroadcastInput) (BroadcastResult, error) {
	// Validate the shared content once so bad input fails before anything is stored.
	if err := in.forUser("broadcast").normalize().validate(); err != nil {
		return BroadcastResult{}, err
	}

	recipients, err := g.recipients(ctx, target)
	if err != nil {
		return BroadcastResult{}, err
	}

	// Recipients still waiting for a slot must run even if the caller goes away.
	fanout := context.WithoutCancel(ctx)
	results := async.Map(fanout, recipients, g.concurrency, func(ctx context.Context, userID string) (Notification, error) {
		return g.Create(ctx, in.forUser(userID))
	})

	res := BroadcastResult{Recipients: len(recipients)}
	for i, r := range results {
		switch {
		case r.Err == nil:
			res.Created++
		case errors.Is(r.Err, ErrSuppressed):
			res.Skipped++
		default:
			res.Failed++
			g.logger.LogAttrs(ctx, slog.LevelWarn, "broadcast recipient failed",
				logger.UserID(recipients[i]),
				logger.Error(r.Err),
			)
		}
	}

	g.logger.LogAttrs(ctx, slog.LevelInfo, "broadcast finished",
		logger.Event("broadcast"),
		slog.Int("recipients", res.Recipients),
		slog.Int("created", res.Created),
		slog.Int("skipped", res.Skipped),
		slog.Int("failed", res.Failed),
	)
	return res, nil
}

func (g *Gateway) recipients(ctx context.Context, target Target) ([]string, error) {
	if !target.all {
		if len(target.userIDs) == 0 {
			return nil, errors.Join(ErrValidation, validator.Apply(
				validator.RequiredSlice("userIds", target.userIDs),
			))
		}
		return target.userIDs, nil
	}

	ids, err := g.directory.UserIDs(ctx)
	if err != nil {
		return nil, storageError("resolve recipients", err)
	}
	return dedupe(ids), nil
}

// Page is one page of a user's notifications with counts over the whole set.
type Page struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unreadCount"`
	Total         int            `json:"total"`
}

func validateListOptions(opts ListOptions) error {
	rules := []validator.Rule{
		validator.Range("limit", opts.Limit, 0, MaxListLimit),
		validator.Min("offset", opts.Offset, 0),
	}
	for _, t := range opts.Types {
		rules = append(rules, validator.OneOf("type", t, knownTypes))
	}
	if err := validator.Apply(rules...); err != nil {
		return errors.Join(ErrValidation, err)
	}
	return nil
}

// List returns a page of userID's notifications, newest first.
func (g *Gateway) List(ctx context.Context, userID string, opts ListOptions) (Page, error) {
	if err := validateListOptions(opts); err != nil {
		return Page{}, err
	}

	items, err := g.store.List(ctx, userID, opts)
	if err != nil {
		return Page{}, storageError("list", err)
	}
	unread, err := g.store.CountUnread(ctx, userID)
	if err != nil {
		return Page{}, storageError("count unread", err)
	}
	total, err := g.store.Count(ctx, userID)
	if err != nil {
		return Page{}, storageError("count", err)
	}

	return Page{Notifications: items, UnreadCount: unread, Total: total}, nil
}

// UnreadCount returns how many of userID's notifications are unread.
func (g *Gateway) UnreadCount(ctx context.Context, userID string) (int, error) {
	n, err := g.store.CountUnread(ctx, userID)
	if err != nil {
		return 0, storageError("count unread", err)
	}
	return n, nil
}

// Get returns the notification with id or ErrNotFound.
func (g *Gateway) Get(ctx context.Context, id string) (Notification, error) {
	n, err := g.store.Get(ctx, id)
	if err != nil {
		return Notification{}, storageError("get", err)
	}
	return n, nil
}

// MarkRead marks one notification read. Marking an already read record keeps
// its first ReadAt.
func (g *Gateway) MarkRead(ctx context.Context, id string) (Notification, error) {
	n, err := g.store.MarkRead(ctx, id)
	if err != nil {
		return Notification{}, storageError("mark read", err)
	}
	return n, nil
}

// MarkAllRead marks userID's unread notifications and returns how many changed.
func (g *Gateway) MarkAllRead(ctx context.Context, userID string) (int, error) {
	n, err := g.store.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, storageError("mark all read", err)
	}
	return n, nil
}

// Update edits title, message or action URL. Provided title and message must
// not be blank; an empty action URL clears it.
func (g *Gateway) Update(ctx context.Context, id string, fields UpdateFields) (Notification, error) {
	fields = normalizeFields(fields)
	if err := validateFields(fields); err != nil {
		return Notification{}, err
	}

	n, err := g.store.Update(ctx, id, fields)
	if err != nil {
		return Notification{}, storageError("update", err)
	}
	return n, nil
}

func normalizeFields(f UpdateFields) UpdateFields {
	if f.Title != nil {
		s := normalizeText(*f.Title)
		f.Title = &s
	}
	if f.Message != nil {
		s := normalizeText(*f.Message)
		f.Message = &s
	}
	if f.ActionURL != nil {
		s := strings.TrimSpace(*f.ActionURL)
		f.ActionURL = &s
	}
	return f
}

func validateFields(f UpdateFields) error {
	if f.IsEmpty() {
		return errors.Join(ErrValidation, validator.ValidationErrors{{
			Field:   "fields",
			Message: "at least one of title, message or actionUrl is required",
			Key:     "validation.required",
		}})
	}

	var rules []validator.Rule
	if f.Title != nil {
		rules = append(rules,
			validator.Required("title", *f.Title),
			validator.MaxLen("title", *f.Title, MaxTitleLength),
		)
	}
	if f.Message != nil {
		rules = append(rules,
			validator.Required("message", *f.Message),
			validator.MaxLen("message", *f.Message, MaxMessageLength),
		)
	}
	if f.ActionURL != nil && *f.ActionURL != "" {
		rules = append(rules,
			validator.ValidLink("actionUrl", *f.ActionURL),
			validator.MaxLen("actionUrl", *f.ActionURL, MaxActionURLLength),
		)
	}
	if err := validator.Apply(rules...); err != nil {
		return errors.Join(ErrValidation, err)
	}
	return nil
}

// Delete removes a notification. Deleting an unknown id is a no-op and
// reports false.
func (g *Gateway) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := g.store.Delete(ctx, id)
	if err != nil {
		return false, storageError("delete", err)
	}
	return deleted, nil
}

// ListAll enumerates notifications across all users.
func (g *Gateway) ListAll(ctx context.Context, opts ListOptions) ([]Notification, error) {
	if err := validateListOptions(opts); err != nil {
		return nil, err
	}
	items, err := g.store.ListAll(ctx, opts)
	if err != nil {
		return nil, storageError("list all", err)
	}
	return items, nil
}

// GetPreferences returns userID's preferences, defaults included.
func (g *Gateway) GetPreferences(ctx context.Context, userID string) (Preferences, error) {
	return g.prefs.Get(ctx, userID)
}

// SetPreferences merges patch into userID's stored preferences.
func (g *Gateway) SetPreferences(ctx context.Context, userID string, patch PreferencesPatch) (Preferences, error) {
	return g.prefs.Set(ctx, userID, patch)
}

// storageError tags backend failures with ErrStorage. Domain sentinels pass through.
func storageError(op string, err error) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) || errors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
