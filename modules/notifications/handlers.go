package notifications

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/notifyhub/handler"
	"github.com/dmitrymomot/notifyhub/pkg/identity"
	"github.com/dmitrymomot/notifyhub/pkg/notifications"
	"github.com/dmitrymomot/notifyhub/pkg/sse"
)

func caller(ctx handler.Context) (identity.Identity, error) {
	id, ok := identity.FromContext(ctx)
	if !ok {
		return identity.Identity{}, identity.ErrNoIdentity
	}
	return id, nil
}

// subject resolves whose data a request targets: the caller, or another user
// when an admin asks for one explicitly.
func subject(id identity.Identity, requested string) (string, error) {
	if requested == "" || requested == id.UserID {
		return id.UserID, nil
	}
	if !id.Admin {
		return "", notifications.ErrForbidden
	}
	return requested, nil
}

// owned loads a notification visible to the caller. Foreign records look
// missing to non-admins.
func (s *Service) owned(ctx handler.Context, id identity.Identity, notificationID string) (notifications.Notification, error) {
	n, err := s.gateway.Get(ctx, notificationID)
	if err != nil {
		return notifications.Notification{}, err
	}
	if !id.CanActFor(n.UserID) {
		return notifications.Notification{}, notifications.ErrNotFound
	}
	return n, nil
}

type listRequest struct {
	UserID string   `query:"userId"`
	Unread bool     `query:"unread"`
	Types  []string `query:"type"`
	Limit  int      `query:"limit"`
	Offset int      `query:"offset"`
}

func (r listRequest) options() notifications.ListOptions {
	opts := notifications.ListOptions{OnlyUnread: r.Unread, Limit: r.Limit, Offset: r.Offset}
	for _, t := range r.Types {
		opts.Types = append(opts.Types, notifications.Type(t))
	}
	return opts
}

func (s *Service) list(ctx handler.Context, req listRequest) handler.Response {
	id, err := caller(ctx)
	if err != nil {
		return handler.Error(err)
	}
	userID, err := subject(id, req.UserID)
	if err != nil {
		return handler.Error(err)
	}
	page, err := s.gateway.List(ctx, userID, req.options())
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(page)
}

func (s *Service) unreadCount(ctx handler.Context, _ struct{}) handler.Response {
	id, err := caller(ctx)
	if err != nil {
		return handler.Error(err)
	}
	n, err := s.gateway.UnreadCount(ctx, id.UserID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(map[string]int{"unreadCount": n})
}

func (s *Service) create(ctx handler.Context, req notifications.CreateInput) handler.Response {
	id, err := caller(ctx)
	if err != nil {
		return handler.Error(err)
	}
	if req.UserID, err = subject(id, req.UserID); err != nil {
		return handler.Error(err)
	}
	n, err := s.gateway.Create(ctx, req)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(n, handler.WithJSONStatus(http.StatusCreated))
}

type broadcastRequest struct {
	// Nil targets every user in the directory.
	UserIDs *[]string `json:"userIds"`
	notifications.BroadcastInput
}

func (s *Service) broadcast(ctx handler.Context, req broadcastRequest) handler.Response {
	id, err := caller(ctx)
	if err != nil {
		return handler.Error(err)
	}
	if !id.Admin {
		return handler.Error(notifications.ErrForbidden)
	}

	target := notifications.AllUsers()
	if req.UserIDs != nil {
		target = notifications.Users(*req.UserIDs...)
	}
	res, err := s.gateway.CreateBroadcast(ctx, target, req.BroadcastInput)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(res)
}

type idRequest struct {
	ID string `path:"id" json:"-"`
}

func (s *Service) markRead(ctx handler.Context, req idRequest) handler.Response {
	id, err := caller(ctx)
	if err != nil {
		return handler.Error(err)
	}
	if _, err := s.owned(ctx, id, req.ID); err != nil {
		return handler.Error(err)
	}
	n, err := s.gateway.MarkRead(ctx, req.ID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(n)
}

func (s *Service) markAllRead(ctx handler.Context, _ struct{}) handler.Response {
	id, err := caller(ctx)
	if err != nil {
		return handler.Error(err)
	}
	n, err := s.gateway.MarkAllRead(ctx, id.UserID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(map[string]int{"updated": n})
}

type updateRequest struct {
	ID string `path:"id" json:"-"`
	notifications.UpdateFields
}

func (s *Service) update(ctx handler.Context, req updateRequest) handler.Response {
	id, err := caller(ctx)
	if err != nil {
		return handler.Error(err)
	}
	if !id.Admin {
		return handler.Error(notifications.ErrForbidden)
	}
	n, err := s.gateway.Update(ctx, req.ID, req.UpdateFields)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(n)
}

// delete answers 204 for absent ids; foreign records are 404 like everywhere else.
func (s *Service) delete(ctx handler.Context, req idRequest) handler.Response {
	id, err := caller(ctx)
	if err != nil {
		return handler.Error(err)
	}
	n, err := s.gateway.Get(ctx, req.ID)
	if errors.Is(err, notifications.ErrNotFound) {
		return handler.Empty()
	}
	if err != nil {
		return handler.Error(err)
	}
	if !id.CanActFor(n.UserID) {
		return handler.Error(notifications.ErrNotFound)
	}
	if _, err := s.gateway.Delete(ctx, req.ID); err != nil {
		return handler.Error(err)
	}
	return handler.Empty()
}

func (s *Service) getPreferences(ctx handler.Context, _ struct{}) handler.Response {
	id, err := caller(ctx)
	if err != nil {
		return handler.Error(err)
	}
	prefs, err := s.gateway.GetPreferences(ctx, id.UserID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(prefs)
}

type preferencesRequest struct {
	Types notifications.PreferencesPatch `json:"types"`
}

func (s *Service) setPreferences(ctx handler.Context, req preferencesRequest) handler.Response {
	id, err := caller(ctx)
	if err != nil {
		return handler.Error(err)
	}
	prefs, err := s.gateway.SetPreferences(ctx, id.UserID, req.Types)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(prefs)
}

type streamRequest struct {
	UserID string `query:"userId"`
}

func (s *Service) stream(ctx handler.Context, req streamRequest) handler.Response {
	id, err := caller(ctx)
	if err != nil {
		return handler.Error(err)
	}
	key, err := subject(id, req.UserID)
	if err != nil {
		return handler.Error(err)
	}
	return handler.Stream(func(w *sse.Writer) error {
		return s.transport.Serve(ctx, w, key)
	})
}

type listAllRequest struct {
	Unread bool     `query:"unread"`
	Types  []string `query:"type"`
	Limit  int      `query:"limit"`
	Offset int      `query:"offset"`
}

func (s *Service) listAll(ctx handler.Context, req listAllRequest) handler.Response {
	id, err := caller(ctx)
	if err != nil {
		return handler.Error(err)
	}
	if !id.Admin {
		return handler.Error(notifications.ErrForbidden)
	}
	items, err := s.gateway.ListAll(ctx, listRequest{Unread: req.Unread, Types: req.Types, Limit: req.Limit, Offset: req.Offset}.options())
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(items)
}
