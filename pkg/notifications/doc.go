// Package notifications stores per-user notifications and pushes new ones to
// connected clients in real time.
//
// The Gateway is the entry point. Create validates input, persists the record
// through a Storage and then publishes the stored record on an in-process bus
// under the recipient's user id. StreamTransport subscribes one client
// connection to that bus and writes every event as a stream frame, with
// periodic heartbeat comments in between.
//
//	bus := pubsub.NewBus[notifications.Notification]()
//	gw := notifications.NewGateway(notifications.NewMemoryStorage(), bus,
//	    notifications.WithPreferences(notifications.NewPreferenceRegistry(prefs)),
//	    notifications.WithDirectory(notifications.StaticDirectory{"u1", "u2"}),
//	)
//	stream := notifications.NewStreamTransport(bus)
//
//	// in an HTTP handler
//	w, _ := sse.NewWriter(rw)
//	_ = stream.Serve(r.Context(), w, userID)
//
// Live delivery is best effort: events published while a user has no open
// stream are not replayed, and a slow connection loses events once its queue
// is full. The stored records are the source of truth.
//
// Preferences decide per type whether a notification is stored and whether
// it is pushed on the "stream" channel. See SuppressionMode.
package notifications
