// Package logger builds *slog.Logger instances with a consistent setup across
// the service: environment presets, static attributes and attributes pulled
// from context.Context on every record (request ids and the like).
//
// Usage:
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "notifyd"),
//	    logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "notification created",
//	    logger.UserID(n.UserID),
//	    logger.NotificationID(n.ID),
//	)
//
// Attribute helpers such as Error, UserID and Key return an empty slog.Attr
// for empty input, so they can be passed without nil checks.
package logger
