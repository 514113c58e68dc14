// Package logger provides a context-aware wrapper around Go's slog package
// with functional options for configuration, helper attribute constructors,
// and transparent injection of values stored in context.Context.
//
// The single factory New creates a *slog.Logger configured by Option
// functions: output format (text or json), minimum level, static attributes
// applied to every record, and ContextExtractor callbacks that pull
// request-scoped values (such as a request id) out of the context on each
// Handle call.
//
// Helper constructors in attr.go (Error, UserID, EventType, ...) keep
// attribute naming consistent across services.
//
// # Usage
//
//	log := logger.New(
//		logger.WithEnvironment(appEnv, "entitlements"),
//		logger.WithContextValue("request_id", requestIDKey),
//	)
//	log.InfoContext(ctx, "webhook applied",
//		logger.EventType("subscription.updated"),
//		logger.UserID(userID),
//	)
package logger
