// Package logger builds *slog.Logger instances with functional options,
// helper attribute constructors and transparent injection of values stored
// in context.Context.
//
// New picks slog.NewTextHandler or slog.NewJSONHandler based on the
// configured Format. When ContextExtractor callbacks are registered the
// handler is wrapped so every record also carries the values they find in
// the record's context.
//
// Attribute helpers (UserID, MessageID, Backend, Level, Error, ...) keep key
// names consistent across the inbox store and its backends.
//
// # Usage
//
//	var cfg logger.Config
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
//	opts, err := logger.FromConfig(cfg)
//	if err != nil {
//	    return err
//	}
//	log := logger.New(opts...)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "message delivered",
//	    logger.UserID(42),
//	    logger.MessageID(msg.ID),
//	)
//
// Error and Errors produce attributes only for non-nil errors, so
//
//	log.Info("operation finished", logger.Error(err))
//
// needs no nil check.
package logger
