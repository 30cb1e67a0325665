// Package logger provides the structured logging interface used across bookbyline.
//
// It wraps zerolog with a small interface supporting leveled messages,
// structured fields and child loggers:
//
//	logger.Initialize(&cfg.Logging)
//
//	log := logger.GetLogger().WithField("digest", fingerprint)
//	log.InfoWithFields("emission committed", map[string]interface{}{
//	    "position": 12,
//	    "live":     true,
//	})
//
// Console output is written to stderr. When Logging.File is set, events are
// also appended to that file as JSON, one per line, each with its own
// timestamp.
//
// Tests use NewTestLogger to capture and inspect messages.
package logger
