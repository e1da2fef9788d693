// Package logging provides structured logging for agentteam.
//
// It wraps Go's log/slog to write JSON lines either to stderr or to a
// size-rotated debug.log inside a configured directory.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level, logging.DefaultRotationConfig())
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.Info("team created", "teammates", 2)
//
// # Context Propagation
//
// Child loggers carry persistent attributes and share the parent's writer:
//
//	teamLog := logger.WithTeam("proj").WithComponent("lifecycle")
//	teamLog.WithAgent("tester").Warn("spawn failed", "error", err)
//
// Output:
//
//	{"time":"...","level":"WARN","msg":"spawn failed","team":"proj","component":"lifecycle","agent":"tester","error":"..."}
//
// # Log Rotation
//
// When a directory is configured the file is rotated to debug.log.1,
// debug.log.2 and so on once it reaches [RotationConfig.MaxSizeMB]. With
// Compress set, rotated files are gzipped to debug.log.N.gz.
//
// # Testing
//
// Use [NopLogger] to discard output, or [NewWriterLogger] with a
// bytes.Buffer to assert on entries.
package logging
