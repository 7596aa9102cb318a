// Package logger provides structured logging for phrame using zerolog.
//
// Components obtain a tagged logger from the registry and log with
// optional field maps:
//
//	log := logger.Get("coordinator")
//	log.Info("summary created", logger.Fields("summary_id", id))
//
// Values whose keys look like credentials can be masked with Redact
// before they are logged.
package logger
