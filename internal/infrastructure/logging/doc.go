// Package logging provides structured logging for Doorman.
//
// It wraps log/slog with JSON or text output, level filtering and default
// service/version fields.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("daemon started", "site", cfg.Site.ID)
//	reg.SetLogger(logger.Component("registry"))
//
// Never log the JWT secret, broker passwords or issued tokens.
package logging
