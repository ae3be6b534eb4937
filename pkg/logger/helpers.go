package logger

import (
	"context"

	"github.com/rs/zerolog"
)

// LogDownload logs download operations
func LogDownload(url, kind string, success bool, err error) {
	fields := map[string]interface{}{
		"url":     url,
		"kind":    kind,
		"success": success,
	}

	logger := GetLogger().WithFields(fields)

	if err != nil {
		logger.WithError(err).Error("Download failed")
	} else if success {
		logger.Info("Download completed")
	} else {
		logger.Warn("Download skipped")
	}
}

// LogNavigation logs a page navigation
func LogNavigation(url string, durationMS int64, err error) {
	fields := map[string]interface{}{
		"url":         url,
		"duration_ms": durationMS,
	}

	if err != nil {
		GetLogger().WithFields(fields).WithError(err).Warn("Navigation failed")
		return
	}
	GetLogger().DebugWithFields("Navigation completed", fields)
}

// LogRateLimit logs rate limiting events
func LogRateLimit(domain string, retryAfter int) {
	GetLogger().WithFields(map[string]interface{}{
		"domain":      domain,
		"retry_after": retryAfter,
		"action":      "rate_limited",
	}).Warn("Rate limit reached, backing off")
}

// LogExtractionProgress logs per-page extraction progress
func LogExtractionProgress(url string, page, discovered int) {
	GetLogger().WithFields(map[string]interface{}{
		"url":        url,
		"page":       page,
		"discovered": discovered,
	}).Info("Extraction progress")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

// nopLogger is a logger that does nothing (useful for testing)
type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
