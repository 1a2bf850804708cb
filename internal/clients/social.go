package clients

import (
	"context"
	"log"
)

// SocialPoster publishes a message to an external social platform. Posting is
// best-effort: callers log failures and never propagate them.
type SocialPoster interface {
	Post(ctx context.Context, message string) error
}

// LogSocialPoster writes posts to the process log instead of a real network,
// standing in for the platform integration.
type LogSocialPoster struct {
	logger *log.Logger
}

// NewLogSocialPoster constructs the logging poster.
func NewLogSocialPoster() *LogSocialPoster {
	return &LogSocialPoster{logger: log.New(log.Writer(), "[social] ", log.LstdFlags)}
}

// Post logs the message and reports success.
func (p *LogSocialPoster) Post(_ context.Context, message string) error {
	p.logger.Printf("posting: %s", message)
	return nil
}
