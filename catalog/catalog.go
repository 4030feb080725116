// Package catalog talks to the external video catalog (the YouTube Data API).
//
// It resolves channel identifiers and lists a channel's recent uploads. It
// knows nothing about kids or the persisted document.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultRecentLimit is the number of recent videos listed per channel.
const DefaultRecentLimit = 8

// Sentinel errors for catalog operations.
var (
	// ErrNotFound indicates the catalog has no channel matching the identifier.
	ErrNotFound = errors.New("catalog: channel not found")
	// ErrTransport indicates the request did not succeed (non-2xx or network failure).
	ErrTransport = errors.New("catalog: request failed")
	// ErrAttemptTimeout indicates a single request attempt exceeded the
	// configured per-attempt timeout. It is retried.
	ErrAttemptTimeout = errors.New("catalog: request attempt timed out")
	// ErrQuotaExhausted indicates the estimated daily quota fell below the reserve.
	ErrQuotaExhausted = errors.New("catalog: quota exhausted")
)

// Client is the catalog contract used by the services.
type Client interface {
	// ResolveChannel looks up a bare channel ID or an @handle.
	ResolveChannel(ctx context.Context, identifier string) (*ChannelInfo, error)
	// ListRecentVideos lists up to limit videos of a channel, newest first.
	// Zero items is an empty result, not an error.
	ListRecentVideos(ctx context.Context, channelID string, limit int) ([]VideoInfo, error)
}

// ChannelInfo describes a resolved channel.
type ChannelInfo struct {
	ChannelID    string `json:"channelId"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// VideoInfo describes one video of a channel listing.
type VideoInfo struct {
	VideoID      string        `json:"videoId"`
	Title        string        `json:"title"`
	ChannelTitle string        `json:"channelTitle"`
	ThumbnailURL string        `json:"thumbnailUrl"`
	PublishedAt  time.Time     `json:"publishedAt"`
	Duration     time.Duration `json:"duration,omitempty"` // zero unless durations are fetched
}

// TransportError wraps a failed catalog request.
//
//	var terr *catalog.TransportError
//	if errors.As(err, &terr) {
//		fmt.Printf("%s failed with status %d\n", terr.Op, terr.StatusCode)
//	}
type TransportError struct {
	// Op is the API call, e.g. "channels.list".
	Op string
	// StatusCode is the HTTP status, or zero for network failures.
	StatusCode int
	// Err is the underlying error.
	Err error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("catalog: %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("catalog: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is reports ErrTransport for every TransportError.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }
