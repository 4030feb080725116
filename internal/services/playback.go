package services

import (
	"context"
	"strings"

	"linvo/storage"
)

// PlaybackService records played videos into the shared videos collection.
type PlaybackService struct {
	session *Session
}

// NewPlaybackService creates a PlaybackService.
func NewPlaybackService(session *Session) *PlaybackService {
	return &PlaybackService{session: session}
}

// RecordPlayback records that kidID played videoID.
//
// A video that is already stored is left as is: its metadata and position
// do not change. A new video is inserted at the head and the collection is
// cut to storage.HistoryLimit entries from the tail. The document is saved
// on every call.
func (s *PlaybackService) RecordPlayback(ctx context.Context, videoID, title, channelTitle, kidID string) error {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return &ValidationError{Field: "videoId", Reason: "must not be empty"}
	}

	recorded := false
	_ = s.session.update(ctx, func(st *storage.AppState) error {
		if st.HasVideo(videoID) {
			return nil
		}
		videos := make([]storage.ImportedVideo, 0, len(st.Videos)+1)
		videos = append(videos, storage.ImportedVideo{
			ID:           videoID,
			Title:        title,
			ChannelTitle: channelTitle,
			KidID:        kidID,
		})
		videos = append(videos, st.Videos...)
		if len(videos) > storage.HistoryLimit {
			videos = videos[:storage.HistoryLimit]
		}
		st.Videos = videos
		recorded = true
		return nil
	})

	if recorded {
		s.session.metrics.recordPlayback(ctx, "recorded")
	} else {
		s.session.metrics.recordPlayback(ctx, "known")
	}
	return nil
}
