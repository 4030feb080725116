package services

import (
	"context"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"

	"linvo/catalog"
	"linvo/storage"
)

// ImportService approves catalog channels for a kid and imports their
// recent videos.
type ImportService struct {
	session     *Session
	catalog     catalog.Client
	recentLimit int
	newID       func() string
	log         *log.Helper
}

// NewImportService creates an ImportService. recentLimit <= 0 uses
// catalog.DefaultRecentLimit.
func NewImportService(session *Session, client catalog.Client, recentLimit int, logger log.Logger) *ImportService {
	if recentLimit <= 0 {
		recentLimit = catalog.DefaultRecentLimit
	}
	return &ImportService{
		session:     session,
		catalog:     client,
		recentLimit: recentLimit,
		newID:       func() string { return "ch-" + uuid.NewString() },
		log:         log.NewHelper(log.With(logger, "module", "services/import")),
	}
}

// ImportChannel approves the channel named by rawInput (an id, @handle or
// channel URL) for kidID and imports its recent videos.
//
// The approval is saved before videos are listed. When listing fails the
// approved channel is returned together with the catalog error; it stays
// approved and RefreshChannel can import its videos later. A channel that
// is already approved for the kid is not added twice: the existing record
// is returned and its videos are re-imported.
//
// Catalog errors (catalog.ErrNotFound, *catalog.TransportError) are
// returned unchanged.
func (s *ImportService) ImportChannel(ctx context.Context, rawInput, kidID string) (*storage.ApprovedChannel, error) {
	identifier, ok := catalog.ParseIdentifier(rawInput)
	if !ok {
		return nil, invalidInput("enter a channel id, @handle or channel URL")
	}

	var kidKnown bool
	s.session.read(func(st *storage.AppState) { kidKnown = st.FindKid(kidID) != nil })
	if !kidKnown {
		return nil, ErrKidNotFound
	}

	info, err := s.catalog.ResolveChannel(ctx, identifier)
	if err == nil && (info == nil || info.ChannelID == "") {
		err = fmt.Errorf("%w: %s resolved without a channel id", catalog.ErrNotFound, identifier)
	}
	if err != nil {
		s.session.metrics.recordImport(ctx, "resolve_failed")
		return nil, err
	}

	var channel storage.ApprovedChannel
	var existing bool
	err = s.session.update(ctx, func(st *storage.AppState) error {
		if st.FindKid(kidID) == nil {
			return ErrKidNotFound
		}
		if rec := st.FindApproval(info.ChannelID, kidID); rec != nil {
			channel = *rec
			existing = true
			return nil
		}
		channel = storage.ApprovedChannel{
			ID:        s.newID(),
			ChannelID: info.ChannelID,
			Title:     info.Title,
			Thumbnail: info.ThumbnailURL,
			KidID:     kidID,
		}
		st.Channels = append(st.Channels, channel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if existing {
		s.session.metrics.recordImport(ctx, "already_approved")
		s.log.Infow("msg", "channel already approved, re-importing videos", "channel", channel.ChannelID, "kid", kidID)
	} else {
		s.session.metrics.recordImport(ctx, "approved")
	}

	if _, err := s.importVideos(ctx, channel); err != nil {
		return &channel, err
	}
	return &channel, nil
}

// RefreshChannel re-imports the recent videos of an approved channel
// record and returns how many new videos were added.
func (s *ImportService) RefreshChannel(ctx context.Context, channelRecordID string) (int, error) {
	var channel *storage.ApprovedChannel
	s.session.read(func(st *storage.AppState) {
		if rec := st.FindChannel(channelRecordID); rec != nil {
			c := *rec
			channel = &c
		}
	})
	if channel == nil {
		return 0, ErrChannelNotFound
	}
	return s.importVideos(ctx, *channel)
}

// importVideos lists the channel's recent videos and appends those not yet
// stored anywhere in the document, tagged with the channel's kid. The
// document is saved once.
func (s *ImportService) importVideos(ctx context.Context, channel storage.ApprovedChannel) (int, error) {
	videos, err := s.catalog.ListRecentVideos(ctx, channel.ChannelID, s.recentLimit)
	if err != nil {
		s.log.Warnw("msg", "video import failed, channel stays approved", "channel", channel.ChannelID, "err", err)
		return 0, err
	}

	var added, skipped int
	_ = s.session.update(ctx, func(st *storage.AppState) error {
		for _, v := range videos {
			if v.VideoID == "" || st.HasVideo(v.VideoID) {
				skipped++
				continue
			}
			st.Videos = append(st.Videos, storage.ImportedVideo{
				ID:           v.VideoID,
				Title:        v.Title,
				ChannelTitle: v.ChannelTitle,
				Thumbnail:    v.ThumbnailURL,
				Duration:     catalog.FormatDuration(v.Duration),
				KidID:        channel.KidID,
			})
			added++
		}
		return nil
	})

	s.session.metrics.recordVideos(ctx, added, skipped)
	s.log.Infow("msg", "imported channel videos",
		"channel", channel.ChannelID, "kid", channel.KidID, "added", added, "skipped", skipped)
	return added, nil
}
