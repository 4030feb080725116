package services

import "linvo/storage"

// DefaultRecentlyWatched is the length of the recently watched row.
const DefaultRecentlyWatched = 8

// KidSummary is one row of the parent dashboard.
type KidSummary struct {
	Kid          storage.KidProfile `json:"kid"`
	ChannelCount int                `json:"channelCount"`
	VideoCount   int                `json:"videoCount"`
	Current      bool               `json:"current"`
}

// ChannelsForKid returns the channels approved for kidID.
func (s *Session) ChannelsForKid(kidID string) []storage.ApprovedChannel {
	out := []storage.ApprovedChannel{}
	s.read(func(st *storage.AppState) {
		for _, c := range st.Channels {
			if c.KidID == kidID {
				out = append(out, c)
			}
		}
	})
	return out
}

// VideosForKid returns the videos owned by kidID in collection order.
func (s *Session) VideosForKid(kidID string) []storage.ImportedVideo {
	out := []storage.ImportedVideo{}
	s.read(func(st *storage.AppState) {
		for _, v := range st.Videos {
			if v.KidID == kidID {
				out = append(out, v)
			}
		}
	})
	return out
}

// RecentlyWatched returns the first n videos of kidID. Played videos are
// inserted at the head, so these are the most recent ones.
func (s *Session) RecentlyWatched(kidID string, n int) []storage.ImportedVideo {
	if n <= 0 {
		n = DefaultRecentlyWatched
	}
	videos := s.VideosForKid(kidID)
	if len(videos) > n {
		videos = videos[:n]
	}
	return videos
}

// KidSummaries returns per-kid channel and video counts in display order.
func (s *Session) KidSummaries() []KidSummary {
	var out []KidSummary
	s.read(func(st *storage.AppState) {
		current := st.CurrentKid()
		out = make([]KidSummary, 0, len(st.Kids))
		for _, k := range st.Kids {
			sum := KidSummary{Kid: k, Current: current != nil && current.ID == k.ID}
			for _, c := range st.Channels {
				if c.KidID == k.ID {
					sum.ChannelCount++
				}
			}
			for _, v := range st.Videos {
				if v.KidID == k.ID {
					sum.VideoCount++
				}
			}
			out = append(out, sum)
		}
	})
	return out
}
