package storage

import (
	"strconv"
	"strings"
	"time"
)

// HistoryLimit bounds the videos collection after a playback is recorded.
const HistoryLimit = 50

// AppState is the single persisted document.
type AppState struct {
	Kids         []KidProfile      `json:"kids" validate:"unique=ID,dive"`
	CurrentKidID string            `json:"currentKidId"`
	Channels     []ApprovedChannel `json:"channels" validate:"dive"`
	Videos       []ImportedVideo   `json:"videos" validate:"unique=ID,dive"`
	Settings     ViewingSettings   `json:"settings"`
}

// KidProfile is a child identity under which channels and videos are scoped.
type KidProfile struct {
	ID      string `json:"id" validate:"required"`
	Name    string `json:"name" validate:"required"`
	Initial string `json:"initial"`
}

// ApprovedChannel is a catalog channel a parent allow-listed for one kid.
type ApprovedChannel struct {
	ID        string `json:"id" validate:"required"`        // locally generated
	ChannelID string `json:"channelId" validate:"required"` // catalog channel ID (UC...)
	Title     string `json:"title"`
	Thumbnail string `json:"thumbnail"`
	KidID     string `json:"kidId"`
}

// ImportedVideo is a browsable video, either imported from an approved
// channel or recorded when played.
type ImportedVideo struct {
	ID           string `json:"id" validate:"required"` // catalog video ID
	Title        string `json:"title"`
	ChannelTitle string `json:"channelTitle"`
	Thumbnail    string `json:"thumbnail"`
	Duration     string `json:"duration,omitempty"`
	KidID        string `json:"kidId"`
}

// ViewingSettings holds the viewing limits. There is one settings object
// for the whole document, not one per kid.
type ViewingSettings struct {
	DailyLimitMinutes *int   `json:"dailyLimitMinutes" validate:"omitempty,gt=0"`
	DowntimeStart     string `json:"downtimeStart" validate:"omitempty,clock"`
	DowntimeEnd       string `json:"downtimeEnd" validate:"omitempty,clock"`
}

// DefaultState returns the document seeded on first run.
func DefaultState() *AppState {
	return &AppState{
		Kids: []KidProfile{
			{ID: "kid-1", Name: "Alex", Initial: "A"},
		},
		CurrentKidID: "kid-1",
		Channels:     []ApprovedChannel{},
		Videos:       []ImportedVideo{},
		Settings:     ViewingSettings{},
	}
}

// CurrentKid resolves CurrentKidID against Kids. A stale reference falls
// back to the first kid; nil is returned only when there are no kids.
func (a *AppState) CurrentKid() *KidProfile {
	if k := a.FindKid(a.CurrentKidID); k != nil {
		return k
	}
	if len(a.Kids) > 0 {
		return &a.Kids[0]
	}
	return nil
}

// FindKid returns the kid with the given ID, or nil.
func (a *AppState) FindKid(id string) *KidProfile {
	if id == "" {
		return nil
	}
	for i := range a.Kids {
		if a.Kids[i].ID == id {
			return &a.Kids[i]
		}
	}
	return nil
}

// FindChannel returns the approved channel record with the given local ID, or nil.
func (a *AppState) FindChannel(id string) *ApprovedChannel {
	for i := range a.Channels {
		if a.Channels[i].ID == id {
			return &a.Channels[i]
		}
	}
	return nil
}

// FindApproval returns the record approving catalog channel channelID for kidID, or nil.
func (a *AppState) FindApproval(channelID, kidID string) *ApprovedChannel {
	for i := range a.Channels {
		if a.Channels[i].ChannelID == channelID && a.Channels[i].KidID == kidID {
			return &a.Channels[i]
		}
	}
	return nil
}

// HasVideo reports whether a video with the given ID is already stored.
func (a *AppState) HasVideo(id string) bool {
	for i := range a.Videos {
		if a.Videos[i].ID == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the document.
func (a *AppState) Clone() *AppState {
	c := &AppState{
		Kids:         append([]KidProfile{}, a.Kids...),
		CurrentKidID: a.CurrentKidID,
		Channels:     append([]ApprovedChannel{}, a.Channels...),
		Videos:       append([]ImportedVideo{}, a.Videos...),
		Settings:     a.Settings,
	}
	if a.Settings.DailyLimitMinutes != nil {
		v := *a.Settings.DailyLimitMinutes
		c.Settings.DailyLimitMinutes = &v
	}
	return c
}

// InDowntime reports whether the clock time of t falls inside the downtime
// window. Windows may wrap midnight (22:00-07:00). An incomplete window
// never matches.
func (s ViewingSettings) InDowntime(t time.Time) bool {
	start, ok := ParseClock(s.DowntimeStart)
	if !ok {
		return false
	}
	end, ok := ParseClock(s.DowntimeEnd)
	if !ok || start == end {
		return false
	}
	now := t.Hour()*60 + t.Minute()
	if start < end {
		return now >= start && now < end
	}
	return now >= start || now < end
}

// ParseClock parses an "HH:MM" string into minutes after midnight.
func ParseClock(s string) (int, bool) {
	h, m, ok := strings.Cut(s, ":")
	if !ok || !twoDigits(h) || !twoDigits(m) {
		return 0, false
	}
	hh, _ := strconv.Atoi(h)
	mm, _ := strconv.Atoi(m)
	if hh > 23 || mm > 59 {
		return 0, false
	}
	return hh*60 + mm, true
}

func twoDigits(s string) bool {
	return len(s) == 2 && s[0] >= '0' && s[0] <= '9' && s[1] >= '0' && s[1] <= '9'
}
