package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"linvo/internal/services"
	"linvo/storage"
)

func (s *Server) listKids(c *gin.Context) {
	st := s.deps.Session.Snapshot()
	current := ""
	if k := st.CurrentKid(); k != nil {
		current = k.ID
	}
	c.JSON(http.StatusOK, gin.H{"kids": st.Kids, "currentKidId": current})
}

func (s *Server) currentKid(c *gin.Context) {
	kid := s.deps.Kids.CurrentKid()
	if kid == nil {
		s.writeError(c, services.ErrKidNotFound)
		return
	}
	c.JSON(http.StatusOK, kid)
}

func (s *Server) selectKid(c *gin.Context) {
	var req struct {
		KidID string `json:"kidId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	kid, err := s.deps.Kids.SelectKid(c.Request.Context(), req.KidID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, kid)
}

// kidParam resolves the :kidId path parameter, writing 404 if unknown.
func (s *Server) kidParam(c *gin.Context) (string, bool) {
	id := c.Param("kidId")
	if s.deps.Session.Snapshot().FindKid(id) == nil {
		s.writeError(c, services.ErrKidNotFound)
		return "", false
	}
	return id, true
}

func (s *Server) kidChannels(c *gin.Context) {
	id, ok := s.kidParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": s.deps.Session.ChannelsForKid(id)})
}

func (s *Server) kidVideos(c *gin.Context) {
	id, ok := s.kidParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"videos": s.deps.Session.VideosForKid(id)})
}

func (s *Server) kidRecent(c *gin.Context) {
	id, ok := s.kidParam(c)
	if !ok {
		return
	}
	limit := services.DefaultRecentlyWatched
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	c.JSON(http.StatusOK, gin.H{"videos": s.deps.Session.RecentlyWatched(id, limit)})
}

func (s *Server) recordPlayback(c *gin.Context) {
	id, ok := s.kidParam(c)
	if !ok {
		return
	}
	var req struct {
		VideoID      string `json:"videoId" binding:"required"`
		Title        string `json:"title"`
		ChannelTitle string `json:"channelTitle"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.deps.Playback.RecordPlayback(c.Request.Context(), req.VideoID, req.Title, req.ChannelTitle, id); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) unlock(c *gin.Context) {
	var req struct {
		PIN string `json:"pin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, expires, err := s.deps.Gate.Unlock(req.PIN)
	if err != nil {
		s.log.Warnw("msg", "admin unlock rejected", "err", err)
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "expiresAt": expires.UTC().Format(time.RFC3339)})
}

func (s *Server) addKid(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	kid, err := s.deps.Kids.AddKid(c.Request.Context(), req.Name)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, kid)
}

func (s *Server) importChannel(c *gin.Context) {
	var req struct {
		Input string `json:"input"`
		KidID string `json:"kidId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	channel, err := s.deps.Imports.ImportChannel(c.Request.Context(), req.Input, req.KidID)
	if err != nil {
		if channel != nil {
			// approved, but the videos could not be listed
			c.JSON(statusFor(err), gin.H{"error": err.Error(), "channel": channel})
			return
		}
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, channel)
}

func (s *Server) refreshChannel(c *gin.Context) {
	added, err := s.deps.Imports.RefreshChannel(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": added})
}

type settingsResponse struct {
	storage.ViewingSettings
	InDowntime bool `json:"inDowntime"`
}

func (s *Server) getSettings(c *gin.Context) {
	c.JSON(http.StatusOK, settingsResponse{
		ViewingSettings: s.deps.Settings.Settings(),
		InDowntime:      s.deps.Settings.InDowntime(),
	})
}

func (s *Server) updateSettings(c *gin.Context) {
	var req struct {
		// DailyLimitMinutes may be a number, a string or null.
		DailyLimitMinutes json.RawMessage `json:"dailyLimitMinutes"`
		DowntimeStart     *string         `json:"downtimeStart"`
		DowntimeEnd       *string         `json:"downtimeEnd"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	update := services.SettingsUpdate{
		DowntimeStart: req.DowntimeStart,
		DowntimeEnd:   req.DowntimeEnd,
	}
	if len(req.DailyLimitMinutes) > 0 {
		raw := rawLimit(req.DailyLimitMinutes)
		update.DailyLimitMinutes = &raw
	}

	settings, err := s.deps.Settings.UpdateSettings(c.Request.Context(), update)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, settingsResponse{ViewingSettings: settings, InDowntime: s.deps.Settings.InDowntime()})
}

// rawLimit turns a JSON number or string into the raw text the settings
// service parses. Anything else becomes "", which clears the limit.
func rawLimit(msg json.RawMessage) string {
	msg = bytes.TrimSpace(msg)
	var str string
	if err := json.Unmarshal(msg, &str); err == nil {
		return str
	}
	var num json.Number
	if err := json.Unmarshal(msg, &num); err == nil {
		return num.String()
	}
	return ""
}

func (s *Server) summary(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"kids":     s.deps.Session.KidSummaries(),
		"settings": s.deps.Settings.Settings(),
	})
}
