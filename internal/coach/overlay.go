package coach

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/posecoach/internal/pose"
	"github.com/2beens/posecoach/internal/session"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

const megabyte = 1024 * 1024

var ErrNoOverlay = errors.New("no recent frame")

// Overlay is what a client needs to draw the latest classified frame:
// the landmarks and the verdict color.
type Overlay struct {
	SessionID  string            `json:"id"`
	Verdict    bool              `json:"verdict"`
	Mode       pose.ExerciseMode `json:"mode"`
	Frame      pose.Frame        `json:"frame"`
	Evaluation pose.Evaluation   `json:"evaluation"`
	At         time.Time         `json:"at"`
}

// OverlayCache keeps the last frame result per session for a short time.
type OverlayCache struct {
	cache         *freecache.Cache
	expireSeconds int
}

func NewOverlayCache(sizeMB int, ttl time.Duration) *OverlayCache {
	if sizeMB <= 0 {
		sizeMB = 8
	}
	expireSeconds := int(ttl.Seconds())
	if expireSeconds < 1 {
		expireSeconds = 1
	}
	return &OverlayCache{
		cache:         freecache.NewCache(sizeMB * megabyte),
		expireSeconds: expireSeconds,
	}
}

func overlayKey(sessionID string) []byte {
	return []byte("overlay::" + sessionID)
}

func (c *OverlayCache) Put(res session.FrameResult) error {
	overlay := Overlay{
		SessionID:  res.SessionID,
		Verdict:    res.Verdict,
		Mode:       res.Mode,
		Frame:      res.Frame,
		Evaluation: res.Evaluation,
		At:         res.At,
	}
	overlayBytes, err := json.Marshal(overlay)
	if err != nil {
		return fmt.Errorf("marshal overlay: %w", err)
	}
	if err := c.cache.Set(overlayKey(res.SessionID), overlayBytes, c.expireSeconds); err != nil {
		return fmt.Errorf("set overlay: %w", err)
	}
	return nil
}

func (c *OverlayCache) Get(sessionID string) (Overlay, error) {
	overlayBytes, err := c.cache.Get(overlayKey(sessionID))
	if err != nil {
		if errors.Is(err, freecache.ErrNotFound) {
			return Overlay{}, ErrNoOverlay
		}
		return Overlay{}, fmt.Errorf("get overlay: %w", err)
	}

	var overlay Overlay
	if err := json.Unmarshal(overlayBytes, &overlay); err != nil {
		return Overlay{}, fmt.Errorf("unmarshal overlay: %w", err)
	}
	return overlay, nil
}

func (c *OverlayCache) Delete(sessionID string) {
	if !c.cache.Del(overlayKey(sessionID)) {
		log.Tracef("no overlay cached for session [%s]", sessionID)
	}
}
