package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// PlaceholderImageURL is what the synthetic uploader hands back in place of
// a real storage URL, matching what the mobile client renders offline.
const PlaceholderImageURL = "https://via.placeholder.com/150/0000FF/808080?text=Mock+Image"

// MediaService imitates an upload pipeline without moving bytes: it records
// the local URI reference and returns a stable placeholder URL. Chats store
// the reference; the rendering layer resolves it locally.
type MediaService struct {
	Logger *slog.Logger
	Now    func() time.Time

	refs map[string]string
}

type MediaUpload struct {
	ID  string `json:"id"`
	URI string `json:"uri"`
	URL string `json:"url"`
}

// Upload registers localURI and returns the placeholder download URL.
func (s *MediaService) Upload(_ context.Context, localURI string) (MediaUpload, error) {
	if localURI == "" {
		return MediaUpload{}, fmt.Errorf("upload: empty uri")
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	id := fmt.Sprintf("media_%d_%s", now().UnixMilli(), uuid.NewString()[:8])

	if s.refs == nil {
		s.refs = make(map[string]string)
	}
	s.refs[id] = localURI

	if s.Logger != nil {
		s.Logger.Debug("media reference recorded", "id", id, "uri", localURI)
	}
	return MediaUpload{ID: id, URI: localURI, URL: PlaceholderImageURL}, nil
}

// Resolve returns the original local URI recorded for id.
func (s *MediaService) Resolve(id string) (string, bool) {
	uri, ok := s.refs[id]
	return uri, ok
}
