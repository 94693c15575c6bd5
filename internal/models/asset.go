package models

import (
	"errors"
	"fmt"
	"strings"
)

type AssetKind string

const (
	AssetImage    AssetKind = "image"
	AssetVideo    AssetKind = "video"
	AssetAudio    AssetKind = "audio"
	AssetDocument AssetKind = "document"
)

var ErrInvalidAsset = errors.New("invalid asset")

// Asset is a media file owned by the admin. Data only lives in the local
// store and is never serialized into a manifest or a backup.
type Asset struct {
	ID          string    `json:"id"`
	Kind        AssetKind `json:"type"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	ContentType string    `json:"contentType,omitempty"`
	Data        []byte    `json:"-"`
}

func (a Asset) HasPayload() bool {
	return len(a.Data) > 0
}

func (a Asset) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidAsset)
	}
	switch a.Kind {
	case AssetImage, AssetVideo, AssetAudio, AssetDocument:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidAsset, a.Kind)
	}
	if !a.HasPayload() && a.URL == "" {
		return fmt.Errorf("%w: asset %s has neither payload nor url", ErrInvalidAsset, a.ID)
	}
	return nil
}

// KindFromContentType maps a MIME type onto an asset kind
func KindFromContentType(contentType string) AssetKind {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return AssetImage
	case strings.HasPrefix(contentType, "video/"):
		return AssetVideo
	case strings.HasPrefix(contentType, "audio/"):
		return AssetAudio
	default:
		return AssetDocument
	}
}
