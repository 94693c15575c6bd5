package models

import "time"

// ManifestPath is where the visitor site and the bootstrap resolver find the published manifest
const ManifestPath = "/data/manifest.json"

// Manifest is the published snapshot. It is replaced wholesale on every publish.
type Manifest struct {
	LastUpdated string   `json:"lastUpdated"`
	Events      []Event  `json:"events"`
	Settings    Settings `json:"settings"`
}

func NewManifest(events []Event, settings Settings, now time.Time) Manifest {
	if events == nil {
		events = []Event{}
	}
	return Manifest{
		LastUpdated: now.UTC().Format(time.RFC3339),
		Events:      events,
		Settings:    settings,
	}
}

// FindEvent looks up an event by id
func (m Manifest) FindEvent(id string) (Event, bool) {
	for _, e := range m.Events {
		if e.ID == id {
			return e, true
		}
	}
	return Event{}, false
}

// PublishRequest is the body of POST /api/publish
type PublishRequest struct {
	Events   []Event   `json:"events"`
	Settings *Settings `json:"settings"`
}

// PublishResponse carries the canonical events once payment ids were assigned
type PublishResponse struct {
	Success bool    `json:"success"`
	Events  []Event `json:"events,omitempty"`
	Error   string  `json:"error,omitempty"`
}

type UploadResponse struct {
	URL string `json:"url"`
}

// Backup is the export format of the owner console. Asset payloads are not included.
type Backup struct {
	Version    int       `json:"version"`
	ExportedAt string    `json:"exportedAt"`
	Events     []Event   `json:"events"`
	Assets     []Asset   `json:"assets"`
	Settings   *Settings `json:"settings,omitempty"`
}

const BackupVersion = 1
