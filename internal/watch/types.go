package watch

import (
	"context"
	"time"

	"homewatch/internal/detect"
	"homewatch/internal/netatmo"
)

// Person is one recognized (or unknown) person in a sighting.
type Person struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Sighting is the result of running one event snapshot through the
// detection and recognition pipeline.
type Sighting struct {
	CameraID     string             `json:"camera_id"`
	EventID      string             `json:"event_id"`
	EventType    string             `json:"event_type"`
	EventTime    time.Time          `json:"event_time"`
	SubeventID   string             `json:"subevent_id"`
	SubeventType string             `json:"subevent_type"`
	SnapshotPath string             `json:"snapshot_path"`
	Detections   []detect.Detection `json:"detections"`
	Persons      []Person           `json:"persons,omitempty"`
	ObservedAt   time.Time          `json:"observed_at"`
}

// EventSource is the slice of the Netatmo client the poller needs.
type EventSource interface {
	Cameras(ctx context.Context) ([]netatmo.Camera, error)
	Events(ctx context.Context, size int) ([]netatmo.Event, error)
	DownloadSnapshot(ctx context.Context, ref netatmo.MediaRef) ([]byte, error)
}

// Publisher fans a sighting out to an external sink.
type Publisher interface {
	Publish(ctx context.Context, sighting Sighting) error
}
