package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"homewatch/internal/detect"
	"homewatch/internal/netatmo"
	"homewatch/internal/recognize"
	"homewatch/internal/snapshot"
)

type fakeSource struct {
	mu        sync.Mutex
	cameras   []netatmo.Camera
	events    []netatmo.Event
	downloads int
}

func (f *fakeSource) Cameras(_ context.Context) ([]netatmo.Camera, error) {
	return f.cameras, nil
}

func (f *fakeSource) Events(_ context.Context, _ int) ([]netatmo.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events, nil
}

func (f *fakeSource) DownloadSnapshot(_ context.Context, ref netatmo.MediaRef) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads++
	if ref.Empty() {
		return nil, fmt.Errorf("empty ref")
	}
	return []byte("jpeg-" + ref.URL), nil
}

type fakeDetector struct {
	detections []detect.Detection
	err        error
}

func (f *fakeDetector) Detect(_ context.Context, _ []byte) ([]detect.Detection, error) {
	return f.detections, f.err
}

type fakePublisher struct {
	mu        sync.Mutex
	sightings []Sighting
}

func (f *fakePublisher) Publish(_ context.Context, sighting Sighting) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sightings = append(f.sightings, sighting)
	return nil
}

func testEvent(id, module string) netatmo.Event {
	return netatmo.Event{
		ID:       id,
		Type:     "outdoor",
		Time:     time.Unix(1695000000, 0).UTC(),
		ModuleID: module,
		Subevents: []netatmo.Subevent{{
			ID:       id + "-sub",
			Type:     "human",
			Snapshot: netatmo.MediaRef{URL: "http://cam/" + id + ".jpg"},
		}},
	}
}

func newTestPoller(t *testing.T, source *fakeSource, detector detect.Detector, publisher Publisher, seenPath string) *Poller {
	t.Helper()

	matcher, err := recognize.NewMatcher(recognize.Roster{Members: []recognize.Member{
		{Name: "alice", Embeddings: [][]float64{{1, 0}}},
	}}, 0.8)
	if err != nil {
		t.Fatalf("matcher: %v", err)
	}

	store, err := snapshot.NewStore(snapshot.Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	seen, err := NewSeenSet(seenPath, 100)
	if err != nil {
		t.Fatalf("seen: %v", err)
	}

	poller, err := NewPoller(PollerConfig{
		Source:    source,
		Detector:  detector,
		Matcher:   matcher,
		Store:     store,
		Publisher: publisher,
		Seen:      seen,
		Ring:      NewRing(10),
	})
	if err != nil {
		t.Fatalf("poller: %v", err)
	}
	return poller
}

func TestTickProcessesNewEventsOldestFirst(t *testing.T) {
	source := &fakeSource{
		cameras: []netatmo.Camera{{ID: "cam-1", Type: netatmo.ModuleOutdoorCamera}},
		// newest first, as getevents returns them
		events: []netatmo.Event{testEvent("evt-2", "cam-1"), testEvent("evt-1", "cam-1")},
	}
	detector := &fakeDetector{detections: []detect.Detection{
		{Class: "person", Confidence: 0.9, Embedding: []float64{1, 0}},
	}}
	publisher := &fakePublisher{}
	poller := newTestPoller(t, source, detector, publisher, "")

	ctx := context.Background()
	if err := poller.refreshCameras(ctx); err != nil {
		t.Fatalf("refresh cameras: %v", err)
	}
	poller.tick(ctx)

	if len(publisher.sightings) != 2 {
		t.Fatalf("expected 2 sightings, got %d", len(publisher.sightings))
	}
	if publisher.sightings[0].EventID != "evt-1" || publisher.sightings[1].EventID != "evt-2" {
		t.Fatalf("expected chronological order, got %s then %s",
			publisher.sightings[0].EventID, publisher.sightings[1].EventID)
	}

	recent := poller.Recent()
	if len(recent) != 2 || recent[0].EventID != "evt-2" {
		t.Fatalf("ring should be newest first: %+v", recent)
	}

	sighting := publisher.sightings[0]
	if len(sighting.Persons) != 1 || sighting.Persons[0].Name != "alice" {
		t.Fatalf("expected alice sighting, got %+v", sighting.Persons)
	}
	if sighting.SnapshotPath == "" {
		t.Fatalf("expected stored snapshot path")
	}
}

func TestTickSkipsSeenEvents(t *testing.T) {
	source := &fakeSource{
		cameras: []netatmo.Camera{{ID: "cam-1"}},
		events:  []netatmo.Event{testEvent("evt-1", "cam-1")},
	}
	publisher := &fakePublisher{}
	poller := newTestPoller(t, source, &fakeDetector{}, publisher, "")

	ctx := context.Background()
	if err := poller.refreshCameras(ctx); err != nil {
		t.Fatalf("refresh cameras: %v", err)
	}

	poller.tick(ctx)
	poller.tick(ctx)

	if len(publisher.sightings) != 1 {
		t.Fatalf("expected 1 sighting after reprocessing, got %d", len(publisher.sightings))
	}
	if source.downloads != 1 {
		t.Fatalf("expected 1 download, got %d", source.downloads)
	}
}

func TestTickIgnoresUnwatchedCameras(t *testing.T) {
	source := &fakeSource{
		cameras: []netatmo.Camera{{ID: "cam-1"}, {ID: "cam-2"}},
		events:  []netatmo.Event{testEvent("evt-1", "cam-2")},
	}
	publisher := &fakePublisher{}
	poller := newTestPoller(t, source, &fakeDetector{}, publisher, "")
	poller.allowlist = map[string]bool{"cam-1": true}

	ctx := context.Background()
	if err := poller.refreshCameras(ctx); err != nil {
		t.Fatalf("refresh cameras: %v", err)
	}
	poller.tick(ctx)

	if len(publisher.sightings) != 0 {
		t.Fatalf("expected no sightings from unwatched camera")
	}

	cameras := poller.Cameras()
	if len(cameras) != 1 || cameras[0].ID != "cam-1" {
		t.Fatalf("allowlist should filter discovery: %+v", cameras)
	}
}

func TestSeenSetSurvivesRestart(t *testing.T) {
	seenPath := filepath.Join(t.TempDir(), "seen.json")
	source := &fakeSource{
		cameras: []netatmo.Camera{{ID: "cam-1"}},
		events:  []netatmo.Event{testEvent("evt-1", "cam-1")},
	}

	first := &fakePublisher{}
	poller := newTestPoller(t, source, &fakeDetector{}, first, seenPath)
	ctx := context.Background()
	if err := poller.refreshCameras(ctx); err != nil {
		t.Fatalf("refresh cameras: %v", err)
	}
	poller.tick(ctx)
	if len(first.sightings) != 1 {
		t.Fatalf("expected 1 sighting, got %d", len(first.sightings))
	}

	second := &fakePublisher{}
	restarted := newTestPoller(t, source, &fakeDetector{}, second, seenPath)
	if err := restarted.refreshCameras(ctx); err != nil {
		t.Fatalf("refresh cameras: %v", err)
	}
	restarted.tick(ctx)

	if len(second.sightings) != 0 {
		t.Fatalf("restart must not replay events, got %d sightings", len(second.sightings))
	}
}

func TestTickSurvivesDetectorFailure(t *testing.T) {
	source := &fakeSource{
		cameras: []netatmo.Camera{{ID: "cam-1"}},
		events:  []netatmo.Event{testEvent("evt-1", "cam-1")},
	}
	publisher := &fakePublisher{}
	poller := newTestPoller(t, source, &fakeDetector{err: fmt.Errorf("inference down")}, publisher, "")

	ctx := context.Background()
	if err := poller.refreshCameras(ctx); err != nil {
		t.Fatalf("refresh cameras: %v", err)
	}
	poller.tick(ctx)

	if len(publisher.sightings) != 0 {
		t.Fatalf("expected no sightings on detector failure")
	}
	// The event still counts as seen so it is not retried forever.
	if !poller.seen.Contains("evt-1") {
		t.Fatalf("failed event should be marked seen")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	source := &fakeSource{cameras: []netatmo.Camera{{ID: "cam-1"}}}
	poller := newTestPoller(t, source, &fakeDetector{}, nil, "")
	poller.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- poller.Run(ctx)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("poller did not stop")
	}
}
