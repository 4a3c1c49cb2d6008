package watch

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"homewatch/internal/detect"
	"homewatch/internal/netatmo"
	"homewatch/internal/recognize"
	"homewatch/internal/snapshot"
)

const (
	defaultInterval  = time.Minute
	defaultBatchSize = 10
)

// Poller drives the event pipeline: poll getevents, download snapshots,
// detect, recognize, publish.
type Poller struct {
	source    EventSource
	detector  detect.Detector
	matcher   *recognize.Matcher
	store     *snapshot.Store
	archiver  snapshot.Archiver
	publisher Publisher
	seen      *SeenSet
	ring      *Ring

	interval  time.Duration
	batchSize int
	allowlist map[string]bool

	mu      sync.RWMutex
	cameras map[string]netatmo.Camera
}

// PollerConfig wires the pipeline. Archiver and Publisher are optional.
type PollerConfig struct {
	Source    EventSource
	Detector  detect.Detector
	Matcher   *recognize.Matcher
	Store     *snapshot.Store
	Archiver  snapshot.Archiver
	Publisher Publisher
	Seen      *SeenSet
	Ring      *Ring

	Interval  time.Duration
	BatchSize int

	// CameraIDs limits watching to these module MACs. Empty watches all.
	CameraIDs []string
}

func NewPoller(cfg PollerConfig) (*Poller, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("event source is required")
	}
	if cfg.Detector == nil {
		return nil, fmt.Errorf("detector is required")
	}
	if cfg.Matcher == nil {
		return nil, fmt.Errorf("matcher is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("snapshot store is required")
	}
	if cfg.Seen == nil {
		return nil, fmt.Errorf("seen set is required")
	}
	if cfg.Ring == nil {
		cfg.Ring = NewRing(0)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}

	allowlist := make(map[string]bool, len(cfg.CameraIDs))
	for _, id := range cfg.CameraIDs {
		allowlist[id] = true
	}

	return &Poller{
		source:    cfg.Source,
		detector:  cfg.Detector,
		matcher:   cfg.Matcher,
		store:     cfg.Store,
		archiver:  cfg.Archiver,
		publisher: cfg.Publisher,
		seen:      cfg.Seen,
		ring:      cfg.Ring,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		allowlist: allowlist,
		cameras:   make(map[string]netatmo.Camera),
	}, nil
}

// Run blocks until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.refreshCameras(ctx); err != nil {
		return fmt.Errorf("camera discovery: %w", err)
	}

	p.tick(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// Cameras returns the cameras discovered at startup and refreshed on ticks.
func (p *Poller) Cameras() []netatmo.Camera {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]netatmo.Camera, 0, len(p.cameras))
	for _, camera := range p.cameras {
		out = append(out, camera)
	}
	return out
}

// Recent returns the latest sightings, newest first.
func (p *Poller) Recent() []Sighting {
	return p.ring.Recent()
}

func (p *Poller) refreshCameras(ctx context.Context) error {
	cameras, err := p.source.Cameras(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, camera := range cameras {
		if len(p.allowlist) > 0 && !p.allowlist[camera.ID] {
			continue
		}
		p.cameras[camera.ID] = camera
	}
	if len(p.cameras) == 0 {
		return fmt.Errorf("no watched cameras found")
	}
	return nil
}

func (p *Poller) watched(moduleID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.cameras[moduleID]
	return ok
}

func (p *Poller) tick(ctx context.Context) {
	events, err := p.source.Events(ctx, p.batchSize)
	if err != nil {
		pollFailure.Inc()
		log.Printf("watch: poll events: %v", err)
		return
	}

	// getevents returns newest first; process oldest first so the ring
	// and MQTT stream stay chronological.
	for i := len(events) - 1; i >= 0; i-- {
		event := events[i]
		if ctx.Err() != nil {
			return
		}
		if p.seen.Contains(event.ID) || !p.watched(event.ModuleID) {
			continue
		}
		p.processEvent(ctx, event)
		p.seen.Add(event.ID)
	}

	if err := p.seen.Flush(); err != nil {
		log.Printf("watch: persist seen set: %v", err)
	}
	if err := p.store.Prune(time.Now()); err != nil {
		log.Printf("watch: prune snapshots: %v", err)
	}
	lastPollSuccess.Set(float64(time.Now().Unix()))
}

func (p *Poller) processEvent(ctx context.Context, event netatmo.Event) {
	eventsTotal.WithLabelValues(event.ModuleID, event.Type).Inc()

	for idx, sub := range event.Subevents {
		ref := sub.Snapshot
		if ref.Empty() {
			ref = sub.Vignette
		}
		if ref.Empty() {
			eventFailure.WithLabelValues(event.ModuleID, "no_media").Inc()
			continue
		}

		image, err := p.source.DownloadSnapshot(ctx, ref)
		if err != nil {
			eventFailure.WithLabelValues(event.ModuleID, "download").Inc()
			log.Printf("watch: download snapshot %s/%s: %v", event.ID, sub.ID, err)
			continue
		}

		path, err := p.store.Save(event.ModuleID, event.ID, idx, image)
		if err != nil {
			eventFailure.WithLabelValues(event.ModuleID, "store").Inc()
			log.Printf("watch: store snapshot %s/%s: %v", event.ID, sub.ID, err)
			continue
		}

		if p.archiver != nil {
			name := fmt.Sprintf("%s_%d.jpg", event.ID, idx)
			if err := p.archiver.Archive(ctx, event.ModuleID, name, image); err != nil {
				log.Printf("watch: archive snapshot %s/%s: %v", event.ID, sub.ID, err)
			}
		}

		detections, err := p.detector.Detect(ctx, image)
		if err != nil {
			eventFailure.WithLabelValues(event.ModuleID, "detect").Inc()
			log.Printf("watch: detect %s/%s: %v", event.ID, sub.ID, err)
			continue
		}

		sighting := Sighting{
			CameraID:     event.ModuleID,
			EventID:      event.ID,
			EventType:    event.Type,
			EventTime:    event.Time,
			SubeventID:   sub.ID,
			SubeventType: sub.Type,
			SnapshotPath: path,
			Detections:   detections,
			ObservedAt:   time.Now().UTC(),
		}

		for _, detection := range detections {
			detectionsTotal.WithLabelValues(event.ModuleID, detection.Class).Inc()
			if !detection.IsPerson() || len(detection.Embedding) == 0 {
				continue
			}
			match := p.matcher.Match(detection.Embedding)
			sighting.Persons = append(sighting.Persons, Person{Name: match.Name, Score: match.Score})
			sightingsTotal.WithLabelValues(event.ModuleID, match.Name).Inc()
		}

		p.ring.Add(sighting)

		if p.publisher != nil {
			if err := p.publisher.Publish(ctx, sighting); err != nil {
				eventFailure.WithLabelValues(event.ModuleID, "publish").Inc()
				log.Printf("watch: publish sighting %s/%s: %v", event.ID, sub.ID, err)
			}
		}
	}
}
