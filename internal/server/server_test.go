package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"homewatch/internal/netatmo"
	"homewatch/internal/watch"
)

type staticSource struct {
	sightings []watch.Sighting
	cameras   []netatmo.Camera
}

func (s staticSource) Recent() []watch.Sighting  { return s.sightings }
func (s staticSource) Cameras() []netatmo.Camera { return s.cameras }

func TestHealthHandler(t *testing.T) {
	recorder := httptest.NewRecorder()
	HealthHandler(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
	if recorder.Body.String() != "ok" {
		t.Fatalf("unexpected body: %q", recorder.Body.String())
	}
}

func TestSightingsHandler(t *testing.T) {
	source := staticSource{sightings: []watch.Sighting{{
		CameraID:  "70:ee:50:95:d5:1c",
		EventID:   "evt-1",
		EventType: "outdoor",
		EventTime: time.Unix(1695000000, 0).UTC(),
		Persons:   []watch.Person{{Name: "alice", Score: 0.93}},
	}}}

	recorder := httptest.NewRecorder()
	SightingsHandler(source).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/sightings", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}

	var body struct {
		Sightings []watch.Sighting `json:"sightings"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Sightings) != 1 || body.Sightings[0].EventID != "evt-1" {
		t.Fatalf("unexpected sightings: %+v", body.Sightings)
	}
	if body.Sightings[0].Persons[0].Name != "alice" {
		t.Fatalf("unexpected person: %+v", body.Sightings[0].Persons)
	}
}

func TestSightingsHandlerEmpty(t *testing.T) {
	recorder := httptest.NewRecorder()
	SightingsHandler(staticSource{}).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/sightings", nil))

	if recorder.Body.String() != "{\"sightings\":[]}\n" {
		t.Fatalf("expected empty array, got %q", recorder.Body.String())
	}
}

func TestSightingsHandlerMethod(t *testing.T) {
	recorder := httptest.NewRecorder()
	SightingsHandler(staticSource{}).ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/sightings", nil))

	if recorder.Code != http.StatusMethodNotAllowed {
		t.Fatalf("unexpected status: %d", recorder.Code)
	}
}

func TestCamerasHandler(t *testing.T) {
	source := staticSource{cameras: []netatmo.Camera{{
		ID:         "70:ee:50:95:d5:1c",
		Type:       netatmo.ModuleOutdoorCamera,
		Monitoring: true,
	}}}

	recorder := httptest.NewRecorder()
	CamerasHandler(source).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/cameras", nil))

	var body struct {
		Cameras []struct {
			ID         string `json:"id"`
			Monitoring bool   `json:"monitoring"`
			Outdoor    bool   `json:"outdoor"`
		} `json:"cameras"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Cameras) != 1 {
		t.Fatalf("expected 1 camera")
	}
	if !body.Cameras[0].Outdoor || !body.Cameras[0].Monitoring {
		t.Fatalf("unexpected camera view: %+v", body.Cameras[0])
	}
}
