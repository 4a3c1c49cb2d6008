package server

import (
	"encoding/json"
	"net/http"

	"homewatch/internal/netatmo"
	"homewatch/internal/watch"
)

// SightingSource exposes the recent sightings ring.
type SightingSource interface {
	Recent() []watch.Sighting
}

// CameraSource exposes the discovered cameras.
type CameraSource interface {
	Cameras() []netatmo.Camera
}

// HealthHandler returns a simple OK for liveness checks.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// SightingsHandler serves the recent sightings, newest first.
func SightingsHandler(source SightingSource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		sightings := source.Recent()
		if sightings == nil {
			sightings = []watch.Sighting{}
		}
		writeJSON(w, map[string]any{"sightings": sightings})
	})
}

type cameraView struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Name       string `json:"name,omitempty"`
	Monitoring bool   `json:"monitoring"`
	Outdoor    bool   `json:"outdoor"`
}

// CamerasHandler serves the watched cameras and their monitoring state.
func CamerasHandler(source CameraSource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		cameras := source.Cameras()
		views := make([]cameraView, 0, len(cameras))
		for _, camera := range cameras {
			views = append(views, cameraView{
				ID:         camera.ID,
				Type:       camera.Type,
				Name:       camera.Name,
				Monitoring: camera.Monitoring,
				Outdoor:    camera.IsOutdoor(),
			})
		}
		writeJSON(w, map[string]any{"cameras": views})
	})
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
