package detect

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDetect(t *testing.T) {
	image := []byte("jpegbytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("conf"); got != "0.4" {
			t.Fatalf("unexpected conf: %q", got)
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if string(data) != string(image) {
			t.Fatalf("image bytes mismatch")
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"detections":[{"class":"person","confidence":0.92,"box":{"x1":0.1,"y1":0.2,"x2":0.4,"y2":0.9},"embedding":[0.5,0.5]},{"class":"dog","confidence":0.71,"box":{"x1":0.5,"y1":0.5,"x2":0.7,"y2":0.8}}]}`)
	}))
	defer server.Close()

	client, err := NewClient(Config{URL: server.URL, Confidence: 0.4})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	detections, err := client.Detect(context.Background(), image)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(detections) != 2 {
		t.Fatalf("expected 2 detections, got %d", len(detections))
	}

	person := detections[0]
	if !person.IsPerson() || person.Confidence != 0.92 {
		t.Fatalf("unexpected detection: %+v", person)
	}
	if person.Box.X2 != 0.4 {
		t.Fatalf("unexpected box: %+v", person.Box)
	}
	if len(person.Embedding) != 2 {
		t.Fatalf("expected embedding")
	}
	if detections[1].IsPerson() {
		t.Fatalf("dog should not be a person")
	}
}

func TestDetectServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewClient(Config{URL: server.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Detect(context.Background(), []byte("x"))
	statusErr, ok := err.(HTTPStatusError)
	if !ok {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
	if statusErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status: %d", statusErr.Status)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatalf("expected error for missing url")
	}
	if _, err := NewClient(Config{URL: "http://localhost:9090", Confidence: 1.5}); err == nil {
		t.Fatalf("expected error for confidence > 1")
	}
}
