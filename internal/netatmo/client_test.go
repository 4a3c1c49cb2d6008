package netatmo

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"homewatch/internal/credentials"
	"homewatch/internal/oauth"
)

func assertAuth(t *testing.T, r *http.Request) {
	t.Helper()
	if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
		t.Fatalf("missing bearer auth, got %q", got)
	}
}

func newTestClient(t *testing.T, serverURL string, cfg Config) *Client {
	t.Helper()

	statePath := filepath.Join(t.TempDir(), "netatmo.json")
	manager, err := oauth.NewManager(credentials.Credentials{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RefreshToken: "aaaa|bbbb",
	}, oauth.Options{
		StatePath: statePath,
		TokenURL:  serverURL + "/oauth2/token",
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	manager.StartWithInterval(ctx, time.Hour)

	cfg.BaseURL = serverURL
	return NewClient(cfg, manager)
}

func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth2/token":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"access_token":"test-token","refresh_token":"aaaa|cccc","expires_in":10800,"token_type":"Bearer"}`)
		case "/api/homesdata":
			assertAuth(t, r)
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"body":{"homes":[{"id":"63b2b940dfc55930790cfd43","name":"Cabane","modules":[{"id":"70:ee:50:95:d5:1c","type":"NOC","name":"Garden"},{"id":"aa:bb","type":"NAMain","name":"Weather"}]}]},"status":"ok"}`)
		case "/api/homestatus":
			assertAuth(t, r)
			if got := r.URL.Query().Get("home_id"); got != "63b2b940dfc55930790cfd43" {
				t.Fatalf("unexpected home_id: %q", got)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"body":{"home":{"id":"63b2b940dfc55930790cfd43","modules":[{"id":"70:ee:50:95:d5:1c","type":"NOC","monitoring":"on","sd_status":4,"alim_status":2,"vpn_url":"`+serverVPNURL(r)+`"}]}},"status":"ok"}`)
		case "/api/getevents":
			assertAuth(t, r)
			if got := r.URL.Query().Get("size"); got != "5" {
				t.Fatalf("unexpected size: %q", got)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"body":{"home":{"events":[{"id":"evt-1","type":"outdoor","time":1695000000,"module_id":"70:ee:50:95:d5:1c","subevents":[{"id":"sub-1","type":"human","time":1695000001,"verified":true,"message":"Person detected","snapshot":{"url":"`+serverVPNURL(r)+`/snap.jpg"},"vignette":{"id":"img-1","key":"k-1"}}]}]}},"status":"ok"}`)
		case "/snap.jpg":
			_, _ = w.Write([]byte("jpegbytes"))
		case "/api/getcamerapicture":
			assertAuth(t, r)
			if r.URL.Query().Get("image_id") != "img-1" || r.URL.Query().Get("key") != "k-1" {
				t.Fatalf("unexpected picture query: %v", r.URL.Query())
			}
			_, _ = w.Write([]byte("vignettebytes"))
		case "/live/snapshot_720.jpg":
			_, _ = w.Write([]byte("livebytes"))
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
}

// serverVPNURL rebuilds the test server base URL from the incoming request.
func serverVPNURL(r *http.Request) string {
	return "http://" + r.Host
}

func TestClientFlow(t *testing.T) {
	server := newAPIServer(t)
	defer server.Close()

	client := newTestClient(t, server.URL, Config{})
	ctx := context.Background()

	homeID, err := client.HomeID(ctx)
	if err != nil {
		t.Fatalf("HomeID: %v", err)
	}
	if homeID != "63b2b940dfc55930790cfd43" {
		t.Fatalf("unexpected home id: %q", homeID)
	}

	cameras, err := client.Cameras(ctx)
	if err != nil {
		t.Fatalf("Cameras: %v", err)
	}
	if len(cameras) != 1 {
		t.Fatalf("expected 1 camera, got %d", len(cameras))
	}
	camera := cameras[0]
	if camera.ID != "70:ee:50:95:d5:1c" || !camera.IsOutdoor() {
		t.Fatalf("unexpected camera: %+v", camera)
	}
	if !camera.Monitoring {
		t.Fatalf("expected monitoring on")
	}
	if camera.VPNURL == "" {
		t.Fatalf("expected vpn_url")
	}

	events, err := client.Events(ctx, 5)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 1 || events[0].ID != "evt-1" {
		t.Fatalf("unexpected events: %+v", events)
	}
	event := events[0]
	if event.Time != time.Unix(1695000000, 0).UTC() {
		t.Fatalf("unexpected event time: %v", event.Time)
	}
	if len(event.Subevents) != 1 {
		t.Fatalf("expected 1 subevent")
	}
	sub := event.Subevents[0]
	if sub.Type != "human" || !sub.Verified {
		t.Fatalf("unexpected subevent: %+v", sub)
	}

	snap, err := client.DownloadSnapshot(ctx, sub.Snapshot)
	if err != nil {
		t.Fatalf("DownloadSnapshot url: %v", err)
	}
	if string(snap) != "jpegbytes" {
		t.Fatalf("unexpected snapshot bytes: %q", snap)
	}

	vignette, err := client.DownloadSnapshot(ctx, sub.Vignette)
	if err != nil {
		t.Fatalf("DownloadSnapshot id/key: %v", err)
	}
	if string(vignette) != "vignettebytes" {
		t.Fatalf("unexpected vignette bytes: %q", vignette)
	}

	live, err := client.LiveSnapshot(ctx, camera)
	if err != nil {
		t.Fatalf("LiveSnapshot: %v", err)
	}
	if string(live) != "livebytes" {
		t.Fatalf("unexpected live bytes: %q", live)
	}
}

func TestHomeIDConfigured(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth2/token" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"access_token":"test-token","expires_in":10800,"token_type":"Bearer"}`)
			return
		}
		t.Fatalf("unexpected call to %s", r.URL.Path)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, Config{HomeID: "configured-home"})

	homeID, err := client.HomeID(context.Background())
	if err != nil {
		t.Fatalf("HomeID: %v", err)
	}
	if homeID != "configured-home" {
		t.Fatalf("unexpected home id: %q", homeID)
	}
}

func TestHomeIDMultipleHomes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth2/token":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"access_token":"test-token","expires_in":10800,"token_type":"Bearer"}`)
		case "/api/homesdata":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"body":{"homes":[{"id":"h1","name":"One"},{"id":"h2","name":"Two"}]},"status":"ok"}`)
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, Config{})

	if _, err := client.HomeID(context.Background()); err == nil {
		t.Fatalf("expected error for multiple homes")
	}
}

func TestDownloadSnapshotEmptyRef(t *testing.T) {
	server := newAPIServer(t)
	defer server.Close()

	client := newTestClient(t, server.URL, Config{HomeID: "h"})

	if _, err := client.DownloadSnapshot(context.Background(), MediaRef{}); err == nil {
		t.Fatalf("expected error for empty media ref")
	}
}
