package netatmo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"homewatch/internal/oauth"
	"homewatch/internal/rate"
)

const defaultBaseURL = "https://api.netatmo.com"

// Client talks to the Netatmo security REST API.
type Client struct {
	baseURL string
	oauth   *oauth.Manager

	httpClient *http.Client
	homeID     string
}

type HTTPStatusError struct {
	Status int
	Body   string
}

func (e HTTPStatusError) Error() string {
	return fmt.Sprintf("netatmo api error %d: %s", e.Status, strings.TrimSpace(e.Body))
}

// Config defines runtime configuration for the Netatmo client.
type Config struct {
	BaseURL string
	HomeID  string
}

func NewClient(cfg Config, manager *oauth.Manager) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		oauth:      manager,
		httpClient: rate.WrapHTTP(rate.Netatmo(), &http.Client{Timeout: 30 * time.Second}),
		homeID:     cfg.HomeID,
	}
}

// HomeID returns the configured home, or resolves it via homesdata when the
// account has exactly one home.
func (c *Client) HomeID(ctx context.Context) (string, error) {
	if c.homeID != "" {
		return c.homeID, nil
	}

	homes, err := c.Homes(ctx)
	if err != nil {
		return "", err
	}
	if len(homes) == 0 {
		return "", fmt.Errorf("no homes found in homesdata response")
	}
	if len(homes) > 1 {
		labels := make([]string, 0, len(homes))
		for _, home := range homes {
			if home.Name != "" {
				labels = append(labels, fmt.Sprintf("%s (%s)", home.ID, home.Name))
				continue
			}
			labels = append(labels, home.ID)
		}
		return "", fmt.Errorf("multiple homes found: %s (set home_id override)", strings.Join(labels, ", "))
	}

	c.homeID = homes[0].ID
	return c.homeID, nil
}

// Homes lists homes and their camera modules from homesdata.
func (c *Client) Homes(ctx context.Context) ([]Home, error) {
	var resp struct {
		Body struct {
			Homes []struct {
				ID      string `json:"id"`
				Name    string `json:"name"`
				Modules []struct {
					ID   string `json:"id"`
					Type string `json:"type"`
					Name string `json:"name"`
				} `json:"modules"`
			} `json:"homes"`
		} `json:"body"`
	}

	if err := c.getJSON(ctx, "/api/homesdata", nil, &resp); err != nil {
		return nil, err
	}

	homes := make([]Home, 0, len(resp.Body.Homes))
	for _, home := range resp.Body.Homes {
		h := Home{ID: home.ID, Name: home.Name}
		for _, module := range home.Modules {
			if module.Type != ModuleOutdoorCamera && module.Type != ModuleIndoorCamera {
				continue
			}
			h.Cameras = append(h.Cameras, Camera{
				ID:   module.ID,
				Type: module.Type,
				Name: module.Name,
			})
		}
		homes = append(homes, h)
	}
	return homes, nil
}

// Cameras returns the camera modules with live status from homestatus.
func (c *Client) Cameras(ctx context.Context) ([]Camera, error) {
	homeID, err := c.HomeID(ctx)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Body struct {
			Home struct {
				Modules []struct {
					ID         string `json:"id"`
					Type       string `json:"type"`
					Monitoring string `json:"monitoring"`
					SDStatus   int    `json:"sd_status"`
					AlimStatus int    `json:"alim_status"`
					VPNURL     string `json:"vpn_url"`
				} `json:"modules"`
			} `json:"home"`
		} `json:"body"`
	}

	query := url.Values{"home_id": {homeID}}
	if err := c.getJSON(ctx, "/api/homestatus", query, &resp); err != nil {
		return nil, err
	}

	var cameras []Camera
	for _, module := range resp.Body.Home.Modules {
		if module.Type != ModuleOutdoorCamera && module.Type != ModuleIndoorCamera {
			continue
		}
		cameras = append(cameras, Camera{
			ID:         module.ID,
			Type:       module.Type,
			VPNURL:     module.VPNURL,
			Monitoring: strings.EqualFold(module.Monitoring, "on"),
			SDStatus:   module.SDStatus,
			AlimStatus: module.AlimStatus,
		})
	}
	return cameras, nil
}

// Events returns the most recent size events for the home, newest first.
func (c *Client) Events(ctx context.Context, size int) ([]Event, error) {
	homeID, err := c.HomeID(ctx)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = 1
	}

	var resp struct {
		Body struct {
			Home struct {
				Events []struct {
					ID        string `json:"id"`
					Type      string `json:"type"`
					Time      int64  `json:"time"`
					ModuleID  string `json:"module_id"`
					Message   string `json:"message"`
					Subevents []struct {
						ID       string   `json:"id"`
						Type     string   `json:"type"`
						Time     int64    `json:"time"`
						Verified bool     `json:"verified"`
						Message  string   `json:"message"`
						Snapshot mediaRef `json:"snapshot"`
						Vignette mediaRef `json:"vignette"`
					} `json:"subevents"`
				} `json:"events"`
			} `json:"home"`
		} `json:"body"`
	}

	query := url.Values{
		"home_id": {homeID},
		"size":    {strconv.Itoa(size)},
	}
	if err := c.getJSON(ctx, "/api/getevents", query, &resp); err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(resp.Body.Home.Events))
	for _, raw := range resp.Body.Home.Events {
		event := Event{
			ID:       raw.ID,
			Type:     raw.Type,
			Time:     time.Unix(raw.Time, 0).UTC(),
			ModuleID: raw.ModuleID,
			Message:  raw.Message,
		}
		for _, sub := range raw.Subevents {
			event.Subevents = append(event.Subevents, Subevent{
				ID:       sub.ID,
				Type:     sub.Type,
				Time:     time.Unix(sub.Time, 0).UTC(),
				Verified: sub.Verified,
				Message:  sub.Message,
				Snapshot: sub.Snapshot.ref(),
				Vignette: sub.Vignette.ref(),
			})
		}
		events = append(events, event)
	}
	return events, nil
}

type mediaRef struct {
	URL string `json:"url"`
	ID  string `json:"id"`
	Key string `json:"key"`
}

func (m mediaRef) ref() MediaRef {
	return MediaRef{URL: m.URL, ID: m.ID, Key: m.Key}
}

// DownloadSnapshot fetches snapshot bytes for a media reference. Pre-signed
// URLs are fetched directly without Bearer auth; id+key pairs go through
// getcamerapicture.
func (c *Client) DownloadSnapshot(ctx context.Context, ref MediaRef) ([]byte, error) {
	if ref.URL != "" {
		return c.fetchImage(ctx, ref.URL, false)
	}
	if ref.ID != "" && ref.Key != "" {
		query := url.Values{
			"image_id": {ref.ID},
			"key":      {ref.Key},
		}
		return c.fetchImage(ctx, c.baseURL+"/api/getcamerapicture?"+query.Encode(), true)
	}
	return nil, fmt.Errorf("media reference has no url or id/key")
}

// LiveSnapshot grabs an on-demand 720p frame through the camera VPN URL.
func (c *Client) LiveSnapshot(ctx context.Context, camera Camera) ([]byte, error) {
	if camera.VPNURL == "" {
		return nil, fmt.Errorf("camera %s has no vpn_url (is monitoring on?)", camera.ID)
	}
	return c.fetchImage(ctx, strings.TrimRight(camera.VPNURL, "/")+"/live/snapshot_720.jpg", false)
}

func (c *Client) fetchImage(ctx context.Context, rawURL string, auth bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if auth {
		accessToken, err := c.oauth.AccessToken(ctx)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, HTTPStatusError{Status: resp.StatusCode, Body: string(body)}
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.doRequest(ctx, http.MethodGet, path, query)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return HTTPStatusError{Status: resp.StatusCode, Body: string(body)}
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values) (*http.Response, error) {
	accessToken, err := c.oauth.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	rawURL := c.baseURL + path
	if len(query) > 0 {
		rawURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	resp.Body.Close()
	c.oauth.TriggerRefresh(ctx)
	return nil, fmt.Errorf("netatmo api unauthorized; refresh triggered")
}
