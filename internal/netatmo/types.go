package netatmo

import "time"

// Module types reported by the Netatmo security API.
const (
	ModuleOutdoorCamera = "NOC"
	ModuleIndoorCamera  = "NACamera"
)

// Home is a Netatmo home with its camera modules.
type Home struct {
	ID      string
	Name    string
	Cameras []Camera
}

// Camera is a camera module. ID is the module MAC address.
type Camera struct {
	ID         string
	Type       string
	Name       string
	VPNURL     string
	Monitoring bool
	SDStatus   int
	AlimStatus int
}

// IsOutdoor reports whether the camera is a Presence (NOC) module.
func (c Camera) IsOutdoor() bool {
	return c.Type == ModuleOutdoorCamera
}

// Event is a security event reported by getevents.
type Event struct {
	ID        string
	Type      string
	Time      time.Time
	ModuleID  string
	Message   string
	Subevents []Subevent
}

// Subevent is one detection inside an event (human, animal, vehicle...).
type Subevent struct {
	ID       string
	Type     string
	Time     time.Time
	Verified bool
	Message  string
	Snapshot MediaRef
	Vignette MediaRef
}

// MediaRef points at a snapshot either by direct pre-signed URL or by an
// id+key pair resolved through getcamerapicture.
type MediaRef struct {
	URL string
	ID  string
	Key string
}

// Empty reports whether the reference carries no way to fetch the media.
func (m MediaRef) Empty() bool {
	return m.URL == "" && (m.ID == "" || m.Key == "")
}
