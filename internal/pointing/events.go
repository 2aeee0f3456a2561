package pointing

import "github.com/ayusman/posterpoint/internal/zone"

// Warning texts surfaced to the kiosk.
const (
	WarnInitializing = "Initializing..."
	WarnTooFar       = "Poster too far. Move closer."
	WarnShowMarkers  = "Poster not aligned. Show all 4 ArUco markers."
	WarnNoHand       = "Hand not detected. Keep your index finger visible."
	WarnNoCamera     = "Camera unavailable."
)

// Listener receives detector events. Calls are made from the goroutine
// running Step, never while the detector lock is held.
type Listener interface {
	// ZoneDetected fires whenever the pointed zone changes; nil means none.
	ZoneDetected(z *zone.Zone)
	// ZoneConfirmed fires once per completed dwell.
	ZoneConfirmed(z zone.Zone)
	// Warning fires whenever the warning text changes; "" clears it.
	Warning(msg string)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	OnZoneDetected  func(z *zone.Zone)
	OnZoneConfirmed func(z zone.Zone)
	OnWarning       func(msg string)
}

func (f ListenerFuncs) ZoneDetected(z *zone.Zone) {
	if f.OnZoneDetected != nil {
		f.OnZoneDetected(z)
	}
}

func (f ListenerFuncs) ZoneConfirmed(z zone.Zone) {
	if f.OnZoneConfirmed != nil {
		f.OnZoneConfirmed(z)
	}
}

func (f ListenerFuncs) Warning(msg string) {
	if f.OnWarning != nil {
		f.OnWarning(msg)
	}
}

type eventKind int

const (
	eventZone eventKind = iota
	eventConfirmed
	eventWarning
)

type event struct {
	kind    eventKind
	zone    *zone.Zone
	message string
}

func dispatch(l Listener, events []event) {
	if l == nil {
		return
	}
	for _, e := range events {
		switch e.kind {
		case eventZone:
			l.ZoneDetected(e.zone)
		case eventConfirmed:
			l.ZoneConfirmed(*e.zone)
		case eventWarning:
			l.Warning(e.message)
		}
	}
}
