package app

import (
	"context"
	"log"
	"sync"

	"github.com/ayusman/posterpoint/internal/capture"
	"github.com/ayusman/posterpoint/internal/detector"
	"github.com/ayusman/posterpoint/internal/marker"
	"github.com/ayusman/posterpoint/internal/plugin"
	"github.com/ayusman/posterpoint/internal/pointing"
	"github.com/ayusman/posterpoint/internal/server"
	"github.com/ayusman/posterpoint/internal/store"
	"github.com/ayusman/posterpoint/internal/zone"
)

// session is one run of the pointing detector and the listener for its
// events.
//
// Confirmation pipeline:
// 1. The detector confirms a zone after the dwell.
// 2. The selection is stored with the kiosk device id and the sample source.
// 3. Kiosk clients get a confirmed event carrying the stored selection.
// 4. Plugins declaring zone_confirmed run in the background.
// 5. OnConfirmed callbacks run last.
type session struct {
	app     *App
	det     *pointing.Detector
	camera  *capture.Tee
	markers marker.Detector
	tracker *detector.Tracker
	pacer   *capture.Pacer

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	closeOnce sync.Once
}

// close releases everything the session opened. It is safe to call twice.
func (s *session) close() {
	s.closeOnce.Do(func() {
		if s.det != nil {
			if err := s.det.Close(); err != nil {
				log.Printf("Error closing detector: %v", err)
			}
		} else {
			if s.tracker != nil {
				s.tracker.Close()
			}
			if s.markers != nil {
				s.markers.Close()
			}
		}
		if s.pacer != nil {
			s.pacer.Close()
		}
	})
}

// ZoneDetected implements pointing.Listener.
func (s *session) ZoneDetected(z *zone.Zone) {
	e := server.Event{Type: server.EventZone}
	if z != nil {
		e.Zone, e.Title, e.VideoURL = z.Name, z.Title, z.VideoURL
	}
	s.app.broadcast(e)
}

// ZoneConfirmed implements pointing.Listener.
func (s *session) ZoneConfirmed(z zone.Zone) {
	source := ""
	if st := s.det.Status(); st.Sample != nil {
		source = string(st.Sample.Source)
	}
	log.Printf("Zone confirmed: %s (%s)", z.Name, source)
	s.app.confirm(z, source)
}

// Warning implements pointing.Listener.
func (s *session) Warning(msg string) {
	if msg != "" {
		log.Printf("Warning: %s", msg)
	}
	s.app.broadcast(server.Event{Type: server.EventWarning, Message: msg})

	s.app.callbackMu.RLock()
	callbacks := s.app.onWarning
	s.app.callbackMu.RUnlock()
	for _, fn := range callbacks {
		fn(msg)
	}
}

// confirm stores a confirmed zone and notifies clients, plugins and callbacks.
func (a *App) confirm(z zone.Zone, source string) {
	sel := store.Selection{
		DeviceID: a.deviceID,
		Zone:     z.Name,
		Title:    z.Title,
		VideoURL: z.VideoURL,
		Source:   source,
	}

	if a.config.Store != nil {
		if err := a.config.Store.Selections().Create(&sel); err != nil {
			log.Printf("Failed to store selection for %s: %v", z.Name, err)
		}
	}

	a.broadcast(server.Event{
		Type:      server.EventConfirmed,
		Zone:      z.Name,
		Title:     z.Title,
		VideoURL:  z.VideoURL,
		Source:    source,
		Selection: sel,
	})

	a.runHooks(sel)

	a.callbackMu.RLock()
	callbacks := a.onConfirm
	a.callbackMu.RUnlock()
	for _, fn := range callbacks {
		fn(sel)
	}
}

// runHooks starts the zone_confirmed plugins without blocking the frame loop.
func (a *App) runHooks(sel store.Selection) {
	if len(a.pluginMgr.ForAction(plugin.ActionZoneConfirmed)) == 0 {
		return
	}

	req := &plugin.Request{
		Action:      plugin.ActionZoneConfirmed,
		Zone:        sel.Zone,
		Title:       sel.Title,
		VideoURL:    sel.VideoURL,
		DeviceID:    sel.DeviceID,
		SelectionID: sel.ID,
	}

	a.hooksWG.Add(1)
	go func() {
		defer a.hooksWG.Done()
		for _, res := range a.hooks.Fire(a.hooksCtx, req) {
			if res.Err == nil {
				log.Printf("Plugin %s handled %s", res.Plugin, sel.Zone)
			}
		}
	}()
}

func (a *App) broadcast(e server.Event) {
	if a.config.Events != nil {
		a.config.Events.Broadcast(e)
	}
}
