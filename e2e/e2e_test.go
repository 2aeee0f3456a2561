package e2e

import (
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/posterpoint/internal/app"
	"github.com/ayusman/posterpoint/internal/capture"
	"github.com/ayusman/posterpoint/internal/detector"
	"github.com/ayusman/posterpoint/internal/geometry"
	"github.com/ayusman/posterpoint/internal/marker"
	"github.com/ayusman/posterpoint/internal/pointing"
	"github.com/ayusman/posterpoint/internal/server"
	"github.com/ayusman/posterpoint/internal/store"
	"github.com/ayusman/posterpoint/internal/testutil"
	"github.com/ayusman/posterpoint/internal/zone"
)

const frameW, frameH = 640, 480

// mindfullyPoint lies inside the "mindfully" zone of the default poster.
var mindfullyPoint = geometry.Point{X: 1200, Y: 1800}

type kiosk struct {
	app   *app.App
	store *store.Store
	ts    *httptest.Server
	hub   *server.Hub
}

func newKiosk(t *testing.T, strategy pointing.Strategy, frame *image.RGBA, hand *detector.MockDetector) *kiosk {
	t.Helper()

	tmpDir := t.TempDir()
	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	opts := pointing.DefaultOptions()
	opts.Strategy = strategy
	opts.Dwell = 100 * time.Millisecond
	opts.FrameInterval = 10 * time.Millisecond

	hub := server.NewHub()
	application := app.New(app.Config{
		Store:     s,
		PluginDir: filepath.Join(tmpDir, "plugins"),
		FixedRate: true,
		Options:   opts,
		Zones:     zone.Default(),
		Events:    hub,
		NewCamera: func() capture.Camera {
			return capture.NewMockCamera([]*image.RGBA{frame}, true)
		},
		NewMarkers: func() marker.Detector {
			m := marker.NewMockDetector()
			m.SetMarkers(marker.AlignedMarkers(marker.DefaultCornerSpec(), 100))
			return m
		},
		NewHand: func() (detector.Detector, error) { return hand, nil },
	})
	t.Cleanup(application.Close)

	srv := server.New(server.Config{
		Store:    s,
		DeviceID: application.DeviceID(),
		Kiosk:    application,
		Frames:   application,
		Events:   hub,
		Plugins:  application.PluginManager(),
	})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return &kiosk{app: application, store: s, ts: ts, hub: hub}
}

// awaitConfirmed connects to the event stream, starts the app and returns the
// first confirmed event.
func (k *kiosk) awaitConfirmed(t *testing.T) server.Event {
	t.Helper()

	url := "ws" + strings.TrimPrefix(k.ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial events: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for k.hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("event client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := k.app.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var e server.Event
		if err := conn.ReadJSON(&e); err != nil {
			t.Fatalf("no confirmed event: %v", err)
		}
		if e.Type == server.EventConfirmed {
			return e
		}
	}
}

func (k *kiosk) selections(t *testing.T) []store.Selection {
	t.Helper()

	resp, err := k.ts.Client().Get(k.ts.URL + "/api/selections")
	if err != nil {
		t.Fatalf("GET /api/selections error = %v", err)
	}
	defer resp.Body.Close()

	var listed struct {
		Selections []store.Selection `json:"selections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listed); err != nil {
		t.Fatalf("decode selections: %v", err)
	}
	return listed.Selections
}

func TestE2E_SkinFallbackConfirmsZone(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tip := testutil.FramePoint(mindfullyPoint, zone.DefaultReference(), frameW, frameH)
	frame := testutil.PointingFrame(frameW, frameH, tip)
	k := newKiosk(t, pointing.StrategyFallback, frame, nil)

	e := k.awaitConfirmed(t)
	if e.Zone != "mindfully" || e.Source != string(pointing.SourceFallback) {
		t.Errorf("unexpected confirmed event %+v", e)
	}
	if e.VideoURL != "/videos/mindfully.mp4" {
		t.Errorf("video = %q", e.VideoURL)
	}

	t.Run("SelectionStored", func(t *testing.T) {
		listed := k.selections(t)
		if len(listed) != 1 || listed[0].Zone != "mindfully" || listed[0].Source != store.SourceFallback {
			t.Fatalf("unexpected selections %+v", listed)
		}
		if listed[0].DeviceID != k.app.DeviceID() {
			t.Errorf("device id = %q, want %q", listed[0].DeviceID, k.app.DeviceID())
		}
	})

	t.Run("StatusReportsConfirmed", func(t *testing.T) {
		resp, err := k.ts.Client().Get(k.ts.URL + "/api/status")
		if err != nil {
			t.Fatalf("GET /api/status error = %v", err)
		}
		defer resp.Body.Close()

		var status struct {
			Phase     string `json:"phase"`
			Confirmed bool   `json:"confirmed"`
			Running   bool   `json:"running"`
			Zone      string `json:"zone"`
		}
		json.NewDecoder(resp.Body).Decode(&status)
		if status.Phase != string(pointing.PhaseConfirmed) || !status.Confirmed || !status.Running || status.Zone != "mindfully" {
			t.Errorf("unexpected status %+v", status)
		}
	})

	t.Run("RetryClearsConfirmation", func(t *testing.T) {
		resp, err := k.ts.Client().Post(k.ts.URL+"/api/retry", "application/json", nil)
		if err != nil {
			t.Fatalf("POST /api/retry error = %v", err)
		}
		defer resp.Body.Close()

		var status struct {
			Phase     string `json:"phase"`
			Confirmed bool   `json:"confirmed"`
		}
		json.NewDecoder(resp.Body).Decode(&status)
		if status.Confirmed {
			t.Errorf("still confirmed after retry: %+v", status)
		}
	})

	t.Run("APIStillWorks", func(t *testing.T) {
		resp, _ := k.ts.Client().Get(k.ts.URL + "/api/health")
		if resp.StatusCode != http.StatusOK {
			t.Errorf("health check failed after app operations")
		}
		resp.Body.Close()
	})
}

func TestE2E_PrimaryTrackerConfirmsZone(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	hand := detector.NewMockDetector()
	x, y := testutil.Normalized(mindfullyPoint, zone.DefaultReference())
	hand.SetHands([]detector.HandLandmarks{detector.PointingLandmarks(x, y)})

	k := newKiosk(t, pointing.StrategyPrimaryWithFallback, testutil.BlankFrame(frameW, frameH), hand)

	e := k.awaitConfirmed(t)
	if e.Zone != "mindfully" || e.Source != string(pointing.SourcePrimary) {
		t.Errorf("unexpected confirmed event %+v", e)
	}
	if hand.Calls() == 0 {
		t.Error("hand tracker never ran")
	}

	listed := k.selections(t)
	if len(listed) != 1 || listed[0].Source != store.SourcePrimary {
		t.Fatalf("unexpected selections %+v", listed)
	}
}
