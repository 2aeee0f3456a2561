// Package app wires the camera, the pointing detector and the host services
// of the poster kiosk together.
package app

import (
	"context"
	"log"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/posterpoint/internal/capture"
	"github.com/ayusman/posterpoint/internal/detector"
	"github.com/ayusman/posterpoint/internal/marker"
	"github.com/ayusman/posterpoint/internal/plugin"
	"github.com/ayusman/posterpoint/internal/pointing"
	"github.com/ayusman/posterpoint/internal/server"
	"github.com/ayusman/posterpoint/internal/skin"
	"github.com/ayusman/posterpoint/internal/store"
	"github.com/ayusman/posterpoint/internal/zone"
)

// DefaultPluginTimeout bounds each confirmation plugin run.
const DefaultPluginTimeout = 5 * time.Second

// Broadcaster receives events for kiosk clients. *server.Hub implements it.
type Broadcaster interface {
	Broadcast(e server.Event)
}

// Config holds configuration options for the application.
type Config struct {
	Store         *store.Store
	PluginDir     string
	PluginTimeout time.Duration
	CameraID      int
	MotionThresh  float64
	// FixedRate disables motion-based frame pacing.
	FixedRate bool

	Options      pointing.Options
	Zones        *zone.Set
	Skin         skin.Config
	Hand         detector.Config
	MockDetector bool
	Events       Broadcaster

	// Factories for the device-backed collaborators. Nil uses the real ones.
	NewCamera  func() capture.Camera
	NewMarkers func() marker.Detector
	NewHand    func() (detector.Detector, error)
}

// App runs pointing sessions and reacts to confirmed zones.
type App struct {
	config     Config
	deviceID   string
	pluginMgr  *plugin.Manager
	hooks      *plugin.Hooks
	hooksWG    sync.WaitGroup
	hooksCtx   context.Context
	stopHooks  context.CancelFunc
	onConfirm  []func(sel store.Selection)
	onWarning  []func(msg string)
	callbackMu sync.RWMutex

	mu      sync.RWMutex
	sess    *session
	last    *pointing.Detector
	lastErr error
}

// New creates a new App. It does not touch the camera until Start.
func New(config Config) *App {
	if config.Zones == nil {
		config.Zones = zone.Default()
	}
	if config.PluginTimeout <= 0 {
		config.PluginTimeout = DefaultPluginTimeout
	}
	if config.MotionThresh <= 0 {
		config.MotionThresh = 1.0 // Default threshold: 1% pixel change
	}
	if config.Skin == (skin.Config{}) {
		config.Skin = skin.DefaultConfig()
	}
	if config.Hand == (detector.Config{}) {
		config.Hand = detector.DefaultConfig()
	}
	// The fallback reports points on the zone canvas.
	config.Skin.Reference = config.Zones.Reference()

	pluginMgr := plugin.NewManager(config.PluginDir)
	hooksCtx, stopHooks := context.WithCancel(context.Background())

	a := &App{
		config:    config,
		pluginMgr: pluginMgr,
		hooks:     plugin.NewHooks(pluginMgr, plugin.NewExecutor(int(config.PluginTimeout/time.Millisecond))),
		hooksCtx:  hooksCtx,
		stopHooks: stopHooks,
	}

	if config.Store != nil {
		id, err := config.Store.Settings().DeviceID()
		if err != nil {
			log.Printf("Failed to load device id: %v", err)
		}
		a.deviceID = id
	}

	return a
}

// DiscoverPlugins scans the plugin directory and loads available plugins.
func (a *App) DiscoverPlugins() error {
	if err := a.pluginMgr.Discover(); err != nil {
		return err
	}
	log.Printf("Loaded %d plugins, %d on %s", len(a.pluginMgr.List()),
		len(a.pluginMgr.ForAction(plugin.ActionZoneConfirmed)), plugin.ActionZoneConfirmed)
	return nil
}

// OnConfirmed registers a callback run after a confirmed zone is stored.
func (a *App) OnConfirmed(fn func(sel store.Selection)) {
	a.callbackMu.Lock()
	defer a.callbackMu.Unlock()
	a.onConfirm = append(a.onConfirm, fn)
}

// OnWarning registers a callback run whenever the warning text changes.
func (a *App) OnWarning(fn func(msg string)) {
	a.callbackMu.Lock()
	defer a.callbackMu.Unlock()
	a.onWarning = append(a.onWarning, fn)
}

// Start opens the camera and begins a pointing session. Starting a running
// App does nothing.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.sess != nil {
		return nil
	}

	s, err := a.newSession()
	if err != nil {
		return err
	}
	a.sess = s
	a.last = s.det
	a.lastErr = nil

	go a.run(s)

	log.Println("Pointing session started")
	return nil
}

// run drives one session until it is cancelled or the camera fails.
func (a *App) run(s *session) {
	defer close(s.done)

	err := s.det.Run(s.ctx)
	if err != nil {
		log.Printf("Pointing session ended: %v", err)
	}

	a.mu.Lock()
	if a.sess == s {
		a.sess = nil
		a.lastErr = err
	}
	a.mu.Unlock()

	if err != nil {
		s.close()
	}
}

// Stop ends the current session and releases the camera and trackers.
func (a *App) Stop() {
	a.mu.Lock()
	s := a.sess
	a.sess = nil
	a.mu.Unlock()

	if s == nil {
		return
	}

	s.cancel()
	<-s.done
	s.close()

	log.Println("Pointing session stopped")
}

// Close stops the session and waits for running plugins.
func (a *App) Close() {
	a.Stop()
	a.stopHooks()
	a.hooksWG.Wait()
}

// SetEnabled starts or stops pointing detection.
func (a *App) SetEnabled(enabled bool) error {
	if enabled {
		return a.Start()
	}
	a.Stop()
	return nil
}

// Running reports whether a session is processing frames.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sess != nil
}

// Retry clears the current session's state so the visitor can point again.
// When the session ended because the camera failed, a new one is started.
func (a *App) Retry() error {
	a.mu.RLock()
	s := a.sess
	a.mu.RUnlock()

	if s != nil {
		s.det.Reset()
		return nil
	}
	return a.Start()
}

// Status returns the state of the current or most recent session.
func (a *App) Status() pointing.Status {
	a.mu.RLock()
	det := a.last
	a.mu.RUnlock()

	if det == nil {
		return pointing.Status{
			Phase:    pointing.PhaseInitializing,
			Strategy: a.config.Options.Strategy,
			Warning:  pointing.WarnInitializing,
		}
	}
	return det.Status()
}

// Err returns the error that ended the most recent session, if any.
func (a *App) Err() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastErr
}

// Zones returns the configured zones.
func (a *App) Zones() *zone.Set {
	return a.config.Zones
}

// DeviceID returns the kiosk identifier stored with selections.
func (a *App) DeviceID() string {
	return a.deviceID
}

// LatestFrame returns the last frame read by the running session.
func (a *App) LatestFrame() *capture.Frame {
	a.mu.RLock()
	s := a.sess
	a.mu.RUnlock()

	if s == nil {
		return nil
	}
	return s.camera.LatestFrame()
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// newSession builds the collaborators for one run of the detector.
func (a *App) newSession() (*session, error) {
	cfg := a.config
	s := &session{app: a, done: make(chan struct{})}

	var cam capture.Camera
	if cfg.NewCamera != nil {
		cam = cfg.NewCamera()
	} else {
		cam = capture.NewCamera(cfg.CameraID)
	}
	s.camera = capture.NewTee(cam)

	if cfg.NewMarkers != nil {
		s.markers = cfg.NewMarkers()
	} else {
		s.markers = marker.NewArucoDetector(gocv.ArucoDictArucoOriginal)
	}

	c := pointing.Components{
		Camera:   s.camera,
		Markers:  s.markers,
		Zones:    cfg.Zones,
		Listener: s,
	}

	strategy := cfg.Options.Strategy
	if strategy == "" {
		strategy = pointing.DefaultOptions().Strategy
	}
	if strategy != pointing.StrategyFallback {
		hand := a.newHand()
		s.tracker = detector.NewTracker(hand)
		c.Tracker = s.tracker
	}
	if strategy != pointing.StrategyPrimary {
		c.Fallback = skin.NewLocator(cfg.Skin)
	}

	if !cfg.FixedRate {
		s.pacer = capture.NewPacer(capture.NewMotionDetector(cfg.MotionThresh))
		if fps := frameRate(cfg.Options.FrameInterval); fps > 0 {
			s.pacer.SetRates(0, fps, 0)
		}
		c.Pacer = s.pacer
	}

	det, err := pointing.New(c, cfg.Options)
	if err != nil {
		s.close()
		return nil, err
	}
	s.det = det
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

// newHand returns the MediaPipe detector, or the mock when it is unavailable
// or disabled.
func (a *App) newHand() detector.Detector {
	if a.config.NewHand != nil {
		d, err := a.config.NewHand()
		if err == nil {
			return d
		}
		log.Printf("Hand detector unavailable (%v), using mock detector", err)
		return detector.NewMockDetector()
	}
	if a.config.MockDetector {
		log.Println("Using mock hand detector")
		return detector.NewMockDetector()
	}
	// Try MediaPipe first, fall back to mock detector
	mp, err := detector.NewMediaPipeDetector(a.config.Hand)
	if err != nil {
		log.Printf("MediaPipe not available (%v), using mock detector", err)
		return detector.NewMockDetector()
	}
	log.Println("Using MediaPipe hand detection")
	return mp
}

func frameRate(interval time.Duration) int {
	if interval <= 0 {
		return 0
	}
	return int(time.Second / interval)
}
