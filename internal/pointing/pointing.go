// Package pointing runs the per-frame loop that turns camera frames into zone
// selections: poster alignment, fingertip location, zone classification and
// dwell confirmation.
package pointing

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ayusman/posterpoint/internal/capture"
	"github.com/ayusman/posterpoint/internal/detector"
	"github.com/ayusman/posterpoint/internal/geometry"
	"github.com/ayusman/posterpoint/internal/marker"
	"github.com/ayusman/posterpoint/internal/zone"
)

// ErrMissingComponent is returned by New when a required collaborator is nil.
var ErrMissingComponent = errors.New("pointing: missing component")

// Phase is the coarse state of the detector.
type Phase string

const (
	PhaseInitializing      Phase = "initializing"
	PhaseAwaitingAlignment Phase = "awaiting_alignment"
	PhasePointing          Phase = "pointing"
	PhaseDwellCountdown    Phase = "dwell_countdown"
	PhaseConfirmed         Phase = "confirmed"
)

// Source tells which locator produced a sample.
type Source string

const (
	SourcePrimary  Source = "primary"
	SourceFallback Source = "fallback"
)

// Sample is a fingertip position on the reference canvas.
type Sample struct {
	Point  geometry.Point `json:"point"`
	Source Source         `json:"source"`
}

// HandTracker is the asynchronous primary fingertip source.
// *detector.Tracker implements it.
type HandTracker interface {
	Submit(img image.Image) bool
	Latest() (detector.Result, bool)
	Close() error
}

// Locator is the synchronous fallback fingertip source. It returns points on
// the reference canvas. *skin.Locator implements it.
type Locator interface {
	Locate(img image.Image) (geometry.Point, bool)
}

// Pacer picks the frame rate from the frames seen so far.
// *capture.Pacer implements it.
type Pacer interface {
	Observe(frame *capture.Frame, now time.Time) (fps int, changed bool)
}

// Components are the collaborators of a Detector. Markers and Zones are
// always required; Tracker and Fallback are required by the strategies
// that use them. Camera is only needed by Run.
type Components struct {
	Camera   capture.Camera
	Markers  marker.Detector
	Tracker  HandTracker
	Fallback Locator
	Zones    *zone.Set
	Listener Listener
	Pacer    Pacer
}

// Status is a snapshot of the detector for the host.
type Status struct {
	Phase        Phase                `json:"phase"`
	Strategy     Strategy             `json:"strategy"`
	Alignment    marker.State         `json:"alignment"`
	Registration *marker.Registration `json:"registration,omitempty"`
	Zone         string               `json:"zone,omitempty"`
	Sample       *Sample              `json:"sample,omitempty"`
	Confirmed    bool                 `json:"confirmed"`
	Misses       int                  `json:"misses"`
	Warning      string               `json:"warning,omitempty"`
}

// state is everything carried from one frame to the next.
type state struct {
	phase        Phase
	alignment    marker.State
	registration *marker.Registration
	misses       int
	zone         string
	sample       *Sample
	warning      string
	gen          uint64
}

// Detector is the region pointing detector.
type Detector struct {
	opts      Options
	c         Components
	alignment *marker.Tracker

	mu    sync.Mutex
	st    state
	dwell *Dwell

	closeOnce sync.Once
}

// New validates the components and creates a Detector in the initializing phase.
func New(c Components, opts Options) (*Detector, error) {
	opts = opts.withDefaults()

	switch {
	case c.Markers == nil:
		return nil, fmt.Errorf("%w: marker detector", ErrMissingComponent)
	case c.Zones == nil:
		return nil, fmt.Errorf("%w: zones", ErrMissingComponent)
	case opts.Strategy.usesPrimary() && c.Tracker == nil:
		return nil, fmt.Errorf("%w: hand tracker for strategy %s", ErrMissingComponent, opts.Strategy)
	case opts.Strategy.usesFallback() && c.Fallback == nil:
		return nil, fmt.Errorf("%w: fallback locator for strategy %s", ErrMissingComponent, opts.Strategy)
	}

	return &Detector{
		opts:      opts,
		c:         c,
		alignment: marker.NewTracker(opts.Corners, opts.MinMarkerSize),
		st: state{
			phase:   PhaseInitializing,
			warning: WarnInitializing,
		},
		dwell: NewDwell(opts.Dwell),
	}, nil
}

// Options returns the effective options.
func (d *Detector) Options() Options {
	return d.opts
}

// Zones returns the zone set the detector classifies against.
func (d *Detector) Zones() *zone.Set {
	return d.c.Zones
}

// Run opens the camera and processes frames until ctx is cancelled. A camera
// that cannot be opened ends the session: the camera warning is raised and
// the error returned. The camera is closed when Run returns.
func (d *Detector) Run(ctx context.Context) error {
	if d.c.Camera == nil {
		d.raise(WarnNoCamera)
		return capture.ErrNoCamera
	}
	if err := d.c.Camera.Open(); err != nil {
		d.raise(WarnNoCamera)
		return fmt.Errorf("open camera: %w", err)
	}
	defer func() {
		if err := d.c.Camera.Close(); err != nil {
			log.Printf("Error closing camera: %v", err)
		}
	}()

	d.mu.Lock()
	if d.st.phase == PhaseInitializing {
		d.st.phase = PhaseAwaitingAlignment
	}
	d.mu.Unlock()

	ticker := time.NewTicker(d.opts.FrameInterval)
	defer ticker.Stop()

	readFailing := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			frame, err := d.c.Camera.ReadFrame()
			if err != nil {
				if !readFailing {
					log.Printf("Error reading frame: %v", err)
					readFailing = true
				}
				continue
			}
			readFailing = false

			if d.c.Pacer != nil {
				if fps, changed := d.c.Pacer.Observe(frame, now); changed && fps > 0 {
					d.c.Camera.SetFPS(fps)
					ticker.Reset(time.Second / time.Duration(fps))
				}
			}

			d.Step(now, frame)
		}
	}
}

// Step runs one detection cycle on frame. Frames without pixels are skipped.
func (d *Detector) Step(now time.Time, frame *capture.Frame) {
	if !frame.Ready() {
		return
	}

	markers, err := d.c.Markers.Detect(frame.Image)
	if err != nil {
		log.Printf("Marker detection failed: %v", err)
		markers = nil
	}

	d.mu.Lock()
	if d.opts.Debug {
		logMarkers(markers)
	}

	var events []event
	res := d.alignment.Update(d.st.alignment, markers)
	if res.TooFar {
		events = d.setWarning(events, WarnTooFar)
		d.mu.Unlock()
		dispatch(d.c.Listener, events)
		return
	}

	if !slices.Equal(res.State.MatchedIDs, d.st.alignment.MatchedIDs) {
		log.Printf("Matched marker ids changed: %v", res.State.MatchedIDs)
	}
	if res.State.HasEverAligned && !d.st.alignment.HasEverAligned {
		log.Println("Poster aligned")
	}
	d.st.alignment = res.State

	if !res.State.CurrentlyVisible {
		if d.c.Tracker != nil {
			d.c.Tracker.Latest()
		}
		events = d.clearPointer(events)
		d.st.phase = PhaseAwaitingAlignment
		events = d.setWarning(events, notAlignedWarning(res.State.MatchedIDs))
		d.mu.Unlock()
		dispatch(d.c.Listener, events)
		return
	}

	if reg, ok := d.opts.Corners.Register(markers, d.c.Zones.Reference()); ok {
		d.st.registration = &reg
	}
	if d.st.phase == PhaseInitializing || d.st.phase == PhaseAwaitingAlignment {
		d.st.phase = PhasePointing
	}
	gen := d.st.gen
	misses := d.st.misses
	reg := d.st.registration
	d.mu.Unlock()

	// Locating the hand can take a while; Status and Reset stay responsive.
	obs := d.observeHand(frame, misses, reg)

	d.mu.Lock()
	if d.st.gen != gen {
		// Reset during the cycle.
		d.mu.Unlock()
		return
	}
	d.st.misses = obs.misses

	warning := ""
	if obs.fresh {
		if obs.sample == nil {
			warning = WarnNoHand
		}
		events = d.classify(events, obs.sample, now)
	} else {
		if d.st.warning == WarnNoHand {
			warning = WarnNoHand
		}
		events = d.observe(events, d.st.zone, now)
	}
	events = d.setWarning(events, warning)
	d.mu.Unlock()

	dispatch(d.c.Listener, events)
}

type handObservation struct {
	sample *Sample
	// fresh is set when a new decision about the hand was made this cycle.
	fresh  bool
	misses int
}

// observeHand reads the primary tracker's latest result, submits the frame
// for the next one and runs the fallback locator when it is engaged.
func (d *Detector) observeHand(frame *capture.Frame, misses int, reg *marker.Registration) handObservation {
	obs := handObservation{misses: misses}

	if d.opts.Strategy.usesPrimary() {
		if res, ok := d.c.Tracker.Latest(); ok {
			obs.fresh = true
			switch {
			case res.Err != nil:
				log.Printf("Hand tracker error: %v", res.Err)
				obs.misses++
			case res.Found:
				obs.misses = 0
				obs.sample = &Sample{Point: d.mapNormalized(res.Tip, frame, reg), Source: SourcePrimary}
			default:
				obs.misses++
			}
		}
		d.c.Tracker.Submit(frame.Image)

		if obs.sample != nil {
			return obs
		}
	}

	engaged := d.opts.Strategy == StrategyFallback ||
		(d.opts.Strategy.usesFallback() && obs.misses > d.opts.FallbackAfter)
	if engaged {
		obs.fresh = true
		if p, ok := d.c.Fallback.Locate(frame.Image); ok {
			obs.sample = &Sample{Point: d.mapReference(p, frame, reg), Source: SourceFallback}
		}
	}
	return obs
}

// mapNormalized maps a 0..1 frame position onto the reference canvas.
func (d *Detector) mapNormalized(tip geometry.Point, frame *capture.Frame, reg *marker.Registration) geometry.Point {
	pixel := geometry.Point{X: tip.X * float64(frame.Width), Y: tip.Y * float64(frame.Height)}
	if h := d.homography(reg); h != nil {
		return h.Apply(pixel)
	}
	return geometry.Scale(pixel, frameSize(frame), d.c.Zones.Reference())
}

// mapReference applies the poster mapping to a point the fallback already
// scaled from the frame onto the reference canvas.
func (d *Detector) mapReference(p geometry.Point, frame *capture.Frame, reg *marker.Registration) geometry.Point {
	if h := d.homography(reg); h != nil {
		return h.Apply(geometry.Scale(p, d.c.Zones.Reference(), frameSize(frame)))
	}
	return p
}

func (d *Detector) homography(reg *marker.Registration) *geometry.Homography {
	if d.opts.Mapping != MapPoster || reg == nil {
		return nil
	}
	return reg.Homography
}

func frameSize(frame *capture.Frame) geometry.Size {
	return geometry.Size{Width: float64(frame.Width), Height: float64(frame.Height)}
}

// classify records sample and feeds its zone to the dwell. Callers hold d.mu.
func (d *Detector) classify(events []event, sample *Sample, now time.Time) []event {
	d.st.sample = sample
	name := ""
	if sample != nil {
		if z, ok := d.c.Zones.Classify(sample.Point); ok {
			name = z.Name
		}
	}
	return d.observe(events, name, now)
}

// observe advances the zone and dwell state. Callers hold d.mu.
func (d *Detector) observe(events []event, name string, now time.Time) []event {
	if name != d.st.zone {
		d.st.zone = name
		events = append(events, event{kind: eventZone, zone: d.lookup(name)})
	}

	if d.dwell.Observe(name, now) {
		if z := d.lookup(name); z != nil {
			log.Printf("Zone confirmed: %s", name)
			events = append(events, event{kind: eventConfirmed, zone: z})
		}
	}

	switch {
	case name == "":
		d.st.phase = PhasePointing
	case d.dwell.Confirmed():
		d.st.phase = PhaseConfirmed
	default:
		d.st.phase = PhaseDwellCountdown
	}
	return events
}

func (d *Detector) lookup(name string) *zone.Zone {
	if name == "" {
		return nil
	}
	z, ok := d.c.Zones.Get(name)
	if !ok {
		return nil
	}
	z.Polygon = slices.Clone(z.Polygon)
	return &z
}

// clearPointer drops the current sample and zone. Callers hold d.mu.
func (d *Detector) clearPointer(events []event) []event {
	d.st.sample = nil
	d.dwell.Reset()
	if d.st.zone != "" {
		d.st.zone = ""
		events = append(events, event{kind: eventZone})
	}
	return events
}

// setWarning records msg and emits it if it changed. Callers hold d.mu.
func (d *Detector) setWarning(events []event, msg string) []event {
	if msg == d.st.warning {
		return events
	}
	d.st.warning = msg
	return append(events, event{kind: eventWarning, message: msg})
}

func (d *Detector) raise(msg string) {
	d.mu.Lock()
	events := d.setWarning(nil, msg)
	d.mu.Unlock()
	dispatch(d.c.Listener, events)
}

func notAlignedWarning(matched []int) string {
	if len(matched) == 0 {
		return WarnShowMarkers
	}
	return fmt.Sprintf("%s Markers visible: %s", WarnShowMarkers, joinIDs(matched))
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ", ")
}

func logMarkers(markers []marker.Marker) {
	for _, m := range markers {
		c := m.Corners.Center()
		log.Printf("Marker %d center: (%.0f, %.0f) size %.0f", m.ID, c.X, c.Y, m.Corners.Size())
	}
}

// Reset clears the alignment latch, dwell, miss counter and pointed zone and
// waits for the poster again. It is safe to call from any goroutine.
func (d *Detector) Reset() {
	d.mu.Lock()
	var events []event
	events = d.clearPointer(events)
	d.st = state{
		phase:   PhaseAwaitingAlignment,
		warning: d.st.warning,
		gen:     d.st.gen + 1,
	}
	if d.c.Tracker != nil {
		d.c.Tracker.Latest()
	}
	d.mu.Unlock()

	log.Println("Detector reset")
	dispatch(d.c.Listener, events)
}

// Status returns a snapshot of the current state.
func (d *Detector) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := Status{
		Phase:     d.st.phase,
		Strategy:  d.opts.Strategy,
		Alignment: d.st.alignment,
		Zone:      d.st.zone,
		Confirmed: d.dwell.Confirmed(),
		Misses:    d.st.misses,
		Warning:   d.st.warning,
	}
	s.Alignment.MatchedIDs = slices.Clone(d.st.alignment.MatchedIDs)
	if d.st.registration != nil {
		reg := *d.st.registration
		reg.Corners = slices.Clone(reg.Corners)
		s.Registration = &reg
	}
	if d.st.sample != nil {
		sample := *d.st.sample
		s.Sample = &sample
	}
	return s
}

// Close releases the tracker and the marker detector. Cancel Run first; Run
// closes the camera itself.
func (d *Detector) Close() error {
	var errs []error
	d.closeOnce.Do(func() {
		if d.c.Tracker != nil {
			if err := d.c.Tracker.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close tracker: %w", err))
			}
		}
		if err := d.c.Markers.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close marker detector: %w", err))
		}
	})
	return errors.Join(errs...)
}
