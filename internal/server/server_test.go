package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ayusman/posterpoint/internal/pointing"
	"github.com/ayusman/posterpoint/internal/zone"
)

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		contentType := rec.Header().Get("Content-Type")
		if contentType != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", contentType)
		}

		var response map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}

		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		methods := []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch}

		for _, method := range methods {
			req := httptest.NewRequest(method, "/api/health", nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})
}

func TestServer_NotFound(t *testing.T) {
	s := New(Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/nonexistent", nil)
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestServer_StaticFiles(t *testing.T) {
	// Create a temporary directory with a static file
	tmpDir, err := os.MkdirTemp("", "posterpoint-server-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	// Create a test HTML file
	testContent := "<html><body>Hello, World!</body></html>"
	if err := os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte(testContent), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	// Create a CSS file for testing direct file access
	cssContent := "body { color: red; }"
	if err := os.WriteFile(filepath.Join(tmpDir, "style.css"), []byte(cssContent), 0644); err != nil {
		t.Fatalf("failed to create test CSS file: %v", err)
	}

	s := New(Config{StaticDir: tmpDir})

	t.Run("serves index.html at root path", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		if rec.Body.String() != testContent {
			t.Errorf("expected body %q, got %q", testContent, rec.Body.String())
		}
	})

	t.Run("serves static files from configured directory", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/style.css", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		if rec.Body.String() != cssContent {
			t.Errorf("expected body %q, got %q", cssContent, rec.Body.String())
		}
	})

	t.Run("returns 404 for non-existent static files", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/nonexistent.html", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestServer_NoStaticDir(t *testing.T) {
	s := New(Config{})

	t.Run("root path returns 404 when no static dir configured", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
		}
	})
}

func TestNew(t *testing.T) {
	t.Run("creates server with config", func(t *testing.T) {
		cfg := Config{StaticDir: "/some/path"}
		s := New(cfg)

		if s == nil {
			t.Fatal("expected non-nil server")
		}

		if s.config.StaticDir != cfg.StaticDir {
			t.Errorf("expected StaticDir %s, got %s", cfg.StaticDir, s.config.StaticDir)
		}
	})

	t.Run("server implements http.Handler", func(t *testing.T) {
		s := New(Config{})
		var _ http.Handler = s
	})
}

type fakeKiosk struct {
	status  pointing.Status
	running bool
	retries int
	err     error
}

func (k *fakeKiosk) Status() pointing.Status { return k.status }
func (k *fakeKiosk) Running() bool           { return k.running }
func (k *fakeKiosk) Zones() *zone.Set        { return zone.Default() }

func (k *fakeKiosk) Retry() error {
	k.retries++
	if k.err != nil {
		return k.err
	}
	k.status = pointing.Status{Phase: pointing.PhaseAwaitingAlignment, Warning: pointing.WarnShowMarkers}
	return nil
}

func TestServer_Kiosk(t *testing.T) {
	kiosk := &fakeKiosk{
		running: true,
		status: pointing.Status{
			Phase:    pointing.PhaseDwellCountdown,
			Strategy: pointing.StrategyPrimaryWithFallback,
			Zone:     "hurry",
		},
	}
	s := New(Config{Kiosk: kiosk})

	t.Run("status", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		var got struct {
			Phase    string `json:"phase"`
			Strategy string `json:"strategy"`
			Zone     string `json:"zone"`
			Running  bool   `json:"running"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if got.Phase != string(pointing.PhaseDwellCountdown) || got.Zone != "hurry" || !got.Running {
			t.Errorf("unexpected status %+v", got)
		}
		if got.Strategy != "primary-with-fallback" {
			t.Errorf("strategy = %q", got.Strategy)
		}
	})

	t.Run("retry requires POST", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/retry", nil)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
		if kiosk.retries != 0 {
			t.Error("retry ran on GET")
		}
	})

	t.Run("retry resets", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/retry", nil)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		if kiosk.retries != 1 {
			t.Errorf("retries = %d, want 1", kiosk.retries)
		}
		var got map[string]any
		json.NewDecoder(rec.Body).Decode(&got)
		if got["warning"] != pointing.WarnShowMarkers {
			t.Errorf("warning = %v", got["warning"])
		}
	})

	t.Run("retry failure", func(t *testing.T) {
		kiosk.err = errors.New("camera unavailable")
		defer func() { kiosk.err = nil }()

		req := httptest.NewRequest(http.MethodPost, "/api/retry", nil)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
		}
	})

	t.Run("zones", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/zones", nil)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		var got struct {
			Reference struct {
				Width  float64 `json:"width"`
				Height float64 `json:"height"`
			} `json:"reference"`
			Zones []struct {
				Name string `json:"name"`
			} `json:"zones"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if got.Reference.Width != 1517 || got.Reference.Height != 2200 {
			t.Errorf("reference = %+v", got.Reference)
		}
		var names []string
		for _, z := range got.Zones {
			names = append(names, z.Name)
		}
		if diff := cmp.Diff([]string{"distracted", "hurry", "mindfully"}, names); diff != "" {
			t.Errorf("zones mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("health reports running", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)

		var got map[string]any
		json.NewDecoder(rec.Body).Decode(&got)
		if got["running"] != true {
			t.Errorf("running = %v, want true", got["running"])
		}
	})
}

func TestServer_OptionalRoutes(t *testing.T) {
	s := New(Config{})

	for _, path := range []string{"/api/status", "/api/zones", "/api/selections", "/api/events", "/api/stream", "/api/plugins"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusNotFound {
				t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
			}
		})
	}
}
