package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/ayusman/posterpoint/internal/app"
	"github.com/ayusman/posterpoint/internal/config"
	"github.com/ayusman/posterpoint/internal/server"
	"github.com/ayusman/posterpoint/internal/store"
	"github.com/ayusman/posterpoint/internal/tray"
)

func main() {
	fmt.Println("PosterPoint - Poster Pointing Kiosk")

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	zones, err := cfg.Zones()
	if err != nil {
		log.Fatalf("Failed to load zones: %v", err)
	}
	opts, err := cfg.PointingOptions()
	if err != nil {
		log.Fatalf("Invalid pointing options: %v", err)
	}

	hub := server.NewHub()
	application := app.New(app.Config{
		Store:         st,
		PluginDir:     cfg.PluginDir,
		PluginTimeout: cfg.PluginTimeout,
		CameraID:      cfg.Camera,
		MotionThresh:  cfg.MotionThreshold,
		Options:       opts,
		Zones:         zones,
		Skin:          cfg.Skin,
		Hand:          cfg.Hand,
		MockDetector:  cfg.MockDetector,
		Events:        hub,
	})
	defer application.Close()

	if err := application.DiscoverPlugins(); err != nil {
		log.Printf("Plugin discovery failed: %v", err)
	}

	webDir := cfg.WebDir
	if webDir == "" {
		webDir = findWebDir(cfg.DataDir)
	}
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		DeviceID:  application.DeviceID(),
		Kiosk:     application,
		Frames:    application,
		Events:    hub,
		Plugins:   application.PluginManager(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Start(); err != nil {
		log.Printf("Failed to start pointing: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		fmt.Printf("Starting server on %s\n", cfg.Addr)
		serverErr <- srv.ListenAndServe(ctx, cfg.Addr)
	}()

	if cfg.Tray {
		runTray(ctx, stop, application, kioskURL(cfg.Addr))
	}

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server failed: %v", err)
		}
	case <-ctx.Done():
		<-serverErr
	}
	log.Println("Shutting down")
}

// runTray blocks in the system tray until the user quits or ctx ends.
func runTray(ctx context.Context, stop context.CancelFunc, a *app.App, url string) {
	t := tray.New()
	t.OnToggle(func(enabled bool) {
		if err := a.SetEnabled(enabled); err != nil {
			log.Printf("Failed to toggle pointing: %v", err)
			t.SetEnabled(a.Running())
		}
	})
	t.OnRetry(func() {
		if err := a.Retry(); err != nil {
			log.Printf("Retry failed: %v", err)
		}
	})
	t.OnSettings(func() {
		if err := openBrowser(url); err != nil {
			log.Printf("Failed to open %s: %v", url, err)
		}
	})
	t.OnQuit(stop)

	a.OnConfirmed(func(sel store.Selection) { t.SetLastZone(sel.Title) })
	a.OnWarning(t.SetWarning)

	go func() {
		<-ctx.Done()
		t.Quit()
	}()
	t.Run()
}

func kioskURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and <dataDir>/web.
// Returns the first existing directory or empty string if none found.
func findWebDir(dataDir string) string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	dataWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(dataWebDir); err == nil && info.IsDir() {
		return dataWebDir
	}

	return ""
}
