package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ayusman/palmgate/internal/app"
	"github.com/ayusman/palmgate/internal/config"
	"github.com/ayusman/palmgate/internal/server"
	"github.com/ayusman/palmgate/internal/session"
	"github.com/ayusman/palmgate/internal/store"
	"github.com/ayusman/palmgate/internal/tray"
)

func main() {
	fmt.Println("Palmgate - Palm Authentication Agent")

	dataDir, err := config.DataDir()
	if err != nil {
		log.Fatalf("Failed to prepare data directory: %v", err)
	}

	configPath := flag.String("config", filepath.Join(dataDir, "config.toml"), "path to config file")
	headless := flag.Bool("headless", false, "run without the system tray")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(dataDir, "palmgate.db")
	}
	if cfg.HookDir == "" {
		cfg.HookDir = filepath.Join(dataDir, "hooks")
	}

	st, err := store.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	agent, err := app.NewAgent(cfg, st)
	if err != nil {
		log.Fatalf("Failed to initialize agent: %v", err)
	}

	alignment := server.NewAlignmentHandler()
	agent.OnStatus(alignment.Publish)

	webDir := findWebDir(dataDir)
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir:  webDir,
		Store:      st,
		Controller: agent,
		Alignment:  alignment,
	})

	go func() {
		fmt.Printf("Starting server on %s\n", cfg.ListenAddr)
		if err := srv.ListenAndServe(cfg.ListenAddr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	if *headless {
		select {}
	}

	tr := tray.New()
	agent.OnSessionChange(tr.SetSessionRunning)
	agent.OnUnlock(func() { tr.SetUnlocked(true) })

	tr.OnVerify(func() {
		if cfg.DefaultSubject == "" {
			log.Println("No default_subject configured; start sessions via the API")
			return
		}
		if _, err := agent.StartSession(session.ModeVerify, cfg.DefaultSubject); err != nil {
			log.Printf("Failed to start session: %v", err)
		}
	})
	tr.OnStop(func() {
		agent.StopSession()
		tr.SetUnlocked(false)
	})
	tr.OnQuit(func() {
		agent.StopSession()
	})

	// Blocks until quit.
	tr.Run()
}

// findWebDir searches for the web directory in common locations.
func findWebDir(dataDir string) string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if absPath, err := filepath.Abs(p); err == nil {
				return absPath
			}
			return p
		}
	}

	homeWebDir := filepath.Join(dataDir, "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
