package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/resonode/resonode/config"
	"github.com/resonode/resonode/connectivity"
	"github.com/resonode/resonode/download"
	"github.com/resonode/resonode/library"
	"github.com/resonode/resonode/playback"
	"github.com/resonode/resonode/player"
	"github.com/resonode/resonode/remote"
	"github.com/resonode/resonode/session"
	"github.com/resonode/resonode/stats"
	"github.com/resonode/resonode/store"
	"github.com/resonode/resonode/ui"
)

const statsSyncPeriod = 5 * time.Minute

// runAuthCommand handles the login/register/logout subcommands and
// reports whether it consumed the invocation.
func runAuthCommand(cfg *config.Config, sessions *session.Store, args []string) bool {
	if len(args) == 0 {
		return false
	}
	client := remote.New(cfg)
	switch args[0] {
	case "login":
		if len(args) != 3 {
			log.Fatal("usage: resonode login <username> <password>")
		}
		if err := client.Login(args[1], args[2]); err != nil {
			log.Fatal(err)
		}
		if err := sessions.CreateLoginSession(args[1]); err != nil {
			log.Fatal(err)
		}
		log.Printf("logged in as %s", args[1])
	case "register":
		if len(args) != 3 {
			log.Fatal("usage: resonode register <username> <password>")
		}
		if err := client.Register(args[1], args[2]); err != nil {
			log.Fatal(err)
		}
		log.Printf("registered %s, now log in", args[1])
	case "logout":
		if err := sessions.Logout(); err != nil {
			log.Fatal(err)
		}
		log.Println("logged out")
	default:
		return false
	}
	return true
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	sessions := session.NewStore(cfg.Offline.SettingsPath)
	if runAuthCommand(cfg, sessions, os.Args[1:]) {
		return
	}
	if !sessions.IsLoggedIn() {
		log.Fatal("not logged in: run `resonode login <username> <password>` first")
	}
	username := sessions.Username()

	offlineStore, err := store.Open(cfg.Offline.DatabasePath)
	if err != nil {
		log.Fatal(err)
	}
	defer offlineStore.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := remote.New(cfg)

	baseURL, _ := cfg.Endpoint()
	monitor := connectivity.NewMonitor(
		connectivity.DialProber(baseURL, 2*time.Second),
		cfg.Player.GetProbePeriod(),
	)
	monitor.Start(ctx)

	plr := player.NewBeep(cfg.Player.GetHTTPTimeout())
	engine := playback.New(plr, offlineStore, client, sessions, monitor)

	loader := download.NewService(client, offlineStore, cfg.Offline.MusicDir)
	syncer := stats.NewSyncer(offlineStore, client, monitor)
	go syncer.Run(ctx, username, statsSyncPeriod)

	app := ui.NewApp(ctx, cfg, username,
		library.NewRemoteLibrary(client, username),
		library.NewOfflineLibrary(offlineStore),
		engine, loader, monitor)
	engine.SetListener(app)
	engine.SetNotifier(app)
	engine.Start(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
		app.Stop()
	}()

	if info, err := client.CheckUpdate(); err == nil && info.Version != sessions.LastSeenChangelog() {
		log.Printf("update available: %s\n%s", info.Version, info.Changelog)
		if err := sessions.MarkChangelogSeen(info.Version); err != nil {
			log.Printf("settings: %v", err)
		}
	}

	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
