package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harborops/harbordesk/internal/cache"
	"github.com/harborops/harbordesk/internal/config"
	"github.com/harborops/harbordesk/internal/inbox"
	"github.com/harborops/harbordesk/internal/logging"
	"github.com/harborops/harbordesk/internal/session"
	"github.com/harborops/harbordesk/internal/transport"
	"github.com/harborops/harbordesk/internal/tui"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Launch the inbox console",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConsole()
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

// runConsole assembles the controllers, transport and cache and hands
// them to the TUI. It blocks until the console exits.
func runConsole() error {
	cfg := GetConfig()
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}

	store := openStore(cfg)
	if store != nil {
		defer store.Close()
	}

	controller := inbox.NewController(cfg.Actor.ID)
	sess := session.New(cfg.Actor.ID)

	var (
		intents transport.Intents
		events  <-chan transport.Event
	)

	if cfg.LocalMode() {
		intents = seedDemo(cfg.Actor.ID, controller)
	} else {
		gateway := transport.NewGatewayIntents(cfg.Gateway.APIURL, cfg.Gateway.Token)
		intents = gateway
		loadInitialThreads(cfg, gateway, store, controller)

		if cfg.Gateway.PushURL != "" {
			push := transport.NewPushClient(transport.PushClientConfig{
				URL:          cfg.Gateway.PushURL,
				DialTimeout:  cfg.Gateway.DialTimeout,
				ReconnectMin: cfg.Gateway.ReconnectMin,
				ReconnectMax: cfg.Gateway.ReconnectMax,
			})
			push.Start(context.Background())
			defer push.Close()
			events = push.Events()
		}
	}

	return tui.Run(tui.Config{
		Theme:          cfg.TUI.Theme,
		PageSize:       cfg.TUI.PageSize,
		ActorID:        cfg.Actor.ID,
		ActorName:      cfg.Actor.DisplayName,
		ShowTimestamps: cfg.TUI.ShowTimestamps,
		LocalMode:      cfg.LocalMode(),
	}, tui.Deps{
		Inbox:   controller,
		Session: sess,
		Intents: intents,
		Events:  events,
		Store:   store,
	})
}

// openStore opens the on-disk cache. The console runs without one, so
// failures degrade to a warning instead of aborting startup.
func openStore(cfg *config.Config) *cache.Cache {
	store, err := cache.Open(cfg.CachePath())
	if err != nil {
		logging.Warn().Err(err).Str("path", cfg.CachePath()).Msg("cache unavailable, running without persistence")
		return nil
	}
	return store
}

// loadInitialThreads fetches the thread snapshot from the gateway,
// falling back to the cached copy so the inbox is usable offline.
func loadInitialThreads(cfg *config.Config, gateway transport.ThreadLister, store *cache.Cache, controller *inbox.Controller) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Gateway.DialTimeout)
	defer cancel()

	threads, err := gateway.ListThreads(ctx)
	if err == nil {
		controller.SetThreads(threads)
		return
	}
	logging.Warn().Err(err).Msg("thread list fetch failed, trying cached snapshot")

	if store == nil {
		return
	}
	cached, cacheErr := store.LoadThreads(ctx)
	if cacheErr != nil {
		logging.Warn().Err(cacheErr).Msg("cached snapshot unavailable")
		return
	}
	// Read positions advance locally between snapshots; fold the newer
	// marker back in so cached threads do not show as unread again.
	for i := range cached {
		marker, markerErr := store.ReadMarker(ctx, cached[i].ID)
		if markerErr != nil {
			continue
		}
		if cached[i].Viewer.LastReadAt == nil || marker.After(*cached[i].Viewer.LastReadAt) {
			at := marker
			cached[i].Viewer.LastReadAt = &at
		}
	}
	controller.SetThreads(cached)
}
