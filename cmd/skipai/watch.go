package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"skipai/internal/config"
	"skipai/internal/dom"
	"skipai/internal/host"
	"skipai/internal/logging"
	"skipai/internal/matcher"
	"skipai/internal/messenger"
	"skipai/internal/protocol"
	"skipai/internal/relay"
	"skipai/internal/storage"
	"skipai/internal/suppress"
)

var (
	watchURL      string
	watchHeadless bool
	watchBrowser  string
	watchMode     string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Attach the suppression engine to a live browser page",
	Long: `Attach the full suppression pipeline to a live page.

watch launches (or connects to) a Chromium instance, navigates to the
given URL, and runs the matcher, suppression engine, messenger, relay,
and host handler in one process against the real document. Selector and
pattern changes can be exercised without packing the extension. Editing
the config file while watching reloads logging and records the new
display mode for the next session.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchURL, "url", "https://www.google.com/search?q=what+is+ai", "page to watch")
	watchCmd.Flags().BoolVar(&watchHeadless, "headless", false, "run the browser headless")
	watchCmd.Flags().StringVar(&watchBrowser, "browser", "", "connect to an existing browser (devtools control URL)")
	watchCmd.Flags().StringVar(&watchMode, "mode", "", "store this display mode before starting (hide|highlight)")
}

// localHostConn serves the host handler in-process, standing in for the
// browser's native channel.
type localHostConn struct {
	h *host.Handler
}

func (c *localHostConn) Roundtrip(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	return c.h.Handle(ctx, req), nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(resolvedConfigPath())
	if err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	logging.RegisterSink(storage.NewExtensionLogSink(store, "content"))

	if watchMode != "" {
		mode, err := protocol.ParseDisplayMode(watchMode)
		if err != nil {
			return err
		}
		if err := store.SetString(storage.KeyDisplayMode, string(mode)); err != nil {
			return fmt.Errorf("failed to store display mode: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	page, cleanup, err := openPage(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	session := uuid.NewString()
	logger.Info("watch session starting",
		zap.String("session", session),
		zap.String("url", watchURL),
		zap.String("channel", string(cfg.Channel)))
	logging.Boot("watch session %s on %s", session, watchURL)

	// One tab, wired end to end through the same seams the extension
	// contexts use: engine -> messenger -> relay -> host handler.
	h := host.New(store, cfg.Channel.DefaultDisplayMode())
	rl := relay.New(&localHostConn{h: h}, cfg.Channel.Dev())
	if err := rl.Start(ctx); err != nil {
		return err
	}

	const tabID = 1
	msgr := messenger.New(&relay.TabTransport{Relay: rl, TabID: tabID}, messenger.Options{
		Timeout:      cfg.Messaging.Timeout(),
		StatsRetries: cfg.Messaging.StatsRetries,
		StatsBackoff: cfg.Messaging.StatsBackoff(),
		FallbackMode: cfg.Channel.DefaultDisplayMode(),
		TabID:        intPtr(tabID),
	})
	msgr.Ping(ctx)

	doc := dom.NewPageDocument(page, cfg.Suppression.PollInterval())
	engine := suppress.New(doc, matcher.New(), msgr, msgr, engineOptions(cfg))
	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}
	defer engine.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return watchConfig(gctx, resolvedConfigPath()) })
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	err = g.Wait()
	counts := engine.Counts()
	logger.Info("watch session done",
		zap.String("session", session),
		zap.Int("hidden", counts.Hidden),
		zap.Int("duplicates", counts.Dupes))
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// openPage launches or attaches to a browser and returns the target page.
func openPage(ctx context.Context) (*rod.Page, func(), error) {
	controlURL := watchBrowser
	if controlURL == "" {
		l := launcher.New().Headless(watchHeadless).Leakless(true)
		u, err := l.Launch()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	cleanup := func() { _ = browser.Close() }

	page, err := browser.Page(proto.TargetCreateTarget{URL: watchURL})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to open page: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("page load: %w", err)
	}
	return page, cleanup, nil
}

// watchConfig reloads logging when the config file changes. Selector or
// display-mode edits take effect on the next session; the log note makes
// that visible.
func watchConfig(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("config watch unavailable", zap.Error(err))
		<-ctx.Done()
		return nil
	}
	defer watcher.Close()

	// Watch the directory: editors replace the file, which drops a watch
	// on the file itself.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		logger.Warn("config watch unavailable", zap.Error(err), zap.String("dir", dir))
		<-ctx.Done()
		return nil
	}

	var last time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			// Editors fire bursts of events per save.
			if time.Since(last) < 100*time.Millisecond {
				continue
			}
			last = time.Now()
			if err := logging.ReloadConfig(); err != nil {
				logger.Warn("config reload failed", zap.Error(err))
				continue
			}
			logger.Info("config reloaded; selector and mode changes apply next session",
				zap.String("path", path))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watch error", zap.Error(err))
		}
	}
}

func intPtr(v int) *int { return &v }
