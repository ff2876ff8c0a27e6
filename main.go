package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/CrazyForks/tiny-svg/api"
	"github.com/CrazyForks/tiny-svg/compress"
	"github.com/CrazyForks/tiny-svg/config"
	"github.com/CrazyForks/tiny-svg/host"
	"github.com/CrazyForks/tiny-svg/item"
	applog "github.com/CrazyForks/tiny-svg/log"
	"github.com/CrazyForks/tiny-svg/preset"
	"github.com/CrazyForks/tiny-svg/selection"
	"github.com/CrazyForks/tiny-svg/storage"
	"github.com/CrazyForks/tiny-svg/svgopt"
	"github.com/CrazyForks/tiny-svg/ui"
)

const usage = `usage: tiny-svg [serve|ui|compress] [flags]

  serve      run the host and the HTTP/websocket server (default)
  ui         connect to a running server and write compressed selections
  compress   compress the selection directory once and exit
`

func main() {
	mode := "serve"
	args := os.Args[1:]
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		mode, args = args[0], args[1:]
	}

	fs := flag.NewFlagSet(mode, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	configPath := fs.String("config", os.Getenv("TINYSVG_CONFIG"), "path to a YAML config file")
	dir := fs.String("dir", "", "selection directory (overrides config)")
	out := fs.String("out", "", "output directory (overrides config)")
	globalPreset := fs.String("preset", "", "global default preset id (overrides config)")
	url := fs.String("url", "ws://localhost:8080/api/ws", "host websocket url (ui mode)")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *dir != "" {
		cfg.Selection.Dir = *dir
	}
	if *out != "" {
		cfg.Compression.OutDir = *out
	}
	if *globalPreset != "" {
		cfg.Compression.GlobalPreset = *globalPreset
	}

	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	defer applog.Close()
	l := applog.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch mode {
	case "serve":
		err = serve(ctx, cfg)
	case "ui":
		err = runUI(ctx, cfg, *url)
	case "compress":
		err = compressOnce(ctx, cfg)
	default:
		fs.Usage()
		os.Exit(2)
	}
	if err != nil {
		l.Error("exiting", slog.String("mode", mode), slog.Any("err", err))
		applog.Close()
		os.Exit(1)
	}
}

func openStore(cfg config.AppConfig) (*preset.Store, func() error, error) {
	gw, closeGW, err := storage.Open(cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	return preset.NewStore(gw, preset.WithGlobalDefault(cfg.Compression.GlobalPreset)), closeGW, nil
}

func serve(ctx context.Context, cfg config.AppConfig) error {
	l := applog.WithComponent("main")
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var provider selection.Provider = selection.NewStaticProvider()
	if cfg.Selection.Dir != "" {
		provider = selection.DirProvider{Dir: cfg.Selection.Dir}
	}
	h := host.New(store, provider, host.WithDebounce(cfg.Selection.Debounce()))
	engine := compress.NewEngine(svgopt.New())
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: api.RegisterRoutes(h, engine)}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return h.Run(ctx) })
	g.Go(func() error {
		l.Info("tiny-svg listening", slog.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.Selection.Dir != "" && !cfg.Selection.NoWatch {
		w := selection.NewWatcher(cfg.Selection.Dir, h.SelectionChanged)
		g.Go(func() error { return w.Run(ctx) })
	}
	return g.Wait()
}

func runUI(ctx context.Context, cfg config.AppConfig, url string) error {
	l := applog.WithComponent("main")
	conn, err := ui.Dial(ctx, url)
	if err != nil {
		return err
	}
	defer conn.Close()

	app := ui.New(conn, compress.NewEngine(svgopt.New()))
	written := 0
	app.Subscribe(func(s ui.State) {
		if s.Batches == written {
			return
		}
		written = s.Batches
		if err := writeOutputs(cfg.Compression.OutDir, s.Items); err != nil {
			l.Error("write outputs failed", slog.Any("err", err))
		}
	})
	app.Init()
	return app.Run(ctx, conn.Frames())
}

func compressOnce(ctx context.Context, cfg config.AppConfig) error {
	if cfg.Selection.Dir == "" {
		return errors.New("compress needs a selection directory")
	}
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	graphics, err := selection.Export(ctx, selection.DirProvider{Dir: cfg.Selection.Dir})
	if err != nil {
		return err
	}
	items := item.FromGraphics(graphics)
	results, err := compress.NewEngine(svgopt.New()).Run(items, store.List(), store.GlobalDefault(), nil)
	if err != nil {
		return err
	}
	for i, r := range results {
		r.ApplyTo(&items[i])
	}
	if err := writeOutputs(cfg.Compression.OutDir, items); err != nil {
		return err
	}

	s := compress.Summarize(results)
	fmt.Printf("%d items, %d failed, %d -> %d bytes (%.1f%% saved)\n",
		s.Items, s.Failed, s.OriginalBytes, s.CompressedBytes, s.Ratio*100)
	return nil
}

// writeOutputs writes every compressed item to dir as <name>.svg.
func writeOutputs(dir string, items []item.Item) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	for _, it := range items {
		if !it.Compressed {
			continue
		}
		path := filepath.Join(dir, filepath.Base(it.Name)+".svg")
		if err := os.WriteFile(path, []byte(it.CompressedPayload), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}
