package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"diagramd/internal/action"
	"diagramd/internal/circlegraph"
	"diagramd/internal/config"
	"diagramd/internal/domain"
	"diagramd/internal/handler"
	"diagramd/internal/hub"
	"diagramd/internal/layout"
	"diagramd/internal/loader"
	"diagramd/internal/repository"
	"diagramd/internal/repository/sqlite"
	"diagramd/internal/server"
	"diagramd/internal/watcher"

	"github.com/golang/glog"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Command line flags
	configPath := flag.String("config", "", "config file path (default: search "+config.EnvConfigPath+" and the usual locations)")
	addr := flag.String("addr", "", "HTTP listen address, overrides server.addr")
	writeConfig := flag.Bool("write-config", false, "write a default config file to -config (or "+config.DefaultConfigPath()+") and exit")
	export := flag.String("export", "", "write the initial graph to this .json or .yaml file and exit")
	flag.Set("logtostderr", "true")
	flag.Parse()
	defer glog.Flush()

	// A missing .env is fine
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		glog.Warningf("loading .env: %v", err)
	}

	if *writeConfig {
		target := *configPath
		if target == "" {
			target = config.DefaultConfigPath()
		}
		cfg := config.DefaultConfig()
		if *addr != "" {
			cfg.Server.Addr = *addr
		}
		if err := cfg.Save(target); err != nil {
			glog.Exitf("Failed to write config: %v", err)
		}
		glog.Infof("Wrote default config to %s", target)
		return
	}

	cfg, path, err := loadConfig(*configPath)
	if err != nil {
		glog.Exitf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if path == "" {
		path = "defaults"
	}
	glog.Infof("Starting diagramd (config: %s)", path)
	glog.Infof("%s", cfg.Summary())

	// Initial model
	initial, err := initialModel(cfg)
	if err != nil {
		glog.Exitf("Failed to load graph: %v", err)
	}
	if *export != "" {
		if err := loader.SaveGraph(*export, initial); err != nil {
			glog.Exitf("Failed to export graph: %v", err)
		}
		glog.Infof("Exported %d elements to %s", len(domain.AllIDs(initial)), *export)
		return
	}
	model := circlegraph.NewSharedModel(initial)

	// Position store
	factory := &circlegraph.Factory{
		Settings: server.Settings{
			NeedsClientLayout: cfg.Diagram.ClientLayout(),
			NeedsServerLayout: cfg.Diagram.ServerLayout(),
		},
		Engine:  layout.NewForce(layoutOptions(cfg.Layout)),
		Source:  model.Get,
		Diagram: cfg.Diagram.Name,
	}
	if !cfg.Store.Disabled {
		store, err := sqlite.New(cfg.Store.Path)
		if err != nil {
			glog.Exitf("Failed to open position store: %v", err)
		}
		defer store.Close()
		glog.Infof("[store] database opened: %s", cfg.Store.Path)

		recorder := repository.NewRecorder(store, cfg.Diagram.Name)
		defer recorder.Close()
		factory.Store = store
		factory.Listener = recorder
	}

	// Action codec and hub
	codec := action.NewCodec(nil)
	circlegraph.RegisterActions(codec.Registry())
	hubCfg := hub.DefaultConfig()
	hubCfg.IdleTimeout = cfg.Server.ClientIdleTimeout.Duration()
	wsHub := hub.New(codec, factory.NewServer, hubCfg)

	router := handler.NewRouter(handler.NewAPIHandler(wsHub), wsHub, cfg.Server.Path, cfg.Server.StaticDir)
	httpServer := &http.Server{
		Addr:        cfg.Server.Addr,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		glog.Infof("Server listening on %s (diagram endpoint %s)", cfg.Server.Addr, cfg.Server.Path)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		glog.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return ignoreCanceled(wsHub.Run(ctx))
	})

	if cfg.Graph.File != "" && cfg.Graph.Watch {
		w := watcher.New(cfg.Graph.File, watcher.Reload(cfg.Graph.File, func(root *domain.Element) {
			model.Replace(root)
			wsHub.UpdateAll(root)
			glog.Infof("[watch] pushed %s to %d clients", cfg.Graph.File, len(wsHub.Stats().Servers))
		})).WithDebounce(cfg.Graph.Debounce.Duration())
		g.Go(func() error {
			return ignoreCanceled(w.Watch(ctx))
		})
	}

	if err := g.Wait(); err != nil {
		glog.Errorf("Server error: %v", err)
		glog.Flush()
		os.Exit(1)
	}
	glog.Info("Server stopped")
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

func initialModel(cfg *config.Config) (*domain.Element, error) {
	if cfg.Graph.File != "" {
		return loader.LoadGraph(cfg.Graph.File)
	}
	gen := circlegraph.NewGenerator(cfg.Graph.Nodes, cfg.Graph.ExtraEdges, cfg.Graph.NodeSize, cfg.Graph.Seed)
	return gen.Generate(), nil
}

func layoutOptions(lc config.LayoutConfig) layout.Options {
	opts := layout.DefaultOptions()
	if lc.Iterations > 0 {
		opts.Iterations = lc.Iterations
	}
	if lc.Seed != 0 {
		opts.Seed = lc.Seed
	}
	if lc.Repulsion > 0 {
		opts.Repulsion = lc.Repulsion
	}
	if lc.Rate > 0 {
		opts.Rate = lc.Rate
	}
	if lc.Theta > 0 {
		opts.Theta = lc.Theta
	}
	return opts
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
