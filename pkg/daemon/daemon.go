package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/vetcalc/pkg/catalog"
	"github.com/charlie0129/vetcalc/pkg/config"
	"github.com/charlie0129/vetcalc/pkg/events"
	"github.com/charlie0129/vetcalc/pkg/store"
)

// Server holds what the HTTP handlers need.
type Server struct {
	catalog *catalog.Catalog
	hub     *events.EventHub
	backup  *Backup // nil when backups are off
	metrics bool
}

func NewServer(cat *catalog.Catalog, hub *events.EventHub, backup *Backup, metrics bool) *Server {
	return &Server{
		catalog: cat,
		hub:     hub,
		backup:  backup,
		metrics: metrics,
	}
}

func (s *Server) setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logrus.StandardLogger()))
	router.GET("/version", s.getVersion)
	router.GET("/calculators", s.listCalculators)
	router.POST("/calculators", s.addCalculator)
	router.GET("/calculators/:id", s.getCalculator)
	router.DELETE("/calculators/:id", s.deleteCalculator)
	router.POST("/calculators/:id/evaluate", s.evaluate)
	router.GET("/groups", s.getGroups)
	router.POST("/import", s.importCalculators)
	router.GET("/export", s.exportCalculators)
	router.GET("/selection", s.getSelection)
	router.PUT("/selection", s.setSelection)
	router.DELETE("/selection", s.clearSelection)
	router.GET("/events", s.streamEvents)
	router.GET("/backup", s.getBackup)
	router.POST("/backup/skip", s.skipBackup)
	router.POST("/backup/postpone", s.postponeBackup)
	if s.metrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	return router
}

// Options are the command line settings of the daemon. Non-empty store
// settings override the config file.
type Options struct {
	ConfigPath     string
	UnixSocketPath string
	AllowNonRoot   bool
	StoreBackend   string
	StorePath      string
}

func Run(opts Options) error {
	conf, err := config.NewFile(opts.ConfigPath)
	if err != nil {
		logrus.Fatalf("failed to parse config during startup: %v", err)
	}
	if opts.StoreBackend != "" {
		conf.SetStoreBackend(opts.StoreBackend)
	}
	if opts.StorePath != "" {
		conf.SetStorePath(opts.StorePath)
	}
	if err := conf.Validate(); err != nil {
		return pkgerrors.Wrap(err, "invalid config")
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	st, err := store.Open(conf.StoreBackend(), conf.StorePath())
	if err != nil {
		return pkgerrors.Wrap(err, "failed to open store")
	}
	defer func() {
		logrus.Info("closing store")
		if err := st.Close(); err != nil {
			logrus.Errorf("failed to close store: %v", err)
		}
	}()

	hub := events.NewEventHub()
	cat := catalog.New(st, catalog.Builtins(), logrus.WithField("component", "catalog"),
		catalog.WithEventHub(hub),
		catalog.WithStoreErrorHook(observeStoreError),
	)
	// A failed load is logged by the catalog and the daemon keeps going.
	_ = cat.Load(context.Background())
	customCalculators.Set(float64(len(cat.Snapshot().Custom())))

	var backup *Backup
	if expr := conf.BackupSchedule(); expr != "" {
		backup, err = NewBackup(cat, hub, expr, conf.BackupDir())
		if err != nil {
			return err
		}
		backup.Start()
		defer backup.Stop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if conf.WatchStore() && store.Backend(conf.StoreBackend()) == store.BackendFile {
		w, err := NewStoreWatcher(conf.StorePath(), cat)
		if err != nil {
			logrus.Errorf("failed to watch store file: %v", err)
		} else {
			w.onReload = func(err error) {
				if err == nil {
					customCalculators.Set(float64(len(cat.Snapshot().Custom())))
				}
			}
			go w.Run(ctx)
		}
	}

	// Receive SIGHUP to reload config and the custom set
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			if err := conf.Load(); err != nil {
				logrus.Errorf("failed to reload config: %v", err)
			} else {
				logrus.Infof("config reloaded")
			}
			if err := cat.Reload(ctx); err != nil {
				logrus.Errorf("failed to reload custom calculators: %v", err)
				continue
			}
			customCalculators.Set(float64(len(cat.Snapshot().Custom())))
		}
	}()

	srv := &http.Server{
		Handler:           NewServer(cat, hub, backup, conf.Metrics()).setupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts end with ctx, so open event streams close on
		// shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	// A stale socket from a crashed daemon would make Listen fail.
	if err := os.Remove(opts.UnixSocketPath); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("failed to remove stale socket %s: %v", opts.UnixSocketPath, err)
	}

	// Create the socket to listen on:
	l, err := net.Listen("unix", opts.UnixSocketPath)
	if err != nil {
		logrus.Fatal(err)
	}

	if conf.AllowNonRootAccess() || opts.AllowNonRoot {
		logrus.Infof("non-root access is allowed, changing permissions of %s to 0777", opts.UnixSocketPath)
		err = os.Chmod(opts.UnixSocketPath, 0777)
		if err != nil {
			logrus.Fatal(err)
		}
	}

	// Serve HTTP on unix socket
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	if addr := conf.ListenAddress(); addr != "" {
		tl, err := net.Listen("tcp", addr)
		if err != nil {
			logrus.Fatal(err)
		}
		go func() {
			logrus.Infof("http server listening on %s", tl.Addr().String())
			if err := srv.Serve(tl); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logrus.Fatal(err)
			}
		}()
	}

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	// Wait for a SIGINT or SIGTERM:
	sig := <-sigc
	logrus.Infof("caught signal \"%s\": shutting down.", sig)

	cancel()

	logrus.Info("shutting down http server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = srv.Shutdown(shutdownCtx)
	if err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	shutdownCancel()

	logrus.Info("exiting")
	return nil
}
