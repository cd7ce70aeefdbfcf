package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/splitkb/battext/pkg/battery"
	"github.com/splitkb/battext/pkg/behavior"
	"github.com/splitkb/battext/pkg/config"
	"github.com/splitkb/battext/pkg/events"
	"github.com/splitkb/battext/pkg/queue"
)

// Daemon hosts the configured bindings together with the collaborators they
// need: the behavior queue and its output, and both battery sources.
type Daemon struct {
	mu       sync.RWMutex
	conf     config.Config
	registry *behavior.Registry

	// reloadMu serializes Reload. localSource and staticLevel are the values
	// the local battery source was last set up with.
	reloadMu    sync.Mutex
	localSource string
	staticLevel int

	queue       *queue.Queue
	output      *Output
	peripherals *battery.PeripheralCache
	local       battery.LocalAccessor
	hub         *events.EventHub
	logger      logrus.FieldLogger
}

// New builds a daemon from conf. Nothing runs until Run or Start is called.
func New(conf config.Config, logger logrus.FieldLogger) (*Daemon, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	hub := events.NewEventHub()
	d := &Daemon{
		conf:        conf,
		queue:       queue.New(conf.QueueSize(), logger),
		output:      NewOutput(hub, logger),
		peripherals: battery.NewPeripheralCache(conf.PeripheralCount()),
		hub:         hub,
		logger:      logger,
		localSource: conf.LocalSource(),
		staticLevel: conf.StaticLocalLevel(),
	}

	switch d.localSource {
	case config.LocalSourceStatic:
		d.local = battery.NewStatic(d.staticLevel)
	default:
		d.local = battery.NewHost(logger)
	}

	for i := 0; i < d.peripherals.Count(); i++ {
		hub.PublishState(events.PeripheralChanged, strconv.Itoa(i), events.PeripheralChangedEvent{Index: i, Ts: time.Now().UnixMilli()})
	}

	if err := d.Reload(); err != nil {
		return nil, err
	}

	return d, nil
}

// Reload rebuilds the bindings from the current config. The queue size,
// peripheral count and local source keep their startup values. A changed
// static local level is applied when the static source is in use.
func (d *Daemon) Reload() error {
	d.reloadMu.Lock()
	defer d.reloadMu.Unlock()

	acq := &battery.Acquirer{
		Local:      d.local,
		Peripheral: d.peripherals,
		Mode:       d.conf.PeripheralFetching(),
		Logger:     d.logger,
	}

	registry, err := behavior.NewRegistryFromConfig(d.conf, acq, d.queue, d.logger, d.onTriggered)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to build bindings")
	}

	if d.conf.QueueSize() != d.queue.Size() {
		d.logger.Warnf("queue size changed to %d, restart the daemon to apply it", d.conf.QueueSize())
	}
	if d.conf.PeripheralCount() != d.peripherals.Count() {
		d.logger.Warnf("peripheral count changed to %d, restart the daemon to apply it", d.conf.PeripheralCount())
	}
	if src := d.conf.LocalSource(); src != d.localSource {
		d.logger.Warnf("local source changed from %q to %q, restart the daemon to apply it", d.localSource, src)
	}
	if level := d.conf.StaticLocalLevel(); level != d.staticLevel {
		if s, ok := d.local.(*battery.Static); ok {
			s.Set(level)
			d.logger.Infof("static local level changed to %d%%", level)
		} else {
			d.logger.Warnf("static local level changed to %d%%, it only applies to the %q local source", level, config.LocalSourceStatic)
		}
		d.staticLevel = level
	}

	d.mu.Lock()
	d.registry = registry
	d.mu.Unlock()

	return nil
}

func (d *Daemon) bindings() *behavior.Registry {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.registry
}

func (d *Daemon) onTriggered(t behavior.Triggered) {
	d.output.Expect(t.Event.TraceID, t.Items)
	d.hub.PublishState(events.BindingTriggered, t.Binding, events.BindingTriggeredEvent{
		Binding:    t.Binding,
		TraceID:    t.Event.TraceID,
		Text:       t.Text(),
		Local:      t.Local.Percentage,
		Peripheral: t.Peripheral.Percentage,
		Degraded:   t.Peripheral.Degraded,
		Items:      t.Items,
		Ts:         time.Now().UnixMilli(),
	})
}

// Start runs the queue worker until ctx is cancelled or the queue is closed.
func (d *Daemon) Start(ctx context.Context) {
	go d.queue.Run(ctx, d.output)
}

func (d *Daemon) setupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(d.logger))
	router.GET("/config", d.getConfig)
	router.PUT("/tap-ms", d.setTapMs)
	router.PUT("/wait-ms", d.setWaitMs)
	router.PUT("/peripheral-fetching", d.setPeripheralFetching)
	router.PUT("/atomic-flush", d.setAtomicFlush)
	router.PUT("/static-local-level", d.setStaticLocalLevel)
	router.GET("/bindings", d.getBindings)
	router.POST("/bindings/:name/press", d.pressBinding)
	router.POST("/bindings/:name/release", d.releaseBinding)
	router.GET("/local-battery", d.getLocalBattery)
	router.PUT("/local-battery", d.setLocalBattery)
	router.GET("/peripherals", d.getPeripherals)
	router.PUT("/peripherals/:index/battery", d.setPeripheralBattery)
	router.DELETE("/peripherals/:index/battery", d.disconnectPeripheral)
	router.GET("/output", d.getOutput)
	router.GET("/events", d.streamEvents)
	router.GET("/version", getVersion)

	return router
}

// Handler returns the daemon's HTTP API.
func (d *Daemon) Handler() http.Handler {
	return d.setupRoutes()
}

func Run(configPath string, unixSocketPath string, allowNonRoot bool) error {
	conf, err := config.NewFile(configPath)
	if err != nil {
		logrus.Fatalf("failed to parse config during startup: %v", err)
	}
	logrus.WithFields(conf.LogrusFields()).Infof("config loaded")

	d, err := New(conf, logrus.StandardLogger())
	if err != nil {
		return err
	}
	router := d.setupRoutes()

	// Receive SIGHUP to reload config
	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGHUP)
		for range sigc {
			err := conf.Load()
			if err != nil {
				logrus.Errorf("failed to reload config: %v", err)
				continue
			}
			if err := d.Reload(); err != nil {
				logrus.Errorf("failed to apply reloaded config: %v", err)
				continue
			}
			logrus.WithFields(conf.LogrusFields()).Infof("config reloaded")
		}
	}()

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// A socket left behind by a crashed daemon would make Listen fail.
	if err := os.Remove(unixSocketPath); err != nil && !os.IsNotExist(err) {
		return pkgerrors.Wrapf(err, "failed to remove stale socket %s", unixSocketPath)
	}

	// Create the socket to listen on:
	l, err := net.Listen("unix", unixSocketPath)
	if err != nil {
		logrus.Fatal(err)
	}

	if allowNonRoot {
		logrus.Infof("non-root access is allowed, changing permissions of %s to 0777", unixSocketPath)
		err = os.Chmod(unixSocketPath, 0777)
		if err != nil {
			logrus.Fatal(err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	// Serve HTTP on unix socket
	go func() {
		logrus.Infof("http server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	// Wait for a SIGINT or SIGTERM:
	sig := <-sigc
	logrus.Infof("caught signal \"%s\": shutting down.", sig)

	logrus.Info("shutting down http server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = srv.Shutdown(shutdownCtx)
	if err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}
	shutdownCancel()

	logrus.Infof("closing behavior queue, %d items left", d.queue.Len())
	d.queue.Close()
	cancel()

	logrus.Info("exiting")
	return nil
}
