package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/nerrad567/doorman/internal/access"
	"github.com/nerrad567/doorman/internal/api"
	"github.com/nerrad567/doorman/internal/audit"
	"github.com/nerrad567/doorman/internal/bridges/ble"
	"github.com/nerrad567/doorman/internal/bridges/dryrun"
	"github.com/nerrad567/doorman/internal/bridges/mqttbridge"
	"github.com/nerrad567/doorman/internal/bridges/shell"
	"github.com/nerrad567/doorman/internal/console"
	"github.com/nerrad567/doorman/internal/device"
	"github.com/nerrad567/doorman/internal/infrastructure/config"
	"github.com/nerrad567/doorman/internal/infrastructure/database"
	"github.com/nerrad567/doorman/internal/infrastructure/influxdb"
	"github.com/nerrad567/doorman/internal/infrastructure/logging"
	"github.com/nerrad567/doorman/internal/infrastructure/mqtt"
	"github.com/nerrad567/doorman/internal/manager"
	"github.com/nerrad567/doorman/internal/presence"
	"github.com/nerrad567/doorman/internal/registry"
	"github.com/nerrad567/doorman/migrations"
)

// scannerStatsInterval is how often BLE helper stats go to InfluxDB.
const scannerStatsInterval = time.Minute

// app owns every long-lived resource of a daemon or run invocation.
type app struct {
	cfg *config.Config
	log *logging.Logger
	in  io.Reader
	out io.Writer

	db       *database.DB
	bus      *mqtt.Client
	influx   *influxdb.Client
	registry *registry.Registry[device.Address, device.Device]
	console  *console.Console
	tracker  *presence.Tracker
	scanner  *ble.Scanner

	approvals  *api.Approvals
	httpLocker *api.Locker
	auditRepo  audit.Repository

	recorders access.Recorders
	manager   *manager.Manager[device.Device]

	closers []func()
}

// newApp connects the configured infrastructure and assembles the manager.
// On error everything opened so far is closed again.
func newApp(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) (*app, error) {
	a := &app{
		cfg: cfg,
		log: logging.New(cfg.Logging, version),
		in:  in,
		out: out,
	}

	steps := []func(context.Context) error{
		a.openDatabase,
		a.loadRegistry,
		a.connectMQTT,
		a.connectInfluxDB,
		a.buildManager,
		a.startAPI,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			a.close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) openDatabase(ctx context.Context) error {
	if !a.cfg.Database.Enabled {
		a.log.Info("database disabled")
		return nil
	}

	db, err := database.Open(ctx, database.Config{
		Path:        a.cfg.Database.Path,
		WALMode:     a.cfg.Database.WALMode,
		BusyTimeout: a.cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	a.db = db
	a.onClose(func() {
		if err := db.Close(); err != nil {
			a.log.Error("error closing database", "error", err)
		}
	})

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	a.log.Info("database ready", "path", a.cfg.Database.Path)

	repo := audit.NewSQLiteRepository(db.DB)
	a.auditRepo = repo
	rec := audit.NewRecorder(repo, a.cfg.Site.ID)
	rec.SetLogger(a.log.Component("audit"))
	a.recorders = append(a.recorders, rec)
	return nil
}

func (a *app) loadRegistry(ctx context.Context) error {
	a.registry = registry.New[device.Address, device.Device]()
	a.registry.SetLogger(a.log.Component("registry"))

	var (
		n   int
		err error
	)
	switch a.cfg.Devices.Source {
	case config.DeviceSourceDatabase:
		n, err = a.registry.Load(device.Source(ctx, device.NewSQLiteRepository(a.db.DB)))
	default:
		n, err = a.registry.Load(device.FileSource(a.cfg.Devices.File))
	}
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}
	a.log.Info("device registry loaded", "source", a.cfg.Devices.Source, "devices", n)
	return nil
}

func (a *app) connectMQTT(_ context.Context) error {
	if !a.cfg.MQTT.Enabled {
		return nil
	}

	bus, err := mqtt.Connect(a.cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	log := a.log.Component("mqtt")
	bus.SetLogger(log)
	bus.SetOnDisconnect(func(err error) { log.Warn("MQTT connection lost", "error", err) })
	bus.SetOnConnect(func() { log.Info("MQTT connected") })
	a.bus = bus
	a.onClose(func() {
		if err := bus.Close(); err != nil {
			log.Error("error closing MQTT", "error", err)
		}
	})

	events := mqttbridge.NewEvents(bus, a.cfg.Site.ID)
	events.SetLogger(log)
	a.recorders = append(a.recorders, events)
	a.log.Info("MQTT connected", "broker", a.cfg.MQTT.Broker.Host, "prefix", bus.Topics().Prefix())
	return nil
}

func (a *app) connectInfluxDB(ctx context.Context) error {
	if !a.cfg.InfluxDB.Enabled {
		a.log.Info("InfluxDB disabled")
		return nil
	}

	client, err := influxdb.Connect(a.cfg.InfluxDB, a.cfg.Site.ID)
	if err != nil {
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	log := a.log.Component("influxdb")
	client.SetOnError(func(err error) { log.Error("InfluxDB write error", "error", err) })
	a.influx = client
	a.onClose(func() {
		if err := client.Close(); err != nil {
			log.Error("error closing InfluxDB", "error", err)
		}
	})
	if err := client.HealthCheck(ctx); err != nil {
		return err
	}
	a.recorders = append(a.recorders, client)
	a.log.Info("InfluxDB connected", "url", a.cfg.InfluxDB.URL, "bucket", a.cfg.InfluxDB.Bucket)
	return nil
}

// sharedConsole returns the single stdin reader shared by console backends.
func (a *app) sharedConsole() *console.Console {
	if a.console == nil {
		a.console = console.New(a.in, a.out)
	}
	return a.console
}

func (a *app) buildManager(ctx context.Context) error {
	retry, err := manager.ParseRetryPolicy(a.cfg.Manager.Retry)
	if err != nil {
		return err
	}

	detector, err := a.detector(ctx)
	if err != nil {
		return err
	}

	a.manager = manager.New(
		detector,
		a.authenticator(),
		a.actuator(),
		a.locker(),
		manager.Config{
			AuthorizeTimeout:   a.cfg.Manager.AuthorizeTimeout,
			ReauthorizeTimeout: a.cfg.Manager.ReauthorizeTimeout,
			Retry:              retry,
		},
	)
	a.manager.SetLogger(a.log.Component("manager"))
	a.manager.SetRecorder(a.recorders)
	return nil
}

func (a *app) detector(ctx context.Context) (access.Detector[device.Device], error) {
	switch a.cfg.Detector.Backend {
	case config.BackendMQTT:
		a.tracker = presence.NewTracker(a.registry, a.cfg.Detector.PresenceTTL)
		a.tracker.SetLogger(a.log.Component("presence"))
		feed := mqttbridge.NewPresence(a.bus, a.tracker)
		feed.SetLogger(a.log.Component("presence"))
		if err := feed.Start(); err != nil {
			return nil, err
		}
		return a.tracker, nil

	case config.BackendBLE:
		a.tracker = presence.NewTracker(a.registry, a.cfg.Detector.PresenceTTL)
		a.tracker.SetLogger(a.log.Component("presence"))
		a.scanner = ble.NewScanner(a.cfg.Detector.BLE, a.tracker)
		a.scanner.SetLogger(a.log.Component("ble"))
		if err := a.scanner.Start(ctx); err != nil {
			return nil, fmt.Errorf("starting BLE scan helper: %w", err)
		}
		scanner := a.scanner
		a.onClose(func() {
			if err := scanner.Stop(); err != nil {
				a.log.Error("error stopping BLE scan helper", "error", err)
			}
		})
		if a.influx != nil {
			a.reportScannerStats(ctx)
		}
		return a.tracker, nil

	default:
		return console.NewDetector(a.sharedConsole(), a.registry), nil
	}
}

// reportScannerStats periodically writes the scan helper state to InfluxDB.
func (a *app) reportScannerStats(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	a.onClose(cancel)

	go func() {
		ticker := time.NewTicker(scannerStatsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				status, restarts := a.scanner.Stats()
				a.influx.WriteScannerStats(string(status), restarts)
			}
		}
	}()
}

func (a *app) authenticator() access.Authenticator[device.Device] {
	switch a.cfg.Authenticator.Backend {
	case config.BackendMQTT:
		approver := mqttbridge.NewApprover(a.bus, a.cfg.Site.ID)
		approver.SetLogger(a.log.Component("approver"))
		return approver
	case config.BackendHTTP:
		a.approvals = api.NewApprovals()
		return a.approvals
	default:
		return console.NewAuthenticator(a.sharedConsole())
	}
}

func (a *app) actuator() access.Actuator {
	switch a.cfg.Actuator.Backend {
	case config.BackendMQTT:
		relay := mqttbridge.NewRelay(a.bus, a.cfg.Site.ID, a.cfg.Actuator.AckTimeout)
		relay.SetLogger(a.log.Component("relay"))
		return relay
	case config.BackendCommand:
		act := shell.NewActuator(a.cfg.Actuator.Command)
		act.SetLogger(a.log.Component("actuator"))
		return act
	case config.BackendConsole:
		return console.NewActuator(a.sharedConsole())
	default:
		return dryrun.NewActuator(a.log.Component("actuator"), a.cfg.Site.ID)
	}
}

func (a *app) locker() access.Locker {
	switch a.cfg.Locker.Backend {
	case config.BackendMQTT:
		l := mqttbridge.NewLocker(a.bus, a.cfg.Site.ID)
		l.SetLogger(a.log.Component("locker"))
		return l
	case config.BackendHTTP:
		a.httpLocker = api.NewLocker()
		return a.httpLocker
	default:
		return console.NewLocker(a.sharedConsole())
	}
}

func (a *app) startAPI(ctx context.Context) error {
	if !a.cfg.API.Enabled {
		return nil
	}

	srv, err := api.New(api.Deps{
		Config:    a.cfg.API,
		Security:  a.cfg.Security,
		Logger:    a.log.Component("api"),
		Devices:   a.registry,
		Approvals: a.approvals,
		Locker:    a.httpLocker,
		Audit:     a.auditRepo,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	a.onClose(func() {
		if err := srv.Close(); err != nil {
			a.log.Error("error closing API server", "error", err)
		}
	})
	return nil
}
