package svc

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/tabrown76/Aramark-Scripts/internal/automation"
	"github.com/tabrown76/Aramark-Scripts/internal/browser"
	"github.com/tabrown76/Aramark-Scripts/internal/config"
	"github.com/tabrown76/Aramark-Scripts/internal/credential"
	"github.com/tabrown76/Aramark-Scripts/internal/db"
	"github.com/tabrown76/Aramark-Scripts/internal/defaults"
	"github.com/tabrown76/Aramark-Scripts/internal/events"
	"github.com/tabrown76/Aramark-Scripts/internal/notify"
	"github.com/tabrown76/Aramark-Scripts/internal/pricing"
	"github.com/tabrown76/Aramark-Scripts/internal/scheduler"

	"github.com/tabrown76/Aramark-Scripts/internal/logging"
)

// logReplay is how many recent events late websocket clients receive.
const logReplay = 200

// Legacy endpoint labels, as the toggle page has always shown them.
var scriptNames = map[string]string{
	config.AutomationMenus:  "JPJMenus",
	config.AutomationLevels: "AppetizePriceLevels",
}

// ScriptName returns the label used in trigger responses for an automation.
func ScriptName(automation string) string {
	if n, ok := scriptNames[automation]; ok {
		return n
	}
	return automation
}

type ServiceContext struct {
	Version string

	// InstanceID changes on every start. Log sequence numbers are only
	// unique within one instance.
	InstanceID string

	Engine      *pricing.Engine
	DB          *db.Store
	Bus         *events.Subject
	Runner      *automation.Runner
	Scheduler   *scheduler.Scheduler
	Credentials *credential.Store

	mu         sync.RWMutex
	config     config.Config
	runCtx     context.Context
	removeSink func()
	notifySub  events.Subscription
	ownsDB     bool
}

// NewServiceContext builds every service from c. An optional pre-opened
// database is used instead of the configured path.
func NewServiceContext(c config.Config, database ...*db.Store) (*ServiceContext, error) {
	rules, err := c.Pricing.Rules()
	if err != nil {
		return nil, err
	}
	engine, err := pricing.NewEngine(rules)
	if err != nil {
		return nil, err
	}

	svc := &ServiceContext{
		Version:    "dev",
		InstanceID: uuid.NewString(),
		Engine:     engine,
		Bus:        events.NewSubject(events.WithReplay(logReplay)),
		config:     c,
		runCtx:     context.Background(),
	}

	if len(database) > 0 && database[0] != nil {
		svc.DB = database[0]
		logging.Info("Using shared database connection")
	} else {
		path := c.Database.Path
		if path == "" {
			if path, err = defaults.DatabasePath(); err != nil {
				events.Complete(svc.Bus)
				return nil, err
			}
		}
		store, err := db.NewSQLite(path)
		if err != nil {
			events.Complete(svc.Bus)
			return nil, fmt.Errorf("failed to initialize SQLite database: %w", err)
		}
		svc.DB = store
		svc.ownsDB = true
	}

	svc.removeSink = logging.AddSink(logging.SinkFunc(svc.publishLine))

	svc.Credentials = credential.NewStore(map[string]browser.Credentials{
		credential.PortalMenus:  {Username: c.Menus.Username, Password: c.Menus.Password},
		credential.PortalLevels: {Username: c.Levels.Username, Password: c.Levels.Password},
	})
	if credential.Available() {
		logging.Info("OS keyring available for portal credentials")
	}

	svc.Runner = automation.NewRunner(svc.DB, svc.Bus, logging.WithSource("runner"))
	svc.registerAutomations(c)
	svc.notifySub = events.Subscribe(svc.Bus, events.TopicRunFinished, svc.notifyRun, false)

	svc.Scheduler = scheduler.New(svc.Runner, logging.WithSource("scheduler"))
	if err := svc.Scheduler.Apply(c.Schedules); err != nil {
		svc.Close()
		return nil, err
	}
	return svc, nil
}

// Config returns the active configuration.
func (svc *ServiceContext) Config() config.Config {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	return svc.config
}

func (svc *ServiceContext) registerAutomations(c config.Config) {
	open := browser.NewOpener(BrowserConfig(c))
	svc.Runner.Register(config.AutomationMenus, automation.NewMenuToggler(automation.MenuConfig{
		AdminURL:     c.Menus.AdminURL,
		Credentials:  svc.Credentials.Func(credential.PortalMenus),
		SettleDelay:  c.Menus.SettleDelay(),
		TabDelay:     c.Menus.TabDelay(),
		SaveDelay:    c.Menus.SaveDelay(),
		TableTimeout: c.Menus.TableTimeout(),
		DryRun:       c.IsDryRun(),
	}, svc.Engine, open, logging.WithSource(config.AutomationMenus)))

	svc.Runner.Register(config.AutomationLevels, automation.NewLevelToggler(automation.LevelConfig{
		BaseURL:        c.Levels.BaseURL,
		Credentials:    svc.Credentials.Func(credential.PortalLevels),
		SearchText:     c.Levels.SearchText,
		Levels:         c.LevelCodes(),
		CaptchaTimeout: c.Levels.CaptchaTimeout(),
		SearchTimeout:  c.Levels.SearchTimeout(),
		SaveSelector:   c.Levels.SaveSelector,
		DryRun:         c.IsDryRun(),
	}, open, logging.WithSource(config.AutomationLevels)))
}

// BrowserConfig maps the browser section onto the driver config.
func BrowserConfig(c config.Config) browser.Config {
	return browser.Config{
		Driver:         c.Browser.Driver,
		ExecutablePath: c.Browser.ExecutablePath,
		Headless:       c.IsHeadless(),
		NoSandbox:      c.IsNoSandbox(),
		Timeout:        c.BrowserTimeout(),
	}
}

// ApplyConfig swaps in a reloaded config: pricing rules, automations,
// schedules and log level. Server and database settings need a restart.
// An invalid config is rejected whole and the running one stays in place.
func (svc *ServiceContext) ApplyConfig(c config.Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	rules, err := c.Pricing.Rules()
	if err != nil {
		return err
	}
	if err := svc.Scheduler.Apply(c.Schedules); err != nil {
		return err
	}
	if err := svc.Engine.SetRules(rules); err != nil {
		return err
	}
	if err := logging.SetLevel(c.Log.Level); err != nil {
		logging.Warnf("[config] %v", err)
	}

	svc.mu.Lock()
	old := svc.config
	svc.config = c
	svc.mu.Unlock()

	svc.registerAutomations(c)
	if old.Server != c.Server || old.Database != c.Database {
		logging.Warnf("[config] server and database changes take effect after restart")
	}
	logging.Info("[config] Configuration reloaded")
	return nil
}

// Start begins scheduled runs. Runs triggered over HTTP also use ctx, so a
// client disconnect does not abort a run but shutdown does.
func (svc *ServiceContext) Start(ctx context.Context) {
	svc.mu.Lock()
	svc.runCtx = ctx
	svc.mu.Unlock()
	svc.Scheduler.Start(ctx)
}

// RunContext is the context runs execute under.
func (svc *ServiceContext) RunContext() context.Context {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	return svc.runCtx
}

// publishLine forwards log lines to the bus for the console panel.
func (svc *ServiceContext) publishLine(l logging.Line) {
	// Debug lines include the bus's own handler errors.
	if l.Level == "debug" || l.Level == "trace" {
		return
	}
	_ = events.Emit(svc.Bus, events.TopicLogLine, l)
}

// notifyRun raises a desktop notification for scheduled runs when enabled.
func (svc *ServiceContext) notifyRun(ctx context.Context, r *automation.Report) error {
	if !svc.Config().IsNotify() || !notify.Unattended(r) {
		return nil
	}
	go notify.Send(notify.ForRun(r))
	return nil
}

func (svc *ServiceContext) Close() {
	if svc.Scheduler != nil {
		svc.Scheduler.Stop()
	}
	if svc.removeSink != nil {
		svc.removeSink()
	}
	if svc.notifySub.Unsubscribe != nil {
		svc.notifySub.Unsubscribe()
	}
	events.Complete(svc.Bus)
	if svc.DB != nil && svc.ownsDB {
		svc.DB.Close()
		logging.Info("SQLite database connection closed")
	}
	logging.Info("Service context closed")
}
