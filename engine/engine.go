// Package engine builds the services of the back office, bridges their
// events onto one bus and wires the side effects of those events.
package engine

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"gasflow/billing"
	"gasflow/config"
	"gasflow/directory"
	"gasflow/documents"
	"gasflow/lifecycle"
	"gasflow/messaging"
	"gasflow/orders"
	"gasflow/reports"
	"gasflow/routing"
	"gasflow/stock"
	"gasflow/stockstate"
	"gasflow/store"
)

// EventSource is the source field of every published envelope.
const EventSource = "gasflow"

type Config struct {
	AppConfig  *config.Config
	ConfigPath string
	DB         *store.DB
	Redis      *redis.Client // nil runs without cache and with in-process locks
	MsgClient  *messaging.Client
	Mailer     documents.Mailer
}

type Engine struct {
	cfg        *config.Config
	configPath string
	db         *store.DB
	msgClient  *messaging.Client
	drainer    *messaging.OutboxDrainer
	stockState *stockstate.Manager
	Events     *EventBus
	stopChan   chan struct{}

	msgConnected bool

	Lifecycle *lifecycle.Service
	Routes    *routing.Service
	Orders    *orders.Manager
	Stock     *stock.Service
	Billing   *billing.Service
	Directory *directory.Service
	Documents *documents.Service
	Reports   *reports.Exporter
}

func New(c Config) *Engine {
	bus := NewEventBus()
	e := &Engine{
		cfg:        c.AppConfig,
		configPath: c.ConfigPath,
		db:         c.DB,
		msgClient:  c.MsgClient,
		Events:     bus,
		stopChan:   make(chan struct{}),
	}

	var locker lifecycle.Locker
	var cache *stockstate.RedisStore
	if c.Redis != nil {
		locker = stockstate.NewLocker(c.Redis)
		cache = stockstate.NewRedisStore(c.Redis)
	} else {
		locker = lifecycle.NewLocalLocker()
	}
	e.stockState = stockstate.NewManager(c.DB, cache)

	mailer := c.Mailer
	if mailer == nil {
		mailer = documents.NewSMTPMailer(c.AppConfig.Mail)
	}

	oe := &orderEmitter{bus: bus}
	e.Lifecycle = lifecycle.NewService(c.DB, &lifecycleEmitter{bus: bus}, locker, lifecycle.OptionsFromConfig(c.AppConfig.Lifecycle))
	e.Routes = routing.NewService(c.DB, &routeEmitter{orderEmitter: *oe}, locker, c.AppConfig.Lifecycle.LockTTL)
	e.Orders = orders.NewManager(c.DB, oe)
	e.Stock = stock.NewService(c.DB, &stockEmitter{bus: bus}, e.stockState)
	e.Billing = billing.NewService(c.DB, &billingEmitter{bus: bus})
	e.Directory = directory.NewService(c.DB, e.stockState)
	e.Documents = documents.NewService(c.DB, documents.NewRenderer(c.AppConfig.Company), mailer)
	e.Reports = reports.NewExporter(c.DB)
	return e
}

func (e *Engine) Start() {
	e.wireEventHandlers()

	if e.msgClient != nil && e.msgClient.Enabled() {
		e.drainer = messaging.NewOutboxDrainer(e.db, e.msgClient, e.cfg.Messaging.OutboxDrainInterval)
		e.drainer.Start()
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	if err := e.stockState.SyncRedisFromSQL(ctx); err != nil {
		log.Printf("engine: sync stock cache: %v", err)
	}
	cancel()

	e.checkConnectionStatus()
	go e.connectionHealthLoop()

	log.Printf("engine: started")
}

func (e *Engine) Stop() {
	close(e.stopChan)
	if e.drainer != nil {
		e.drainer.Stop()
	}
	log.Printf("engine: stopped")
}

// Accessors
func (e *Engine) DB() *store.DB                   { return e.db }
func (e *Engine) AppConfig() *config.Config       { return e.cfg }
func (e *Engine) ConfigPath() string              { return e.configPath }
func (e *Engine) StockState() *stockstate.Manager { return e.stockState }
func (e *Engine) MsgClient() *messaging.Client    { return e.msgClient }
func (e *Engine) MessagingConnected() bool        { return e.msgConnected }

func (e *Engine) checkConnectionStatus() {
	if e.msgClient == nil || !e.msgClient.Enabled() {
		return
	}
	if e.msgClient.IsConnected() {
		if !e.msgConnected {
			e.msgConnected = true
			e.Events.Emit(Event{Type: EventMessagingConnected, Payload: ConnectionEvent{Detail: e.cfg.Messaging.Backend + " connected"}})
		}
	} else if e.msgConnected {
		e.msgConnected = false
		e.Events.Emit(Event{Type: EventMessagingDisconnected, Payload: ConnectionEvent{Detail: e.cfg.Messaging.Backend + " disconnected"}})
	}
}

func (e *Engine) connectionHealthLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			e.checkConnectionStatus()
		}
	}
}

// ReconfigureMessaging reconnects messaging with current config.
func (e *Engine) ReconfigureMessaging() {
	if e.msgClient == nil {
		return
	}
	if err := e.msgClient.Reconfigure(&e.cfg.Messaging); err != nil {
		log.Printf("engine: messaging reconfigure error: %v", err)
	} else {
		log.Printf("engine: messaging reconfigured")
	}
	e.checkConnectionStatus()
}
