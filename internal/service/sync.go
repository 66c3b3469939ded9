package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"hopes-corner-sync/internal/actionlog"
	"hopes-corner-sync/internal/bridge"
	"hopes-corner-sync/internal/broadcast"
	"hopes-corner-sync/internal/config"
	"hopes-corner-sync/internal/database"
	"hopes-corner-sync/internal/feed"
	"hopes-corner-sync/internal/models"
	"hopes-corner-sync/internal/mqttx"
	"hopes-corner-sync/internal/redisx"
	"hopes-corner-sync/internal/repository"
	"hopes-corner-sync/internal/store"
)

// Stores groups every domain store the service owns.
type Stores struct {
	Guests    *store.Store[models.Guest]
	Meals     *store.Store[models.Meal]
	Showers   *store.ServiceStore
	Laundry   *store.ServiceStore
	Bicycles  *store.ServiceStore
	Haircuts  *store.ServiceStore
	Holidays  *store.ServiceStore
	Donations *store.Store[models.Donation]
	Reminders *store.Store[models.Reminder]
}

// LegacySetters are the legacy global-context setter functions the bridge
// feeds. Nil setters are skipped.
type LegacySetters struct {
	SetGuests     func([]models.Guest)
	SetGuestMeals func([]models.Meal)
	SetAllMeals   func([]models.Meal)
	SetShowers    func([]models.Service)
	SetLaundry    func([]models.Service)
	SetBicycles   func([]models.Service)
	SetHaircuts   func([]models.Service)
	SetHolidays   func([]models.Service)
	SetDonations  func([]models.Donation)
	SetReminders  func([]models.Reminder)
}

// SyncService owns the stores and the three propagation paths: the
// cross-terminal broadcast, the realtime change feed, and the legacy-context
// bridge.
type SyncService struct {
	config      *config.Config
	logger      *zap.Logger
	db          *sql.DB
	ownsDB      bool
	redisClient *redis.Client
	mqttClient  *mqttx.Client

	broadcast *broadcast.Bridge
	feed      *feed.Listener
	ctxBridge *bridge.ContextBridge
	actions   *actionlog.Log
	stores    Stores
}

// NewSyncService connects to Postgres, Redis and the MQTT broker and wires
// the full pipeline.
func NewSyncService(cfg *config.Config, logger *zap.Logger) (*SyncService, error) {
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	redisClient := redisx.NewClient(&cfg.Redis)
	if err := redisx.Ping(context.Background(), redisClient); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	mqttClient, err := mqttx.NewClient(&mqttx.Config{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
		QoS:      cfg.MQTT.QoS,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	svc := assemble(cfg, logger, db,
		broadcast.NewRedisTransport(redisClient),
		mqttClient,
		bridge.NewRedisKVStore(redisClient),
	)
	svc.ownsDB = true
	svc.redisClient = redisClient
	svc.mqttClient = mqttClient
	return svc, nil
}

// assemble builds the pipeline over injected transports so unit tests can
// run it against fakes.
func assemble(cfg *config.Config, logger *zap.Logger, db *sql.DB, bt broadcast.Transport, ft feed.Transport, kv bridge.KVStore) *SyncService {
	bcast := broadcast.NewBridge(bt, cfg.Sync.ChannelPrefix, logger)

	guestRepo := repository.NewGuestRepository(db, logger)
	mealRepo := repository.NewMealRepository(db, logger)
	serviceRepo := repository.NewServiceRepository(db, logger)
	donationRepo := repository.NewDonationRepository(db, logger)
	reminderRepo := repository.NewReminderRepository(db, logger)

	newServiceStore := func(name string, kind models.ServiceKind) *store.ServiceStore {
		return store.NewServiceStore(name, kind, serviceRepo.ForKind(kind), serviceRepo, logger,
			store.Options[models.Service]{
				Publisher:  bcast,
				Validate:   validateService,
				OccurredAt: func(s models.Service) time.Time { return s.CreatedAt },
			})
	}

	stores := Stores{
		Guests: store.New[models.Guest]("guests", guestRepo, logger, store.Options[models.Guest]{
			Publisher: bcast,
			Validate:  validateGuest,
		}),
		Meals: store.New[models.Meal]("meals", mealRepo, logger, store.Options[models.Meal]{
			Publisher:  bcast,
			Validate:   validateMeal,
			OccurredAt: func(m models.Meal) time.Time { return m.ServedAt },
		}),
		Showers:  newServiceStore("showers", models.ServiceShower),
		Laundry:  newServiceStore("laundry", models.ServiceLaundry),
		Bicycles: newServiceStore("bicycles", models.ServiceBicycle),
		Haircuts: newServiceStore("haircuts", models.ServiceHaircut),
		Holidays: newServiceStore("holidays", models.ServiceHoliday),
		Donations: store.New[models.Donation]("donations", donationRepo, logger, store.Options[models.Donation]{
			Publisher:  bcast,
			Validate:   validateDonation,
			OccurredAt: func(d models.Donation) time.Time { return d.ReceivedAt },
		}),
		Reminders: store.New[models.Reminder]("reminders", reminderRepo, logger, store.Options[models.Reminder]{
			Publisher: bcast,
			Validate:  validateReminder,
		}),
	}

	var cache *bridge.SnapshotCache
	if kv != nil {
		cache = bridge.NewSnapshotCache(kv, cfg.Sync.SnapshotPrefix,
			time.Duration(cfg.Sync.SnapshotTTL)*time.Second, logger)
	}

	svc := &SyncService{
		config:    cfg,
		logger:    logger,
		db:        db,
		broadcast: bcast,
		feed:      feed.NewListener(ft, cfg.Sync.TopicPrefix, cfg.MQTT.QoS, logger),
		ctxBridge: bridge.NewContextBridge(cache, logger),
		stores:    stores,
	}
	svc.actions = actionlog.New(cfg.Sync.ActionLogCap, svc.inverses(), logger)
	return svc
}

// Stores returns the domain stores.
func (s *SyncService) Stores() Stores { return s.stores }

// Actions returns the cross-store action log.
func (s *SyncService) Actions() *actionlog.Log { return s.actions }

// Start loads every collection in dependency order, then attaches the
// broadcast and realtime listeners.
func (s *SyncService) Start(ctx context.Context) error {
	s.logger.Info("starting sync service")

	if err := s.loadAll(ctx); err != nil {
		return err
	}

	s.wireBroadcast()
	if err := s.broadcast.Listen(ctx); err != nil {
		return fmt.Errorf("failed to start broadcast listener: %w", err)
	}

	if err := s.feed.Subscribe(s.feedTables()); err != nil {
		return fmt.Errorf("failed to subscribe to realtime feed: %w", err)
	}

	s.logger.Info("sync service started")
	return nil
}

// loadAll replaces every collection from the backend. Guests load first:
// the other collections reference them, and loading them later would leave
// transient unknown-guest rows on screen.
func (s *SyncService) loadAll(ctx context.Context) error {
	if err := s.stores.Guests.LoadAll(ctx); err != nil {
		return err
	}

	loaders := []func(context.Context) error{
		s.stores.Meals.LoadAll,
		s.stores.Showers.LoadAll,
		s.stores.Laundry.LoadAll,
		s.stores.Bicycles.LoadAll,
		s.stores.Haircuts.LoadAll,
		s.stores.Holidays.LoadAll,
		s.stores.Donations.LoadAll,
		s.stores.Reminders.LoadAll,
	}
	for _, load := range loaders {
		if err := load(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Reload re-runs the ordered load and resubscribes the feed, for use after a
// reconnect. Resubscribing is idempotent, so no duplicate handlers can pile
// up.
func (s *SyncService) Reload(ctx context.Context) error {
	if err := s.loadAll(ctx); err != nil {
		return err
	}
	return s.feed.Subscribe(s.feedTables())
}

// AttachLegacyContext wires the legacy global-context setters. The guest
// meal array forwards only guest-attributed meal entries.
func (s *SyncService) AttachLegacyContext(setters LegacySetters) {
	bridge.Attach(s.ctxBridge, "guests", s.stores.Guests, setters.SetGuests, nil)
	bridge.Attach(s.ctxBridge, "guest-meals", s.stores.Meals, setters.SetGuestMeals, bridge.GuestMealsOnly)
	bridge.Attach(s.ctxBridge, "meals", s.stores.Meals, setters.SetAllMeals, nil)
	bridge.Attach(s.ctxBridge, "showers", s.stores.Showers.Store, setters.SetShowers, nil)
	bridge.Attach(s.ctxBridge, "laundry", s.stores.Laundry.Store, setters.SetLaundry, nil)
	bridge.Attach(s.ctxBridge, "bicycles", s.stores.Bicycles.Store, setters.SetBicycles, nil)
	bridge.Attach(s.ctxBridge, "haircuts", s.stores.Haircuts.Store, setters.SetHaircuts, nil)
	bridge.Attach(s.ctxBridge, "holidays", s.stores.Holidays.Store, setters.SetHolidays, nil)
	bridge.Attach(s.ctxBridge, "donations", s.stores.Donations, setters.SetDonations, nil)
	bridge.Attach(s.ctxBridge, "reminders", s.stores.Reminders, setters.SetReminders, nil)
}

// Stop tears down every subscription and connection.
func (s *SyncService) Stop(ctx context.Context) error {
	s.logger.Info("stopping sync service")

	s.feed.Unsubscribe()
	s.broadcast.Close()
	s.ctxBridge.Close()

	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	if s.redisClient != nil {
		if err := redisx.Close(s.redisClient); err != nil {
			s.logger.Error("error closing redis connection", zap.Error(err))
		}
	}
	// An injected handle belongs to whoever opened it.
	if s.db != nil && s.ownsDB {
		if err := s.db.Close(); err != nil {
			s.logger.Error("error closing database connection", zap.Error(err))
		}
	}

	s.logger.Info("sync service stopped")
	return nil
}

func (s *SyncService) wireBroadcast() {
	wireChannel(s.broadcast, s.stores.Guests, s.logger)
	wireChannel(s.broadcast, s.stores.Meals, s.logger)
	wireChannel(s.broadcast, s.stores.Showers.Store, s.logger)
	wireChannel(s.broadcast, s.stores.Laundry.Store, s.logger)
	wireChannel(s.broadcast, s.stores.Bicycles.Store, s.logger)
	wireChannel(s.broadcast, s.stores.Haircuts.Store, s.logger)
	wireChannel(s.broadcast, s.stores.Holidays.Store, s.logger)
	wireChannel(s.broadcast, s.stores.Donations, s.logger)
	wireChannel(s.broadcast, s.stores.Reminders, s.logger)
}

// wireChannel reconciles inbound broadcast messages for one store's channel.
func wireChannel[T models.Record](b *broadcast.Bridge, st *store.Store[T], logger *zap.Logger) {
	b.OnChange(st.Name(), func(m broadcast.Message) {
		mut := store.Mutation[T]{
			Action: store.ParseAction(m.Action),
			IDs:    m.IDs,
		}
		if len(m.Payload) > 0 && string(m.Payload) != "null" {
			var rec T
			if err := json.Unmarshal(m.Payload, &rec); err != nil {
				logger.Debug("ignoring malformed broadcast payload",
					zap.String("channel", st.Name()),
					zap.Error(err),
				)
				return
			}
			mut.Record = rec
		}
		st.ApplyRemote(mut)
	})
}

func (s *SyncService) feedTables() map[string]feed.Handler {
	return map[string]feed.Handler{
		"guests": feed.GuestHandler(s.stores.Guests, s.logger),
		"meals":  feed.MealHandler(s.stores.Meals, s.logger),
		"services": feed.Multi(
			feed.ServiceHandler(s.stores.Showers, s.logger),
			feed.ServiceHandler(s.stores.Laundry, s.logger),
			feed.ServiceHandler(s.stores.Bicycles, s.logger),
			feed.ServiceHandler(s.stores.Haircuts, s.logger),
			feed.ServiceHandler(s.stores.Holidays, s.logger),
		),
		"donations": feed.DonationHandler(s.stores.Donations, s.logger),
		"reminders": feed.ReminderHandler(s.stores.Reminders, s.logger),
	}
}

func validateGuest(g models.Guest) error {
	if g.FirstName == "" && g.LastName == "" {
		return &store.ValidationError{Field: "name", Reason: "required"}
	}
	return nil
}

func validateMeal(m models.Meal) error {
	if m.Kind == models.MealGuest && m.GuestID == "" {
		return &store.ValidationError{Field: "guest_id", Reason: "required for guest meals"}
	}
	if m.Quantity <= 0 {
		return &store.ValidationError{Field: "quantity", Reason: "must be positive"}
	}
	return nil
}

func validateService(svc models.Service) error {
	if svc.GuestID == "" {
		return &store.ValidationError{Field: "guest_id", Reason: "required"}
	}
	return nil
}

func validateDonation(d models.Donation) error {
	if d.Category == "" {
		return &store.ValidationError{Field: "category", Reason: "required"}
	}
	return nil
}

func validateReminder(r models.Reminder) error {
	if r.GuestID == "" {
		return &store.ValidationError{Field: "guest_id", Reason: "required"}
	}
	if r.Text == "" {
		return &store.ValidationError{Field: "text", Reason: "required"}
	}
	return nil
}
