package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"gambler/raffle/api"
	"gambler/raffle/application"
	"gambler/raffle/bot"
	"gambler/raffle/config"
	"gambler/raffle/database"
	"gambler/raffle/domain/events"
	"gambler/raffle/infrastructure"
	"gambler/raffle/infrastructure/observability"

	"github.com/bwmarrin/discordgo"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the raffle service
func Run(ctx context.Context) error {
	cfg := config.Get()
	configureLogging(cfg)
	log.WithField("environment", cfg.Environment).Info("Starting raffle service...")

	// Initialize metrics
	if err := observability.InitializeGlobalMetrics(ctx, observability.Settings{
		Enabled:          cfg.MetricsEnabled,
		ServiceName:      "raffle",
		Environment:      cfg.Environment,
		ExporterType:     cfg.MetricsExporter,
		OTLPEndpoint:     cfg.OTLPEndpoint,
		ExportIntervalMs: cfg.MetricsExportIntervalMs,
	}); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	// Initialize database connection
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Initialize NATS
	natsClient := infrastructure.NewNATSClient(cfg.NATSServers, "raffle-service")
	if err := natsClient.Connect(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	var shutdown []func(context.Context) error
	shutdown = append(shutdown,
		func(context.Context) error { db.Close(); return nil },
		func(context.Context) error { return natsClient.Close() },
		observability.ShutdownGlobalMetrics,
	)
	cleanup := func() error {
		// Stop in reverse start order
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var result *multierror.Error
		for i := len(shutdown) - 1; i >= 0; i-- {
			if err := shutdown[i](shutdownCtx); err != nil {
				result = multierror.Append(result, err)
			}
		}
		return result.ErrorOrNil()
	}

	if err := startServices(ctx, cfg, db, natsClient, &shutdown); err != nil {
		if cleanupErr := cleanup(); cleanupErr != nil {
			log.WithError(cleanupErr).Error("Cleanup after failed start")
		}
		return err
	}

	log.Info("Raffle service is running")
	<-ctx.Done()

	log.Info("Shutting down raffle service...")
	if err := cleanup(); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("Shutdown completed")
	return nil
}

func startServices(ctx context.Context, cfg *config.Config, db *database.DB, natsClient *infrastructure.NATSClient, shutdown *[]func(context.Context) error) error {
	onShutdown := func(fn func(context.Context) error) {
		*shutdown = append(*shutdown, fn)
	}

	// Events
	subjectMapper := infrastructure.NewEventSubjectMapper()
	eventPublisher := infrastructure.NewNATSEventPublisher(natsClient, subjectMapper)
	if err := eventPublisher.EnsureRaffleEventStream(); err != nil {
		return fmt.Errorf("failed to ensure raffle event stream: %w", err)
	}

	healthServer := infrastructure.NewHealthServer(cfg.GRPCHealthAddr)

	// A settled or reopened round clears the raffle's stuck flag without waiting for the next watchdog pass
	uowFactory := infrastructure.NewUnitOfWorkFactory(db, eventPublisher)
	uowFactory.RegisterLocalHandler(events.EventTypeWinnerPicked, func(_ context.Context, event events.Event) error {
		winner, err := application.AssertEventType[events.WinnerPickedEvent](event, "WinnerPickedEvent")
		if err != nil {
			return err
		}
		healthServer.SetStuck(winner.RaffleID, false)
		return nil
	})
	uowFactory.RegisterLocalHandler(events.EventTypeRoundReset, func(_ context.Context, event events.Event) error {
		reset, err := application.AssertEventType[events.RoundResetEvent](event, "RoundResetEvent")
		if err != nil {
			return err
		}
		healthServer.SetStuck(reset.RaffleID, false)
		return nil
	})

	// Randomness coordinator
	vrfConfig := cfg.VRFConfig()
	if cfg.VRFMockEnabled {
		mock, subID, err := startMockOracle(natsClient, cfg)
		if err != nil {
			return err
		}
		onShutdown(func(context.Context) error { mock.Close(); return nil })
		vrfConfig.SubscriptionID = subID
	}
	coordinator := infrastructure.NewNATSVRFCoordinator(natsClient, cfg.VRFRequestTimeout)

	ops := application.NewRaffleOperations(uowFactory, coordinator, vrfConfig)
	if _, err := ops.EnsureRaffle(ctx, cfg.RaffleID, cfg.ConsumerAddress, cfg.EntranceFee, cfg.Interval); err != nil {
		return err
	}
	raffleIDs, err := ops.ListRaffleIDs(ctx)
	if err != nil {
		return err
	}

	// Fulfillments
	consumer := infrastructure.NewFulfillmentConsumer(natsClient, cfg.ConsumerAddress, application.NewFulfillmentHandler(ops))
	if err := consumer.Start(); err != nil {
		return err
	}

	// Keeper
	workerConfig := application.DefaultUpkeepWorkerConfig()
	workerConfig.PollInterval = cfg.UpkeepPollInterval
	stopWorker := application.NewUpkeepWorker(ops, raffleIDs, workerConfig).Start(ctx)
	onShutdown(func(context.Context) error { stopWorker(); return nil })

	// Watchdog and health
	stopWatchdog := application.NewSettlementWatchdog(ops, healthServer, raffleIDs, cfg.SettlementTimeout, cfg.AutoResetStuckRounds).Start(ctx)
	onShutdown(func(context.Context) error { stopWatchdog(); return nil })

	if err := healthServer.Start(); err != nil {
		return err
	}
	onShutdown(func(context.Context) error { healthServer.Stop(); return nil })

	// HTTP API
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(api.NewHTTPHandler(ops, cfg.SettlementTimeout)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP API listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("HTTP API stopped")
		}
	}()
	onShutdown(httpServer.Shutdown)

	// Discord announcements
	if cfg.DiscordToken == "" {
		log.Info("DISCORD_TOKEN not set, announcements disabled")
		return nil
	}
	session, err := bot.Connect(cfg.DiscordToken)
	if err != nil {
		return err
	}
	onShutdown(func(context.Context) error { return session.Close() })

	if err := startAnnouncer(session, cfg.DiscordChannelID, infrastructure.NewNATSEventSubscriber(natsClient, subjectMapper)); err != nil {
		return err
	}
	return nil
}

func startAnnouncer(session *discordgo.Session, channelID string, subscriber application.EventSubscriber) error {
	cards, err := bot.NewResultCardGenerator()
	if err != nil {
		// Embeds still go out without the card
		log.WithError(err).Warn("Result cards disabled")
	}

	announcer := bot.NewDiscordAnnouncer(session, channelID, cards)
	if err := application.RegisterApplicationSubscriptions(subscriber, announcer); err != nil {
		return fmt.Errorf("failed to subscribe announcer: %w", err)
	}
	log.WithField("channel_id", channelID).Info("Discord announcer started")
	return nil
}

func configureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)
	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
