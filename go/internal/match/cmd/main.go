package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/spinrace/go/clients/sport_bridge_client"
	"github.com/mcdev12/spinrace/go/internal/config"
	"github.com/mcdev12/spinrace/go/internal/journal"
	"github.com/mcdev12/spinrace/go/internal/match"
	"github.com/mcdev12/spinrace/go/internal/match/gateway"
	"github.com/mcdev12/spinrace/go/internal/match/monitor"
	"github.com/mcdev12/spinrace/go/internal/match/relay"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	matchID := cfg.MatchUUID()
	peerID := cfg.PeerID()

	log.Info().
		Str("match_id", matchID.String()).
		Str("peer_id", peerID).
		Bool("relay", cfg.Relay.Enabled).
		Bool("journal", cfg.Database.Enabled).
		Str("port", cfg.Gateway.Port).
		Msg("starting match service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := clockwork.NewRealClock()
	bus := match.NewBus()
	metrics := monitor.NewPrometheusMetrics()

	// Display clients stand in for the scene's camera prop, HUD and audio source
	connectionManager := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	display := gateway.NewDisplay(connectionManager, matchID, cfg.Match.CameraID, clock)

	deps := match.Dependencies{
		Camera:    display,
		HUD:       display,
		Audio:     display,
		Sport:     setupSportTracker(cfg, matchID, peerID),
		Authority: match.StaticAuthority(cfg.Peer.IsAuthority),
		Bus:       bus,
		Clock:     clock,
	}

	relayCfg := relayConfig(cfg)
	var (
		nc        *nats.Conn
		js        jetstream.JetStream
		authority *relay.KVAuthority
	)
	if cfg.Relay.Enabled {
		nc, js, err = relay.Connect(relayCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to relay")
		}
		defer nc.Close()

		publisher, err := relay.NewPublisher(ctx, js, relayCfg, matchID, peerID)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create relay publisher")
		}
		deps.Relay = monitor.NewMetricRelay(publisher, metrics)

		if cfg.Peer.Authority == config.AuthorityKV {
			authority, err = relay.NewKVAuthority(ctx, js, relayCfg, matchID, peerID)
			if err != nil {
				log.Fatal().Err(err).Msg("failed to create authority store")
			}
			if _, err := authority.Claim(ctx); err != nil {
				log.Fatal().Err(err).Msg("failed to claim match authority")
			}
			deps.Authority = authority
		}
	}

	controller := match.NewController(match.Config{
		MatchID:     matchID,
		PeerID:      peerID,
		TotalTime:   cfg.Match.TotalTime,
		FinishAudio: cfg.Match.FinishAudio,
		EditorMode:  cfg.Match.EditorMode,
	}, deps)

	if cfg.Relay.Enabled {
		consumer, err := relay.NewConsumer(ctx, js, relayCfg, matchID, peerID, monitor.NewMetricHandler(controller, metrics))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create relay consumer")
		}
		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("relay consumer failed")
			}
		}()
	}

	changes, unsubscribeDisplay := bus.Subscribe(64)
	defer unsubscribeDisplay()
	go display.Forward(ctx, changes)

	metricChanges, unsubscribeMetrics := bus.Subscribe(64)
	defer unsubscribeMetrics()
	go monitor.RecordTransitions(ctx, metricChanges, metrics)

	healthOpts := []monitor.HealthOption{
		monitor.WithDisplayClients(func() int {
			return connectionManager.GetConnectionStats()["total_connections"].(int)
		}),
	}
	if nc != nil {
		healthOpts = append(healthOpts, monitor.WithRelay(nc))
	}

	if cfg.Database.Enabled {
		pool, unsubscribeJournal, err := setupJournal(ctx, cfg, bus)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to set up match journal")
		}
		defer pool.Close()
		defer unsubscribeJournal()
		healthOpts = append(healthOpts, monitor.WithJournal(pool))
	}

	gatewayService := gateway.NewService(connectionManager, controller, clock)
	go gatewayService.Start(ctx)

	health := monitor.NewHealthChecker(matchID.String(), controller, healthOpts...)
	server := setupServer(cfg.Gateway.Port, gatewayService, health, metrics.Handler())

	if err := controller.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize match controller")
	}

	// Start HTTP server
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := controller.Quit(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to notify sport bridge of quit")
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	controller.Close()

	if authority != nil {
		if err := authority.Release(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to release match authority")
		}
	}

	cancel()
	log.Info().Msg("match service shutdown complete")
}

func configPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}

func relayConfig(cfg *config.Config) relay.Config {
	relayCfg := relay.DefaultConfig()
	relayCfg.URL = cfg.Relay.URL
	relayCfg.StreamName = cfg.Relay.StreamName
	relayCfg.SubjectPrefix = cfg.Relay.SubjectPrefix
	relayCfg.AuthorityBucket = cfg.Relay.AuthorityBucket
	relayCfg.AuthorityTTL = cfg.Relay.AuthorityTTL()
	return relayCfg
}

func setupSportTracker(cfg *config.Config, matchID uuid.UUID, peerID string) match.SportTracker {
	if !cfg.Sport.Enabled {
		return sport_bridge_client.NoopTracker{}
	}
	return sport_bridge_client.NewSportBridgeClient(cfg.Sport.URL, matchID, peerID, cfg.Sport.Timeout())
}

// setupJournal connects to Postgres and records every state change published on bus.
// The returned func detaches the recorder from the bus.
func setupJournal(ctx context.Context, cfg *config.Config, bus *match.Bus) (*pgxpool.Pool, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	repo := journal.NewRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	changes, unsubscribe := bus.Subscribe(256)
	go journal.NewRecorder(repo, 5*time.Second).Run(ctx, changes)

	log.Info().
		Str("host", cfg.Database.Host).
		Str("database", cfg.Database.Name).
		Msg("match journal enabled")
	return pool, unsubscribe, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
