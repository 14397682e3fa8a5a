package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/okankilic/LisconVT-sub001/internal/api"
	"github.com/okankilic/LisconVT-sub001/internal/config"
	"github.com/okankilic/LisconVT-sub001/internal/events"
	"github.com/okankilic/LisconVT-sub001/internal/gateway"
	"github.com/okankilic/LisconVT-sub001/internal/media"
	"github.com/okankilic/LisconVT-sub001/internal/models"
	"github.com/okankilic/LisconVT-sub001/internal/storage"
	"github.com/okankilic/LisconVT-sub001/pkg/crypto"
)

func main() {
	// Command line flags
	var configFile string
	flag.StringVar(&configFile, "config", "config/gateway.yml", "Configuration file path")
	flag.Parse()

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Str("version", cfg.Server.Version).Msg("MDVR gateway starting")

	// Connect to database
	store, err := storage.NewPostgresStore(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer store.Close()

	log.Info().Msg("Connected to database")

	// Bootstrap admin account on first run
	bootstrapAdmin(store)

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to NATS
	var nc *nats.Conn
	var notifier events.Notifier = events.NopNotifier{}
	var sink media.VideoSink = media.NopVideoSink{}

	if cfg.NATS.URL != "" {
		log.Info().Str("url", cfg.NATS.URL).Msg("Connecting to NATS...")

		nc, err = nats.Connect(cfg.NATS.URL,
			nats.Name("mdvr-gateway"),
			nats.UserInfo(cfg.NATS.Username, cfg.NATS.Password),
			nats.ReconnectWait(time.Duration(cfg.NATS.ReconnectInterval)),
			nats.MaxReconnects(cfg.NATS.MaxReconnects),
			nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
				log.Warn().Err(err).Msg("Disconnected from NATS")
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				log.Info().Msg("Reconnected to NATS")
			}),
		)

		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to NATS, continuing without NATS support")
			nc = nil
		} else {
			defer nc.Close()
			log.Info().Msg("Connected to NATS")
			notifier = events.NewNATSNotifier(nc)
			sink = media.NewNATSVideoSink(nc)
		}
	} else {
		log.Info().Msg("NATS not configured, running in standalone mode")
	}

	// UDP gateway server
	gwServer, err := gateway.NewServer(&cfg.Gateway, store, notifier)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create gateway server")
	}

	// TCP media server
	mediaServer, err := media.NewServer(&cfg.Media, store, sink)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create media server")
	}

	// REST API server
	apiServer := api.NewRESTServer(cfg, store, gwServer, mediaServer)

	// WaitGroup for services
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := gwServer.Start(ctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("Gateway server stopped")
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := mediaServer.Start(ctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("Media server stopped")
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		if err := apiServer.ListenAndServe(addr); err != nil {
			log.Error().Err(err).Msg("REST API server stopped")
		}
	}()

	// Command subscriber
	if nc != nil {
		subscriber := gateway.NewCommandSubscriber(nc, gwServer)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := subscriber.Start(ctx); err != nil && err != context.Canceled {
				log.Error().Err(err).Msg("Command subscriber stopped")
			}
		}()
	}

	// Wait for signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")

	cancel()

	if err := apiServer.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown API server gracefully")
	}

	wg.Wait()

	log.Info().Msg("MDVR gateway stopped")
}

// bootstrapAdmin creates the initial admin account when the user table is
// empty. The generated password is printed once.
func bootstrapAdmin(store storage.Store) {
	ctx := context.Background()

	total, err := store.CountUsers(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to count users")
		return
	}
	if total > 0 {
		return
	}

	password, err := crypto.GenerateRandomString(12)
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate admin password")
		return
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		log.Error().Err(err).Msg("Failed to hash admin password")
		return
	}

	admin := &models.User{
		Email:        "admin@localhost",
		PasswordHash: hash,
		Name:         "Administrator",
		IsAdmin:      true,
		IsActive:     true,
	}

	if err := store.CreateUser(ctx, admin); err != nil {
		log.Error().Err(err).Msg("Failed to create admin user")
		return
	}

	log.Info().
		Str("email", admin.Email).
		Str("password", password).
		Msg("Created initial admin account, change the password after first login")
}
