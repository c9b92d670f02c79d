package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/layer-3/profileproof/adapters/events"
	"github.com/layer-3/profileproof/adapters/fetcher"
	"github.com/layer-3/profileproof/adapters/store"
	"github.com/layer-3/profileproof/adapters/tokenizer"
	"github.com/layer-3/profileproof/config"
	"github.com/layer-3/profileproof/logger"
	"github.com/layer-3/profileproof/ports"
	"github.com/layer-3/profileproof/service"
	transport "github.com/layer-3/profileproof/transport/http"
)

func newServeCmd() *cobra.Command {
	configPath := envOr("PROFILEPROOF_CONFIG", "")

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the verification API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", configPath, "path to YAML config (env PROFILEPROOF_CONFIG)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.New(logger.Config{Env: cfg.Log.Env, Level: cfg.Log.Level, ServiceName: "profileproof"})
	defer func() { _ = log.Sync() }()

	if strings.ToLower(cfg.Log.Env) == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if missing := cfg.MissingCookies(); len(missing) > 0 {
		log.Warn("session cookies not configured, members-only profiles will not load", zap.Strings("missing", missing))
	}

	var (
		challengeStore ports.ChallengeStore
		eventPub       ports.EventPublisher = events.NopPublisher{}
		eventCloser    io.Closer
	)

	switch cfg.Store.Driver {
	case "memory":
		challengeStore = store.NewMemoryStore(time.Minute)
	default:
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
		})
		// Redis reconnects on demand, so an outage at boot only fails requests
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("redis not reachable at startup", zap.String("addr", cfg.Store.Redis.Addr), zap.Error(err))
		}
		challengeStore = store.NewRedisStore(redisClient, cfg.Store.KeyPrefix)

		if cfg.Events.Enabled {
			publisher, err := redisstream.NewPublisher(
				redisstream.PublisherConfig{Client: redisClient},
				logger.NewWatermillAdapter(log),
			)
			if err != nil {
				return fmt.Errorf("failed to create event publisher: %w", err)
			}
			eventPub = events.NewWatermillPublisher(publisher)
			eventCloser = publisher
		}
	}
	// The publisher shares the store's Redis client, so it goes first
	defer closeAll(log, eventCloser, challengeStore)

	profileFetcher := fetcher.NewHTTPFetcher(fetcher.Config{
		ProfileURL: cfg.Platform.ProfileURL,
		Cookies: fetcher.SessionCookies{
			SessionID:   cfg.Platform.Cookies.SessionID,
			SessionHash: cfg.Platform.Cookies.SessionHash,
			BBUserID:    cfg.Platform.Cookies.BBUserID,
			BBPassword:  cfg.Platform.Cookies.BBPassword,
		},
		Timeout:       cfg.Platform.Timeout,
		MaxAttempts:   cfg.Platform.MaxAttempts,
		MaxBodyBytes:  cfg.Platform.MaxBodyBytes,
		RatePerSecond: cfg.Platform.RatePerSecond,
		Burst:         cfg.Platform.Burst,
		UserAgent:     cfg.Platform.UserAgent,
	}, log)

	opts := service.Options{
		ChallengeTTL: cfg.Challenge.TTL,
		ProofTTL:     cfg.Proof.TTL,
		Platform:     profileFetcher.Platform(),
	}
	if cfg.Proof.SigningKeyFile != "" {
		tk, err := tokenizer.NewJWTTokenizerFromFile(cfg.Proof.SigningKeyFile, cfg.Proof.Issuer)
		if err != nil {
			return err
		}
		opts.Tokenizer = tk
	} else {
		log.Info("no signing key configured, ownership proofs disabled")
	}

	verificationService := service.NewVerificationService(challengeStore, profileFetcher, eventPub, log, opts)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      transport.SetupRouter(verificationService, challengeStore, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("store", cfg.Store.Driver),
			zap.Duration("challenge_ttl", verificationService.ChallengeTTL()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// closeAll closes resources in order, skipping nil ones. Failures are only logged.
func closeAll(log *zap.Logger, closers ...io.Closer) {
	for _, c := range closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil {
			log.Debug("closing resource", zap.String("resource", fmt.Sprintf("%T", c)), zap.Error(err))
		}
	}
}
