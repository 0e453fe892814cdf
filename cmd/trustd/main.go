package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/swapgrid/trust-engine/internal/blindreview"
	"github.com/swapgrid/trust-engine/internal/eligibility"
	"github.com/swapgrid/trust-engine/internal/identity"
	"github.com/swapgrid/trust-engine/internal/moderation"
	"github.com/swapgrid/trust-engine/internal/patterns"
	"github.com/swapgrid/trust-engine/internal/reputation"
	"github.com/swapgrid/trust-engine/internal/reviews"
	"github.com/swapgrid/trust-engine/internal/risk"
	"github.com/swapgrid/trust-engine/internal/sweeper"
	"github.com/swapgrid/trust-engine/internal/tracking"
	"github.com/swapgrid/trust-engine/internal/transactions"
	"github.com/swapgrid/trust-engine/internal/weighting"
	"github.com/swapgrid/trust-engine/pkg/common"
	"github.com/swapgrid/trust-engine/pkg/config"
	"github.com/swapgrid/trust-engine/pkg/database"
	"github.com/swapgrid/trust-engine/pkg/eventbus"
	"github.com/swapgrid/trust-engine/pkg/health"
	"github.com/swapgrid/trust-engine/pkg/logger"
	"github.com/swapgrid/trust-engine/pkg/middleware"
	"github.com/swapgrid/trust-engine/pkg/redis"
	"github.com/swapgrid/trust-engine/pkg/tracing"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load("trustd")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Server.Environment); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.OTLPEndpoint != "" {
		shutdown, err := tracing.Init(ctx, cfg.Tracing.OTLPEndpoint, cfg.Server.ServiceName)
		if err != nil {
			logger.Fatal("failed to initialize tracing", zap.Error(err))
		}
		defer shutdown(context.Background())
	}

	if err := database.RunMigrations(&cfg.Database, "migrations"); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	dbPool, err := database.NewDBPool(&cfg.Database, database.NewDBMetrics(cfg.Server.ServiceName))
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer dbPool.Close()
	pool := dbPool.GetPrimary()

	// The moderation queue uses database/sql so its repository can be
	// exercised with sqlmock; it shares the same database.
	sqlDB, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Fatal("failed to open sql connection", zap.Error(err))
	}
	defer sqlDB.Close()
	if err := sqlDB.Ping(); err != nil {
		logger.Fatal("failed to ping postgres", zap.Error(err))
	}

	redisClient, err := redis.NewRedisClient(&cfg.Redis, &cfg.Timeouts)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}

	var publisher eventPublisher = noopPublisher{}
	var bus *eventbus.Bus
	if cfg.NATS.Enabled {
		bus, err = eventbus.NewBus(cfg.NATS.URL)
		if err != nil {
			logger.Fatal("failed to connect to nats", zap.Error(err))
		}
		defer bus.Close()
		publisher = bus
	} else {
		logger.Warn("nats disabled, domain events will not be published")
	}

	masterKey, err := cfg.Trust.MasterKey()
	if err != nil {
		logger.Fatal("invalid review master key", zap.Error(err))
	}
	if masterKey == nil {
		logger.Fatal("REVIEW_MASTER_KEY is required")
	}

	// Storage.
	trackingRepo := tracking.NewRepository(pool)
	txnRepo := transactions.NewRepository(pool)
	identityRepo := identity.NewRepository(pool)
	reviewRepo := reviews.NewRepository(pool)
	blindRepo := blindreview.NewRepository(pool)
	reputationRepo := reputation.NewRepository(pool)
	patternStore := patterns.NewStore(pool)
	moderationRepo := moderation.NewRepository(sqlDB)

	// Detectors only read historical tracking data, so they can tolerate
	// replica lag. Falls back to the primary when no replicas are configured.
	detectorTrackingRepo := tracking.NewRepository(dbPool.GetReplica())

	// Services.
	trackingService := tracking.NewService(trackingRepo, cfg.Trust.TrackingRetentionDays)
	txnService := transactions.NewService(txnRepo, publisher)
	moderationService := moderation.NewService(moderationRepo, publisher)

	patternService := patterns.NewService(
		patterns.NewDeviceDetector(detectorTrackingRepo),
		patterns.NewIPDetector(detectorTrackingRepo),
		patterns.NewLocationDetector(detectorTrackingRepo),
		patterns.NewRingDetector(txnRepo),
		patternStore,
		cfg.Trust.PatternRetentionDays,
	)

	riskService := risk.NewService(
		patternService,
		trackingRepo,
		identityRepo,
		txnRepo,
		moderationService,
		publisher,
		risk.NewRedisCache(redisClient.Client),
	)

	eligibilityChecker := eligibility.NewChecker(
		txnRepo,
		&reviewLookup{revealed: reviewRepo, pending: blindRepo},
		&accountLookup{profiles: identityRepo},
		eligibility.Config{
			ReviewWindowDays:  cfg.Trust.ReviewWindowDays,
			MinAccountAgeDays: cfg.Trust.MinReviewerAccountDays,
			DailyReviewLimit:  cfg.Trust.DailyReviewLimit,
		},
	)

	blindService, err := blindreview.NewService(
		blindRepo,
		masterKey,
		eligibilityChecker,
		riskService,
		weighting.NewRepoSource(identityRepo, reviewRepo),
		txnRepo,
		moderationService,
		publisher,
		cfg.Trust.RevealDeadlineDays,
	)
	if err != nil {
		logger.Fatal("failed to build blind review service", zap.Error(err))
	}

	reputationService := reputation.NewService(reputationRepo, reviewRepo, identityRepo, publisher)

	if bus != nil {
		if err := subscribeEvents(ctx, bus, reviewRepo, reputationService, riskService); err != nil {
			logger.Fatal("failed to subscribe to events", zap.Error(err))
		}
	}

	// Background maintenance.
	worker := sweeper.NewWorker(
		blindService,
		trackingService,
		patternService,
		time.Duration(cfg.Trust.SweepIntervalHours)*time.Hour,
	)
	worker.Start(ctx)
	defer worker.Stop()

	checks := map[string]func() error{
		"postgres": health.DatabaseChecker(sqlDB),
		"pgx_pool": health.PoolChecker(pool),
		"redis":    health.RedisChecker(redisClient.Client),
	}
	if bus != nil {
		checks["nats"] = health.DependencyChecker(bus)
	}

	router := buildRouter(cfg, checks,
		tracking.NewHandler(trackingService),
		transactions.NewHandler(txnService),
		patterns.NewHandler(patternService),
		risk.NewHandler(riskService, txnRepo),
		eligibility.NewHandler(eligibilityChecker),
		blindreview.NewHandler(blindService),
		reviews.NewHandler(reviewRepo),
		reputation.NewHandler(reputationService),
		moderation.NewHandler(moderationService),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("trust engine listening", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}

type routeRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

func buildRouter(cfg *config.Config, checks map[string]func() error, handlers ...routeRegistrar) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics(cfg.Server.ServiceName))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.MaxBodySize(1 << 20))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.Server.CORSOrigins, ",")
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Correlation-ID"}
	router.Use(cors.New(corsConfig))

	router.GET("/healthz", common.HealthCheckWithDeps(cfg.Server.ServiceName, version, checks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	for _, h := range handlers {
		h.RegisterRoutes(api)
	}

	return router
}

// subscribeEvents wires the asynchronous reactions: revealed reviews
// trigger a reputation recompute for their targets, and completed
// transactions get a risk report ahead of the first review attempt.
func subscribeEvents(
	ctx context.Context,
	bus *eventbus.Bus,
	reviewRepo reviews.ReviewRepository,
	reputationService *reputation.Service,
	riskService *risk.Service,
) error {
	err := bus.Subscribe(ctx, eventbus.SubjectReviewsRevealed, "trustd", func(ctx context.Context, event *eventbus.Event) error {
		var data eventbus.ReviewsRevealedData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		for _, reviewID := range data.ReviewIDs {
			review, err := reviewRepo.GetByID(ctx, reviewID)
			if err != nil {
				logger.WithContext(ctx).Warn("revealed review not found",
					zap.String("review_id", reviewID.String()), zap.Error(err))
				continue
			}
			if _, err := reputationService.Recalculate(ctx, review.TargetUserID); err != nil {
				logger.WithContext(ctx).Error("reputation recompute failed",
					zap.String("user_id", review.TargetUserID.String()), zap.Error(err))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	return bus.Subscribe(ctx, eventbus.SubjectTransactionCompleted, "trustd", func(ctx context.Context, event *eventbus.Event) error {
		var data eventbus.TransactionCompletedData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return err
		}
		_, err := riskService.AnalyzeTransactionRisk(ctx, data.TransactionID, data.PartyA, data.PartyB)
		return err
	})
}

type eventPublisher interface {
	Publish(ctx context.Context, subject, eventType string, data interface{}) error
}

// noopPublisher stands in when NATS is disabled in local development.
type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, string, interface{}) error { return nil }

// reviewLookup answers review-history questions across both the revealed
// and the still-concealed stores, so the duplicate and daily-limit checks
// cannot be dodged by the conceal window.
type reviewLookup struct {
	revealed *reviews.Repository
	pending  *blindreview.Repository
}

func (l *reviewLookup) HasReview(ctx context.Context, reviewerID, transactionID uuid.UUID) (bool, error) {
	has, err := l.revealed.HasReview(ctx, reviewerID, transactionID)
	if err != nil || has {
		return has, err
	}
	return l.pending.HasPending(ctx, reviewerID, transactionID)
}

func (l *reviewLookup) CountByReviewerSince(ctx context.Context, reviewerID uuid.UUID, since time.Time) (int, error) {
	revealed, err := l.revealed.CountByReviewerSince(ctx, reviewerID, since)
	if err != nil {
		return 0, err
	}
	pending, err := l.pending.CountByReviewerSince(ctx, reviewerID, since)
	if err != nil {
		return 0, err
	}
	return revealed + pending, nil
}

// accountLookup resolves account creation time from the profile store.
type accountLookup struct {
	profiles identity.ProfileRepository
}

func (l *accountLookup) GetAccountCreatedAt(ctx context.Context, userID uuid.UUID) (time.Time, error) {
	profile, err := l.profiles.GetProfile(ctx, userID)
	if err != nil {
		return time.Time{}, err
	}
	return profile.CreatedAt, nil
}
