package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/darklock-net/gatehouse/admission"
	"github.com/darklock-net/gatehouse/admission/allowstore"
	"github.com/darklock-net/gatehouse/admission/audit"
	"github.com/darklock-net/gatehouse/admission/cachestore"
	"github.com/darklock-net/gatehouse/admission/chalstore"
	"github.com/darklock-net/gatehouse/admission/configstore"
	"github.com/darklock-net/gatehouse/admission/engine"
	"github.com/darklock-net/gatehouse/admission/intelstore"
	"github.com/darklock-net/gatehouse/admission/risk"
	"github.com/darklock-net/gatehouse/admission/scorestore"
	"github.com/darklock-net/gatehouse/platform"
	"github.com/darklock-net/gatehouse/util"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const configCacheTTL = 30 * time.Second

type Server struct {
	gatewayHost   string
	botToken      string
	bind          string
	logger        *slog.Logger
	engine        *admission.Engine
	rdb           *redis.Client
	echo          *echo.Echo
	sweepInterval time.Duration

	// auditLog is set only when a database is configured; the review UI
	// reads event history through it
	auditLog *audit.GormSink

	// latest gateway sequence number, mutated through atomics
	lastSeq int64
}

type Config struct {
	Logger          *slog.Logger
	GatewayHost     string
	BotToken        string
	Bind            string
	RedisURL        string
	StaffWebhookURL string
	ReviewURLBase   string
	SweepInterval   time.Duration
}

// NewServer wires stores, the admission engine, and the review API together.
// A nil db keeps all state in process memory, which is fine for dev but loses
// in-flight challenges on restart.
func NewServer(db *gorm.DB, client *platform.Client, config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var rdb *redis.Client
	if config.RedisURL != "" {
		// generic client, for cursor state
		opt, err := redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %w", err)
		}
		rdb = redis.NewClient(opt)
		// check redis connection
		_, err = rdb.Ping(context.TODO()).Result()
		if err != nil {
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
	}

	var (
		configs    configstore.ConfigStore
		challenges chalstore.ChallengeStore
		intel      intelstore.IntelStore
		scores     scorestore.ScoreStore
		allow      allowstore.AllowStore
		auditLog   *audit.GormSink
	)
	sinks := audit.MultiSink{audit.NewSlogSink(logger)}
	if db != nil {
		baseConfigs, err := configstore.NewGormConfigStore(db)
		if err != nil {
			return nil, err
		}
		var configCache cachestore.CacheStore
		if rdb != nil {
			configCache = cachestore.NewRedisCacheStore(rdb, configCacheTTL)
		} else {
			configCache = cachestore.NewMemCacheStore(10_000, configCacheTTL)
		}
		configs = configstore.NewCachedConfigStore(baseConfigs, configCache, logger)
		challenges, err = chalstore.NewGormChallengeStore(db)
		if err != nil {
			return nil, err
		}
		intel, err = intelstore.NewGormIntelStore(db, logger)
		if err != nil {
			return nil, err
		}
		scores, err = scorestore.NewGormScoreStore(db)
		if err != nil {
			return nil, err
		}
		allow, err = allowstore.NewGormAllowStore(db)
		if err != nil {
			return nil, err
		}
		auditLog, err = audit.NewGormSink(db)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, auditLog)
	} else {
		logger.Info("no database configured, holding all admission state in memory")
		configs = configstore.NewMemConfigStore()
		challenges = chalstore.NewMemChallengeStore()
		intel = intelstore.NewMemIntelStore()
		scores = scorestore.NewMemScoreStore()
		allow = allowstore.NewMemAllowStore()
	}

	eng := admission.Engine{
		Logger:     logger,
		Scorer:     risk.NewScorer(),
		Configs:    configs,
		Challenges: challenges,
		Intel:      intel,
		Scores:     scores,
		AllowList:  allow,
		Audit:      sinks,
		Roles:      client,
		Messenger:  client,
		Notifier: &admission.WebhookNotifier{
			// staff-configured destinations, so keep dials off internal ranges
			Client:            util.RobustPublicOnlyHTTPClient(),
			DefaultWebhookURL: config.StaffWebhookURL,
		},
		Alerts:        engine.NewAlertThrottler(0),
		Cooldown:      engine.NewActionCooldown(0),
		ReviewURLBase: config.ReviewURLBase,
	}

	s := &Server{
		gatewayHost:   config.GatewayHost,
		botToken:      config.BotToken,
		bind:          config.Bind,
		logger:        logger,
		engine:        &eng,
		rdb:           rdb,
		sweepInterval: config.SweepInterval,
		auditLog:      auditLog,
	}
	if s.sweepInterval <= 0 {
		s.sweepInterval = engine.DefaultSweepInterval
	}
	s.echo = s.buildReviewAPI()

	return s, nil
}

// Run starts the gateway consumer, the challenge expiry sweeper, the review
// API, and cursor persistence, and blocks until the first fatal error or
// context cancellation.
func (s *Server) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return s.RunConsumer(ctx)
	})
	eg.Go(func() error {
		return s.engine.RunSweeper(ctx, s.sweepInterval)
	})
	eg.Go(func() error {
		return s.RunPersistCursor(ctx)
	})
	eg.Go(func() error {
		return s.RunReviewAPI(ctx)
	})
	err := eg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}

func (s *Server) RunReviewAPI(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error shutting down review API server", "err", err)
		}
	}()
	if err := s.echo.Start(s.bind); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("review API server shut down unexpectedly: %w", err)
	}
	return ctx.Err()
}

var cursorKey = "porter/seq"

func (s *Server) ReadLastCursor(ctx context.Context) (int64, error) {
	// if redis isn't configured, just skip
	if s.rdb == nil {
		s.logger.Info("redis not configured, skipping cursor read")
		return 0, nil
	}

	val, err := s.rdb.Get(ctx, cursorKey).Int64()
	if err == redis.Nil {
		s.logger.Info("no pre-existing cursor in redis")
		return 0, nil
	}
	s.logger.Info("successfully found prior subscription cursor seq in redis", "seq", val)
	return val, err
}

func (s *Server) PersistCursor(ctx context.Context) error {
	// if redis isn't configured, just skip
	if s.rdb == nil {
		return nil
	}
	lastSeq := atomic.LoadInt64(&s.lastSeq)
	if lastSeq <= 0 {
		return nil
	}
	err := s.rdb.Set(ctx, cursorKey, lastSeq, 14*24*time.Hour).Err()
	return err
}

// this method runs in a loop, persisting the current cursor state every 5 seconds
func (s *Server) RunPersistCursor(ctx context.Context) error {

	// if redis isn't configured, just skip
	if s.rdb == nil {
		return nil
	}
	ticker := time.NewTicker(5 * time.Second)
	for {
		select {
		case <-ctx.Done():
			lastSeq := atomic.LoadInt64(&s.lastSeq)
			if lastSeq >= 1 {
				s.logger.Info("persisting final cursor seq value", "seq", lastSeq)
				err := s.PersistCursor(context.Background())
				if err != nil {
					s.logger.Error("failed to persist cursor", "err", err, "seq", lastSeq)
				}
			}
			return nil
		case <-ticker.C:
			lastSeq := atomic.LoadInt64(&s.lastSeq)
			if lastSeq >= 1 {
				err := s.PersistCursor(ctx)
				if err != nil {
					s.logger.Error("failed to persist cursor", "err", err, "seq", lastSeq)
				}
			}
		}
	}
}
