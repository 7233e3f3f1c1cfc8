package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ivankudzin/oneclick/internal/config"
	"github.com/ivankudzin/oneclick/internal/infra/httpclient"
	s3infra "github.com/ivankudzin/oneclick/internal/infra/s3"
	"github.com/ivankudzin/oneclick/internal/infra/transbank"
	"github.com/ivankudzin/oneclick/internal/jobs/cleanup"
	boltrepo "github.com/ivankudzin/oneclick/internal/repo/bolt"
	pgrepo "github.com/ivankudzin/oneclick/internal/repo/postgres"
	"github.com/ivankudzin/oneclick/internal/repo/postgres/migrations"
	redrepo "github.com/ivankudzin/oneclick/internal/repo/redis"
	s3repo "github.com/ivankudzin/oneclick/internal/repo/s3"
	"github.com/ivankudzin/oneclick/internal/security"
	authsvc "github.com/ivankudzin/oneclick/internal/services/auth"
	inscriptionsvc "github.com/ivankudzin/oneclick/internal/services/inscriptions"
	ratesvc "github.com/ivankudzin/oneclick/internal/services/rate"
	transactionsvc "github.com/ivankudzin/oneclick/internal/services/transactions"
)

const finishRateScope = "finish"

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	bolt       *boltrepo.DB
	redis      *goredis.Client
	s3         *minio.Client
	httpRouter http.Handler
	sweeper    *cleanup.Job
	sweepCtx   context.Context
	stopSweep  context.CancelFunc
}

type pendingExpirer interface {
	FailPendingOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type stores struct {
	inscriptions interface {
		inscriptionsvc.Store
		pendingExpirer
	}
	transactions transactionsvc.Store
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	app := &App{cfg: cfg, logger: log}

	st, err := app.openStores(ctx)
	if err != nil {
		return nil, err
	}

	codec, err := newCodec(cfg.Codec, log)
	if err != nil {
		app.closeStores()
		return nil, err
	}

	gateway, err := transbank.NewClient(transbank.Config{
		Environment:  cfg.Gateway.Environment,
		BaseURL:      cfg.Gateway.BaseURL,
		CommerceCode: cfg.Gateway.CommerceCode,
		APIKey:       cfg.Gateway.APIKey,
	}, httpclient.New(cfg.Gateway.Timeout), log.Named("transbank"))
	if err != nil {
		app.closeStores()
		return nil, fmt.Errorf("create transbank client: %w", err)
	}
	log.Info("transbank client ready",
		zap.String("environment", cfg.Gateway.Environment),
		zap.String("commerce_code", gateway.CommerceCode()),
		zap.String("api_key", transbank.MaskToken(cfg.Gateway.APIKey)),
	)

	s3Cfg := s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		Region:    cfg.S3.Region,
		UseSSL:    cfg.S3.UseSSL,
	}
	if s3Cfg.Enabled() {
		if c, err := s3infra.NewClient(s3Cfg); err != nil {
			log.Warn("s3 init failed, gateway exchanges will not be archived", zap.Error(err))
		} else {
			app.s3 = c
			archive := s3repo.NewExchangeArchive(c, cfg.S3.Bucket)
			if err := archive.EnsureBucket(ctx); err != nil {
				log.Warn("s3 bucket check failed", zap.String("bucket", cfg.S3.Bucket), zap.Error(err))
			}
			gateway.AttachArchiver(archive)
		}
	}

	app.redis = redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := redrepo.Ping(ctx, app.redis); err != nil {
		log.Warn("redis unavailable, finish rate limiting fails open", zap.Error(err))
	}
	finishLimiter := ratesvc.NewLimiter(
		redrepo.NewRateRepo(app.redis),
		finishRateScope,
		cfg.Rate.FinishPerMinute,
		cfg.Rate.FinishPer10Sec,
	)

	authService := authsvc.NewService(cfg.Auth.APIKeys, authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer))
	if !authService.Enabled() {
		log.Warn("no api key or jwt secret configured, protected routes reject every request")
	}

	inscriptionService := inscriptionsvc.NewService(inscriptionsvc.Dependencies{
		Store:   st.inscriptions,
		Gateway: gateway,
		Codec:   codec,
		Logger:  log.Named("inscriptions"),
	}, inscriptionsvc.Config{
		CallbackBaseURL: cfg.Callback.BaseURL,
		SuccessURL:      cfg.Callback.SuccessURL,
		FailedURL:       cfg.Callback.FailedURL,
	})
	transactionService := transactionsvc.NewService(transactionsvc.Dependencies{
		Transactions: st.transactions,
		Inscriptions: st.inscriptions,
		Gateway:      gateway,
		Logger:       log.Named("transactions"),
	}, transactionsvc.Config{
		DefaultCommerceCode: cfg.Gateway.DefaultChildCommerceCode,
	})

	if cfg.Cleanup.Enabled {
		app.sweeper = cleanup.NewPendingExpiryJob(st.inscriptions, cfg.Cleanup.PendingTTL, cfg.Cleanup.Interval, log.Named("cleanup"))
		app.sweepCtx, app.stopSweep = context.WithCancel(context.Background())
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)
	RegisterRoutes(r, Dependencies{
		AuthService:        authService,
		InscriptionService: inscriptionService,
		TransactionService: transactionService,
		FinishLimiter:      finishLimiter,
		Logger:             log,
		Config:             cfg,
	})

	app.httpRouter = r
	app.server = &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return app, nil
}

func (a *App) openStores(ctx context.Context) (stores, error) {
	switch a.cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pool, err := pgrepo.NewPool(ctx, a.cfg.Store.Postgres.DSN)
		if err != nil {
			a.logger.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
		} else {
			a.postgres = pool
			if a.cfg.Store.Postgres.AutoMigrate {
				applied, err := migrations.Apply(ctx, pool)
				if err != nil {
					pool.Close()
					return stores{}, fmt.Errorf("apply migrations: %w", err)
				}
				if len(applied) > 0 {
					a.logger.Info("postgres migrations applied", zap.Strings("migrations", applied))
				}
			}
		}
		return stores{
			inscriptions: pgrepo.NewInscriptionRepo(a.postgres),
			transactions: pgrepo.NewTransactionRepo(a.postgres),
		}, nil
	case config.StoreDriverBolt:
		db, err := boltrepo.Open(a.cfg.Store.Bolt.Path)
		if err != nil {
			return stores{}, err
		}
		a.bolt = db
		a.logger.Info("bolt store opened", zap.String("path", a.cfg.Store.Bolt.Path))
		return stores{
			inscriptions: db.Inscriptions(),
			transactions: db.Transactions(),
		}, nil
	default:
		return stores{}, fmt.Errorf("unknown store driver %q", a.cfg.Store.Driver)
	}
}

func newCodec(cfg config.CodecConfig, log *zap.Logger) (*security.IDCodec, error) {
	if cfg.EncryptionKey != "" {
		codec, err := security.NewIDCodec(cfg.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("create id codec: %w", err)
		}
		return codec, nil
	}

	log.Warn("no encryption key configured, using a random key; finish callbacks issued before a restart will not decode")
	codec, err := security.NewRandomIDCodec()
	if err != nil {
		return nil, fmt.Errorf("create random id codec: %w", err)
	}
	return codec, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started",
		zap.String("addr", a.cfg.HTTP.Addr),
		zap.String("base_path", a.cfg.BasePath()),
	)
	if a.sweeper != nil {
		go a.sweeper.Loop(a.sweepCtx)
	}

	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if a.stopSweep != nil {
		a.stopSweep()
	}
	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}
	if err := a.closeStores(); err != nil && shutdownErr == nil {
		shutdownErr = err
	}

	return shutdownErr
}

func (a *App) closeStores() error {
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.bolt != nil {
		return a.bolt.Close()
	}
	return nil
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
