// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/domain/address"
	"storefront/internal/domain/auth"
	"storefront/internal/domain/shop"
	addressHandler "storefront/internal/handlers/address"
	authHandler "storefront/internal/handlers/auth"
	shopHandler "storefront/internal/handlers/shop"
	wsHandler "storefront/internal/handlers/websocket"
	"storefront/internal/middleware"
	"storefront/internal/pkg/jwt"
	"storefront/internal/pkg/session"
	"storefront/internal/repository/memory"
	"storefront/internal/repository/postgres"
	addressUsecase "storefront/internal/service/address"
	authUsecase "storefront/internal/service/auth"
	"storefront/internal/service/email"
	shopUsecase "storefront/internal/service/shop"
	"storefront/internal/websocket"
	wsHandlers "storefront/internal/websocket/handler"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deps are the external resources the API runs on. A nil Pool selects the
// in-memory repositories.
type Deps struct {
	Config   config.AppConfig
	Redis    *redis.Client
	Pool     *pgxpool.Pool
	JWT      *jwt.Manager
	Notifier authUsecase.Notifier
	Logger   *zap.Logger
}

// App is a fully wired API ready to serve.
type App struct {
	Engine      *gin.Engine
	Hub         *websocket.Hub
	AuthService *authUsecase.AuthService
}

type repositories struct {
	users     auth.UserRepository
	cart      shop.CartRepository
	wishlist  shop.WishlistRepository
	orders    shop.OrderRepository
	addresses address.Repository
}

func newRepositories(pool *pgxpool.Pool) repositories {
	if pool == nil {
		return repositories{
			users:     memory.NewUserRepository(),
			cart:      memory.NewCartRepository(),
			wishlist:  memory.NewWishlistRepository(),
			orders:    memory.NewOrderRepository(),
			addresses: memory.NewAddressRepository(),
		}
	}
	return repositories{
		users:     postgres.NewUserRepository(pool),
		cart:      postgres.NewCartRepository(pool),
		wishlist:  postgres.NewWishlistRepository(pool),
		orders:    postgres.NewOrderRepository(pool),
		addresses: postgres.NewAddressRepository(pool),
	}
}

// Build wires repositories, services, handlers and routes. The hub runs until ctx is done.
func Build(ctx context.Context, deps Deps) (*App, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Redis == nil {
		return nil, errors.New("redis client is required")
	}

	jwtManager := deps.JWT
	if jwtManager == nil {
		var err error
		if jwtManager, err = jwt.LoadAndBuild(deps.Config.JWT); err != nil {
			return nil, fmt.Errorf("failed to load JWT manager: %w", err)
		}
		if jwtManager.Ephemeral {
			logger.Warn("no JWT key pair configured, using an ephemeral key; tokens will not survive a restart")
		}
	}

	// ----- Session Manager & Rate Limiter -----
	sessionManager := session.NewManager(deps.Redis, logger)
	rateLimiter := session.NewRateLimiter(deps.Redis)
	otpStore := session.NewOTPStore(deps.Redis, deps.Config.OTPTTL, deps.Config.OTPDevCode)

	// ----- Notifier -----
	notifier := deps.Notifier
	if notifier == nil {
		sender := email.NewSender(email.Config{
			Host:        deps.Config.SMTPHost,
			Port:        deps.Config.SMTPPort,
			Username:    deps.Config.SMTPUser,
			Password:    deps.Config.SMTPPass,
			FromName:    deps.Config.SMTPFromName,
			ImplicitTLS: deps.Config.SMTPSecure,
		})
		if sender.Configured() {
			notifier = authUsecase.NewEmailNotifier(sender, logger)
		} else {
			logger.Warn("SMTP not configured, one-time codes will be logged")
			notifier = authUsecase.NewLogNotifier(logger)
		}
	}

	repos := newRepositories(deps.Pool)

	// ----- WebSocket Hub -----
	hub := websocket.NewHub(jwtManager.Verifier, sessionManager, logger)

	// ----- Services (Usecases) -----
	authService := authUsecase.NewAuthService(
		repos.users,
		jwtManager,
		sessionManager,
		rateLimiter,
		otpStore,
		notifier,
		hub,
		logger,
	)
	cartService := shopUsecase.NewCartService(repos.cart, hub, logger)
	wishlistService := shopUsecase.NewWishlistService(repos.wishlist, hub, logger)
	orderService := shopUsecase.NewOrderService(repos.orders, repos.cart, hub, logger)
	addressService := addressUsecase.NewAddressService(repos.addresses, logger)

	hub.RegisterHandler(wsHandlers.NewSnapshotHandler(cartService, wishlistService, orderService))
	go hub.Run(ctx)

	// ----- Handlers -----
	handlers := &Handlers{
		AuthHandler:     authHandler.NewAuthHandler(authService, logger),
		CartHandler:     shopHandler.NewCartHandler(cartService),
		WishlistHandler: shopHandler.NewWishlistHandler(wishlistService),
		OrderHandler:    shopHandler.NewOrderHandler(orderService),
		AddressHandler:  addressHandler.NewAddressHandler(addressService),
		WSHandler:       wsHandler.NewWebSocketHandler(hub, deps.Config.AllowedOrigins, logger),
		AuthMiddleware:  middleware.NewAuthMiddleware(authService),
	}

	engine := gin.New()
	engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(deps.Config.AllowedOrigins),
	)
	SetupRouter(engine, handlers)

	return &App{Engine: engine, Hub: hub, AuthService: authService}, nil
}

type Server struct {
	cfg    config.AppConfig
	logger *zap.Logger
	http   *http.Server
}

func NewServer(cfg config.AppConfig, logger *zap.Logger) *Server {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	return &Server{cfg: cfg, logger: logger}
}

// Start connects to the backing stores and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	// ----- Redis -----
	redisClient, err := db.NewRedisClient(ctx, db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		PoolSize: 10,
	})
	if err != nil {
		return err
	}
	defer redisClient.Close()
	s.logger.Info("connected to redis", zap.String("addr", s.cfg.RedisAddr))

	// ----- PostgreSQL -----
	var pool *pgxpool.Pool
	if s.cfg.DatabaseURL != "" {
		if pool, err = db.ConnectDB(ctx, s.cfg.DatabaseURL); err != nil {
			return err
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
		s.logger.Info("connected to postgres")
	} else {
		s.logger.Warn("DATABASE_URL not set, using in-memory repositories")
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()

	app, err := Build(hubCtx, Deps{
		Config: s.cfg,
		Redis:  redisClient,
		Pool:   pool,
		Logger: s.logger,
	})
	if err != nil {
		return err
	}

	s.http = &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           app.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", s.cfg.HTTPAddr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
