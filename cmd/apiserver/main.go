package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/amoylab/cleanbill/internal/apiserver/cache"
	"github.com/amoylab/cleanbill/internal/apiserver/database"
	"github.com/amoylab/cleanbill/internal/apiserver/handler"
	"github.com/amoylab/cleanbill/internal/apiserver/scheduler"
	"github.com/amoylab/cleanbill/internal/assignment"
	"github.com/amoylab/cleanbill/internal/auth/jwt"
	"github.com/amoylab/cleanbill/internal/catalog"
	"github.com/amoylab/cleanbill/internal/client"
	"github.com/amoylab/cleanbill/internal/common/cnst"
	"github.com/amoylab/cleanbill/internal/common/config"
	"github.com/amoylab/cleanbill/internal/common/errorx"
	"github.com/amoylab/cleanbill/internal/i18n"
	"github.com/amoylab/cleanbill/internal/identity"
	"github.com/amoylab/cleanbill/internal/invoice"
	"github.com/amoylab/cleanbill/internal/payment"
	"github.com/amoylab/cleanbill/internal/property"
	"github.com/amoylab/cleanbill/internal/tenant"
	"github.com/amoylab/cleanbill/pkg/logger"
	"github.com/amoylab/cleanbill/pkg/metrics"
	"github.com/amoylab/cleanbill/pkg/trace"
	"github.com/amoylab/cleanbill/pkg/version"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string

	tokenTenant string
	tokenUser   string
	tokenRole   string

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of apiserver",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s version %s\n", cnst.AppName, cnst.CommandName, version.Get())
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema and the system tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				if err := a.store.Migrate(ctx); err != nil {
					return err
				}
				_, err := a.store.InitSystemTenant(ctx)
				return err
			})
		},
	}

	markOverdueCmd = &cobra.Command{
		Use:   "mark-overdue",
		Short: "Run the overdue sweep once over all active tenants",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				s, err := a.overdueScheduler()
				if err != nil {
					return err
				}
				result, err := s.RunOnce(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "tenants=%d updated=%d skipped=%t\n", result.Tenants, result.Updated, result.Skipped)
				return err
			})
		},
	}

	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				token, err := issueToken(ctx, a.store, a.jwt, tokenTenant, tokenUser, identity.Role(tokenRole))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			})
		},
	}

	rootCmd = &cobra.Command{
		Use:   cnst.CommandName,
		Short: "Cleaning billing API server",
		Long:  `apiserver serves the multi-tenant billing API for property cleaning companies`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "conf", "c", cnst.ApiServerYaml, "path to configuration file")
	tokenCmd.Flags().StringVar(&tokenTenant, "tenant", identity.SystemTenantSlug, "tenant slug")
	tokenCmd.Flags().StringVar(&tokenUser, "user", "cli", "user id placed in the token")
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(identity.RoleAdmin), "user, admin or superadmin")
	rootCmd.AddCommand(versionCmd, serveCmd, migrateCmd, markOverdueCmd, tokenCmd)
}

// app holds what every command needs
type app struct {
	cfg     *config.APIServerConfig
	logger  *zap.Logger
	store   *database.Store
	jwt     *jwt.Service
	metrics *metrics.Metrics
	redis   *redis.Client
	svc     handler.Services
}

func newApp(cfg *config.APIServerConfig, lg *zap.Logger) (*app, error) {
	store, err := database.Open(&cfg.Database, lg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	jwtService, err := jwt.NewService(jwt.Config{SecretKey: cfg.JWT.SecretKey, Duration: cfg.JWT.Duration})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("jwt: %w", err)
	}

	a := &app{cfg: cfg, logger: lg, store: store, jwt: jwtService}
	if cfg.Metrics.Enabled {
		a.metrics = metrics.New(cfg.Metrics)
	}
	if cfg.Redis.Addr != "" {
		a.redis = cache.NewRedisClient(cfg.Redis)
	}

	loc := cfg.Billing.Loc()
	assignments := assignment.NewService(store, lg)
	a.svc = handler.Services{
		Tenants:     tenant.NewService(store, lg),
		Clients:     client.NewService(store, lg),
		Properties:  property.NewService(store, lg),
		Catalog:     catalog.NewService(store, lg),
		Assignments: assignments,
		Invoices: invoice.NewService(store, assignments, invoice.Config{
			NumberRetries:       cfg.Billing.NumberRetries,
			ClampNegativeTotals: cfg.Billing.ClampNegativeTotals,
			Location:            loc,
		}, lg, invoice.WithMetrics(a.metrics)),
		Payments: payment.NewService(store, lg, payment.WithMetrics(a.metrics), payment.WithLocation(loc)),
	}
	return a, nil
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	_ = a.store.Close()
}

func (a *app) overdueScheduler() (*scheduler.OverdueScheduler, error) {
	cfg := scheduler.OverdueSchedulerConfig{
		Tenants:  a.store,
		Invoices: a.svc.Invoices,
		Metrics:  a.metrics,
		Logger:   a.logger,
		Spec:     a.cfg.Scheduler.OverdueSpec,
		LockTTL:  a.cfg.Scheduler.LockTTL,
		Location: a.cfg.Billing.Loc(),
	}
	if a.redis != nil {
		cfg.Locker = cache.NewLocker(cache.LockerConfig{RedisClient: a.redis, KeyPrefix: a.cfg.Redis.Prefix}, a.logger)
	}
	return scheduler.NewOverdueScheduler(cfg)
}

func (a *app) router() (http.Handler, error) {
	if err := handler.RegisterValidators(); err != nil {
		return nil, err
	}
	translator, err := i18n.New(a.cfg.I18n.DefaultLang, a.cfg.I18n.Path)
	if err != nil {
		return nil, err
	}
	h := handler.New(a.svc, errorx.NewErrorHandler(a.logger, translator), a.logger)
	r := handler.NewRouter(h, handler.RouterOptions{
		JWT:         a.jwt,
		Metrics:     a.metrics,
		MetricsPath: a.cfg.Metrics.Path,
		DB:          a.store,
		Tracing:     a.cfg.Tracing.Enabled,
	})
	return corsHandler(a.cfg.CORS).Handler(r), nil
}

func corsHandler(cfg config.CORSConfig) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowOrigins,
		AllowedMethods:   cfg.AllowMethods,
		AllowedHeaders:   cfg.AllowHeaders,
		ExposedHeaders:   cfg.ExposeHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})
}

func loadConfig() (*config.APIServerConfig, error) {
	cfg, path, err := config.LoadConfig[config.APIServerConfig](configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration from %s: %w", path, err)
	}
	return cfg, nil
}

func initLogger(cfg *config.APIServerConfig) *zap.Logger {
	lg, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	return lg
}

// withApp loads configuration and runs fn with a fully wired app
func withApp(fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	lg := initLogger(cfg)
	defer func() { _ = lg.Sync() }()

	a, err := newApp(cfg, lg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(context.Background(), a)
}

// issueToken signs a token for an existing, active tenant
func issueToken(ctx context.Context, store *database.Store, jwtService *jwt.Service, slug, userID string, role identity.Role) (string, error) {
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", role)
	}
	t, err := store.GetTenantBySlug(ctx, slug)
	if err != nil {
		return "", err
	}
	if !t.IsActive {
		return "", fmt.Errorf("tenant %s is inactive", slug)
	}
	return jwtService.GenerateToken(userID, t.ID, t.Slug, string(role))
}

func serve() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	lg := initLogger(cfg)
	defer func() { _ = lg.Sync() }()
	gin.SetMode(cfg.Server.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := trace.InitTracing(ctx, &cfg.Tracing, lg)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	a, err := newApp(cfg, lg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if _, err := a.store.InitSystemTenant(ctx); err != nil {
		return fmt.Errorf("init system tenant: %w", err)
	}

	var sweeper *scheduler.OverdueScheduler
	if cfg.Scheduler.Enabled {
		if sweeper, err = a.overdueScheduler(); err != nil {
			return err
		}
		sweeper.Start()
	}

	h, err := a.router()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Server.Port),
		Handler: h,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("Starting apiserver", zap.String("version", version.Get()), zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	lg.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if sweeper != nil {
		sweeper.Stop(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("failed to shutdown server", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		lg.Warn("failed to flush traces", zap.Error(err))
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
