package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	cloudstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/croix-presskit/presskit/internal/admin"
	"github.com/croix-presskit/presskit/internal/content"
	"github.com/croix-presskit/presskit/internal/handlers"
	"github.com/croix-presskit/presskit/internal/notify"
	"github.com/croix-presskit/presskit/internal/platform/auth"
	"github.com/croix-presskit/presskit/internal/platform/config"
	pfirestore "github.com/croix-presskit/presskit/internal/platform/firestore"
	"github.com/croix-presskit/presskit/internal/platform/observability"
	"github.com/croix-presskit/presskit/internal/platform/secrets"
	platformstorage "github.com/croix-presskit/presskit/internal/platform/storage"
	"github.com/croix-presskit/presskit/internal/repositories"
	firestoreRepo "github.com/croix-presskit/presskit/internal/repositories/firestore"
	"github.com/croix-presskit/presskit/internal/services"
	"github.com/croix-presskit/presskit/internal/snapshot"
	"github.com/croix-presskit/presskit/internal/upload"
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("presskit")
	ctx = observability.WithLogger(ctx, logger)

	fetcher, err := secrets.NewFetcher(ctx,
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithProject(firstNonEmpty(os.Getenv("PRESSKIT_SECRET_PROJECT_ID"), os.Getenv("GOOGLE_CLOUD_PROJECT"))),
		secrets.WithFallbackFile(firstNonEmpty(os.Getenv("PRESSKIT_SECRET_FALLBACK_FILE"), ".secrets.local")),
	)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx, config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)))
	if err != nil {
		var invalid *config.ValidationError
		if errors.As(err, &invalid) {
			logger.Fatal("invalid configuration", zap.Strings("fields", invalid.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	snapshots, err := snapshot.NewFileStore(cfg.Content.SnapshotPath, snapshot.WithLogger(logger))
	if err != nil {
		logger.Fatal("failed to initialise snapshot store", zap.Error(err))
	}

	var (
		remote    *services.RemoteStore
		checks    []repositories.DependencyCheck
		closers   []func()
		configRep *firestoreRepo.ConfigRepository
	)
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	if cfg.Content.Mode == config.ModeRemote {
		provider := pfirestore.NewProvider(cfg.Firestore)
		closers = append(closers, func() {
			if err := provider.Close(); err != nil {
				logger.Warn("firestore close error", zap.Error(err))
			}
		})
		configRep, err = firestoreRepo.NewConfigRepository(provider, cfg.Firestore.ConfigCollection)
		if err != nil {
			logger.Fatal("failed to initialise config repository", zap.Error(err))
		}
		assetRepo, err := firestoreRepo.NewAssetRepository(provider, cfg.Firestore.AssetCollection)
		if err != nil {
			logger.Fatal("failed to initialise asset repository", zap.Error(err))
		}

		if host := strings.TrimSpace(cfg.Storage.EmulatorHost); host != "" {
			_ = os.Setenv("STORAGE_EMULATOR_HOST", host)
		}
		gcs, err := cloudstorage.NewClient(ctx)
		if err != nil {
			logger.Fatal("failed to initialise storage client", zap.Error(err))
		}
		closers = append(closers, func() {
			if err := gcs.Close(); err != nil {
				logger.Warn("storage close error", zap.Error(err))
			}
		})
		objects, err := platformstorage.NewClient(gcs, cfg.Storage.Bucket, platformstorage.WithPublicBaseURL(cfg.Storage.PublicBaseURL))
		if err != nil {
			logger.Fatal("failed to initialise object store", zap.Error(err))
		}

		remote, err = services.NewRemoteStore(services.RemoteStoreDeps{
			Configs:  configRep,
			Assets:   assetRepo,
			Objects:  objects,
			ConfigID: cfg.Firestore.ConfigDocument,
			Timeout:  cfg.Content.RemoteTimeout,
			CacheTTL: cfg.Content.AssetCacheTTL,
			Logger:   observability.Events(logger.Named("remote")),
		})
		if err != nil {
			logger.Fatal("failed to initialise remote store", zap.Error(err))
		}

		docID := cfg.Firestore.ConfigDocument
		checks = append(checks,
			repositories.DependencyCheck{Name: "firestore", Check: func(ctx context.Context) error {
				_, err := configRep.Get(ctx, docID)
				if err != nil && !repositories.IsNotFound(err) {
					return err
				}
				return nil
			}},
			repositories.DependencyCheck{Name: "storage", Check: func(ctx context.Context) error {
				_, err := gcs.Bucket(cfg.Storage.Bucket).Attrs(ctx)
				return err
			}},
		)
	}
	checks = append(checks, repositories.DependencyCheck{Name: "snapshot", Check: func(ctx context.Context) error {
		info, err := snapshots.Stat(ctx)
		if err != nil {
			return err
		}
		if info.Exists && !info.Valid {
			return errors.New("snapshot file is not valid JSON content")
		}
		return nil
	}})

	crossProcess, cacheWatch, notifierChecks, notifierClosers := buildNotifiers(ctx, logger, cfg)
	checks = append(checks, notifierChecks...)
	closers = append(closers, notifierClosers...)

	storeOpts := content.Options{
		Mode:         content.Mode(cfg.Content.Mode),
		Snapshots:    snapshots,
		CrossProcess: crossProcess,
		CacheWatch:   cacheWatch,
		SeedRemote:   cfg.Content.SeedRemote,
		Logger:       logger,
	}
	if remote != nil {
		storeOpts.Remote = remote
	}
	store, err := content.New(storeOpts)
	if err != nil {
		logger.Fatal("failed to initialise content store", zap.Error(err))
	}
	initCtx, cancelInit := context.WithTimeout(ctx, cfg.Content.RemoteTimeout+5*time.Second)
	if err := store.Init(initCtx); err != nil {
		logger.Warn("content store init reported an error", zap.Error(err))
	}
	cancelInit()
	status := store.Status()
	logger.Info("content store ready",
		zap.String("mode", string(status.Mode)),
		zap.String("source", string(status.Source)),
		zap.Bool("degraded", status.Degraded),
		zap.String("fingerprint", status.Fingerprint))

	editorDeps := admin.EditorDeps{
		Store:  store,
		Policy: admin.SavePolicy(cfg.Content.SavePolicy),
		Logger: logger,
	}
	if remote != nil {
		editorDeps.Remote = remote
	}
	editor, err := admin.NewEditor(editorDeps)
	if err != nil {
		logger.Fatal("failed to initialise editor", zap.Error(err))
	}

	creds, err := auth.NewCredentials(cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.PasswordHash, cfg.Admin.Realm)
	if err != nil {
		logger.Fatal("failed to initialise admin credentials", zap.Error(err))
	}

	adminDeps := handlers.AdminDeps{
		Credentials: creds,
		Editor:      editor,
		Content:     store,
		Snapshots:   snapshots,
	}
	if remote != nil && remote.AssetsEnabled() {
		pipeline, err := upload.NewPipeline(remote, editor, upload.Config{
			MaxBytes:     cfg.Upload.MaxBytes,
			AllowedTypes: cfg.Upload.AllowedTypes,
			MaxFiles:     cfg.Upload.MaxFiles,
			Concurrency:  cfg.Upload.Concurrency,
		}, upload.WithLogger(logger))
		if err != nil {
			logger.Fatal("failed to initialise upload pipeline", zap.Error(err))
		}
		adminDeps.Uploads = pipeline
		adminDeps.Assets = remote
	}

	healthRepo, err := repositories.NewDependencyHealthRepository(checks)
	if err != nil {
		logger.Fatal("failed to initialise health checks", zap.Error(err))
	}

	projectID := strings.TrimSpace(cfg.Firestore.ProjectID)
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(),
	}

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(handlers.BuildInfo{
			Version:     firstNonEmpty(os.Getenv("PRESSKIT_BUILD_VERSION"), "dev"),
			CommitSHA:   os.Getenv("PRESSKIT_BUILD_COMMIT_SHA"),
			Environment: cfg.Environment,
			StartedAt:   startedAt,
		}),
		handlers.WithHealthRepository(healthRepo),
		handlers.WithHealthContent(store),
	)
	publicHandlers := handlers.NewPublicHandlers(store, handlers.WithAllowedOrigins(cfg.Server.AllowedOrigins...))
	adminHandlers := handlers.NewAdminHandlers(adminDeps)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithPublicRoutes(publicHandlers.Routes),
		handlers.WithAdminRoutes(adminHandlers.Routes),
		handlers.WithAdminTimeout(cfg.Server.WriteTimeout),
	)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("presskit listening", zap.String("mode", cfg.Content.Mode))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := store.Close(); err != nil {
		logger.Warn("content store close error", zap.Error(err))
	}
}

// buildNotifiers creates the configured cross-process notifiers and, for the
// watch kind, the snapshot file watcher. A notifier that fails to start is
// logged and skipped. Closers run in reverse order.
func buildNotifiers(ctx context.Context, logger *zap.Logger, cfg config.Config) (notify.Notifier, notify.Notifier, []repositories.DependencyCheck, []func()) {
	var (
		cacheWatch notify.Notifier
		notifiers  []notify.Notifier
		checks     []repositories.DependencyCheck
		closers    []func()
	)
	syncLogger := logger.Named("sync")
	closeWith := func(name string, n notify.Notifier) func() {
		return func() {
			if err := n.Close(); err != nil {
				syncLogger.Warn("notifier close error", zap.String("notifier", name), zap.Error(err))
			}
		}
	}

	for _, kind := range cfg.Sync.Notifiers {
		switch kind {
		case config.NotifierWatch:
			w, err := notify.NewFileWatcher(cfg.Content.SnapshotPath, cfg.Sync.WatchDebounce, syncLogger)
			if err != nil {
				syncLogger.Warn("file watcher unavailable", zap.Error(err))
				continue
			}
			cacheWatch = w
			closers = append(closers, closeWith(kind, w))
		case config.NotifierPoll:
			p := notify.NewPoller(cfg.Sync.PollInterval)
			notifiers = append(notifiers, p)
			closers = append(closers, closeWith(kind, p))
		case config.NotifierRedis:
			client := notify.NewRedisClient(cfg.Sync.RedisAddr, cfg.Sync.RedisPassword, cfg.Sync.RedisDB)
			r, err := notify.NewRedisNotifier(ctx, client, cfg.Sync.RedisChannel, syncLogger)
			if err != nil {
				syncLogger.Warn("redis notifier unavailable", zap.Error(err))
				_ = client.Close()
				continue
			}
			notifiers = append(notifiers, r)
			closers = append(closers, func() { _ = client.Close() }, closeWith(kind, r))
			checks = append(checks, repositories.DependencyCheck{Name: "redis", Check: func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			}})
		case config.NotifierPubSub:
			client, err := pubsub.NewClient(ctx, cfg.Firestore.ProjectID)
			if err != nil {
				syncLogger.Warn("pubsub client unavailable", zap.Error(err))
				continue
			}
			topic := client.Topic(cfg.Sync.PubSubTopic)
			var sub *pubsub.Subscription
			if name := strings.TrimSpace(cfg.Sync.PubSubSub); name != "" {
				sub = client.Subscription(name)
			} else {
				syncLogger.Warn("no pubsub subscription configured; publishing only")
			}
			n, err := notify.NewPubSubNotifier(ctx, topic, sub, syncLogger)
			if err != nil {
				syncLogger.Warn("pubsub notifier unavailable", zap.Error(err))
				_ = client.Close()
				continue
			}
			notifiers = append(notifiers, n)
			closers = append(closers, func() { _ = client.Close() }, closeWith(kind, n))
			checks = append(checks, repositories.DependencyCheck{Name: "pubsub", Check: func(ctx context.Context) error {
				ok, err := topic.Exists(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("pubsub topic %q does not exist", cfg.Sync.PubSubTopic)
				}
				return nil
			}})
		}
	}
	if len(notifiers) == 0 {
		return nil, cacheWatch, checks, closers
	}
	return notify.NewMulti(notifiers...), cacheWatch, checks, closers
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
