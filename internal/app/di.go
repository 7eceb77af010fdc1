// Package app provides the dependency injection container assembling application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	auditRepository "github.com/auditbridge/pseudonym/internal/audit/repository"
	auditUsecase "github.com/auditbridge/pseudonym/internal/audit/usecase"
	"github.com/auditbridge/pseudonym/internal/config"
	cryptoDomain "github.com/auditbridge/pseudonym/internal/crypto/domain"
	cryptoService "github.com/auditbridge/pseudonym/internal/crypto/service"
	"github.com/auditbridge/pseudonym/internal/database"
	"github.com/auditbridge/pseudonym/internal/http"
	"github.com/auditbridge/pseudonym/internal/metrics"
	pseudonymHTTP "github.com/auditbridge/pseudonym/internal/pseudonym/http"
	pseudonymRepository "github.com/auditbridge/pseudonym/internal/pseudonym/repository"
	pseudonymService "github.com/auditbridge/pseudonym/internal/pseudonym/service"
	pseudonymUsecase "github.com/auditbridge/pseudonym/internal/pseudonym/usecase"
)

// Container holds all application dependencies and provides methods to access them.
// It follows the lazy initialization pattern - components are created on first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger          *slog.Logger
	db              *sql.DB
	metricsProvider *metrics.Provider

	// Managers
	txManager database.TxManager

	// Crypto
	stringCipher cryptoService.StringCipher

	// Repositories
	mappingRepo pseudonymUsecase.MappingRepository
	eventRepo   auditUsecase.EventRepository

	// Use Cases
	eventUseCase     auditUsecase.EventUseCase
	pseudonymUseCase pseudonymUsecase.PseudonymUseCase

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Initialization flags and mutex for thread-safety
	mu                   sync.Mutex
	loggerInit           sync.Once
	dbInit               sync.Once
	metricsProviderInit  sync.Once
	txManagerInit        sync.Once
	stringCipherInit     sync.Once
	mappingRepoInit      sync.Once
	eventRepoInit        sync.Once
	eventUseCaseInit     sync.Once
	pseudonymUseCaseInit sync.Once
	httpServerInit       sync.Once
	metricsServerInit    sync.Once
	initErrors           map[string]error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
func (c *Container) DB() (*sql.DB, error) {
	c.dbInit.Do(func() {
		db, err := c.initDB()
		if err != nil {
			c.initErrors["db"] = err
			return
		}
		c.db = db
	})
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// MetricsProvider returns the metrics provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = err
			return
		}
		c.metricsProvider = provider
	})
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// TxManager returns the transaction manager.
func (c *Container) TxManager() (database.TxManager, error) {
	c.txManagerInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["txManager"] = fmt.Errorf("failed to get database for tx manager: %w", err)
			return
		}
		c.txManager = database.NewTxManager(db)
	})
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// StringCipher returns the cipher protecting original values at rest.
// The data key is resolved from configuration, either directly or through KMS.
func (c *Container) StringCipher() (cryptoService.StringCipher, error) {
	c.stringCipherInit.Do(func() {
		cipher, err := c.initStringCipher()
		if err != nil {
			c.initErrors["stringCipher"] = err
			return
		}
		c.stringCipher = cipher
	})
	if storedErr, exists := c.initErrors["stringCipher"]; exists {
		return nil, storedErr
	}
	return c.stringCipher, nil
}

// MappingRepository returns the mapping repository instance.
func (c *Container) MappingRepository() (pseudonymUsecase.MappingRepository, error) {
	c.mappingRepoInit.Do(func() {
		repo, err := c.initMappingRepository()
		if err != nil {
			c.initErrors["mappingRepo"] = err
			return
		}
		c.mappingRepo = repo
	})
	if storedErr, exists := c.initErrors["mappingRepo"]; exists {
		return nil, storedErr
	}
	return c.mappingRepo, nil
}

// EventRepository returns the audit event repository instance.
func (c *Container) EventRepository() (auditUsecase.EventRepository, error) {
	c.eventRepoInit.Do(func() {
		repo, err := c.initEventRepository()
		if err != nil {
			c.initErrors["eventRepo"] = err
			return
		}
		c.eventRepo = repo
	})
	if storedErr, exists := c.initErrors["eventRepo"]; exists {
		return nil, storedErr
	}
	return c.eventRepo, nil
}

// EventUseCase returns the audit event use case instance.
func (c *Container) EventUseCase() (auditUsecase.EventUseCase, error) {
	c.eventUseCaseInit.Do(func() {
		eventRepo, err := c.EventRepository()
		if err != nil {
			c.initErrors["eventUseCase"] = fmt.Errorf(
				"failed to get event repository for event use case: %w", err)
			return
		}
		c.eventUseCase = auditUsecase.NewEventUseCase(eventRepo)
	})
	if storedErr, exists := c.initErrors["eventUseCase"]; exists {
		return nil, storedErr
	}
	return c.eventUseCase, nil
}

// PseudonymUseCase returns the pseudonymization use case instance.
func (c *Container) PseudonymUseCase() (pseudonymUsecase.PseudonymUseCase, error) {
	c.pseudonymUseCaseInit.Do(func() {
		useCase, err := c.initPseudonymUseCase()
		if err != nil {
			c.initErrors["pseudonymUseCase"] = err
			return
		}
		c.pseudonymUseCase = useCase
	})
	if storedErr, exists := c.initErrors["pseudonymUseCase"]; exists {
		return nil, storedErr
	}
	return c.pseudonymUseCase, nil
}

// HTTPServer returns the HTTP server instance.
func (c *Container) HTTPServer() (*http.Server, error) {
	c.httpServerInit.Do(func() {
		server, err := c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
			return
		}
		c.httpServer = server
	})
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics server instance, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	c.metricsServerInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["metricsServer"] = fmt.Errorf(
				"failed to get metrics provider for metrics server: %w", err)
			return
		}
		c.metricsServer = http.NewMetricsServer(
			c.config.ServerHost,
			c.config.MetricsPort,
			c.Logger(),
			provider,
		)
	})
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown performs cleanup of all initialized resources.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates a structured logger based on the configured log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initStringCipher resolves the data key and builds the string cipher.
func (c *Container) initStringCipher() (cryptoService.StringCipher, error) {
	algorithm := cryptoDomain.Algorithm(c.config.EncryptionAlgorithm)
	if err := algorithm.Validate(); err != nil {
		return nil, err
	}

	key, err := cryptoService.LoadDataKey(context.Background(), cryptoService.KeyLoaderConfig{
		DataKey:        c.config.DataKey,
		KMSKeyURI:      c.config.KMSKeyURI,
		WrappedDataKey: c.config.WrappedDataKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load data key: %w", err)
	}

	return cryptoService.NewStringCipher(key, algorithm)
}

// initMappingRepository creates the mapping repository matching the database driver.
func (c *Container) initMappingRepository() (pseudonymUsecase.MappingRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for mapping repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return pseudonymRepository.NewMySQLMappingRepository(db), nil
	case "postgres":
		return pseudonymRepository.NewPostgreSQLMappingRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initEventRepository creates the audit event repository matching the database driver.
func (c *Container) initEventRepository() (auditUsecase.EventRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for event repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return auditRepository.NewMySQLEventRepository(db), nil
	case "postgres":
		return auditRepository.NewPostgreSQLEventRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initPseudonymUseCase creates the pseudonymization use case with all its dependencies.
func (c *Container) initPseudonymUseCase() (pseudonymUsecase.PseudonymUseCase, error) {
	mappingRepo, err := c.MappingRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get mapping repository for pseudonym use case: %w", err)
	}

	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for pseudonym use case: %w", err)
	}

	cipher, err := c.StringCipher()
	if err != nil {
		return nil, fmt.Errorf("failed to get string cipher for pseudonym use case: %w", err)
	}

	eventUseCase, err := c.EventUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get event use case for pseudonym use case: %w", err)
	}

	extractor := pseudonymService.NewExtractor(pseudonymService.ExtractorConfig{
		PersonFields:   c.config.PersonFields,
		FreeTextFields: c.config.FreeTextFields,
	})

	useCase := pseudonymUsecase.NewPseudonymUseCase(
		mappingRepo,
		txManager,
		cipher,
		extractor,
		pseudonymService.NewReplacer(),
		eventUseCase,
		c.config.MappingRetention,
		c.Logger(),
	)

	if c.config.MetricsEnabled {
		provider, err := c.MetricsProvider()
		if err != nil {
			return nil, fmt.Errorf("failed to get metrics provider for pseudonym use case: %w", err)
		}
		if provider != nil {
			businessMetrics, err := metrics.NewBusinessMetrics(
				provider.MeterProvider(), c.config.MetricsNamespace)
			if err != nil {
				return nil, fmt.Errorf("failed to create business metrics: %w", err)
			}
			useCase = pseudonymUsecase.NewMetricsDecorator(useCase, businessMetrics)
		}
	}

	return useCase, nil
}

// initHTTPServer creates the HTTP server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	useCase, err := c.PseudonymUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get pseudonym use case for http server: %w", err)
	}

	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	handler := pseudonymHTTP.NewPseudonymizationHandler(useCase, logger)

	return http.NewServer(c.config, handler, provider, logger), nil
}
