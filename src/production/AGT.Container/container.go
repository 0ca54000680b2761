package container

import (
	"context"
	"crypto/tls"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	config "gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.Config"
	logger "gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.Logger"
)

// ApiContainer owns the API service dependencies and their lifecycle. The
// Mongo client lives here, constructed once and injected downward; no
// package-level singletons.
type ApiContainer struct {
	config      *config.Config
	logger      *logger.Logger
	mongoClient *mongo.Client
}

// NewApiContainer loads configuration, builds the logger and connects to
// MongoDB.
func NewApiContainer(ctx context.Context) (*ApiContainer, error) {
	cfg, err := config.LoadApiConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load API configuration: %w", err)
	}

	log := logger.NewLogger(&cfg.Logging)

	client, err := connectMongo(ctx, &cfg.Mongo)
	if err != nil {
		return nil, err
	}

	return &ApiContainer{
		config:      cfg,
		logger:      log,
		mongoClient: client,
	}, nil
}

func connectMongo(ctx context.Context, cfg *config.MongoConfig) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(cfg.URI)
	clientOptions.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	clientOptions.SetServerSelectionTimeout(cfg.ConnectTimeout)
	clientOptions.SetConnectTimeout(cfg.ConnectTimeout)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("unable to ping MongoDB: %w", err)
	}
	return client, nil
}

// GetConfig returns the configuration.
func (c *ApiContainer) GetConfig() *config.Config {
	return c.config
}

// GetLogger returns the logger.
func (c *ApiContainer) GetLogger() *logger.Logger {
	return c.logger
}

// GetMongoClient returns the shared Mongo client.
func (c *ApiContainer) GetMongoClient() *mongo.Client {
	return c.mongoClient
}

// SnapshotCollection returns the device-state collection handle.
func (c *ApiContainer) SnapshotCollection() *mongo.Collection {
	return c.mongoClient.Database(c.config.Mongo.Database).Collection(c.config.Mongo.SnapshotCollection)
}

// HistoryCollection returns the uplink-history collection handle.
func (c *ApiContainer) HistoryCollection() *mongo.Collection {
	return c.mongoClient.Database(c.config.Mongo.Database).Collection(c.config.Mongo.HistoryCollection)
}

// Shutdown releases container-owned resources.
func (c *ApiContainer) Shutdown(ctx context.Context) {
	if c.mongoClient != nil {
		if err := c.mongoClient.Disconnect(ctx); err != nil {
			c.logger.ErrorWithError(err, "failed to disconnect MongoDB client")
		}
	}
}

// IngestorContainer owns the MQTT ingestor service dependencies.
type IngestorContainer struct {
	config *config.IngestorConfig
	logger *logger.Logger
}

// NewIngestorContainer loads the ingestor configuration and builds its logger.
func NewIngestorContainer() (*IngestorContainer, error) {
	cfg, err := config.LoadIngestorConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load ingestor configuration: %w", err)
	}

	return &IngestorContainer{
		config: cfg,
		logger: logger.NewLogger(&cfg.Logging),
	}, nil
}

// GetConfig returns the ingestor configuration.
func (c *IngestorContainer) GetConfig() *config.IngestorConfig {
	return c.config
}

// GetLogger returns the logger.
func (c *IngestorContainer) GetLogger() *logger.Logger {
	return c.logger
}
