package infra

import (
	"github.com/tnqbao/gau-media-offload/config"
	"github.com/tnqbao/gau-media-offload/infra/produce"
)

type Infra struct {
	Redis       *RedisClient
	Postgres    *PostgresClient
	Logger      *LoggerClient
	Telemetry   *TelemetryClient
	RabbitMQ    *RabbitMQClient
	EdgeStorage *EdgeStorageClient
	Produce     *produce.Produce
}

var infraInstance *Infra

func InitInfra(cfg *config.Config) *Infra {
	if infraInstance != nil {
		return infraInstance
	}

	redis := InitRedisClient(cfg.EnvConfig)
	if redis == nil {
		panic("Failed to initialize Redis service")
	}

	postgres := InitPostgresClient(cfg.EnvConfig)
	if postgres == nil {
		panic("Failed to initialize Postgres service")
	}

	logger := InitLoggerClient(cfg.EnvConfig)
	if logger == nil {
		panic("Failed to initialize Logger service")
	}

	telemetry := InitTelemetryClient(cfg.EnvConfig)
	if telemetry == nil {
		panic("Failed to initialize Telemetry service")
	}

	rabbitMQ := InitRabbitMQClient(cfg.EnvConfig)
	if rabbitMQ == nil {
		panic("Failed to initialize RabbitMQ service")
	}

	edgeStorage := InitEdgeStorageClient(cfg.EnvConfig)
	if edgeStorage == nil {
		panic("Failed to initialize Edge Storage service")
	}

	produceService := produce.InitProduce(rabbitMQ.Channel)
	if produceService == nil {
		panic("Failed to initialize Produce service")
	}

	infraInstance = &Infra{
		Redis:       redis,
		Postgres:    postgres,
		Logger:      logger,
		Telemetry:   telemetry,
		RabbitMQ:    rabbitMQ,
		EdgeStorage: edgeStorage,
		Produce:     produceService,
	}

	return infraInstance
}

func GetClient() *Infra {
	if infraInstance == nil {
		panic("Infra not initialized. Call InitInfra() first.")
	}
	return infraInstance
}
