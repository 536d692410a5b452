package processors

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/fipehub/billing-processor/asaas"
	"github.com/fipehub/billing-processor/config/database"
	"github.com/fipehub/billing-processor/config/kafka"
	"github.com/fipehub/billing-processor/config/redis"
	"github.com/fipehub/billing-processor/models"
	"github.com/fipehub/billing-processor/processors/billing_processors"
	"github.com/fipehub/billing-processor/utils"
)

var (
	processor          *billing_processors.ConfirmationProcessor
	subscriptionStore  *models.SubscriptionStore
	aggregationService *billing_processors.AggregationService
	kafkaConfig        kafka.ServerConfig
)

const (
	envEnv                                  = "ENV"
	envBillingDatabaseMaxConnections        = "BILLING_DATABASE_MAX_CONNECTIONS"
	envBillingKafkaBootstrapServers         = "BILLING_KAFKA_BOOTSTRAP_SERVERS"
	envBillingKafkaConsumerGroup            = "BILLING_KAFKA_CONSUMER_GROUP"
	envBillingKafkaConfirmationsTopic       = "BILLING_KAFKA_PAYMENT_CONFIRMATIONS_TOPIC"
	envBillingKafkaConfirmationsDeadLetter  = "BILLING_KAFKA_CONFIRMATIONS_DEAD_LETTER_TOPIC"
	envBillingKafkaPassword                 = "BILLING_KAFKA_PASSWORD"
	envBillingKafkaScramAlgorithm           = "BILLING_KAFKA_SCRAM_ALGORITHM"
	envBillingKafkaTLS                      = "BILLING_KAFKA_TLS"
	envBillingKafkaUsername                 = "BILLING_KAFKA_USERNAME"
	envBillingRedisStoreDB                  = "BILLING_REDIS_STORE_DB"
	envBillingRedisStorePassword            = "BILLING_REDIS_STORE_PASSWORD"
	envBillingRedisStoreURL                 = "BILLING_REDIS_STORE_URL"
	envBillingRedisStoreTLS                 = "BILLING_REDIS_STORE_TLS"
	envBillingSweepIntervalSeconds          = "BILLING_SWEEP_INTERVAL_SECONDS"
	envBillingPaymentProviderURL            = "BILLING_PAYMENT_PROVIDER_URL"
	envBillingPaymentProviderAPIKey         = "BILLING_PAYMENT_PROVIDER_API_KEY"
)

type Config struct {
	Logger       *slog.Logger
	UseTelemetry bool
}

func initProducer(ctx context.Context, topicEnv string) (*kafka.Producer, error) {
	if os.Getenv(topicEnv) == "" {
		return nil, fmt.Errorf("%s variable is required", topicEnv)
	}

	topic := os.Getenv(topicEnv)
	producer, err := kafka.NewProducer(
		kafkaConfig,
		&kafka.ProducerConfig{
			Topic: topic,
		})
	if err != nil {
		return nil, err
	}

	err = producer.Ping(ctx)
	if err != nil {
		return nil, err
	}

	return producer, nil
}

func initFlagStore(ctx context.Context, name string, useTelemetry bool) (*models.FlagStore, error) {
	redisDb, err := utils.GetEnvAsInt(envBillingRedisStoreDB, 0)
	if err != nil {
		return nil, err
	}

	redisConfig := redis.RedisConfig{
		Address:   os.Getenv(envBillingRedisStoreURL),
		Password:  os.Getenv(envBillingRedisStorePassword),
		DB:        redisDb,
		UseTracer: useTelemetry,
		UseTLS:    utils.GetEnvAsBool(envBillingRedisStoreTLS, os.Getenv(envEnv) == "production"),
	}

	db, err := redis.NewRedisDB(ctx, redisConfig)
	if err != nil {
		return nil, err
	}

	return models.NewFlagStore(ctx, db, name), nil
}

// StartBillingProcessor wires the stores, the provider client, the sweeper
// and the confirmation consumer, then blocks consuming until the context is
// cancelled.
func StartBillingProcessor(ctx context.Context, config *Config) {
	serverBrokers := utils.ParseBrokersEnv(os.Getenv(envBillingKafkaBootstrapServers))
	if len(serverBrokers) == 0 {
		config.Logger.Error("brokers not found")
		panic("brokers not found")
	}

	kafkaConfig = kafka.ServerConfig{
		ScramAlgorithm: os.Getenv(envBillingKafkaScramAlgorithm),
		TLS:            utils.GetEnvAsBool(envBillingKafkaTLS, false),
		Servers:        serverBrokers,
		UseTelemetry:   config.UseTelemetry,
		UserName:       os.Getenv(envBillingKafkaUsername),
		Password:       os.Getenv(envBillingKafkaPassword),
	}

	deadLetterProducer, err := initProducer(ctx, envBillingKafkaConfirmationsDeadLetter)
	if err != nil {
		utils.LogAndPanic(config.Logger, err, "failed to initialize confirmations dead letter producer")
	}

	maxConns, err := utils.GetEnvAsInt(envBillingDatabaseMaxConnections, 200)
	if err != nil {
		utils.LogAndPanic(config.Logger, err, "Error converting max connections into integer")
	}

	dbConfig := database.DBConfig{
		Url:      os.Getenv("DATABASE_URL"),
		MaxConns: int32(maxConns),
	}

	db, err := database.NewConnection(dbConfig)
	if err != nil {
		utils.LogAndPanic(config.Logger, err, "Error connecting to the database")
	}
	subscriptionStore = models.NewSubscriptionStore(db)
	defer db.Close()

	flagger, err := initFlagStore(ctx, "access_changed", config.UseTelemetry)
	if err != nil {
		utils.LogAndPanic(config.Logger, err, "Error connecting to the flag store")
	}
	defer flagger.Close()

	providerClient := asaas.NewClient(asaas.Config{
		BaseURL: os.Getenv(envBillingPaymentProviderURL),
		APIKey:  os.Getenv(envBillingPaymentProviderAPIKey),
	})
	aggregationService = billing_processors.NewAggregationService(providerClient)

	lifecycleService := billing_processors.NewLifecycleService(subscriptionStore, flagger, config.Logger)

	processor = billing_processors.NewConfirmationProcessor(
		config.Logger,
		lifecycleService,
		aggregationService,
		deadLetterProducer,
	)

	sweepInterval, err := utils.GetEnvAsInt(envBillingSweepIntervalSeconds, 300)
	if err != nil {
		utils.LogAndPanic(config.Logger, err, "Error converting sweep interval into integer")
	}

	sweeper := billing_processors.NewSweepService(subscriptionStore, flagger, config.Logger)
	go func() {
		if err := sweeper.Run(ctx, time.Duration(sweepInterval)*time.Second); err != nil && ctx.Err() == nil {
			utils.CaptureError(err)
		}
	}()

	cg, err := kafka.NewConsumerGroup(
		kafkaConfig,
		&kafka.ConsumerGroupConfig{
			Topic:         os.Getenv(envBillingKafkaConfirmationsTopic),
			ConsumerGroup: os.Getenv(envBillingKafkaConsumerGroup),
			ProcessRecords: func(ctx context.Context, records []*kgo.Record) []*kgo.Record {
				return processor.ProcessConfirmations(ctx, records)
			},
		})
	if err != nil {
		utils.LogAndPanic(config.Logger, err, "Error starting the confirmation consumer")
	}

	config.Logger.Info("Starting confirmation consumer")
	cg.Start(ctx)
	config.Logger.Info("Billing processor stopped")
}
