package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fekuna/omnipos-variant-service/config"
	"github.com/fekuna/omnipos-variant-service/internal/auth"
	"github.com/fekuna/omnipos-variant-service/internal/broker"
	"github.com/fekuna/omnipos-variant-service/internal/cache"
	"github.com/fekuna/omnipos-variant-service/internal/database/postgres"
	"github.com/fekuna/omnipos-variant-service/internal/logger"

	prodRepoPkg "github.com/fekuna/omnipos-variant-service/internal/product/repository"

	varH "github.com/fekuna/omnipos-variant-service/internal/variant/handler"
	varListenerPkg "github.com/fekuna/omnipos-variant-service/internal/variant/listener"
	varRepoPkg "github.com/fekuna/omnipos-variant-service/internal/variant/repository"
	varUCPkg "github.com/fekuna/omnipos-variant-service/internal/variant/usecase"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}

	if cfg.Server.AppEnv == "development" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = "console"
		logConfig.Level = "debug"
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	// 3. Connect to Database
	db, err := postgres.NewPostgres(&postgres.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	// 4. Initialize Repositories
	prodRepo := prodRepoPkg.NewPGRepository(db)
	varRepo := varRepoPkg.NewPGRepository(db)

	// 5. Initialize Redis
	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))

	// 5.5 Initialize Kafka
	kafkaConsumer := broker.NewConsumer(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	})
	defer kafkaConsumer.Close()
	appLogger.Info("Connected to Kafka Consumer", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))

	kafkaProducer := broker.NewProducer(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.EventsTopic,
	})
	defer kafkaProducer.Close()

	// 6. Initialize UseCases
	varUC := varUCPkg.NewVariantUseCase(varRepo, prodRepo, redisClient, kafkaProducer, varUCPkg.Options{
		MaxCombinations: cfg.Variant.MaxCombinations,
		SnapshotTTL:     time.Duration(cfg.Variant.SnapshotTTLSeconds) * time.Second,
		LockTTL:         time.Duration(cfg.Variant.LockTTLSeconds) * time.Second,
	}, appLogger)

	// 6.5 Initialize Listeners
	orderListener := varListenerPkg.NewOrderListener(kafkaConsumer, varUC, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go orderListener.Start(ctx)

	// 7. Initialize Handlers
	varHandler := varH.NewVariantHandler(varUC, appLogger)

	// 8. Start gRPC Server
	port := cfg.Server.GRPCPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	lis, err := net.Listen("tcp", port)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(auth.ContextInterceptor()),
	)

	varH.Register(grpcServer, varHandler)
	reflection.Register(grpcServer)

	appLogger.Info("Starting gRPC server", zap.String("port", port))

	// Graceful Shutdown
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	cancel()
	grpcServer.GracefulStop()
	appLogger.Info("Server stopped")
}
