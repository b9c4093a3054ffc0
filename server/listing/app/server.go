package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	commonauth "listing_server/server/common/auth"
	"listing_server/server/common/infra/cache"
	"listing_server/server/common/infra/db"
	"listing_server/server/common/infra/mq"
	"listing_server/server/common/infra/object"
	commonlog "listing_server/server/common/log"
	listingapi "listing_server/server/listing/api"
	"listing_server/server/listing/repository"
	"listing_server/server/listing/service"
)

type Server struct {
	HTTPServer *http.Server
	DB         *pgxpool.Pool
	Redis      *redis.Client
	MQConn     *amqp.Connection
	Audit      *service.AMQPPublisher
}

func NewServer(cfg Config) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbPool, err := db.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("initialize postgres: %w", err)
	}

	redisClient := cache.NewClient(cfg.RedisAddr)
	if err := cache.Ping(ctx, redisClient); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	minioClient, err := object.NewClient(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("initialize minio: %w", err)
	}
	if err := object.EnsureBucket(ctx, minioClient, cfg.MinioBucket); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("ensure minio bucket: %w", err)
	}
	store := object.NewMinIOStore(minioClient, cfg.MinioBucket, cfg.CDNBaseURL)

	var (
		mqConn *amqp.Connection
		audit  *service.AMQPPublisher
		events service.EventPublisher
	)
	if cfg.UseMQ {
		mqConn, err = mq.NewConnection(cfg.AMQPURL)
		if err != nil {
			dbPool.Close()
			return nil, fmt.Errorf("connect amqp: %w", err)
		}
		audit, err = service.NewAMQPPublisher(mqConn)
		if err != nil {
			dbPool.Close()
			return nil, fmt.Errorf("initialize audit publisher: %w", err)
		}
		events = audit
	} else {
		commonlog.Warnf("audit event publishing disabled")
	}

	repo := repository.NewListingRepository(dbPool)
	keys := service.NewKeyGenerator(cfg.ObjectKeyNamespace)
	gate := service.NewRedisGate(redisClient, cfg.SubmitLimit, time.Duration(cfg.SubmitWindowMins)*time.Minute)
	imageSvc := service.NewImageService(store, keys)
	listingSvc := service.NewListingService(repo, store, gate, events)
	authSvc := commonauth.NewService(cfg.JWTSecret, cfg.JWTTTLMinutes)

	h := listingapi.NewHandler(imageSvc, listingSvc, authSvc)
	r := gin.Default()
	h.RegisterRoutes(r)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{HTTPServer: httpServer, DB: dbPool, Redis: redisClient, MQConn: mqConn, Audit: audit}, nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.Audit != nil {
		s.Audit.Close()
	}
	if s.MQConn != nil {
		_ = s.MQConn.Close()
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.DB != nil {
		s.DB.Close()
	}
	return s.HTTPServer.Shutdown(ctx)
}
