package main

import (
	"context"
	"crypto/tls"
	"os"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/MicahParks/keyfunc"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"trellis-api/activity"
	"trellis-api/api"
	"trellis-api/config"
	"trellis-api/graph"
	"trellis-api/storage"
)

func main() {
	cfg, err := config.Parse()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	store, err := storage.New(cfg.StorageConnectionString, cfg.UsersTable, cfg.ProjectsTable, cfg.TasksTable)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	rc := redis.NewClient(redisOptions(cfg.RedisConnectionString))
	cache := storage.NewCache(store, rc, cfg.CacheTTL)

	queueOpts := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	queue, err := azqueue.NewQueueClientFromConnectionString(cfg.StorageConnectionString, cfg.ActivityQueue, &queueOpts)
	if err != nil {
		log.Fatalf("activity queue: %v", err)
	}

	logger := log.New()
	feed := activity.NewFeed(queue, cfg.ActivityWorkers, cfg.ActivityBuffer, cfg.ActivityTimeout, logger)
	defer feed.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	graphStore, err := graph.New(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
	cancel()
	if err != nil {
		log.Fatalf("graph: %v", err)
	}
	defer graphStore.Close(context.Background())

	var auth *api.Auth
	if cfg.JWKSURL != "" {
		jwks, err := keyfunc.Get(cfg.JWKSURL, keyfunc.Options{})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		auth = api.NewJWKSAuth(jwks, cfg.JWTAudience, cfg.JWTIssuer)
	} else {
		auth = api.NewAuth([]byte(cfg.JWTSecret), cfg.JWTAudience, cfg.JWTIssuer)
	}
	tokens := api.NewTokens([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.JWTAudience, cfg.TokenTTL)

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echoprometheus.NewMiddleware("trellis"))
	e.GET("/metrics", echoprometheus.NewHandler())

	api.Register(e, cache, graphStore, auth, tokens, feed, logger)

	listenAddr := cfg.ListenAddr
	if val, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}

// redisOptions accepts either a redis URL or the comma-separated
// host,password=...,ssl=... form used by managed caches.
func redisOptions(connStr string) *redis.Options {
	opts, err := redis.ParseURL(connStr)
	if err == nil {
		return opts
	}
	parts := strings.Split(connStr, ",")
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}
