package main

import (
	"context"
	"crypto/tls"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/ellevenagent/project-dashboard/api"
	"github.com/ellevenagent/project-dashboard/storage"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.New()

	cfg := storage.Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		FilePath:    os.Getenv("TASKS_FILE"),
	}

	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		redisOpts, err := redis.ParseURL(redisConn)
		if err != nil {
			parts := strings.Split(redisConn, ",")
			redisOpts = &redis.Options{Addr: parts[0]}
			for _, p := range parts[1:] {
				kv := strings.SplitN(p, "=", 2)
				if len(kv) != 2 {
					continue
				}
				switch strings.ToLower(kv[0]) {
				case "password":
					redisOpts.Password = kv[1]
				case "ssl":
					if strings.ToLower(kv[1]) == "true" {
						redisOpts.TLSConfig = &tls.Config{}
					}
				}
			}
		}
		cfg.Redis = redis.NewClient(redisOpts)
		cfg.CacheTTL = 30 * time.Second
		if v := os.Getenv("CACHE_TTL"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				log.Fatalf("invalid CACHE_TTL: %v", err)
			}
			cfg.CacheTTL = d
		}
	}

	store := storage.Open(context.Background(), cfg, logger)

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	server := api.NewServer(store, logger)
	server.Register(e)
	defer server.Shutdown()

	staticDir := os.Getenv("STATIC_DIR")
	if staticDir == "" {
		staticDir = "public"
	}
	e.Static("/", staticDir)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}
