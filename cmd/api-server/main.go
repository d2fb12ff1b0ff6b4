// Package main API Server 入口
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mentorhub/internal/apiserver/auth"
	"mentorhub/internal/apiserver/server"
	"mentorhub/internal/config"
	"mentorhub/internal/shared/infra"
	"mentorhub/internal/shared/model"
	"mentorhub/pkg/logging"
)

func main() {
	configDir := flag.String("config", "", "config directory (overrides configs/ search)")
	flag.Parse()
	if *configDir != "" {
		config.SetConfigDir(*configDir)
	}

	// 加载配置（自动加载 .env，根据 APP_ENV 选择 YAML）
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	log.Printf("Starting API Server... [env=%s]", cfg.Env)
	log.Printf("Config: %s", cfg.String())

	// 初始化存储与可选的 Redis 吊销名单
	infraOpts := infra.Options{
		DatabaseDriver: cfg.DatabaseDriver,
		DatabaseURL:    cfg.DatabaseURL,
		DatabaseName:   cfg.DatabaseName,
	}
	if cfg.Auth.RevokeOnLogout {
		infraOpts.RedisURL = cfg.RedisURL
		if infraOpts.RedisURL == "" {
			log.Fatalf("AUTH_REVOKE_ON_LOGOUT requires redis (set REDIS_URL or redis.enabled)")
		}
	}
	deps, err := infra.New(infraOpts)
	if err != nil {
		log.Fatalf("Failed to initialize infrastructure: %v", err)
	}
	defer deps.Close()

	svc, err := newAuthService(cfg, deps, server.NewMetrics("mentorhub"))
	if err != nil {
		log.Fatalf("Failed to initialize auth: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := svc.service.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		cancel()
		log.Fatalf("Failed to ensure admin account: %v", err)
	}
	cancel()

	h := server.NewHandler(
		auth.NewHandler(svc.service, cfg.Auth.CookieSecure, logging.Default("auth")),
		svc.metrics,
		logging.Default("api-server"),
	)
	for name, p := range deps.HealthChecks() {
		h.AddHealthCheck(name, p)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 优雅关闭
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("API Server listening on :%s", cfg.APIPort)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	fmt.Println("Server stopped")
}

type authComponents struct {
	service *auth.Service
	metrics *server.Metrics
}

// newAuthService 组装口令哈希、令牌签发与认证服务
func newAuthService(cfg *config.Config, deps *infra.Infrastructure, metrics *server.Metrics) (*authComponents, error) {
	hasher, err := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}
	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)
	if err != nil {
		return nil, err
	}

	roles := make([]model.Role, 0, len(cfg.Auth.AllowedRoles))
	for _, raw := range cfg.Auth.AllowedRoles {
		role, ok := model.ParseRole(raw)
		if !ok {
			return nil, fmt.Errorf("unknown role %q in auth.allowed_roles", raw)
		}
		roles = append(roles, role)
	}

	opts := auth.Options{
		AllowedRoles:   roles,
		PasswordPolicy: auth.DefaultPasswordPolicy(),
		RecheckAccount: cfg.Auth.RecheckAccount,
		Logger:         logging.Default("auth"),
		Recorder:       metrics.RecordAuthOperation,
	}
	if deps.Denylist != nil {
		opts.Denylist = deps.Denylist
	}

	log.Printf("Auth: bcrypt cost=%d, token ttl=%s, roles=%v, revoke_on_logout=%v",
		hasher.Cost(), tokens.TTL(), roles, opts.Denylist != nil)
	return &authComponents{service: auth.NewService(deps.Accounts, hasher, tokens, opts), metrics: metrics}, nil
}
