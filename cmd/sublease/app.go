package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/example/sublease-marketplace/internal/application"
	"github.com/example/sublease-marketplace/internal/config"
	"github.com/example/sublease-marketplace/internal/geocode"
	httptransport "github.com/example/sublease-marketplace/internal/http"
	"github.com/example/sublease-marketplace/internal/mail"
	"github.com/example/sublease-marketplace/internal/persistence"
)

// app is the fully wired HTTP surface plus the resources it owns.
type app struct {
	Handler  http.Handler
	Registry *prometheus.Registry
	closers  []io.Closer
	logger   *slog.Logger
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Error("failed to release resource", "error", err)
		}
	}
}

func newApp(ctx context.Context, cfg config.Config, store persistence.Store, logger *slog.Logger) (*app, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a := &app{Registry: registry, logger: logger}

	geocoder, closer, err := newGeocoder(ctx, cfg, registry, logger)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	now := time.Now
	policy := application.SignupPolicy{
		EmailSuffix:         cfg.EmailSuffix,
		RequireVerification: cfg.RequireEmailVerification,
		AppURL:              cfg.AppURL,
		MailFrom:            cfg.MailFrom,
		Tokens:              application.NewVerificationTokens(cfg.SessionSecret, cfg.VerificationTTL, now),
		Mailer:              newMailer(cfg, logger),
	}

	userService := application.NewUserServiceWithLogger(store, policy, newID, now, logger)
	authService := application.NewAuthServiceWithLogger(store, nil, newToken, now, cfg.SessionTTL, logger)
	listingService := application.NewListingServiceWithLogger(store, geocoder, newID, now, logger)
	searchService := application.NewSearchServiceWithLogger(store, logger)
	bookingService := application.NewBookingServiceWithLogger(store, newID, now, logger)

	metrics, err := httptransport.NewMetrics(registry)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("register http metrics: %w", err)
	}

	a.Handler = httptransport.NewRouter(httptransport.RouterConfig{
		Auth:           httptransport.NewAuthHandler(authService, cfg.SecureCookies, logger),
		Users:          httptransport.NewUserHandler(userService, logger),
		Listings:       httptransport.NewListingHandler(listingService, searchService, logger),
		Bookings:       httptransport.NewBookingHandler(bookingService, logger),
		Sessions:       authService,
		Metrics:        metrics,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Logger:         logger,
	})
	return a, nil
}

// newGeocoder returns nil when no Google key is configured, which leaves listings without
// coordinates. Lookups are cached in Redis when an address is set, otherwise in process.
func newGeocoder(ctx context.Context, cfg config.Config, registerer prometheus.Registerer, logger *slog.Logger) (geocode.Geocoder, io.Closer, error) {
	if cfg.GoogleMapsKey == "" {
		logger.Info("geocoding disabled, SUBLEASE_GOOGLE_MAPS_KEY is not set")
		return nil, nil, nil
	}

	var (
		cache  geocode.Cache
		closer io.Closer
	)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		cache = geocode.NewRedisCache(client, cfg.GeocodeCacheTTL)
		closer = client
		logger.Info("geocode cache backed by redis", "addr", cfg.RedisAddr)
	} else {
		cache = geocode.NewLRUCache(cfg.GeocodeCacheSize, cfg.GeocodeCacheTTL)
	}

	cached, err := geocode.NewCachedGeocoder(geocode.NewGoogleClient(cfg.GoogleMapsKey, "", nil), cache, logger, registerer)
	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, nil, err
	}
	return cached, closer, nil
}

func newMailer(cfg config.Config, logger *slog.Logger) mail.Sender {
	if cfg.ResendAPIKey == "" {
		return mail.NewLogSender(logger)
	}
	return mail.NewResendSender(cfg.ResendAPIKey, "", nil)
}

func newID() string {
	return uuid.NewString()
}

// newToken returns 32 random bytes, hex encoded.
func newToken() string {
	buf := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return uuid.NewString() + uuid.NewString()
	}
	return hex.EncodeToString(buf)
}
