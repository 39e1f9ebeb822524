package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jrsteele09/go-meet-client/auth"
	"github.com/jrsteele09/go-meet-client/internal/config"
	"github.com/jrsteele09/go-meet-client/internal/metrics"
	"github.com/jrsteele09/go-meet-client/services"
	"github.com/jrsteele09/go-meet-client/sessions"
	"github.com/jrsteele09/go-meet-client/storage"
	"github.com/jrsteele09/go-meet-client/token/refresh"
	"github.com/jrsteele09/go-meet-client/transport"
	"github.com/jrsteele09/go-meet-client/users"
)

// meetClient is the SDK wired from configuration. One value plays the part
// of one signed-in user.
type meetClient struct {
	keeper   *refresh.Keeper
	profiles *users.Cache
	users    *users.Client
	auth     *auth.Service
	gatherer *prometheus.Registry
}

func newMeetClient(cfg config.Config) (*meetClient, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(reg)

	registry := services.FromConfig(cfg)
	tc, err := transport.New(registry,
		transport.WithTimeout(cfg.GetRequestTimeout()),
		transport.WithOrigin(cfg.GetOrigin()),
		transport.WithRejectStatuses(cfg.GetRejectStatuses()...),
		transport.WithMetrics(m),
	)
	if err != nil {
		return nil, err
	}

	tiers := []storage.Store{storage.NewMemoryStore()}
	if dir := cfg.GetCacheDir(); dir != "" {
		fs, err := storage.NewFileStore(dir)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, fs)
	}
	session := sessions.NewManager(tiers...)

	refresher := refresh.NewRefresher(tc, session, refresh.WithMetrics(m))
	profiles := users.NewCache(tc, session, users.WithCacheMetrics(m))
	authService, err := auth.NewService(tc, session, refresher,
		auth.WithProfileCache(profiles),
		auth.WithLoginPath(cfg.GetLoginPath()),
	)
	if err != nil {
		return nil, err
	}

	return &meetClient{
		keeper:   refresh.NewKeeper(refresher, session, cfg.GetRefreshInterval()),
		profiles: profiles,
		users:    users.NewClient(tc, profiles),
		auth:     authService,
		gatherer: reg,
	}, nil
}
