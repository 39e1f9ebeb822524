package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	envPrefix    = "MEET_"
	serviceURLFm = "MEET_%s_URL"
)

// Service keys known to the built-in defaults.
const (
	ServiceAuth          = "auth"
	ServiceUsers         = "users"
	ServiceMeetings      = "meetings"
	ServiceChat          = "chat"
	ServiceCommunity     = "community"
	ServiceAnalytics     = "analytics"
	ServiceNotifications = "notifications"
)

// Defaults returns the built-in configuration.
func Defaults() *Settings {
	s := &Settings{}
	s.App.Name = "Meet Client"
	s.App.Env = "DEV"
	s.Log.Level = "info"
	s.HTTP.Timeout = 15 * time.Second
	s.Session.RefreshInterval = 10 * time.Minute // access cookie lives 15 minutes
	s.Session.RejectStatuses = []int{401}
	s.Session.LoginPath = "/login"
	s.Services = defaultServices()
	return s
}

func defaultServices() map[string]ServiceConfig {
	return map[string]ServiceConfig{
		ServiceAuth: {
			BaseURL: "http://localhost:8001/api/auth",
			Endpoints: map[string]string{
				"login":    "/login",
				"register": "/register",
				"refresh":  "/refresh",
				"logout":   "/logout",
				"sso":      "/sso",
			},
		},
		ServiceUsers: {
			BaseURL: "http://localhost:8002/api/users",
			Endpoints: map[string]string{
				"profile": "/profile",
				"edit":    "/edit",
				"lookup":  "/profile/",
			},
		},
		ServiceMeetings: {
			BaseURL: "http://localhost:8003/api",
			Endpoints: map[string]string{
				"meetings": "/meetings",
				"search":   "/meetings/search",
			},
		},
		ServiceChat: {
			BaseURL:   "http://localhost:8004/api/chat",
			Endpoints: map[string]string{"messages": "/messages"},
		},
		ServiceCommunity: {
			BaseURL:   "http://localhost:8005/api/community",
			Endpoints: map[string]string{"posts": "/posts"},
		},
		ServiceAnalytics: {
			BaseURL: "http://localhost:8006/api",
			Endpoints: map[string]string{
				"transcripts": "/analytics/transcripts",
				"reports":     "/analytics/reports",
			},
		},
		ServiceNotifications: {
			BaseURL: "http://localhost:8007/api",
			Endpoints: map[string]string{
				"notifications": "/notifications",
				"settings":      "/notifications/settings",
				"readAll":       "/notifications/read-all",
			},
		},
	}
}

// Normalize fills in zero values from the defaults so partially written
// files still produce a usable configuration.
func (s *Settings) Normalize() {
	d := Defaults()
	if s.App.Name == "" {
		s.App.Name = d.App.Name
	}
	if s.App.Env == "" {
		s.App.Env = d.App.Env
	}
	if s.Log.Level == "" {
		s.Log.Level = d.Log.Level
	}
	if s.HTTP.Timeout < 0 {
		s.HTTP.Timeout = 0
	}
	if s.Session.RefreshInterval <= 0 {
		s.Session.RefreshInterval = d.Session.RefreshInterval
	}
	if len(s.Session.RejectStatuses) == 0 {
		s.Session.RejectStatuses = d.Session.RejectStatuses
	}
	if s.Session.LoginPath == "" {
		s.Session.LoginPath = d.Session.LoginPath
	}
	if s.Services == nil {
		s.Services = map[string]ServiceConfig{}
	}
	for name, def := range d.Services {
		svc, ok := s.Services[name]
		if !ok {
			s.Services[name] = def
			continue
		}
		if svc.BaseURL == "" {
			svc.BaseURL = def.BaseURL
		}
		if svc.Endpoints == nil {
			svc.Endpoints = map[string]string{}
		}
		for k, v := range def.Endpoints {
			if _, ok := svc.Endpoints[k]; !ok {
				svc.Endpoints[k] = v
			}
		}
		s.Services[name] = svc
	}
}

// applyServiceOverrides replaces base URLs with MEET_<KEY>_URL when set.
func (s *Settings) applyServiceOverrides() {
	for name, svc := range s.Services {
		svc.BaseURL = GetEnv(ServiceURLVar(name), svc.BaseURL)
		s.Services[name] = svc
	}
}

// ServiceURLVar is the environment variable that overrides a service base URL.
func ServiceURLVar(service string) string {
	return fmt.Sprintf(serviceURLFm, strings.ToUpper(service))
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
