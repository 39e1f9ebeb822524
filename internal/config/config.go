package config

import (
	"time"
)

type Config interface {
	EnvConfig
	HTTPConfig
	SessionConfig
	CacheConfig
	ServicesConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetLogPretty() bool
}

type HTTPConfig interface {
	// GetRequestTimeout is the default budget for one outbound request. Zero disables it.
	GetRequestTimeout() time.Duration
	// GetOrigin is sent as the Origin header on cross-origin calls.
	GetOrigin() string
}

type SessionConfig interface {
	GetRefreshInterval() time.Duration
	GetRejectStatuses() []int
	GetLoginPath() string
}

type CacheConfig interface {
	// GetCacheDir is the directory of the long-lived profile cache. Empty means memory only.
	GetCacheDir() string
}

type ServicesConfig interface {
	GetServices() map[string]ServiceConfig
}

// ServiceConfig is the configured location of one backend service.
type ServiceConfig struct {
	BaseURL   string            `json:"baseUrl" yaml:"baseUrl"`
	Endpoints map[string]string `json:"endpoints" yaml:"endpoints"`
}

// Settings is the concrete configuration loaded by Load.
type Settings struct {
	App struct {
		Name string `json:"name" yaml:"name"`
		Env  string `json:"env" yaml:"env"`
	} `json:"app" yaml:"app"`

	Log struct {
		Level  string `json:"level" yaml:"level"`
		Pretty bool   `json:"pretty" yaml:"pretty"`
	} `json:"log" yaml:"log"`

	HTTP struct {
		Timeout time.Duration `json:"timeout" yaml:"timeout"`
		Origin  string        `json:"origin" yaml:"origin"`
	} `json:"http" yaml:"http"`

	Session struct {
		RefreshInterval time.Duration `json:"refreshInterval" yaml:"refreshInterval"`
		RejectStatuses  []int         `json:"rejectStatuses" yaml:"rejectStatuses"`
		LoginPath       string        `json:"loginPath" yaml:"loginPath"`
	} `json:"session" yaml:"session"`

	Cache struct {
		Dir string `json:"dir" yaml:"dir"`
	} `json:"cache" yaml:"cache"`

	Services map[string]ServiceConfig `json:"services" yaml:"services"`
}

var _ Config = (*Settings)(nil)

func (s *Settings) GetAppName() string                    { return s.App.Name }
func (s *Settings) GetEnv() string                        { return s.App.Env }
func (s *Settings) GetLogLevel() string                   { return s.Log.Level }
func (s *Settings) GetLogPretty() bool                    { return s.Log.Pretty }
func (s *Settings) GetRequestTimeout() time.Duration      { return s.HTTP.Timeout }
func (s *Settings) GetOrigin() string                     { return s.HTTP.Origin }
func (s *Settings) GetRefreshInterval() time.Duration     { return s.Session.RefreshInterval }
func (s *Settings) GetLoginPath() string                  { return s.Session.LoginPath }
func (s *Settings) GetCacheDir() string                   { return s.Cache.Dir }
func (s *Settings) GetServices() map[string]ServiceConfig { return s.Services }

func (s *Settings) GetRejectStatuses() []int {
	out := make([]int, len(s.Session.RejectStatuses))
	copy(out, s.Session.RejectStatuses)
	return out
}

// New returns the built-in defaults with the per-service environment
// overrides applied.
func New() Config {
	s := Defaults()
	s.applyServiceOverrides()
	return s
}
