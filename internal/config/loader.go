package config

import (
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/jrsteele09/go-meet-client/internal/errors"
)

// knownKeys are the scalar settings that MEET_ environment variables may target.
var knownKeys = []string{
	"app.name",
	"app.env",
	"log.level",
	"log.pretty",
	"http.timeout",
	"http.origin",
	"session.refreshInterval",
	"session.rejectStatuses",
	"session.loginPath",
	"cache.dir",
}

// Load reads configuration from the built-in defaults, then the optional YAML
// file at path, then MEET_ environment variables. Per-service base URL
// overrides (MEET_<KEY>_URL) are applied last and always win.
func Load(path string) (*Settings, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Wrapf(err, "config file %s", path)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        envPrefix,
		TransformFunc: transformEnv,
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables")
	}

	cfg := Defaults()
	// Decode over the defaults; keys absent from koanf keep their default.
	cfg.Services = nil
	cfg.Session.RejectStatuses = nil
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "yaml",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			MatchName: func(mapKey, fieldName string) bool {
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}

	cfg.Normalize()
	cfg.applyServiceOverrides()
	return cfg, nil
}

// transformEnv maps MEET_SESSION_REFRESH_INTERVAL to session.refreshInterval.
// Service URL overrides are skipped here and handled by applyServiceOverrides.
func transformEnv(k, v string) (string, any) {
	raw := strings.ToLower(strings.TrimPrefix(k, envPrefix))
	if strings.HasSuffix(raw, "_url") && !strings.Contains(strings.TrimSuffix(raw, "_url"), "_") {
		return "", nil
	}
	return canonicalKey(raw), v
}

func canonicalKey(raw string) string {
	needle := squash(raw)
	for _, key := range knownKeys {
		if squash(key) == needle {
			return key
		}
	}
	return strings.ReplaceAll(raw, "_", ".")
}

func squash(s string) string {
	return strings.NewReplacer(".", "", "_", "").Replace(strings.ToLower(s))
}
