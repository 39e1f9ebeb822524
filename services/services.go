package services

import (
	"net/url"
	"sort"
	"strings"

	"github.com/jrsteele09/go-meet-client/internal/config"
	"github.com/jrsteele09/go-meet-client/internal/errors"
)

// Descriptor is the fixed location of one backend service.
type Descriptor struct {
	Name      string            `json:"name"`
	BaseURL   string            `json:"baseUrl"`
	Endpoints map[string]string `json:"endpoints"` // endpoint key -> path
}

// Endpoint returns the path registered under key.
func (d Descriptor) Endpoint(key string) (string, bool) {
	p, ok := d.Endpoints[key]
	return p, ok
}

// Registry resolves logical service names. Implementations must be safe for
// concurrent reads and must not change after construction.
type Registry interface {
	Resolve(name string) (Descriptor, bool)
	ResolveBaseURL(name string) (string, bool)
	BuildURL(name, endpointPath string) (string, error)
	Endpoint(name, key string) (string, error)
	Names() []string
}

type staticRegistry struct {
	services map[string]Descriptor
}

var _ Registry = (*staticRegistry)(nil)

// New builds an immutable registry. Descriptors are copied; later changes to
// the arguments are not observed. A later descriptor with the same name
// replaces an earlier one.
func New(descriptors ...Descriptor) Registry {
	r := &staticRegistry{services: make(map[string]Descriptor, len(descriptors))}
	for _, d := range descriptors {
		endpoints := make(map[string]string, len(d.Endpoints))
		for k, v := range d.Endpoints {
			endpoints[k] = v
		}
		r.services[d.Name] = Descriptor{
			Name:      d.Name,
			BaseURL:   strings.TrimRight(d.BaseURL, "/"),
			Endpoints: endpoints,
		}
	}
	return r
}

// FromConfig builds the registry from loaded configuration.
func FromConfig(cfg config.ServicesConfig) Registry {
	svcs := cfg.GetServices()
	descriptors := make([]Descriptor, 0, len(svcs))
	for name, svc := range svcs {
		descriptors = append(descriptors, Descriptor{Name: name, BaseURL: svc.BaseURL, Endpoints: svc.Endpoints})
	}
	return New(descriptors...)
}

// Defaults returns the built-in registry with MEET_<KEY>_URL overrides applied.
func Defaults() Registry {
	return FromConfig(config.New())
}

func (r *staticRegistry) Resolve(name string) (Descriptor, bool) {
	d, ok := r.services[name]
	if !ok {
		return Descriptor{}, false
	}
	endpoints := make(map[string]string, len(d.Endpoints))
	for k, v := range d.Endpoints {
		endpoints[k] = v
	}
	d.Endpoints = endpoints
	return d, true
}

func (r *staticRegistry) ResolveBaseURL(name string) (string, bool) {
	d, ok := r.services[name]
	if !ok || d.BaseURL == "" {
		return "", false
	}
	return d.BaseURL, true
}

// BuildURL concatenates the base URL and endpointPath. Path segments are not
// escaped; use PathEscape or Join for dynamic values.
func (r *staticRegistry) BuildURL(name, endpointPath string) (string, error) {
	base, ok := r.ResolveBaseURL(name)
	if !ok {
		return "", errors.Wrapf(errors.ErrUnknownService, "service %q", name)
	}
	return base + endpointPath, nil
}

func (r *staticRegistry) Endpoint(name, key string) (string, error) {
	d, ok := r.services[name]
	if !ok {
		return "", errors.Wrapf(errors.ErrUnknownService, "service %q", name)
	}
	p, ok := d.Endpoints[key]
	if !ok {
		return "", errors.Wrapf(errors.ErrUnknownEndpoint, "%s endpoint %q", name, key)
	}
	return p, nil
}

func (r *staticRegistry) Names() []string {
	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PathEscape escapes a single dynamic path segment such as an ID or username.
// Empty, "." and ".." segments are rejected with errors.ErrInvalidSegment
// since they would resolve to a different resource.
func PathEscape(segment string) (string, error) {
	switch segment {
	case "", ".", "..":
		return "", errors.Wrapf(errors.ErrInvalidSegment, "%q", segment)
	}
	return url.PathEscape(segment), nil
}

// Join appends escaped segments to prefix, separated by "/".
func Join(prefix string, segments ...string) (string, error) {
	var b strings.Builder
	b.WriteString(strings.TrimRight(prefix, "/"))
	for _, s := range segments {
		escaped, err := PathEscape(s)
		if err != nil {
			return "", err
		}
		b.WriteByte('/')
		b.WriteString(escaped)
	}
	return b.String(), nil
}
