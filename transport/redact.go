package transport

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

const redacted = "[present]"

// sensitiveHeaders are logged by presence only.
var sensitiveHeaders = map[string]struct{}{
	"Set-Cookie":    {},
	"Cookie":        {},
	"Authorization": {},
}

// headerDict renders response headers for the log, hiding credential values.
func headerDict(h http.Header) *zerolog.Event {
	d := zerolog.Dict()
	for k, vs := range h {
		if _, ok := sensitiveHeaders[http.CanonicalHeaderKey(k)]; ok {
			d.Str(k, redacted)
			continue
		}
		d.Str(k, strings.Join(vs, ", "))
	}
	return d
}

// redactURL drops the query string and any userinfo.
func redactURL(u *url.URL) string {
	cp := *u
	cp.User = nil
	cp.RawQuery = ""
	cp.Fragment = ""
	return cp.String()
}
