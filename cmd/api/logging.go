package api

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"

	"github.com/gorilla/handlers"
)

// Query parameters that carry credentials and must not reach the access log.
var redactedParams = []string{"token"}

func redactedURI(u url.URL) string {
	if u.RawQuery != "" {
		q := u.Query()
		for _, key := range redactedParams {
			if q.Has(key) {
				q.Set(key, "REDACTED")
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.RequestURI()
}

// combinedLog writes Apache Combined Log Format lines, like
// handlers.CombinedLoggingHandler, with credential query values blanked.
func combinedLog(w io.Writer, params handlers.LogFormatterParams) {
	req := params.Request

	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}

	uri := redactedURI(params.URL)
	if req.ProtoMajor == 2 && req.Method == http.MethodConnect {
		uri = req.Host
	}

	username := "-"
	if params.URL.User != nil {
		if name := params.URL.User.Username(); name != "" {
			username = name
		}
	}

	fmt.Fprintf(w, "%s - %s [%s] \"%s %s %s\" %d %d %q %q\n",
		host,
		username,
		params.TimeStamp.Format("02/Jan/2006:15:04:05 -0700"),
		req.Method,
		uri,
		req.Proto,
		params.StatusCode,
		params.Size,
		req.Referer(),
		req.UserAgent(),
	)
}
