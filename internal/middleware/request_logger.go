package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"storefront/internal/logging"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	reqBodyLimit  = 8 * 1024 // 8KB
	respBodyLimit = 8 * 1024 // 8KB
)

var redactedKeys = map[string]struct{}{
	"password":      {},
	"authorization": {},
	"token":         {},
	"accesstoken":   {},
	"secret":        {},
}

type bodyLogWriter struct {
	http.ResponseWriter
	buf *bytes.Buffer
}

func (w *bodyLogWriter) Write(b []byte) (int, error) {
	if remain := respBodyLimit - w.buf.Len(); remain > 0 {
		if len(b) > remain {
			w.buf.Write(b[:remain])
		} else {
			w.buf.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

func (w *bodyLogWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// RedactJSON masks credential-like fields at any depth. Non-JSON input is
// returned as is.
func RedactJSON(raw []byte) []byte {
	if len(raw) == 0 {
		return raw
	}
	var m any
	if err := json.Unmarshal(raw, &m); err != nil {
		return raw
	}
	var scrub func(any) any
	scrub = func(x any) any {
		switch v := x.(type) {
		case map[string]any:
			for k, val := range v {
				if _, ok := redactedKeys[strings.ToLower(k)]; ok {
					v[k] = "***redacted***"
					continue
				}
				v[k] = scrub(val)
			}
			return v
		case []any:
			for i := range v {
				v[i] = scrub(v[i])
			}
			return v
		default:
			return v
		}
	}
	b, err := json.Marshal(scrub(m))
	if err != nil {
		return raw
	}
	return b
}

func readCapped(rc io.ReadCloser, n int) (body []byte, truncated bool) {
	defer rc.Close()
	var buf bytes.Buffer
	_, _ = io.CopyN(&buf, rc, int64(n+1))
	b := buf.Bytes()
	if len(b) > n {
		return b[:n], true
	}
	return b, false
}

// RequestLogger injects a request-scoped logger (req_id, method, route,
// remote) and writes one line per request. Bodies are logged, redacted,
// only when logBodies is set.
func RequestLogger(base *slog.Logger, logBodies bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			reqID := req.Header.Get(echo.HeaderXRequestID)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, reqID)

			l := base.With(
				"req_id", reqID,
				"method", req.Method,
				"path", c.Path(),
				"remote", c.RealIP(),
			)
			logging.With(c, l)

			var reqBody string
			var blw *bodyLogWriter
			if logBodies {
				if strings.Contains(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) && req.Body != nil {
					body, truncated := readCapped(req.Body, reqBodyLimit)
					c.Request().Body = io.NopCloser(bytes.NewReader(body))
					reqBody = string(RedactJSON(body))
					if truncated {
						reqBody += "...truncated..."
					}
				}
				blw = &bodyLogWriter{ResponseWriter: c.Response().Writer, buf: &bytes.Buffer{}}
				c.Response().Writer = blw
			}

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			res := c.Response()
			attrs := []any{
				"status", res.Status,
				"dur_ms", time.Since(start).Milliseconds(),
				"resp_bytes", res.Size,
			}
			if reqBody != "" {
				attrs = append(attrs, "req_body", reqBody)
			}
			if blw != nil && strings.Contains(res.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
				respBody := string(RedactJSON(blw.buf.Bytes()))
				if blw.buf.Len() >= respBodyLimit {
					respBody += "...truncated..."
				}
				attrs = append(attrs, "resp_body", respBody)
			}
			if err != nil {
				attrs = append(attrs, "error", err.Error())
			}

			l = logging.From(c)
			switch {
			case res.Status >= http.StatusInternalServerError:
				l.Error("http_request", attrs...)
			case res.Status >= http.StatusBadRequest:
				l.Warn("http_request", attrs...)
			default:
				l.Info("http_request", attrs...)
			}
			return nil
		}
	}
}
