package api

import (
	"time"

	"github.com/sirupsen/logrus"
)

const maxLoggedBody = 512

// DebugRequest returns log fields describing req with credentials masked
func DebugRequest(req *SignedRequest) logrus.Fields {
	fields := logrus.Fields{
		"method":    req.Method,
		"path":      req.PathAndQuery,
		"timestamp": req.Timestamp,
		"key":       mask(req.Header.Get(HeaderKey)),
		"sign":      mask(req.Signature),
	}
	if len(req.Body) > 0 {
		fields["body"] = truncate(req.Body)
	}
	return fields
}

// DebugResponse returns log fields describing a raw response
func DebugResponse(statusCode int, body []byte, elapsed time.Duration) logrus.Fields {
	return logrus.Fields{
		"status":     statusCode,
		"body":       truncate(body),
		"elapsed_ms": elapsed.Milliseconds(),
	}
}

func mask(s string) string {
	if len(s) > 10 {
		return s[:6] + "..."
	}
	if s == "" {
		return ""
	}
	return "***"
}

func truncate(b []byte) string {
	if len(b) > maxLoggedBody {
		return string(b[:maxLoggedBody]) + "..."
	}
	return string(b)
}
