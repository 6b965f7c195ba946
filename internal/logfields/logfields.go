// Package logfields centralizes slog attribute names so field naming does not
// drift across packages.
package logfields

import "log/slog"

// Canonical log field name constants.
const (
	KeySlug       = "slug"
	KeyPath       = "path"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyCached     = "cached"
	KeyRequestID  = "request_id"
	KeyRemoteAddr = "remote_addr"
	KeyUserAgent  = "user_agent"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Slug(s string) slog.Attr          { return slog.String(KeySlug, s) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func Method(m string) slog.Attr        { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr        { return slog.Int(KeyStatus, code) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Cached(hit bool) slog.Attr        { return slog.Bool(KeyCached, hit) }
func RequestID(id string) slog.Attr    { return slog.String(KeyRequestID, id) }
func RemoteAddr(addr string) slog.Attr { return slog.String(KeyRemoteAddr, addr) }
func UserAgent(ua string) slog.Attr    { return slog.String(KeyUserAgent, ua) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
