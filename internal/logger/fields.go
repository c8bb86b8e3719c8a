package logger

import "log/slog"

// Standard field keys for structured logging. Use these keys consistently
// across all log statements so authentication events can be aggregated and
// queried uniformly.
const (
	// Distributed tracing
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// Request identification
	KeyRequestID  = "request_id"  // Admin API request ID
	KeyRemoteAddr = "remote_addr" // Caller address

	// Identity
	KeyUsername = "username" // Subject username
	KeyGroup    = "group"    // Group/role name
	KeyGroups   = "groups"   // Number of groups resolved

	// Database
	KeyDatabase   = "database"   // Database name
	KeyCollection = "collection" // Collection name
	KeyDescriptor = "descriptor" // Connection descriptor (host list)

	// Client cache
	KeyCacheHit = "cache_hit" // Cache hit indicator
	KeyEvicted  = "evicted"   // Number of entries evicted in a sweep

	// Operation metadata
	KeyOperation  = "operation"   // Operation name: authenticate, add_user, etc.
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
)

// TraceID returns a slog.Attr for an OpenTelemetry trace ID.
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for an OpenTelemetry span ID.
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// RequestID returns a slog.Attr for an API request ID.
func RequestID(id string) slog.Attr {
	return slog.String(KeyRequestID, id)
}

// RemoteAddr returns a slog.Attr for the caller address.
func RemoteAddr(addr string) slog.Attr {
	return slog.String(KeyRemoteAddr, addr)
}

// Username returns a slog.Attr for the subject username.
func Username(name string) slog.Attr {
	return slog.String(KeyUsername, name)
}

// Group returns a slog.Attr for a group/role name.
func Group(name string) slog.Attr {
	return slog.String(KeyGroup, name)
}

// Groups returns a slog.Attr for the number of groups resolved.
func Groups(n int) slog.Attr {
	return slog.Int(KeyGroups, n)
}

// Database returns a slog.Attr for the database name.
func Database(name string) slog.Attr {
	return slog.String(KeyDatabase, name)
}

// Collection returns a slog.Attr for a collection name.
func Collection(name string) slog.Attr {
	return slog.String(KeyCollection, name)
}

// Descriptor returns a slog.Attr for a connection descriptor.
func Descriptor(d string) slog.Attr {
	return slog.String(KeyDescriptor, d)
}

// CacheHit returns a slog.Attr for a cache hit indicator.
func CacheHit(hit bool) slog.Attr {
	return slog.Bool(KeyCacheHit, hit)
}

// Evicted returns a slog.Attr for the number of entries evicted.
func Evicted(n int) slog.Attr {
	return slog.Int(KeyEvicted, n)
}

// Operation returns a slog.Attr for an operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// DurationMs returns a slog.Attr for duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
