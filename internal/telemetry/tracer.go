package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for authentication and directory operations.
// These follow OpenTelemetry semantic conventions where applicable.
const (
	// ========================================================================
	// Client attributes
	// ========================================================================
	AttrClientIP   = "client.ip"
	AttrClientAddr = "client.address"

	// ========================================================================
	// User/Auth attributes
	// ========================================================================
	AttrUsername   = "user.name"
	AttrGroup      = "user.group"
	AttrGroupCount = "user.group_count"
	AttrAuthResult = "auth.result"
	AttrAuthScheme = "auth.scheme"
	AttrTokenType  = "auth.token_type"

	// ========================================================================
	// Directory store attributes
	// ========================================================================
	AttrOperation  = "store.operation"
	AttrStoreType  = "store.type"
	AttrDatabase   = "db.name"
	AttrCollection = "db.collection"
	AttrDescriptor = "db.descriptor"

	// ========================================================================
	// Cache attributes
	// ========================================================================
	AttrCacheHit     = "cache.hit"
	AttrCacheSize    = "cache.size"
	AttrCacheEvicted = "cache.evicted"
)

// Span names for operations.
// Format: <component>.<operation>
const (
	// Authentication spans
	SpanAuthLogin   = "auth.login"
	SpanAuthRefresh = "auth.refresh"
	SpanAuthResolve = "auth.resolve"

	// Store spans
	SpanStoreFindUser   = "store.find_user"
	SpanStoreFindGroups = "store.find_groups"
	SpanStoreListUsers  = "store.list_users"
	SpanStorePing       = "store.ping"

	// Cache spans
	SpanCacheAcquire = "cache.acquire"
)

// Username returns an attribute for username
func Username(name string) attribute.KeyValue {
	return attribute.String(AttrUsername, name)
}

// Group returns an attribute for group name
func Group(name string) attribute.KeyValue {
	return attribute.String(AttrGroup, name)
}

// GroupCount returns an attribute for the number of resolved groups
func GroupCount(n int) attribute.KeyValue {
	return attribute.Int(AttrGroupCount, n)
}

// AuthResult returns an attribute for authentication result
func AuthResult(result string) attribute.KeyValue {
	return attribute.String(AttrAuthResult, result)
}

// AuthScheme returns an attribute for the password scheme in use
func AuthScheme(scheme string) attribute.KeyValue {
	return attribute.String(AttrAuthScheme, scheme)
}

// TokenType returns an attribute for JWT token type
func TokenType(t string) attribute.KeyValue {
	return attribute.String(AttrTokenType, t)
}

// Operation returns an attribute for store operation name
func Operation(op string) attribute.KeyValue {
	return attribute.String(AttrOperation, op)
}

// StoreType returns an attribute for store implementation type
func StoreType(t string) attribute.KeyValue {
	return attribute.String(AttrStoreType, t)
}

// Database returns an attribute for database name
func Database(name string) attribute.KeyValue {
	return attribute.String(AttrDatabase, name)
}

// Collection returns an attribute for collection name
func Collection(name string) attribute.KeyValue {
	return attribute.String(AttrCollection, name)
}

// Descriptor returns an attribute for the endpoint descriptor
func Descriptor(d string) attribute.KeyValue {
	return attribute.String(AttrDescriptor, d)
}

// CacheHit returns an attribute for cache hit indicator
func CacheHit(hit bool) attribute.KeyValue {
	return attribute.Bool(AttrCacheHit, hit)
}

// CacheSize returns an attribute for cache size
func CacheSize(size int) attribute.KeyValue {
	return attribute.Int(AttrCacheSize, size)
}

// CacheEvicted returns an attribute for the number of evicted entries
func CacheEvicted(n int) attribute.KeyValue {
	return attribute.Int(AttrCacheEvicted, n)
}

// ClientIP returns an attribute for client IP address
func ClientIP(ip string) attribute.KeyValue {
	return attribute.String(AttrClientIP, ip)
}

// ClientAddr returns an attribute for client address (host:port)
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// StartAuthSpan starts a span for an authentication operation.
// This is a convenience function that sets common attributes.
func StartAuthSpan(ctx context.Context, operation, username string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Username(username),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "auth."+operation, trace.WithAttributes(allAttrs...))
}

// StartStoreSpan starts a span for a directory store operation.
func StartStoreSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Operation(operation),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "store."+operation, trace.WithAttributes(allAttrs...))
}

// StartCacheSpan starts a span for a client cache operation.
func StartCacheSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return StartSpan(ctx, "cache."+operation, trace.WithAttributes(attrs...))
}
