// Package observability provides hooks for metrics and logging.
//
// The serialization core never imports a metrics or tracing backend. Instead
// it reports events to the hooks registered here, and the binary decides what
// to do with them (the CLI logs them at debug level).
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetSerdeHooks(&mySerdeHooks{})
//	    observability.SetSchemaHooks(&mySchemaHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	start := time.Now()
//	data, err := encode(...)
//	observability.Serde().OnSerialize("entity", 1, len(data), time.Since(start), err)
package observability

import (
	"sync"
	"time"
)

// =============================================================================
// Serde Hooks
// =============================================================================

// SerdeHooks receives events from the entity serializer and deserializer.
// The kind argument names the facade operation ("entity", "entities",
// "object").
type SerdeHooks interface {
	// OnSerialize records a finished serialization call.
	OnSerialize(kind string, count, size int, duration time.Duration, err error)

	// OnDeserialize records a finished deserialization call.
	OnDeserialize(kind string, count int, duration time.Duration, err error)

	// OnUnknownField records a JSON member that maps to no attribute.
	OnUnknownField(entity, field string)
}

// =============================================================================
// Schema Hooks
// =============================================================================

// SchemaHooks receives events from the metadata schema loader.
type SchemaHooks interface {
	// OnSchemaLoad records a schema load with the number of classes defined.
	OnSchemaLoad(source string, classes int, duration time.Duration, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopSerdeHooks is a no-op implementation of SerdeHooks.
type NoopSerdeHooks struct{}

func (NoopSerdeHooks) OnSerialize(string, int, int, time.Duration, error) {}
func (NoopSerdeHooks) OnDeserialize(string, int, time.Duration, error)     {}
func (NoopSerdeHooks) OnUnknownField(string, string)                       {}

// NoopSchemaHooks is a no-op implementation of SchemaHooks.
type NoopSchemaHooks struct{}

func (NoopSchemaHooks) OnSchemaLoad(string, int, time.Duration, error) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	serdeHooks  SerdeHooks  = NoopSerdeHooks{}
	schemaHooks SchemaHooks = NoopSchemaHooks{}
	hooksMu     sync.RWMutex
)

// SetSerdeHooks registers custom serde hooks.
// Nil is ignored.
func SetSerdeHooks(h SerdeHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		serdeHooks = h
	}
}

// SetSchemaHooks registers custom schema hooks.
// Nil is ignored.
func SetSchemaHooks(h SchemaHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		schemaHooks = h
	}
}

// Serde returns the registered serde hooks.
func Serde() SerdeHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return serdeHooks
}

// Schema returns the registered schema hooks.
func Schema() SchemaHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return schemaHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	serdeHooks = NoopSerdeHooks{}
	schemaHooks = NoopSchemaHooks{}
}
