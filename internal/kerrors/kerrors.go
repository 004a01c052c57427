// Package kerrors defines the error taxonomy shared across the core.
//
// Tool and router boundaries never let these escape as Go panics or raw
// errors to the transport: they are converted into ❌/✅/⚠️-prefixed
// strings. The registry, the team cache, and the startup validator are the
// layers allowed to return these to their caller, because their callers
// (the process supervisor, a startup phase) are positioned to decide the
// lifecycle outcome.
package kerrors

import "errors"

// Sentinel errors. Wrap with fmt.Errorf("...: %w", Sentinel) to attach
// detail while keeping errors.Is/errors.As working at every boundary.
var (
	// ErrStoreUnavailable signals a transport failure to the document store.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNotFound signals a domain miss (no document with that id/filter).
	ErrNotFound = errors.New("not found")

	// ErrConstraintViolation signals a unique-key collision (phone, telegram id).
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrServiceNotFound signals a registry miss for a requested service name.
	ErrServiceNotFound = errors.New("service not found")

	// ErrServiceRegistration signals a bad or duplicate service registration.
	ErrServiceRegistration = errors.New("service registration error")

	// ErrCircuitBreakerOpen signals the health checker refused to probe a service.
	ErrCircuitBreakerOpen = errors.New("circuit breaker open")

	// ErrPermissionDenied signals the router's authorization gate denied a command.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrValidation signals a tool parameter failed validation.
	ErrValidation = errors.New("validation error")

	// ErrConfiguration signals a missing/unparseable configuration value. Fatal at
	// startup; never raised at runtime.
	ErrConfiguration = errors.New("configuration error")

	// ErrTransientTransport signals a recoverable Telegram/HTTP hiccup.
	ErrTransientTransport = errors.New("transient transport error")
)

// Kind classifies an error into the taxonomy of spec §7, for callers that
// need to branch on error class rather than use errors.Is directly (e.g.
// the startup validator's phase report, the health checker's metadata).
type Kind string

const (
	KindStoreUnavailable  Kind = "STORE_UNAVAILABLE"
	KindNotFound          Kind = "NOT_FOUND"
	KindConstraint        Kind = "CONSTRAINT_VIOLATION"
	KindServiceNotFound   Kind = "SERVICE_NOT_FOUND"
	KindServiceRegFailed  Kind = "SERVICE_REGISTRATION_ERROR"
	KindCircuitOpen       Kind = "CIRCUIT_BREAKER_OPEN"
	KindPermissionDenied  Kind = "PERMISSION_DENIED"
	KindValidation        Kind = "VALIDATION_ERROR"
	KindConfiguration     Kind = "CONFIGURATION_ERROR"
	KindTransientTransport Kind = "TRANSIENT_TRANSPORT_ERROR"
	KindUnknown           Kind = "UNKNOWN"
)

// Classify maps an error to its taxonomy Kind by walking the wrap chain,
// mirroring the shape of the teacher's engine.ClassifyError but dispatching
// on wrapped sentinels instead of substring matches, since these errors
// originate inside the core rather than from a vendor SDK's error strings.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrStoreUnavailable):
		return KindStoreUnavailable
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConstraintViolation):
		return KindConstraint
	case errors.Is(err, ErrServiceNotFound):
		return KindServiceNotFound
	case errors.Is(err, ErrServiceRegistration):
		return KindServiceRegFailed
	case errors.Is(err, ErrCircuitBreakerOpen):
		return KindCircuitOpen
	case errors.Is(err, ErrPermissionDenied):
		return KindPermissionDenied
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrTransientTransport):
		return KindTransientTransport
	default:
		return KindUnknown
	}
}

// UserString renders an error as a user-facing ❌-prefixed string per §7's
// presentation rule. Never includes a stack trace.
func UserString(err error) string {
	if err == nil {
		return ""
	}
	return "❌ " + err.Error()
}
