package logging

import "log/slog"

// Common field names for consistent logging across services.
const (
	FieldService       = "service"
	FieldTenantID      = "tenant_id"
	FieldWorkerID      = "worker_id"
	FieldPersonality   = "personality"
	FieldServiceDomain = "service_domain"
	FieldJobID         = "job_id"
	FieldEventCount    = "event_count"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldStatus        = "status"
	FieldDuration      = "duration_ms"
	FieldError         = "error"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// TenantID returns a slog attribute for the tenant ID.
func TenantID(id string) slog.Attr {
	return slog.String(FieldTenantID, id)
}

// WorkerID returns a slog attribute for the worker ID.
func WorkerID(id string) slog.Attr {
	return slog.String(FieldWorkerID, id)
}

// Personality returns a slog attribute for the worker personality.
func Personality(p string) slog.Attr {
	return slog.String(FieldPersonality, p)
}

// ServiceDomain returns a slog attribute for the routing service domain.
func ServiceDomain(d string) slog.Attr {
	return slog.String(FieldServiceDomain, d)
}

// JobID returns a slog attribute for a durable delivery job ID.
func JobID(id string) slog.Attr {
	return slog.String(FieldJobID, id)
}

// EventCount returns a slog attribute for an event batch size.
func EventCount(n int) slog.Attr {
	return slog.Int(FieldEventCount, n)
}

// Method returns a slog attribute for the HTTP method.
func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

// Path returns a slog attribute for the HTTP path.
func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

// Status returns a slog attribute for the HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error value.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}
