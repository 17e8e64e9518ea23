package health

import "errors"

// ErrCircuitOpen is returned when a provider's circuit rejects the request.
var ErrCircuitOpen = errors.New("health: circuit breaker is open")
