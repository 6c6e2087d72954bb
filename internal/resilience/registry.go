package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// EndpointHealth is a point-in-time view of a delivery endpoint.
type EndpointHealth struct {
	Name          string
	CircuitState  gobreaker.State
	Counts        gobreaker.Counts
	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	LastError     string

	// ConsecutiveFailures counts deliveries that failed since the last success.
	ConsecutiveFailures int
	TotalDeliveries     int64
	TotalFailures       int64
}

// IsHealthy reports a closed breaker and a successful last delivery.
func (h *EndpointHealth) IsHealthy() bool {
	return h.CircuitState == gobreaker.StateClosed && h.ConsecutiveFailures == 0
}

// IsDegraded reports a half-open breaker, or a closed one whose last delivery failed.
func (h *EndpointHealth) IsDegraded() bool {
	switch h.CircuitState {
	case gobreaker.StateHalfOpen:
		return true
	case gobreaker.StateClosed:
		return h.ConsecutiveFailures > 0
	default:
		return false
	}
}

// IsUnhealthy reports an open breaker.
func (h *EndpointHealth) IsUnhealthy() bool {
	return h.CircuitState == gobreaker.StateOpen
}

// Registry tracks delivery endpoints and the outcome of their deliveries.
type Registry struct {
	mu        sync.RWMutex
	endpoints map[string]*endpoint
	now       func() time.Time
}

type endpoint struct {
	client              *Client
	lastSuccessAt       *time.Time
	lastFailureAt       *time.Time
	lastError           string
	consecutiveFailures int
	deliveries          int64
	failures            int64
}

// GlobalRegistry is the process-wide registry served by the status endpoint.
var GlobalRegistry = NewRegistry()

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		endpoints: make(map[string]*endpoint),
		now:       time.Now,
	}
}

// Register adds a client under its name. Registering the same name again
// replaces the client and resets its history.
func (r *Registry) Register(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints[client.Name()] = &endpoint{client: client}
}

// Record stores the outcome of one delivery. Unknown names are ignored.
func (r *Registry) Record(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ep, ok := r.endpoints[name]
	if !ok {
		return
	}

	now := r.now()
	ep.deliveries++
	if err == nil {
		ep.lastSuccessAt = &now
		ep.consecutiveFailures = 0
		return
	}

	ep.lastFailureAt = &now
	ep.lastError = err.Error()
	ep.consecutiveFailures++
	ep.failures++
}

// GetHealth returns the health of one endpoint, or nil when it is not registered.
func (r *Registry) GetHealth(name string) *EndpointHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ep, ok := r.endpoints[name]
	if !ok {
		return nil
	}
	return ep.health(name)
}

// GetAllHealth returns the health of every endpoint, ordered by name.
func (r *Registry) GetAllHealth() []*EndpointHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*EndpointHealth, 0, len(r.endpoints))
	for name, ep := range r.endpoints {
		out = append(out, ep.health(name))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// EndpointNames returns the registered endpoint names in order.
func (r *Registry) EndpointNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.endpoints))
	for name := range r.endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (ep *endpoint) health(name string) *EndpointHealth {
	return &EndpointHealth{
		Name:                name,
		CircuitState:        ep.client.CircuitBreakerState(),
		Counts:              ep.client.CircuitBreakerCounts(),
		LastSuccessAt:       ep.lastSuccessAt,
		LastFailureAt:       ep.lastFailureAt,
		LastError:           ep.lastError,
		ConsecutiveFailures: ep.consecutiveFailures,
		TotalDeliveries:     ep.deliveries,
		TotalFailures:       ep.failures,
	}
}
