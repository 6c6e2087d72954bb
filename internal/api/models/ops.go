package models

// Health is the body of the liveness and readiness probes.
type Health struct {
	Status    HealthStatus `json:"status"`
	Time      Timestamp    `json:"time"`
	Version   string       `json:"version,omitempty"`
	BuildTime string       `json:"buildTime,omitempty"`
	// UptimeSeconds is whole seconds since the process started.
	UptimeSeconds int64 `json:"uptimeSeconds,omitempty"`
}

// SystemStatus is the body of GET /v1/ops/status.
type SystemStatus struct {
	Status                 HealthStatus      `json:"status"`
	Time                   Timestamp         `json:"time"`
	Subsystems             []SubsystemStatus `json:"subsystems"`
	Endpoints              []EndpointStatus  `json:"endpoints"`
	ActiveDegradationFlags []string          `json:"activeDegradationFlags,omitempty"`
}

// SubsystemStatus reports one local dependency, such as the database.
type SubsystemStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail *string      `json:"detail,omitempty"`
}

// EndpointStatus reports an outbound delivery target such as the digest webhook.
type EndpointStatus struct {
	Name                string       `json:"name"`
	Status              HealthStatus `json:"status"`
	CircuitState        string       `json:"circuitState"`
	ConsecutiveFailures int          `json:"consecutiveFailures"`
	TotalDeliveries     int64        `json:"totalDeliveries"`
	TotalFailures       int64        `json:"totalFailures"`
	LastSuccessAt       *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *Timestamp   `json:"lastFailureAt,omitempty"`
	Message             *string      `json:"message,omitempty"`
}

// Rollup sets Status from the parts. A failed subsystem fails the whole
// system. Unhealthy endpoints and active degradation flags only degrade it,
// since feeds can still be served without digest delivery.
func (s *SystemStatus) Rollup() {
	s.Status = HealthStatusOK
	for _, sub := range s.Subsystems {
		if sub.Status == HealthStatusFail {
			s.Status = HealthStatusFail
			return
		}
	}
	for _, ep := range s.Endpoints {
		if ep.Status != HealthStatusOK {
			s.Status = HealthStatusDegraded
		}
	}
	if len(s.ActiveDegradationFlags) > 0 {
		s.Status = HealthStatusDegraded
	}
}
