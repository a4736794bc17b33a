package domain

import "time"

// SLAMetric names the duration being constrained by a target.
type SLAMetric string

const (
	MetricResponseTime   SLAMetric = "RESPONSE_TIME"
	MetricResolutionTime SLAMetric = "RESOLUTION_TIME"
)

// SLAPolicy scopes a set of targets to one entity kind. At most one policy
// per kind carries IsDefault.
type SLAPolicy struct {
	ID         string
	Name       string
	EntityType TicketKind
	IsDefault  bool
	Targets    []SLATarget
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SLATarget binds a priority and metric to a maximum duration in minutes.
type SLATarget struct {
	ID            string
	PolicyID      string
	Priority      TicketPriority
	Metric        SLAMetric
	TargetMinutes int
}
