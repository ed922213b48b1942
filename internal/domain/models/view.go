package models

import "time"

// ViewKind names one aggregated-view flavor. Each kind has its own TTL and
// build pipeline.
type ViewKind string

const (
	ViewCommandCenter   ViewKind = "command-center"
	ViewMarketBrief     ViewKind = "market-brief"
	ViewDashboard       ViewKind = "dashboard"
	ViewReportsCalendar ViewKind = "reports-calendar"
	ViewWeatherReport   ViewKind = "weather-report"
)

// AggregatedView is the assembled payload of one aggregation cycle. Sections
// that a given kind does not produce stay nil. Failures lists sources that
// were unavailable this cycle, keyed by source name.
type AggregatedView struct {
	Kind        ViewKind  `json:"kind"`
	GeneratedAt time.Time `json:"generatedAt"`
	Stale       bool      `json:"stale"`

	Session        *SessionWindow        `json:"session,omitempty"`
	Levels         *SessionLevels        `json:"levels,omitempty"`
	InitialBalance *InitialBalanceLevels `json:"initialBalance,omitempty"`

	Drivers []Driver `json:"drivers,omitempty"`
	Bias    *NetBias `json:"bias,omitempty"`

	Quotes       map[string]Observation `json:"quotes,omitempty"`
	Sectors      map[string]Observation `json:"sectors,omitempty"`
	Constituents map[string]Observation `json:"constituents,omitempty"`
	News         []NewsItem             `json:"news,omitempty"`
	Calendar     []ReportEvent          `json:"calendar,omitempty"`

	Failures map[string]string `json:"failures,omitempty"`
}
