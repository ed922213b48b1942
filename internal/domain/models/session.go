package models

import "time"

// SessionKey identifies one named trading session of the reference day.
type SessionKey string

const (
	SessionAsia       SessionKey = "ASIA"
	SessionLondon     SessionKey = "LONDON"
	SessionPremarket  SessionKey = "PREMARKET"
	SessionNYMorning  SessionKey = "NY_AM"
	SessionNYLunch    SessionKey = "NY_LUNCH"
	SessionNYAfternoon SessionKey = "NY_PM"
	SessionPostMarket SessionKey = "POST_MARKET"
	SessionWeekend    SessionKey = "WEEKEND"
)

// SessionDefinition is the static description of one session window.
// Start/End are minutes since midnight in the reference timezone; a window
// crossing midnight has End < Start and CrossesMidnight set.
type SessionDefinition struct {
	Key               SessionKey `json:"key"`
	Name              string     `json:"name"`
	StartMinute       int        `json:"startMinute"`
	EndMinute         int        `json:"endMinute"`
	CrossesMidnight   bool       `json:"crossesMidnight"`
	IBDurationMinutes int        `json:"ibDurationMinutes"`
	FocusInstruments  []string   `json:"focusInstruments,omitempty"`
}

// SessionWindow is the resolved state of the clock at one instant.
// Computed fresh on every query, never persisted.
type SessionWindow struct {
	Definition         SessionDefinition `json:"definition"`
	IsInitialBalance   bool              `json:"isInitialBalance"`
	IBMinutesRemaining int               `json:"ibMinutesRemaining"`
	LocalTime          time.Time         `json:"localTime"`
}

// Tick is a single price update from the ingestion path. Delta and Volume are
// cumulative counters supplied by the feed, not computed here.
type Tick struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
	Delta     float64 `json:"delta"`
	Timestamp int64   `json:"timestamp"` // unix seconds
}

// SweepEvent records a liquidity sweep of a tracked level.
type SweepEvent struct {
	Level     string    `json:"level"`
	Price     float64   `json:"price"`
	Time      time.Time `json:"time"`
	Reclaimed bool      `json:"reclaimed"`
}

// SessionLevels holds the mutable per-session price state. High/Low/Open/Close
// stay nil until the first tick of the session instance.
type SessionLevels struct {
	High   *float64     `json:"high"`
	Low    *float64     `json:"low"`
	Open   *float64     `json:"open"`
	Close  *float64     `json:"close"`
	Delta  float64      `json:"delta"`
	Volume float64      `json:"volume"`
	Sweeps []SweepEvent `json:"sweeps,omitempty"`
}

// InitialBalanceLevels tracks the IB range of a session. Complete flips to
// true exactly once, when the IB window elapses.
type InitialBalanceLevels struct {
	High     *float64 `json:"high"`
	Low      *float64 `json:"low"`
	Complete bool     `json:"complete"`
}
