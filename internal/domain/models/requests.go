package models

// Requests for the HTTP endpoints. Defined in domain for consistency and reuse.

type ViewRequest struct {
	Kind    string `param:"kind" json:"kind" validate:"required,oneof=command-center market-brief dashboard reports-calendar weather-report"`
	Refresh bool   `query:"refresh" json:"refresh"`
}

type SessionQueryRequest struct {
	At string `query:"at" json:"at"` // RFC3339 or unix seconds; empty means now
}

type TickRequest struct {
	Symbol    string  `json:"symbol" validate:"required"`
	Price     float64 `json:"price" validate:"required,gt=0"`
	Volume    float64 `json:"volume" validate:"gte=0"`
	Delta     float64 `json:"delta"`
	Timestamp int64   `json:"timestamp" validate:"gte=0"`
}

type SweepRequest struct {
	Level     string  `json:"level" validate:"required"`
	Price     float64 `json:"price" validate:"required,gt=0"`
	Reclaimed bool    `json:"reclaimed"`
	Timestamp int64   `json:"timestamp" validate:"gte=0"`
}
