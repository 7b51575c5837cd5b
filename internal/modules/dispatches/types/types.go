package types

import "time"

// Dispatch is one digest submission recorded in the ledger.
type Dispatch struct {
	ID         string    `json:"id"`
	ISOYear    int       `json:"iso_year"`
	ISOWeek    int       `json:"iso_week"`
	WindowFrom time.Time `json:"window_from"`
	WindowTo   time.Time `json:"window_to"`
	Recipients int       `json:"recipients"`
	Simulated  bool      `json:"simulated"`
	SentAt     time.Time `json:"sent_at"`
}
