package model

import "time"

// Device is a registered network endpoint. MAC addresses are stored lowercase
// and are not unique; ID is assigned by the store on insert.
type Device struct {
	ID           string
	MAC          string
	IP           string
	Hostname     string // empty when not provided
	RegisteredAt time.Time
}
