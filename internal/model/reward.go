package model

// Reward is an item of the redemption catalog.
type Reward struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Points int64  `json:"points"`
	Image  string `json:"img,omitempty"`
}
