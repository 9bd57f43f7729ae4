package model

import "time"

// EntryKind is the kind of a balance change.
type EntryKind string

const (
	EntryKindAward  EntryKind = "award"
	EntryKindRedeem EntryKind = "redeem"
)

// LedgerEntry is one immutable audit record of a balance change.
// Entries are only ever inserted; ID order is insertion order.
type LedgerEntry struct {
	ID         uint      `json:"-" gorm:"primaryKey"`
	UserUID    string    `json:"-" gorm:"type:char(36);not null;index"`
	Kind       EntryKind `json:"type" gorm:"type:varchar(10);not null"`
	Amount     int64     `json:"amount" gorm:"not null"`
	Reason     *string   `json:"reason,omitempty" gorm:"size:100"`
	Serial     *string   `json:"serial,omitempty" gorm:"size:32;uniqueIndex"` // one award per device serial
	RewardName *string   `json:"name,omitempty" gorm:"size:255"`
	CreatedAt  time.Time `json:"at"`
}

// NewAwardEntry builds an award entry. Empty reason or serial are stored as NULL.
func NewAwardEntry(amount int64, reason, serial string) LedgerEntry {
	return LedgerEntry{
		Kind:   EntryKindAward,
		Amount: amount,
		Reason: optional(reason),
		Serial: optional(serial),
	}
}

// NewRedeemEntry builds a redeem entry for the named reward.
func NewRedeemEntry(cost int64, rewardName string) LedgerEntry {
	return LedgerEntry{
		Kind:       EntryKindRedeem,
		Amount:     cost,
		RewardName: optional(rewardName),
	}
}

// SignedDelta returns the balance change the entry represents.
func (e LedgerEntry) SignedDelta() int64 {
	if e.Kind == EntryKindRedeem {
		return -e.Amount
	}
	return e.Amount
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
