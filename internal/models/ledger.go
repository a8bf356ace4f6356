package models

import "time"

// LedgerEntry is one attestation in the append-only scam ledger.
// Sequence is assigned under mutual exclusion and never reused.
type LedgerEntry struct {
	Sequence    int64     `db:"sequence" json:"sequence"`
	Fingerprint string    `db:"fingerprint" json:"fingerprint"`
	Category    string    `db:"category" json:"category"`
	PseudoTxID  string    `db:"pseudo_tx_id" json:"pseudo_tx_id"`
	PseudoBlock int64     `db:"pseudo_block" json:"pseudo_block"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
