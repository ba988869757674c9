package domain

import "time"

// TxType categorizes a treasury movement.
type TxType string

const (
	TxDeposit TxType = "DEPOSIT" // donor → system pool (task funding)
	TxPayout  TxType = "PAYOUT"  // system pool → participant
	TxMint    TxType = "MINT"    // faucet credit on local networks
)

// EntryType is the side of a double-entry row.
type EntryType string

const (
	EntryDebit  EntryType = "DEBIT"
	EntryCredit EntryType = "CREDIT"
)

// LedgerEntry is one side of a treasury movement.
// Every movement writes a DEBIT and a matching CREDIT.
type LedgerEntry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      TxType    `json:"type"`
	EntryType EntryType `json:"entry_type"`
	Account   Principal `json:"account"`
	Amount    Balance   `json:"amount"`
	Memo      string    `json:"memo,omitempty"`
	Balance   Balance   `json:"balance"` // account balance after this entry
}
