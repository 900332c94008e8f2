package dto

import "time"

type WalletResponse struct {
	UserID       string `json:"userId"`
	Role         string `json:"role"`
	Status       string `json:"status"`
	BalanceCents int64  `json:"balance_cents"`
}

type MutationResponse struct {
	UserID          string `json:"userId"`
	TxID            string `json:"txId"`
	NewBalanceCents int64  `json:"new_balance_cents"`
}

type LedgerEntryResponse struct {
	ID            string    `json:"id"`
	AmountCents   int64     `json:"amount_cents"`
	BalanceBefore int64     `json:"balance_before"`
	BalanceAfter  int64     `json:"balance_after"`
	EntryType     string    `json:"entry_type"`
	Reference     string    `json:"reference,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
