package entity

import (
	"time"
)

// WalletStats summarizes the indexed transfers of one wallet
type WalletStats struct {
	Address             string    `json:"address"`
	TransfersSent       int64     `json:"transfers_sent"`
	TransfersReceived   int64     `json:"transfers_received"`
	IncomingConnections int64     `json:"incoming_connections"`
	OutgoingConnections int64     `json:"outgoing_connections"`
	TokenCount          int64     `json:"token_count"`
	FirstSeen           time.Time `json:"first_seen"`
	LastSeen            time.Time `json:"last_seen"`
}

// TransferCount is the number of transfers in either direction
func (s *WalletStats) TransferCount() int64 {
	return s.TransfersSent + s.TransfersReceived
}
