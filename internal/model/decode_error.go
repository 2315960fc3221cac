package model

import "fmt"

// DecodeError records a decode failure for a single log.
type DecodeError struct {
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`
	Address     string `json:"address"`
	Topic0      string `json:"topic0"`
	Reason      string `json:"error"`
	Err         error  `json:"-"`
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode log %s:%d (block %d): %s", e.TxHash, e.LogIndex, e.BlockNumber, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
