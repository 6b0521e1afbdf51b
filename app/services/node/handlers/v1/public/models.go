package public

import (
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// transfer is the request the wallet page sends. The key material is used
// to sign the transfer on the node.
type transfer struct {
	PrivateKey string `json:"private_key" validate:"required"`
	PublicKey  string `json:"public_key" validate:"required"`
	Address    string `json:"blockchain_address" validate:"required"`
	Recipient  string `json:"recipient_address" validate:"required"`
	Amount     string `json:"amount" validate:"required,numeric"`
}

type tx struct {
	From      database.Address `json:"from"`
	FromName  string           `json:"from_name"`
	To        database.Address `json:"to"`
	ToName    string           `json:"to_name"`
	Value     float64          `json:"value"`
	PublicKey string           `json:"public_key,omitempty"`
	Signature string           `json:"signature,omitempty"`
}

type transactions struct {
	Count        int  `json:"transaction_count"`
	Transactions []tx `json:"transactions"`
}

type amount struct {
	Amount float64 `json:"amount"`
}

type status struct {
	Status string `json:"status"`
}

type chainStatus struct {
	Status      string `json:"status"`
	Blocks      int    `json:"blocks"`
	LatestBlock string `json:"latest_block"`
}
