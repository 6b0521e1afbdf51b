package database

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math"

	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Set of error variables for transaction validation.
var (
	ErrInvalidAmount   = errors.New("amount must be a non-negative finite number")
	ErrBadSignature    = errors.New("signature does not verify")
	ErrAddressMismatch = errors.New("address does not match public key")
)

// =============================================================================

// Tx is the transactional information between two parties. This is the
// payload covered by the sender's signature.
type Tx struct {
	From  Address `json:"from"`  // Address of the wallet sending the value.
	To    Address `json:"to"`    // Address of the wallet receiving the value.
	Value float64 `json:"value"` // Monetary value received from this transaction.
}

// NewTx constructs a new transaction.
func NewTx(from Address, to Address, value float64) (Tx, error) {
	to, err := ToAddress(string(to))
	if err != nil {
		return Tx{}, fmt.Errorf("to: %w", err)
	}

	if !ValidAmount(value) {
		return Tx{}, ErrInvalidAmount
	}

	tx := Tx{
		From:  from,
		To:    to,
		Value: value,
	}

	return tx, nil
}

// Sign uses the specified private key to sign the transaction.
func (tx Tx) Sign(privateKey *ecdsa.PrivateKey) (SignedTx, error) {
	sig, err := signature.Sign(tx, privateKey)
	if err != nil {
		return SignedTx{}, err
	}

	signedTx := SignedTx{
		Tx:        tx,
		PublicKey: hexutil.Encode(crypto.FromECDSAPub(&privateKey.PublicKey)),
		Signature: hexutil.Encode(sig),
	}

	return signedTx, nil
}

// =============================================================================

// SignedTx is a signed version of the transaction. This is how wallets
// provide transactions for inclusion into the blockchain. Reward
// transactions are the only ones without a public key and signature.
type SignedTx struct {
	Tx
	PublicKey string `json:"public_key"` // Uncompressed public key of the sender.
	Signature string `json:"signature"`  // Signature over Tx in the [R|S|V] format.
}

// NewRewardTx constructs the synthetic transaction that pays the miner of
// a block.
func NewRewardTx(miner Address, reward float64) SignedTx {
	return SignedTx{
		Tx: Tx{
			From:  NetworkAddress,
			To:    miner,
			Value: reward,
		},
	}
}

// IsReward reports whether this transaction was produced by the network
// and not signed by a wallet.
func (tx SignedTx) IsReward() bool {
	return tx.From == NetworkAddress && tx.PublicKey == "" && tx.Signature == ""
}

// Verify checks the address derived from the embedded public key is the
// sender and that the signature was produced over the transaction by that
// key. It doesn't need any information from the blockchain.
func (tx SignedTx) Verify() error {
	if !ValidAmount(tx.Value) {
		return ErrInvalidAmount
	}

	// Balances are computed by comparing addresses, so only the checksummed
	// form is accepted for the recipient.
	if to, err := ToAddress(string(tx.To)); err != nil || to != tx.To {
		return fmt.Errorf("to: %w", ErrInvalidAddress)
	}

	pubBytes := common.FromHex(tx.PublicKey)
	publicKey, err := crypto.UnmarshalPubkey(pubBytes)
	if err != nil {
		return fmt.Errorf("public key: %w", ErrBadSignature)
	}

	if PublicKeyToAddress(*publicKey) != tx.From {
		return ErrAddressMismatch
	}

	sig, err := hexutil.Decode(tx.Signature)
	if err != nil {
		return fmt.Errorf("decode: %w", ErrBadSignature)
	}

	if err := signature.Verify(tx.Tx, pubBytes, sig); err != nil {
		return fmt.Errorf("%s: %w", err, ErrBadSignature)
	}

	// The recovery id is not covered by the check above.
	from, err := signature.FromAddress(tx.Tx, sig)
	if err != nil || Address(from) != tx.From {
		return fmt.Errorf("recovery id: %w", ErrBadSignature)
	}

	return nil
}

// UniqueKey returns the key that identifies the transfer. Signing is
// deterministic, so two transactions with the same key are the same
// transfer no matter how their signatures are encoded.
func (tx SignedTx) UniqueKey() string {
	return signature.Hash(tx.Tx)
}

// String implements the fmt.Stringer interface for logging.
func (tx SignedTx) String() string {
	return fmt.Sprintf("%s->%s:%g", tx.From, tx.To, tx.Value)
}

// =============================================================================

// ValidAmount reports whether the value can be transferred.
func ValidAmount(value float64) bool {
	return value >= 0 && !math.IsInf(value, 0) && !math.IsNaN(value)
}
