// Package wallet manages the key material used to sign transfers on the
// blockchain.
package wallet

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrInvalidKeyMaterial is returned when the supplied keys can't be decoded
// or don't belong together.
var ErrInvalidKeyMaterial = errors.New("invalid key material")

// =============================================================================

// KeyMaterial is the exported form of a wallet.
type KeyMaterial struct {
	PublicKey  string           `json:"public_key"`
	PrivateKey string           `json:"private_key"`
	Address    database.Address `json:"blockchain_address"`
}

// Wallet holds a private key and the address derived from it. A wallet is
// immutable once constructed.
type Wallet struct {
	privateKey *ecdsa.PrivateKey
	address    database.Address
}

// Create generates a wallet with a fresh key pair.
func Create() (Wallet, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return Wallet{}, fmt.Errorf("generating key: %w", err)
	}

	return New(privateKey), nil
}

// New constructs a wallet from an existing private key, like one loaded
// from disk with crypto.LoadECDSA.
func New(privateKey *ecdsa.PrivateKey) Wallet {
	return Wallet{
		privateKey: privateKey,
		address:    database.PublicKeyToAddress(privateKey.PublicKey),
	}
}

// Reconstruct rebuilds a wallet from key material supplied by a caller. The
// public key must belong to the private key and the address must be the one
// derived from them.
func Reconstruct(publicKey string, privateKey string, address string) (Wallet, error) {
	privateKey = strings.TrimPrefix(strings.TrimPrefix(privateKey, "0x"), "0X")

	privBytes, err := hex.DecodeString(privateKey)
	if err != nil {
		return Wallet{}, fmt.Errorf("private key: %w", ErrInvalidKeyMaterial)
	}

	pk, err := crypto.ToECDSA(privBytes)
	if err != nil {
		return Wallet{}, fmt.Errorf("private key: %w", ErrInvalidKeyMaterial)
	}

	pub, err := crypto.UnmarshalPubkey(common.FromHex(publicKey))
	if err != nil {
		return Wallet{}, fmt.Errorf("public key: %w", ErrInvalidKeyMaterial)
	}

	if !bytes.Equal(crypto.FromECDSAPub(pub), crypto.FromECDSAPub(&pk.PublicKey)) {
		return Wallet{}, fmt.Errorf("public key does not belong to private key: %w", ErrInvalidKeyMaterial)
	}

	w := New(pk)

	addr, err := database.ToAddress(address)
	if err != nil {
		return Wallet{}, fmt.Errorf("address: %w", ErrInvalidKeyMaterial)
	}

	if addr != w.address {
		return Wallet{}, database.ErrAddressMismatch
	}

	return w, nil
}

// Address returns the address for the wallet.
func (w Wallet) Address() database.Address {
	return w.address
}

// SignTransfer constructs a transaction moving the amount from this wallet
// to the recipient and signs it.
func (w Wallet) SignTransfer(to string, amount float64) (database.SignedTx, error) {
	if !database.ValidAmount(amount) {
		return database.SignedTx{}, database.ErrInvalidAmount
	}

	tx, err := database.NewTx(w.address, database.Address(to), amount)
	if err != nil {
		return database.SignedTx{}, err
	}

	return tx.Sign(w.privateKey)
}

// Export returns the key material for display or transport. This is the
// only way the private key leaves the wallet.
func (w Wallet) Export() KeyMaterial {
	return KeyMaterial{
		PublicKey:  hexutil.Encode(crypto.FromECDSAPub(&w.privateKey.PublicKey)),
		PrivateKey: hex.EncodeToString(crypto.FromECDSA(w.privateKey)),
		Address:    w.address,
	}
}

// PrivateKey returns the private key so it can be saved to disk.
func (w Wallet) PrivateKey() *ecdsa.PrivateKey {
	return w.privateKey
}
