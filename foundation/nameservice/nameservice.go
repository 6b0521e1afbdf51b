// Package nameservice reads the zblock/accounts folder and creates a name
// service lookup for the known addresses.
package nameservice

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ethereum/go-ethereum/crypto"
)

// keyExt is the extension of the key files read by the name service.
const keyExt = ".ecdsa"

// NameService maintains a map of addresses for name lookup.
type NameService struct {
	root      string
	addresses map[database.Address]string
}

// New constructs a name service with the key files found under root. A
// missing folder produces an empty name service.
func New(root string) (*NameService, error) {
	ns := NameService{
		root:      root,
		addresses: make(map[database.Address]string),
	}

	fn := func(fileName string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walkdir failure: %w", err)
		}

		if d.IsDir() || filepath.Ext(fileName) != keyExt {
			return nil
		}

		privateKey, err := crypto.LoadECDSA(fileName)
		if err != nil {
			return fmt.Errorf("loading %s: %w", fileName, err)
		}

		address := database.PublicKeyToAddress(privateKey.PublicKey)
		ns.addresses[address] = strings.TrimSuffix(filepath.Base(fileName), keyExt)

		return nil
	}

	if err := filepath.WalkDir(root, fn); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &ns, nil
		}
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	return &ns, nil
}

// Lookup returns the name for the specified address. An unknown address
// is returned as is.
func (ns *NameService) Lookup(address database.Address) string {
	name, exists := ns.addresses[address]
	if !exists {
		return string(address)
	}
	return name
}

// Copy returns a copy of the map of names and addresses.
func (ns *NameService) Copy() map[database.Address]string {
	cpy := make(map[database.Address]string, len(ns.addresses))
	for address, name := range ns.addresses {
		cpy[address] = name
	}
	return cpy
}

// PrivateKey loads the key file stored for the name. It returns an error
// matching fs.ErrNotExist when there is no key for the name.
func (ns *NameService) PrivateKey(name string) (*ecdsa.PrivateKey, error) {
	fileName := filepath.Join(ns.root, name+keyExt)

	if _, err := os.Stat(fileName); err != nil {
		return nil, err
	}

	privateKey, err := crypto.LoadECDSA(fileName)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", fileName, err)
	}

	return privateKey, nil
}
