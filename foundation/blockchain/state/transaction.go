package state

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// Set of error variables for transaction admission.
var (
	ErrRejectedTransaction  = errors.New("transaction rejected")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrDuplicateTransaction = errors.New("transaction already submitted")
)

// =============================================================================

// SubmitTransaction accepts a transaction from a wallet for inclusion. The
// transaction is verified and then appended to the mempool in arrival order.
// A transaction that fails verification is dropped.
func (s *State) SubmitTransaction(tx database.SignedTx) error {
	if err := tx.Verify(); err != nil {
		s.evHandler("state: SubmitTransaction: REJECTED: tx[%s]: %s", tx, err)
		return fmt.Errorf("%w: %w", ErrRejectedTransaction, err)
	}

	count, err := s.admit(tx)
	if err != nil {
		s.evHandler("state: SubmitTransaction: REJECTED: tx[%s]: %s", tx, err)
		return fmt.Errorf("%w: %w", ErrRejectedTransaction, err)
	}

	s.evHandler("state: SubmitTransaction: tx[%s]: mempool[%d]", tx, count)

	if s.Worker != nil {
		s.Worker.SignalStartMining()
	}

	return nil
}

// =============================================================================

// admit adds the verified transaction to the mempool under the state lock.
// A transaction with the key of a sealed or pending one is the same
// transfer submitted again.
func (s *State) admit(tx database.SignedTx) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := tx.UniqueKey()
	if _, exists := s.sealed[key]; exists {
		return 0, fmt.Errorf("%w: sealed", ErrDuplicateTransaction)
	}

	pending := s.mempool.Copy()
	for _, ptx := range pending {
		if ptx.UniqueKey() == key {
			return 0, fmt.Errorf("%w: pending", ErrDuplicateTransaction)
		}
	}

	if s.genesis.RequireFunds {
		available := s.balanceOf(tx.From)
		for _, ptx := range pending {
			if ptx.From == tx.From {
				available -= ptx.Value
			}
		}

		if available < tx.Value {
			return 0, fmt.Errorf("%w, available %g, needed %g", ErrInsufficientFunds, available, tx.Value)
		}
	}

	s.mempool.Add(tx)

	return s.mempool.Count(), nil
}
