package state

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// QueryBalance returns the net amount for the address over every sealed
// block. Transactions still in the mempool are not included.
func (s *State) QueryBalance(address database.Address) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.balanceOf(address)
}

// QueryTransactions returns a copy of every sealed transaction in
// chain order.
func (s *State) QueryTransactions() []database.SignedTx {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trans := []database.SignedTx{}
	for _, block := range s.blocks {
		trans = append(trans, block.Trans...)
	}

	return trans
}

// QueryTransactionsByAddress returns a copy of the sealed transactions where
// the address is the sender or the recipient.
func (s *State) QueryTransactionsByAddress(address database.Address) []database.SignedTx {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trans := []database.SignedTx{}
	for _, block := range s.blocks {
		for _, tx := range block.Trans {
			if tx.From == address || tx.To == address {
				trans = append(trans, tx)
			}
		}
	}

	return trans
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// VerifyChain walks the entire chain and checks every block is solved,
// holds the transactions it claims to, and links to its parent.
func (s *State) VerifyChain() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return VerifyBlocks(s.blocks, s.evHandler)
}

// VerifyBlocks checks a chain of blocks, genesis first, the way VerifyChain
// does. It is used on a copy taken with RetrieveBlocks.
func VerifyBlocks(blocks []database.Block, evHandler EventHandler) error {
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	if len(blocks) == 0 {
		return errors.New("chain has no genesis block")
	}

	if err := blocks[0].ValidateGenesis(evHandler); err != nil {
		return fmt.Errorf("blk[0]: %w", err)
	}

	for i := 1; i < len(blocks); i++ {
		if err := blocks[i].ValidateBlock(blocks[i-1], evHandler); err != nil {
			return fmt.Errorf("blk[%d]: %w", i, err)
		}
	}

	return nil
}

// =============================================================================

// balanceOf scans the chain for the address. The caller must hold the lock.
func (s *State) balanceOf(address database.Address) float64 {
	var balance float64
	for _, block := range s.blocks {
		for _, tx := range block.Trans {
			if tx.To == address {
				balance += tx.Value
			}
			if tx.From == address {
				balance -= tx.Value
			}
		}
	}

	return balance
}
