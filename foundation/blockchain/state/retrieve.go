package state

import (
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
)

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveMinerAddress returns the address receiving the mining rewards.
func (s *State) RetrieveMinerAddress() database.Address {
	return s.minerAddress
}

// RetrieveLatestBlock returns a copy the current latest block.
func (s *State) RetrieveLatestBlock() database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return copyBlock(s.blocks[len(s.blocks)-1])
}

// RetrieveBlocks returns a copy of the sealed blocks, genesis first.
func (s *State) RetrieveBlocks() []database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blocks := make([]database.Block, len(s.blocks))
	for i, block := range s.blocks {
		blocks[i] = copyBlock(block)
	}

	return blocks
}

// RetrieveMempool returns a copy of the mempool in arrival order.
func (s *State) RetrieveMempool() []database.SignedTx {
	return s.mempool.Copy()
}

// =============================================================================

// copyBlock gives the block its own transaction slice so a caller can't
// change a sealed block.
func copyBlock(block database.Block) database.Block {
	trans := make([]database.SignedTx, len(block.Trans))
	copy(trans, block.Trans)
	block.Trans = trans

	return block
}
