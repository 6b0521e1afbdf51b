package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// Set of error variables for mining.
var (
	ErrMiningFault     = errors.New("mining fault")
	ErrChainTipChanged = errors.New("chain tip changed while mining")
)

// maxMiningAttempts is the number of times a block is mined again after
// another block was appended while the puzzle was being solved.
const maxMiningAttempts = 3

// =============================================================================

// MineNewBlock packages the pending transactions and a reward for the miner
// into a new block, solves the POW puzzle and appends the block to the chain.
// The puzzle is solved without holding the state lock so queries and
// submissions are not blocked. If the chain moved on in the meantime, the
// block is thrown away and mined again on top of the new tip.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: started")
	defer s.evHandler("state: MineNewBlock: MINING: completed")

	for attempt := 1; ; attempt++ {
		block, err := s.mineNextBlock(ctx)
		switch {
		case err == nil:
			return block, nil

		case errors.Is(err, ErrChainTipChanged):
			if attempt == maxMiningAttempts {
				return database.Block{}, fmt.Errorf("%w: attempts[%d]: %w", ErrMiningFault, attempt, err)
			}
			s.evHandler("state: MineNewBlock: MINING: RETRY: attempt[%d]: %s", attempt, err)

		default:
			return database.Block{}, err
		}
	}
}

// =============================================================================

// mineNextBlock performs one mining attempt against the current tip.
func (s *State) mineNextBlock(ctx context.Context) (database.Block, error) {

	// Take a snapshot of the tip and the oldest pending transactions. The
	// ids are kept so only the mined entries are removed later.
	s.mu.RLock()
	tip := s.blocks[len(s.blocks)-1]
	howMany := -1
	if s.genesis.TransPerBlock > 0 {
		howMany = int(s.genesis.TransPerBlock)
	}
	entries := s.mempool.PickFirst(howMany)
	s.mu.RUnlock()

	trans := make([]database.SignedTx, len(entries))
	ids := make([]uint64, len(entries))
	for i, entry := range entries {
		trans[i] = entry.Tx
		ids[i] = entry.ID
	}

	s.evHandler("state: MineNewBlock: MINING: perform POW: prevBlk[%d]: txs[%d]", tip.Header.Number, len(trans))

	block, err := database.POW(ctx, database.POWArgs{
		Beneficiary:  s.minerAddress,
		Difficulty:   s.genesis.Difficulty,
		MiningReward: s.genesis.MiningReward,
		PrevBlock:    tip,
		Trans:        trans,
		EvHandler:    s.evHandler,
	})
	if err != nil {
		return database.Block{}, err
	}

	s.evHandler("state: MineNewBlock: MINING: update local state")

	s.mu.Lock()
	defer s.mu.Unlock()

	latest := s.blocks[len(s.blocks)-1]
	if latest.Header.Number != tip.Header.Number || latest.Hash() != tip.Hash() {
		return database.Block{}, ErrChainTipChanged
	}

	if err := block.ValidateBlock(latest, s.evHandler); err != nil {
		return database.Block{}, fmt.Errorf("%w: %w", ErrMiningFault, err)
	}

	s.blocks = append(s.blocks, block)
	s.seal(block)
	s.mempool.Delete(ids...)

	s.evHandler("state: MineNewBlock: MINING: SEALED: blk[%d]: hash[%s]: mempool[%d]", block.Header.Number, block.Hash(), s.mempool.Count())

	return block, nil
}
