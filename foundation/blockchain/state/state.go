// Package state is the core API for the blockchain and implements all the
// business rules and processing.
package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
)

// EventHandler defines a function that is called when events
// occur in the processing of persisting blocks.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for background mining.
type Worker interface {
	Shutdown()
	SignalStartMining()
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	MinerAddress database.Address
	Genesis      genesis.Genesis
	EvHandler    EventHandler
}

// State manages the blockchain. A single State is shared by every request
// handler in the node. The chain and the mempool are guarded together by
// one lock since a block append and the removal of its transactions from
// the mempool must be seen as one step.
type State struct {
	mu sync.RWMutex

	minerAddress database.Address
	evHandler    EventHandler
	genesis      genesis.Genesis
	blocks       []database.Block
	sealed       map[string]struct{}
	mempool      *mempool.Mempool

	Worker Worker
}

// New constructs a new blockchain for data management. The genesis block is
// sealed before New returns, so the chain is never empty.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	if !cfg.MinerAddress.IsAddress() {
		return nil, fmt.Errorf("miner: %w", database.ErrInvalidAddress)
	}

	if err := cfg.Genesis.Validate(); err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}

	ev("state: New: MINING: seal genesis block: difficulty[%d]", cfg.Genesis.Difficulty)

	block, err := database.Genesis(context.Background(), database.GenesisArgs{
		Beneficiary: cfg.MinerAddress,
		Difficulty:  cfg.Genesis.Difficulty,
		Grant:       cfg.Genesis.GenesisGrant,
		TimeStamp:   cfg.Genesis.Date,
		EvHandler:   ev,
	})
	if err != nil {
		return nil, fmt.Errorf("sealing genesis block: %w", err)
	}

	state := State{
		minerAddress: cfg.MinerAddress,
		evHandler:    ev,
		genesis:      cfg.Genesis,
		blocks:       []database.Block{block},
		sealed:       make(map[string]struct{}),
		mempool:      mempool.New(),
	}
	state.seal(block)

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// seal records the keys of the block's transactions. The caller must
// hold the lock.
func (s *State) seal(block database.Block) {
	for _, tx := range block.Trans {
		if !tx.IsReward() {
			s.sealed[tx.UniqueKey()] = struct{}{}
		}
	}
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}
