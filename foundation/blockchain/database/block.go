package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

// ErrMissingReward is returned when a block does not end with the single
// reward transaction for its beneficiary.
var ErrMissingReward = errors.New("block is missing its reward transaction")

// =============================================================================

// BlockHeader represents common information required for each block.
type BlockHeader struct {
	Number        uint64  `json:"number"`          // Ethereum: Block number in the chain.
	PrevBlockHash string  `json:"prev_block_hash"` // Bitcoin: Hash of the previous block in the chain.
	TimeStamp     uint64  `json:"timestamp"`       // Bitcoin: Time the block was mined, in milliseconds.
	Nonce         uint64  `json:"nonce"`           // Bitcoin: Value identified to solve the hash solution.
	Beneficiary   Address `json:"beneficiary"`     // Ethereum: The address receiving the mining reward.
	Difficulty    uint    `json:"difficulty"`      // Ethereum: Number of 0's needed to solve the hash solution.
	MiningReward  float64 `json:"mining_reward"`   // Ethereum: The reward paid to the beneficiary.
	TransRoot     string  `json:"trans_root"`      // Represents the hash of the ordered transactions.
}

// Block represents a group of transactions batched together.
type Block struct {
	Header BlockHeader `json:"header"`
	Trans  []SignedTx  `json:"trans"`
}

// POWArgs represents the set of arguments required to run POW.
type POWArgs struct {
	Beneficiary  Address
	Difficulty   uint
	MiningReward float64
	PrevBlock    Block
	Trans        []SignedTx
	EvHandler    func(v string, args ...any)
}

// POW constructs a new Block and performs the work to find a nonce that
// solves the cryptographic POW puzzle. The reward transaction for the
// beneficiary is appended after the provided transactions.
func POW(ctx context.Context, args POWArgs) (Block, error) {
	trans := make([]SignedTx, 0, len(args.Trans)+1)
	trans = append(trans, args.Trans...)
	trans = append(trans, NewRewardTx(args.Beneficiary, args.MiningReward))

	// The block timestamp can never go backwards in the chain.
	now := uint64(time.Now().UTC().UnixMilli())
	if now < args.PrevBlock.Header.TimeStamp {
		now = args.PrevBlock.Header.TimeStamp
	}

	nb := Block{
		Header: BlockHeader{
			Number:        args.PrevBlock.Header.Number + 1,
			PrevBlockHash: args.PrevBlock.Hash(),
			TimeStamp:     now,
			Nonce:         0, // Will be identified by the POW algorithm.
			Beneficiary:   args.Beneficiary,
			Difficulty:    args.Difficulty,
			MiningReward:  args.MiningReward,
			TransRoot:     signature.Hash(trans),
		},
		Trans: trans,
	}

	if err := nb.performPOW(ctx, args.EvHandler); err != nil {
		return Block{}, err
	}

	return nb, nil
}

// GenesisArgs represents the set of arguments required to seal the
// genesis block.
type GenesisArgs struct {
	Beneficiary Address
	Difficulty  uint
	Grant       float64
	TimeStamp   time.Time
	EvHandler   func(v string, args ...any)
}

// Genesis constructs and seals block zero. It has no parent, and its only
// possible transaction is the grant paid to the node operator.
func Genesis(ctx context.Context, args GenesisArgs) (Block, error) {
	trans := []SignedTx{}
	if args.Grant > 0 {
		trans = append(trans, NewRewardTx(args.Beneficiary, args.Grant))
	}

	nb := Block{
		Header: BlockHeader{
			Number:        0,
			PrevBlockHash: signature.ZeroHash,
			TimeStamp:     uint64(args.TimeStamp.UTC().UnixMilli()),
			Beneficiary:   args.Beneficiary,
			Difficulty:    args.Difficulty,
			MiningReward:  args.Grant,
			TransRoot:     signature.Hash(trans),
		},
		Trans: trans,
	}

	if err := nb.performPOW(ctx, args.EvHandler); err != nil {
		return Block{}, err
	}

	return nb, nil
}

// performPOW does the work of mining to find a valid hash for a specified
// block. Pointer semantics are being used since a nonce is being discovered.
func (b *Block) performPOW(ctx context.Context, ev func(v string, args ...any)) error {
	if ev == nil {
		ev = func(v string, args ...any) {}
	}

	ev("database: PerformPOW: MINING: started: blk[%d]", b.Header.Number)
	defer ev("database: PerformPOW: MINING: completed: blk[%d]", b.Header.Number)

	for _, tx := range b.Trans {
		ev("database: PerformPOW: MINING: tx[%s]", tx)
	}

	// The nonce starts at zero and is incremented by 1 until a solution
	// is found.
	var attempts uint64
	for {
		attempts++
		if attempts%1_000_000 == 0 {
			ev("database: PerformPOW: MINING: attempts[%d]", attempts)
		}

		// Did we get cancelled trying to solve the problem.
		if ctx.Err() != nil {
			ev("database: PerformPOW: MINING: CANCELLED")
			return ctx.Err()
		}

		// Hash the block and check if we have solved the puzzle.
		hash := b.Hash()
		if !isHashSolved(b.Header.Difficulty, hash) {
			b.Header.Nonce++
			continue
		}

		ev("database: PerformPOW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]", b.Header.PrevBlockHash, hash)
		ev("database: PerformPOW: MINING: attempts[%d]", attempts)

		return nil
	}
}

// Hash returns the unique hash for the Block.
func (b Block) Hash() string {

	// Hashing the block header and not the whole block. The transactions
	// are represented in the header by the trans root, which is checked
	// against the transactions during validation.
	return signature.Hash(b.Header)
}

// ValidateBlock takes a block and validates it to be included into the
// blockchain after the specified previous block.
func (b Block) ValidateBlock(previousBlock Block, evHandler func(v string, args ...any)) error {
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block number is the next number", b.Header.Number)

	nextNumber := previousBlock.Header.Number + 1
	if b.Header.Number != nextNumber {
		return fmt.Errorf("this block is not the next number, got %d, exp %d", b.Header.Number, nextNumber)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: parent hash does match parent block", b.Header.Number)

	if b.Header.PrevBlockHash != previousBlock.Hash() {
		return fmt.Errorf("parent block hash doesn't match our known parent, got %s, exp %s", b.Header.PrevBlockHash, previousBlock.Hash())
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block difficulty is the same or greater than parent block difficulty", b.Header.Number)

	if b.Header.Difficulty < previousBlock.Header.Difficulty {
		return fmt.Errorf("block difficulty is less than previous block difficulty, parent %d, block %d", previousBlock.Header.Difficulty, b.Header.Difficulty)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: block's timestamp is not before parent block's timestamp", b.Header.Number)

	if b.Header.TimeStamp < previousBlock.Header.TimeStamp {
		parentTime := time.UnixMilli(int64(previousBlock.Header.TimeStamp))
		blockTime := time.UnixMilli(int64(b.Header.TimeStamp))
		return fmt.Errorf("block timestamp is before parent block, parent %s, block %s", parentTime, blockTime)
	}

	if err := b.validateContent(evHandler); err != nil {
		return err
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: reward transaction is last and pays the beneficiary", b.Header.Number)

	if err := b.validateReward(); err != nil {
		return err
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: transactions are signed by their senders", b.Header.Number)

	for i, tx := range b.Trans[:len(b.Trans)-1] {
		if err := tx.Verify(); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
	}

	return nil
}

// ValidateGenesis checks block zero is internally consistent.
func (b Block) ValidateGenesis(evHandler func(v string, args ...any)) error {
	if evHandler == nil {
		evHandler = func(v string, args ...any) {}
	}

	if b.Header.Number != 0 {
		return fmt.Errorf("genesis block must be number 0, got %d", b.Header.Number)
	}

	if b.Header.PrevBlockHash != signature.ZeroHash {
		return fmt.Errorf("genesis block must not have a parent, got %s", b.Header.PrevBlockHash)
	}

	if err := b.validateContent(evHandler); err != nil {
		return err
	}

	switch len(b.Trans) {
	case 0:
		return nil
	case 1:
		return b.validateReward()
	default:
		return fmt.Errorf("genesis block can only hold the grant, got %d transactions", len(b.Trans))
	}
}

// =============================================================================

// validateContent checks the hash solves the puzzle and the trans root
// represents the transactions held by the block.
func (b Block) validateContent(evHandler func(v string, args ...any)) error {
	evHandler("database: ValidateBlock: validate: blk[%d]: check: block hash has been solved", b.Header.Number)

	hash := b.Hash()
	if !isHashSolved(b.Header.Difficulty, hash) {
		return fmt.Errorf("%s invalid block hash", hash)
	}

	evHandler("database: ValidateBlock: validate: blk[%d]: check: trans root does match transactions", b.Header.Number)

	if root := signature.Hash(b.Trans); b.Header.TransRoot != root {
		return fmt.Errorf("trans root does not match transactions, got %s, exp %s", root, b.Header.TransRoot)
	}

	return nil
}

// validateReward checks the last transaction is the only reward in the
// block and pays the beneficiary the amount recorded in the header.
func (b Block) validateReward() error {
	if len(b.Trans) == 0 {
		return ErrMissingReward
	}

	last := len(b.Trans) - 1
	for i, tx := range b.Trans {
		if tx.From == NetworkAddress && i != last {
			return fmt.Errorf("transaction %d: network transfer before the end of block: %w", i, ErrMissingReward)
		}
	}

	reward := b.Trans[last]
	if !reward.IsReward() || reward.To != b.Header.Beneficiary || reward.Value != b.Header.MiningReward {
		return ErrMissingReward
	}

	return nil
}

// isHashSolved checks the hash to make sure it complies with
// the POW rules. We need to match a difficulty number of 0's.
func isHashSolved(difficulty uint, hash string) bool {
	const match = "0x00000000000000000000000000000000"

	if len(hash) != 66 || difficulty > uint(len(match)-2) {
		return false
	}

	return hash[:difficulty+2] == match[:difficulty+2]
}
