// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// Genesis represents the genesis file.
type Genesis struct {
	Date          time.Time `json:"date"`
	Difficulty    uint      `json:"difficulty"`      // How difficult it needs to be to solve the work problem.
	MiningReward  float64   `json:"mining_reward"`   // Reward for mining a block.
	GenesisGrant  float64   `json:"genesis_grant"`   // Amount paid to the node operator in the genesis block.
	TransPerBlock uint16    `json:"trans_per_block"` // The maximum number of transactions that can be in a block, 0 is unlimited.
	RequireFunds  bool      `json:"require_funds"`   // Reject transactions the sender can't cover.
}

// Default returns the configuration used when no genesis file exists.
func Default() Genesis {
	return Genesis{
		Date:         time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		Difficulty:   3,
		MiningReward: 1,
	}
}

// =============================================================================

// Load opens and consumes the genesis file. If the file does not exist the
// default genesis is returned.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Genesis{}, err
	}

	genesis := Default()
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decoding %s: %w", path, err)
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, fmt.Errorf("validating %s: %w", path, err)
	}

	return genesis, nil
}

// Validate checks the values can be used to run a chain.
func (g Genesis) Validate() error {
	const maxDifficulty = 32

	if g.Difficulty > maxDifficulty {
		return fmt.Errorf("difficulty %d is larger than %d", g.Difficulty, maxDifficulty)
	}

	if g.MiningReward < 0 || g.GenesisGrant < 0 {
		return errors.New("rewards can't be negative")
	}

	return nil
}
