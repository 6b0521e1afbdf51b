package database_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
)

const miner = database.Address("0x6Fe6CF3c8fF57c58d24BfC869668F48BCbDb3BD9")

func genesis(t *testing.T) database.Block {
	block, err := database.Genesis(context.Background(), database.GenesisArgs{
		Beneficiary: miner,
		Difficulty:  1,
		Grant:       100,
		TimeStamp:   time.Now(),
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to seal the genesis block: %s", failed, err)
	}

	return block
}

func TestPOW(t *testing.T) {
	t.Log("Given the need to mine blocks.")
	{
		t.Logf("\tTest 0:\tWhen sealing the genesis block.")
		{
			gen := genesis(t)

			if gen.Header.PrevBlockHash != signature.ZeroHash {
				t.Fatalf("\t%s\tTest 0:\tShould use the zero hash as the parent.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould use the zero hash as the parent.", success)

			if !strings.HasPrefix(gen.Hash(), "0x0") {
				t.Fatalf("\t%s\tTest 0:\tShould solve the puzzle: %s", failed, gen.Hash())
			}
			t.Logf("\t%s\tTest 0:\tShould solve the puzzle.", success)

			if err := gen.ValidateGenesis(nil); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould validate the genesis block: %s", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould validate the genesis block.", success)
		}

		t.Logf("\tTest 1:\tWhen mining the next block.")
		{
			gen := genesis(t)
			tx := sign(t, 10)

			block, err := database.POW(context.Background(), database.POWArgs{
				Beneficiary:  miner,
				Difficulty:   2,
				MiningReward: 5,
				PrevBlock:    gen,
				Trans:        []database.SignedTx{tx},
			})
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to mine a block: %s", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould be able to mine a block.", success)

			if !strings.HasPrefix(block.Hash(), "0x00") {
				t.Fatalf("\t%s\tTest 1:\tShould solve the puzzle: %s", failed, block.Hash())
			}
			t.Logf("\t%s\tTest 1:\tShould solve the puzzle.", success)

			if len(block.Trans) != 2 || !block.Trans[1].IsReward() || block.Trans[1].Value != 5 {
				t.Fatalf("\t%s\tTest 1:\tShould append the reward transaction: %v", failed, block.Trans)
			}
			t.Logf("\t%s\tTest 1:\tShould append the reward transaction.", success)

			if block.Header.PrevBlockHash != gen.Hash() {
				t.Fatalf("\t%s\tTest 1:\tShould link to the parent block.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould link to the parent block.", success)

			if err := block.ValidateBlock(gen, nil); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould validate the block: %s", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould validate the block.", success)

			if block.Hash() != block.Hash() {
				t.Fatalf("\t%s\tTest 1:\tShould get the same hash twice.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould get the same hash twice.", success)
		}

		t.Logf("\tTest 2:\tWhen mining is cancelled.")
		{
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := database.POW(ctx, database.POWArgs{
				Beneficiary:  miner,
				Difficulty:   2,
				MiningReward: 5,
				PrevBlock:    genesis(t),
			})
			if !errors.Is(err, context.Canceled) {
				t.Fatalf("\t%s\tTest 2:\tShould stop the search: %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould stop the search.", success)
		}
	}
}

func TestValidateBlock(t *testing.T) {
	gen := genesis(t)

	mine := func(t *testing.T) database.Block {
		block, err := database.POW(context.Background(), database.POWArgs{
			Beneficiary:  miner,
			Difficulty:   1,
			MiningReward: 5,
			PrevBlock:    gen,
			Trans:        []database.SignedTx{sign(t, 10)},
		})
		if err != nil {
			t.Fatalf("\t%s\tShould be able to mine a block: %s", failed, err)
		}
		return block
	}

	type table struct {
		name   string
		tamper func(b *database.Block)
	}

	tt := []table{
		{
			name:   "parent",
			tamper: func(b *database.Block) { b.Header.PrevBlockHash = signature.ZeroHash },
		},
		{
			name:   "number",
			tamper: func(b *database.Block) { b.Header.Number = 5 },
		},
		{
			name:   "transaction",
			tamper: func(b *database.Block) { b.Trans[0].Value = 1000 },
		},
		{
			name:   "reward",
			tamper: func(b *database.Block) { b.Trans[1].Value = 1000 },
		},
		{
			name:   "difficulty",
			tamper: func(b *database.Block) { b.Header.Difficulty = 0 },
		},
	}

	t.Log("Given the need to reject blocks that break the chain rules.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				block := mine(t)
				tst.tamper(&block)

				if err := block.ValidateBlock(gen, nil); err == nil {
					t.Fatalf("\t%s\tTest %d:\tShould reject a block with a changed %s.", failed, testID, tst.name)
				}
				t.Logf("\t%s\tTest %d:\tShould reject a block with a changed %s.", success, testID, tst.name)
			}

			t.Run(tst.name, f)
		}
	}
}
