package worker_test

import (
	"testing"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/blockchain/wallet"
	"github.com/ardanlabs/ledger/foundation/blockchain/worker"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_AutoMine(t *testing.T) {
	miner, err := wallet.Create()
	if err != nil {
		t.Fatalf("\t%s\tShould be able to create a wallet: %s", failed, err)
	}
	sender, err := wallet.Create()
	if err != nil {
		t.Fatalf("\t%s\tShould be able to create a wallet: %s", failed, err)
	}

	gen := genesis.Default()
	gen.Difficulty = 1

	st, err := state.New(state.Config{
		MinerAddress: miner.Address(),
		Genesis:      gen,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %s", failed, err)
	}

	worker.Run(st, time.Hour, nil)
	defer st.Shutdown()

	t.Log("Given the need to mine in the background.")
	{
		t.Logf("\tTest 0:\tWhen a transaction is submitted.")
		{
			tx, err := sender.SignTransfer(string(miner.Address()), 5)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to sign: %s", failed, err)
			}

			if err := st.SubmitTransaction(tx); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to submit: %s", failed, err)
			}

			deadline := time.Now().Add(10 * time.Second)
			for st.QueryMempoolLength() > 0 || len(st.RetrieveBlocks()) < 2 {
				if time.Now().After(deadline) {
					t.Fatalf("\t%s\tTest 0:\tShould seal the transaction without a mining call.", failed)
				}
				time.Sleep(10 * time.Millisecond)
			}
			t.Logf("\t%s\tTest 0:\tShould seal the transaction without a mining call.", success)

			if err := st.VerifyChain(); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould keep a valid chain: %s", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould keep a valid chain.", success)
		}

		t.Logf("\tTest 1:\tWhen the pool is empty.")
		{
			blocks := len(st.RetrieveBlocks())
			time.Sleep(50 * time.Millisecond)

			if l := len(st.RetrieveBlocks()); l != blocks {
				t.Fatalf("\t%s\tTest 1:\tShould not mine empty blocks, got %d exp %d.", failed, l, blocks)
			}
			t.Logf("\t%s\tTest 1:\tShould not mine empty blocks.", success)
		}
	}
}
