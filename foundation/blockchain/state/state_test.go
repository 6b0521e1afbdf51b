package state_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/blockchain/wallet"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func ifErrFailNow(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Error(err)
		t.FailNow()
	}
}

func newWallet(t *testing.T) wallet.Wallet {
	t.Helper()
	w, err := wallet.Create()
	ifErrFailNow(t, err)
	return w
}

func newState(t *testing.T, miner database.Address, gen genesis.Genesis) *state.State {
	t.Helper()
	st, err := state.New(state.Config{
		MinerAddress: miner,
		Genesis:      gen,
		EvHandler:    func(v string, args ...any) {},
	})
	ifErrFailNow(t, err)
	return st
}

func testGenesis() genesis.Genesis {
	gen := genesis.Default()
	gen.Difficulty = 1
	gen.MiningReward = 50
	return gen
}

// =============================================================================

func Test_Genesis(t *testing.T) {
	t.Log("Given the need to start a chain.")
	{
		for testID, grant := range []float64{0, 1000} {
			t.Logf("\tTest %d:\tWhen the genesis grant is %g.", testID, grant)
			{
				miner := newWallet(t)
				gen := testGenesis()
				gen.GenesisGrant = grant

				st := newState(t, miner.Address(), gen)

				if l := len(st.RetrieveBlocks()); l != 1 {
					t.Fatalf("\t%s\tTest %d:\tShould start with only the genesis block, got %d.", failed, testID, l)
				}
				t.Logf("\t%s\tTest %d:\tShould start with only the genesis block.", success, testID)

				if bal := st.QueryBalance(miner.Address()); bal != grant {
					t.Fatalf("\t%s\tTest %d:\tShould credit the miner with the grant, got %g.", failed, testID, bal)
				}
				t.Logf("\t%s\tTest %d:\tShould credit the miner with the grant.", success, testID)

				if err := st.VerifyChain(); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould verify the chain: %s", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould verify the chain.", success, testID)
			}
		}

		t.Logf("\tTest 2:\tWhen the miner address is not valid.")
		{
			_, err := state.New(state.Config{MinerAddress: "bill", Genesis: testGenesis()})
			if !errors.Is(err, database.ErrInvalidAddress) {
				t.Fatalf("\t%s\tTest 2:\tShould refuse to start: %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould refuse to start.", success)
		}
	}
}

func Test_SubmitAndMine(t *testing.T) {
	miner := newWallet(t)
	a := newWallet(t)
	b := newWallet(t)

	st := newState(t, miner.Address(), testGenesis())

	t.Log("Given the need to move value between wallets.")
	{
		t.Logf("\tTest 0:\tWhen A sends 10 to B with no prior balance.")
		{
			before := len(st.QueryTransactions())

			tx, err := a.SignTransfer(string(b.Address()), 10)
			ifErrFailNow(t, err)

			if err := st.SubmitTransaction(tx); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept the transaction: %s", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould accept the transaction.", success)

			if st.QueryBalance(b.Address()) != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould not count pending transactions.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould not count pending transactions.", success)

			block, err := st.MineNewBlock(context.Background())
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould mine a block: %s", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould mine a block: %s", success, block.Hash())

			if bal := st.QueryBalance(b.Address()); bal != 10 {
				t.Fatalf("\t%s\tTest 0:\tShould credit B with 10, got %g.", failed, bal)
			}
			t.Logf("\t%s\tTest 0:\tShould credit B with 10.", success)

			if bal := st.QueryBalance(a.Address()); bal != -10 {
				t.Fatalf("\t%s\tTest 0:\tShould debit A by 10, got %g.", failed, bal)
			}
			t.Logf("\t%s\tTest 0:\tShould debit A by 10.", success)

			if after := len(st.QueryTransactions()); after != before+2 {
				t.Fatalf("\t%s\tTest 0:\tShould add the transfer and the reward, got %d exp %d.", failed, after, before+2)
			}
			t.Logf("\t%s\tTest 0:\tShould add the transfer and the reward.", success)

			if st.QueryMempoolLength() != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould empty the mempool.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould empty the mempool.", success)
		}

		t.Logf("\tTest 1:\tWhen mining with nothing pending.")
		{
			for i := 1; i <= 3; i++ {
				before := st.QueryBalance(miner.Address())

				if _, err := st.MineNewBlock(context.Background()); err != nil {
					t.Fatalf("\t%s\tTest 1:\tShould mine a block: %s", failed, err)
				}

				if after := st.QueryBalance(miner.Address()); after != before+50 {
					t.Fatalf("\t%s\tTest 1:\tShould pay the reward, got %g exp %g.", failed, after, before+50)
				}
			}
			t.Logf("\t%s\tTest 1:\tShould pay the reward for every block.", success)

			if err := st.VerifyChain(); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould verify the chain: %s", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould verify the chain.", success)
		}
	}
}

func Test_VerifyBlocks(t *testing.T) {
	miner := newWallet(t)
	st := newState(t, miner.Address(), testGenesis())

	for i := 0; i < 2; i++ {
		_, err := st.MineNewBlock(context.Background())
		ifErrFailNow(t, err)
	}

	t.Log("Given the need to verify a copy of the chain.")
	{
		t.Logf("\tTest 0:\tWhen the copy is untouched.")
		{
			if err := state.VerifyBlocks(st.RetrieveBlocks(), nil); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould verify the copy: %s", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould verify the copy.", success)
		}

		t.Logf("\tTest 1:\tWhen a block in the copy is altered.")
		{
			blocks := st.RetrieveBlocks()
			blocks[1].Header.MiningReward = 1000

			if err := state.VerifyBlocks(blocks, nil); err == nil {
				t.Fatalf("\t%s\tTest 1:\tShould fail to verify the copy.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould fail to verify the copy.", success)

			if err := st.VerifyChain(); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould leave the chain intact: %s", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould leave the chain intact.", success)
		}

		t.Logf("\tTest 2:\tWhen the copy is empty.")
		{
			if err := state.VerifyBlocks(nil, nil); err == nil {
				t.Fatalf("\t%s\tTest 2:\tShould fail to verify an empty chain.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould fail to verify an empty chain.", success)
		}
	}
}

func Test_RejectForgery(t *testing.T) {
	miner := newWallet(t)
	a := newWallet(t)
	b := newWallet(t)

	st := newState(t, miner.Address(), testGenesis())

	tx, err := a.SignTransfer(string(b.Address()), 10)
	ifErrFailNow(t, err)

	sig, err := hexutil.Decode(tx.Signature)
	ifErrFailNow(t, err)
	sig[20] ^= 0x01
	tx.Signature = hexutil.Encode(sig)

	t.Log("Given the need to reject forged transactions.")
	{
		t.Logf("\tTest 0:\tWhen the signature bytes are altered.")
		{
			err := st.SubmitTransaction(tx)
			if !errors.Is(err, state.ErrRejectedTransaction) || !errors.Is(err, database.ErrBadSignature) {
				t.Fatalf("\t%s\tTest 0:\tShould reject the transaction: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould reject the transaction.", success)

			if st.QueryMempoolLength() != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould drop the transaction.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould drop the transaction.", success)

			_, err = st.MineNewBlock(context.Background())
			ifErrFailNow(t, err)

			for _, sealed := range st.QueryTransactions() {
				if sealed.Signature == tx.Signature {
					t.Fatalf("\t%s\tTest 0:\tShould never seal the transaction.", failed)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould never seal the transaction.", success)
		}

		t.Logf("\tTest 1:\tWhen a reward transaction is submitted.")
		{
			reward := database.NewRewardTx(a.Address(), 1000)
			if err := st.SubmitTransaction(reward); !errors.Is(err, state.ErrRejectedTransaction) {
				t.Fatalf("\t%s\tTest 1:\tShould reject the transaction: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould reject the transaction.", success)
		}
	}
}

func Test_Replay(t *testing.T) {
	miner := newWallet(t)
	a := newWallet(t)
	b := newWallet(t)

	st := newState(t, miner.Address(), testGenesis())

	tx, err := a.SignTransfer(string(b.Address()), 10)
	ifErrFailNow(t, err)

	t.Log("Given the need to seal a transfer only once.")
	{
		t.Logf("\tTest 0:\tWhen the transfer is still pending.")
		{
			ifErrFailNow(t, st.SubmitTransaction(tx))

			err := st.SubmitTransaction(tx)
			if !errors.Is(err, state.ErrRejectedTransaction) || !errors.Is(err, state.ErrDuplicateTransaction) {
				t.Fatalf("\t%s\tTest 0:\tShould reject the duplicate: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould reject the duplicate.", success)

			if l := st.QueryMempoolLength(); l != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould hold one copy, got %d.", failed, l)
			}
			t.Logf("\t%s\tTest 0:\tShould hold one copy.", success)
		}

		t.Logf("\tTest 1:\tWhen the transfer was sealed.")
		{
			_, err := st.MineNewBlock(context.Background())
			ifErrFailNow(t, err)

			replay := tx
			replay.Signature = "0x" + strings.ToUpper(tx.Signature[2:])

			for _, dup := range []database.SignedTx{tx, replay} {
				err := st.SubmitTransaction(dup)
				if !errors.Is(err, state.ErrRejectedTransaction) || !errors.Is(err, state.ErrDuplicateTransaction) {
					t.Fatalf("\t%s\tTest 1:\tShould reject the replay: %v", failed, err)
				}
			}
			t.Logf("\t%s\tTest 1:\tShould reject the replay however it is encoded.", success)

			_, err = st.MineNewBlock(context.Background())
			ifErrFailNow(t, err)

			copies := 0
			for _, sealed := range st.QueryTransactions() {
				if sealed.UniqueKey() == tx.UniqueKey() {
					copies++
				}
			}
			if copies != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould seal the transfer once, got %d.", failed, copies)
			}
			t.Logf("\t%s\tTest 1:\tShould seal the transfer once.", success)

			if bal := st.QueryBalance(b.Address()); bal != 10 {
				t.Fatalf("\t%s\tTest 1:\tShould credit B only once, got %g.", failed, bal)
			}
			if bal := st.QueryBalance(a.Address()); bal != -10 {
				t.Fatalf("\t%s\tTest 1:\tShould debit A only once, got %g.", failed, bal)
			}
			t.Logf("\t%s\tTest 1:\tShould move the value only once.", success)
		}
	}
}

func Test_RequireFunds(t *testing.T) {
	miner := newWallet(t)
	a := newWallet(t)

	gen := testGenesis()
	gen.GenesisGrant = 100
	gen.RequireFunds = true

	st := newState(t, miner.Address(), gen)

	t.Log("Given the need to enforce the sender's funds.")
	{
		tx, err := a.SignTransfer(string(miner.Address()), 10)
		ifErrFailNow(t, err)

		if err := st.SubmitTransaction(tx); !errors.Is(err, state.ErrInsufficientFunds) {
			t.Fatalf("\t%s\tShould reject a sender with no balance: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject a sender with no balance.", success)

		tx, err = miner.SignTransfer(string(a.Address()), 60)
		ifErrFailNow(t, err)
		if err := st.SubmitTransaction(tx); err != nil {
			t.Fatalf("\t%s\tShould accept a covered transfer: %s", failed, err)
		}
		t.Logf("\t%s\tShould accept a covered transfer.", success)

		if err := st.SubmitTransaction(tx); !errors.Is(err, state.ErrDuplicateTransaction) {
			t.Fatalf("\t%s\tShould reject the same transfer twice: %v", failed, err)
		}
		t.Logf("\t%s\tShould reject the same transfer twice.", success)

		tx, err = miner.SignTransfer(string(a.Address()), 50)
		ifErrFailNow(t, err)
		if err := st.SubmitTransaction(tx); !errors.Is(err, state.ErrInsufficientFunds) {
			t.Fatalf("\t%s\tShould count pending transfers against the balance: %v", failed, err)
		}
		t.Logf("\t%s\tShould count pending transfers against the balance.", success)
	}
}

func Test_TransPerBlock(t *testing.T) {
	miner := newWallet(t)
	a := newWallet(t)

	gen := testGenesis()
	gen.TransPerBlock = 2

	st := newState(t, miner.Address(), gen)

	for i := 1; i <= 3; i++ {
		tx, err := a.SignTransfer(string(miner.Address()), float64(i))
		ifErrFailNow(t, err)
		ifErrFailNow(t, st.SubmitTransaction(tx))
	}

	block, err := st.MineNewBlock(context.Background())
	ifErrFailNow(t, err)

	if len(block.Trans) != 3 || block.Trans[0].Value != 1 || block.Trans[1].Value != 2 {
		t.Fatalf("\t%s\tShould mine the two oldest transactions and the reward, got %v.", failed, block.Trans)
	}
	t.Logf("\t%s\tShould mine the two oldest transactions and the reward.", success)

	pending := st.RetrieveMempool()
	if len(pending) != 1 || pending[0].Value != 3 {
		t.Fatalf("\t%s\tShould leave the newest transaction pending, got %v.", failed, pending)
	}
	t.Logf("\t%s\tShould leave the newest transaction pending.", success)
}

func Test_Concurrency(t *testing.T) {
	const (
		senders   = 8
		perSender = 5
		miners    = 3
	)

	miner := newWallet(t)
	st := newState(t, miner.Address(), testGenesis())

	wallets := make([]wallet.Wallet, senders)
	for i := range wallets {
		wallets[i] = newWallet(t)
	}

	var wg sync.WaitGroup
	wg.Add(senders + miners)

	errs := make(chan error, senders*perSender+miners*perSender)

	for i := 0; i < senders; i++ {
		go func(w wallet.Wallet) {
			defer wg.Done()
			for j := 0; j < perSender; j++ {
				tx, err := w.SignTransfer(string(miner.Address()), float64(j+1))
				if err != nil {
					errs <- err
					return
				}
				if err := st.SubmitTransaction(tx); err != nil {
					errs <- err
				}
			}
		}(wallets[i])
	}

	for i := 0; i < miners; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perSender; j++ {
				_, err := st.MineNewBlock(context.Background())
				if err != nil && !errors.Is(err, state.ErrMiningFault) {
					errs <- err
				}
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("\t%s\tShould run without unexpected errors: %s", failed, err)
	}

	for st.QueryMempoolLength() > 0 {
		_, err := st.MineNewBlock(context.Background())
		ifErrFailNow(t, err)
	}

	t.Log("Given the need to share one chain between many callers.")
	{
		if err := st.VerifyChain(); err != nil {
			t.Fatalf("\t%s\tShould keep the chain linked: %s", failed, err)
		}
		t.Logf("\t%s\tShould keep the chain linked.", success)

		parents := make(map[string]bool)
		for _, block := range st.RetrieveBlocks() {
			if parents[block.Header.PrevBlockHash] {
				t.Fatalf("\t%s\tShould never append two blocks with the same parent.", failed)
			}
			parents[block.Header.PrevBlockHash] = true
		}
		t.Logf("\t%s\tShould never append two blocks with the same parent.", success)

		seen := make(map[string]int)
		for _, tx := range st.QueryTransactions() {
			if !tx.IsReward() {
				seen[fmt.Sprintf("%s:%g", tx.From, tx.Value)]++
			}
		}

		if len(seen) != senders*perSender {
			t.Fatalf("\t%s\tShould seal every submitted transaction, got %d exp %d.", failed, len(seen), senders*perSender)
		}
		for key, n := range seen {
			if n != 1 {
				t.Fatalf("\t%s\tShould seal %s exactly once, got %d.", failed, key, n)
			}
		}
		t.Logf("\t%s\tShould seal every submitted transaction exactly once.", success)
	}
}
