// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/ledger/business/sys/validate"
	"github.com/ardanlabs/ledger/business/web/errs"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/blockchain/wallet"
	"github.com/ardanlabs/ledger/foundation/events"
	"github.com/ardanlabs/ledger/foundation/nameservice"
	"github.com/ardanlabs/ledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

//go:embed wallet.html
var walletPage []byte

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Blocks returns every sealed block, genesis first.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveBlocks(), http.StatusOK)
}

// WalletPage serves the browser wallet.
func (h Handlers) WalletPage(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.RespondRaw(ctx, w, walletPage, "text/html; charset=utf-8", http.StatusOK)
}

// NewWallet creates a wallet and returns its key material. The node keeps
// no copy of the keys.
func (h Handlers) NewWallet(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	wlt, err := wallet.Create()
	if err != nil {
		return fmt.Errorf("creating wallet: %w", err)
	}

	return web.Respond(ctx, w, wlt.Export(), http.StatusOK)
}

// SubmitTransfer rebuilds the sender's wallet from the key material in the
// request, signs the transfer and submits it to the mempool.
func (h Handlers) SubmitTransfer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req transfer
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if err := validate.Check(req); err != nil {
		return err
	}

	value, err := strconv.ParseFloat(req.Amount, 64)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("amount: %w", database.ErrInvalidAmount), http.StatusBadRequest)
	}

	wlt, err := wallet.Reconstruct(req.PublicKey, req.PrivateKey, req.Address)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	signedTx, err := wlt.SignTransfer(req.Recipient, value)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("add wallet tran", "traceid", web.GetTraceID(ctx), "from", signedTx.From, "to", signedTx.To, "value", signedTx.Value)

	if err := h.State.SubmitTransaction(signedTx); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	return web.Respond(ctx, w, "add transaction to blockchain ok", http.StatusOK)
}

// SubmitWalletTransaction adds a transaction signed by a client wallet to
// the mempool. The keys never leave the client.
func (h Handlers) SubmitWalletTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var signedTx database.SignedTx
	if err := web.Decode(r, &signedTx); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("add user tran", "traceid", web.GetTraceID(ctx), "from", signedTx.From, "to", signedTx.To, "value", signedTx.Value)

	if err := h.State.SubmitTransaction(signedTx); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	return web.Respond(ctx, w, status{Status: "transactions added to mempool"}, http.StatusOK)
}

// Transactions returns every sealed transaction with the known names of
// the parties.
func (h Handlers) Transactions(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	trans := h.toTx(h.State.QueryTransactions())

	resp := transactions{
		Count:        len(trans),
		Transactions: trans,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Mine seals the pending transactions into a new block. The search runs to
// completion even if the client goes away.
func (h Handlers) Mine(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	block, err := h.State.MineNewBlock(context.WithoutCancel(ctx))
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("mining fail: %w", err), http.StatusInternalServerError)
	}

	h.Log.Infow("mined block", "traceid", web.GetTraceID(ctx), "number", block.Header.Number, "hash", block.Hash())

	return web.Respond(ctx, w, "mining ok", http.StatusOK)
}

// Amount returns the sealed balance for the address.
func (h Handlers) Amount(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address, err := database.ToAddress(web.Param(r, "address"))
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	return web.Respond(ctx, w, amount{Amount: h.State.QueryBalance(address)}, http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveGenesis(), http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.toTx(h.State.RetrieveMempool()), http.StatusOK)
}

// VerifyChain validates every block in the chain.
func (h Handlers) VerifyChain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	blocks := h.State.RetrieveBlocks()
	if err := state.VerifyBlocks(blocks, nil); err != nil {
		return errs.NewTrusted(err, http.StatusInternalServerError)
	}

	resp := chainStatus{
		Status:      "chain verified",
		Blocks:      len(blocks),
		LatestBlock: blocks[len(blocks)-1].Hash(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// =============================================================================

func (h Handlers) toTx(trans []database.SignedTx) []tx {
	out := make([]tx, len(trans))
	for i, tran := range trans {
		out[i] = tx{
			From:      tran.From,
			FromName:  h.NS.Lookup(tran.From),
			To:        tran.To,
			ToName:    h.NS.Lookup(tran.To),
			Value:     tran.Value,
			PublicKey: tran.PublicKey,
			Signature: tran.Signature,
		}
	}

	return out
}
