// Package v1 contains the full set of handler functions and routes
// supported by the web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/ledger/app/services/node/handlers/v1/public"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/events"
	"github.com/ardanlabs/ledger/foundation/nameservice"
	"github.com/ardanlabs/ledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	Evts  *events.Events
}

// PublicRoutes binds all the public routes. The wallet routes are bound at
// the root where the wallet page expects them.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		NS:    cfg.NS,
		WS:    websocket.Upgrader{},
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, "", "/", pbl.Blocks)
	app.Handle(http.MethodGet, "", "/wallet", pbl.WalletPage)
	app.Handle(http.MethodGet, "", "/get_wallet", pbl.NewWallet)
	app.Handle(http.MethodPost, "", "/transaction", pbl.SubmitTransfer)
	app.Handle(http.MethodGet, "", "/show_transactions", pbl.Transactions)
	app.Handle(http.MethodGet, "", "/mining", pbl.Mine)
	app.Handle(http.MethodGet, "", "/amount/:address", pbl.Amount)

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/genesis/list", pbl.Genesis)
	app.Handle(http.MethodGet, version, "/chain/verify", pbl.VerifyChain)
	app.Handle(http.MethodGet, version, "/tx/uncommitted/list", pbl.Mempool)
	app.Handle(http.MethodPost, version, "/tx/submit", pbl.SubmitWalletTransaction)
}
