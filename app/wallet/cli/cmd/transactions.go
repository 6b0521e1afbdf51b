package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/spf13/cobra"
)

type tx struct {
	From     database.Address `json:"from"`
	FromName string           `json:"from_name"`
	To       database.Address `json:"to"`
	ToName   string           `json:"to_name"`
	Value    float64          `json:"value"`
}

type transactions struct {
	Count        int  `json:"transaction_count"`
	Transactions []tx `json:"transactions"`
}

var transactionsCmd = &cobra.Command{
	Use:   "transactions",
	Short: "Print the sealed transactions for your wallet.",
	Run:   transactionsRun,
}

func init() {
	rootCmd.AddCommand(transactionsCmd)
}

func transactionsRun(cmd *cobra.Command, args []string) {
	wlt, err := loadWallet()
	if err != nil {
		log.Fatal(err)
	}

	var trans transactions
	if err := call(http.MethodGet, "/show_transactions", nil, &trans); err != nil {
		log.Fatal(err)
	}

	address := wlt.Address()
	for _, tran := range trans.Transactions {
		if tran.From != address && tran.To != address {
			continue
		}
		fmt.Printf("%s -> %s : %g\n", tran.FromName, tran.ToName, tran.Value)
	}
}
