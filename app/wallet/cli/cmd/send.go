package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/ardanlabs/ledger/foundation/blockchain/wallet"
	"github.com/spf13/cobra"
)

var (
	to    string
	value float64
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Sign a transfer locally and submit it to the node",
	Run:   sendRun,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Address of the recipient.")
	sendCmd.Flags().Float64VarP(&value, "value", "v", 0, "Value to send.")
	sendCmd.MarkFlagRequired("to")
}

func sendRun(cmd *cobra.Command, args []string) {
	wlt, err := loadWallet()
	if err != nil {
		log.Fatal(err)
	}

	if err := send(wlt, to, value); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("sent %g from %s to %s\n", value, wlt.Address(), to)
}

func send(wlt wallet.Wallet, to string, value float64) error {
	signedTx, err := wlt.SignTransfer(to, value)
	if err != nil {
		return err
	}

	return call(http.MethodPost, "/v1/tx/submit", signedTx, nil)
}
