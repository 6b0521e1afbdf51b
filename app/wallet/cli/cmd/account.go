package cmd

import (
	"fmt"
	"log"

	"github.com/ardanlabs/ledger/foundation/blockchain/wallet"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Print the address for the specific wallet",
	Run:   accountRun,
}

func init() {
	rootCmd.AddCommand(accountCmd)
}

func accountRun(cmd *cobra.Command, args []string) {
	wlt, err := loadWallet()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(wlt.Address())
}

func loadWallet() (wallet.Wallet, error) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		return wallet.Wallet{}, err
	}

	return wallet.New(privateKey), nil
}
