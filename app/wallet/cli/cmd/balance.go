package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

type amount struct {
	Amount float64 `json:"amount"`
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance.",
	Run:   balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func balanceRun(cmd *cobra.Command, args []string) {
	wlt, err := loadWallet()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("For Address:", wlt.Address())

	var amt amount
	if err := call(http.MethodGet, "/amount/"+string(wlt.Address()), nil, &amt); err != nil {
		log.Fatal(err)
	}

	fmt.Println(amt.Amount)
}
