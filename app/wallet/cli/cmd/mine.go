package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Ask the node to seal the pending transactions.",
	Run:   mineRun,
}

func init() {
	rootCmd.AddCommand(mineCmd)
}

func mineRun(cmd *cobra.Command, args []string) {
	var status string
	if err := call(http.MethodGet, "/mining", nil, &status); err != nil {
		log.Fatal(err)
	}

	fmt.Println(status)
}
