package cmd

import (
	"encoding/json"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the key material in the form the wallet page uses",
	Run:   exportRun,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func exportRun(cmd *cobra.Command, args []string) {
	wlt, err := loadWallet()
	if err != nil {
		log.Fatal(err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(wlt.Export()); err != nil {
		log.Fatal(err)
	}
}
