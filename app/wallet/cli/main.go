// The wallet program signs transfers with a local key file and talks to a
// ledger node.
package main

import "github.com/ardanlabs/ledger/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
