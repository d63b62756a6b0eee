// Command tickerguard audits ticker identities across the charting,
// alerting and order-management platforms.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/tickerguard/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
