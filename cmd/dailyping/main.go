package main

import (
	"context"
	"os"

	_ "time/tzdata"

	"github.com/ykvlv/dailyping/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		// The logger may not exist yet; write straight to stderr.
		_, _ = os.Stderr.WriteString("dailyping: " + err.Error() + "\n")
		os.Exit(1)
	}
}
