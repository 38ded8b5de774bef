// Command server runs the godex REST API.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/godex/internal/server"
	"github.com/dmitrijs2005/godex/internal/server/config"
)

func main() {
	ctx := context.Background()

	app, err := server.NewApp(ctx, config.LoadConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "godex: startup failed: %v\n", err)
		os.Exit(1)
	}

	app.Run(ctx)
}
