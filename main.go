package main

import (
	"context"
	"os"

	"github.com/Zhima-Mochi/inventory-tracker/internal/presentation/cli"
)

func main() {
	if err := cli.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
