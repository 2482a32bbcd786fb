package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"stayquote/internal/cli"
)

func main() {
	_ = godotenv.Load()

	if err := cli.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
