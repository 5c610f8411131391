package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	rootCmd := buildRootCommand()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
