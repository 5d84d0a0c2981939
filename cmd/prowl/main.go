package main

import (
	"fmt"
	"os"

	"github.com/prowlsec/prowl/pkg/cli"
)

func main() {
	app, err := cli.NewApp(os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	rootCmd := cli.NewRootCommand(app)
	if err := rootCmd.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
