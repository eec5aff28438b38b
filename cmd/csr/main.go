package main

import (
	"os"

	"github.com/dshills/csr/internal/cli"
)

func main() {
	os.Exit(cli.Run())
}
