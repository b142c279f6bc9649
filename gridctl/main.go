package main

import (
	"os"

	"github.com/gridstream-io/gridstream/gridctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
