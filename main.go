package main

import (
	"os"

	"github.com/gridworks/prodcost/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
