package main

import (
	"os"

	"github.com/drillbitlabs/drillbot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
