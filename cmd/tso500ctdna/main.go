package main

import (
	"fmt"
	"os"

	"github.com/OrcaBus/service-dragen-tso500-ctdna-pipeline-manager/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
