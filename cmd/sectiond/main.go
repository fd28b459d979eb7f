// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command sectiond wires the section core's components into a single
// node process for manual smoke-testing. It owns no protocol logic of
// its own: every decision is made by the identity/prefix/chain/members/
// accumulator/membership/capacity/placement/router/events packages, and
// this command only constructs and drives them.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sectiond",
	Short: "Run or bootstrap a section core node",
	Long: `sectiond wires section membership, elder BLS consensus, and chunk
replication into a single process for manual testing. It does not implement
a wire transport; genesis prints the bootstrap material for a single-elder
section and run drives its poll cycle, logging the churn/elder/relocation
output it produces.`,
}

func main() {
	rootCmd.AddCommand(genesisCmd(), runCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "sectiond: %v\n", err)
		os.Exit(1)
	}
}
