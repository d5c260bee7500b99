package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zheng/codekg/cmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "codekg",
		Short: "codekg - source code knowledge graph builder",
		Long: `codekg scans source trees in any language, extracts files, symbols, imports,
calls and resource accesses into a knowledge graph, and lets you export,
store and query it from the command line or over MCP.`,
		SilenceUsage: true,
	}

	cmd.RegisterCommands(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
