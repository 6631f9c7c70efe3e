// Command resolve is the CLI entry point for the dependency resolver.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
