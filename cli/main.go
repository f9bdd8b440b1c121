// Command newsctl is a client for the news stream service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagWSAddr  string
	flagAPIAddr string
	flagJSON    bool
)

var rootCmd = &cobra.Command{
	Use:          "newsctl",
	Short:        "Client for the news stream service",
	Long:         "newsctl streams a day's news over WebSocket and queries the article API.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagWSAddr, "addr", "ws://localhost:8090/ws", "WebSocket server address")
	rootCmd.PersistentFlags().StringVar(&flagAPIAddr, "api", "http://localhost:8091", "query API base URL")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "print raw JSON events and responses")

	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(countsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
