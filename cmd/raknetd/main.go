// Command raknetd runs a standalone RakNet offline-handshake server: it
// binds a UDP socket, optionally decodes a PROXY protocol header off the
// front of each datagram, runs the handshake state machine, and hands
// completed handshakes off to the session transport.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "raknetd",
		Short: "RakNet offline-handshake server",
	}
	root.AddCommand(serveCmd())
	return root
}
