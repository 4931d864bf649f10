// Command helixd hosts the OAuth callback for a Twitch application
// and serves role relationship queries over HTTP, persisting tokens
// encrypted in a sqlite database.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
