// eiji is an offline substring search over English-Japanese dictionaries.
// Type a query, page through the hits of each dictionary group.
package main

import (
	"os"

	"github.com/corey/eiji/cmd/eiji/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
