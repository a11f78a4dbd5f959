// Command admin runs operator tasks against the Kitobchi database: schema
// migrations, lookup seeding, listing moderation and account creation.
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
