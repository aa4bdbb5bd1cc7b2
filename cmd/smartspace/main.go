// Command smartspace runs the booking API and calendar pages and offers
// maintenance and terminal commands around the same database.
package main

import (
	"context"
	"fmt"
	"os"

	_ "time/tzdata"
)

func main() {
	if err := NewApp().Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
