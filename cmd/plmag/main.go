// Command plmag defines Maggie procedures in a catalog and runs them the
// way a database host would.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/chazu/plmaggie/plerror"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR:  %v\n", err)
		if code := plerror.GetCode(err); code != plerror.CodeInternalError {
			fmt.Fprintf(os.Stderr, "SQLSTATE: %s\n", code)
		}
		os.Exit(1)
	}
}
