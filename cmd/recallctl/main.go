// Command recallctl inspects a recall database from the shell: it prints a
// user's tag hierarchy, checks tag ownership, picks the next question and
// adds tags.
//
// Usage:
//
//	recallctl --data-path ~/Recall/data hierarchy --user alice
//	recallctl validate --user alice tag-1 tag-2
//	recallctl next --user alice --mode overdue tag-1
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errSilent) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
