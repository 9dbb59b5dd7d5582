package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	opts := &rootOptions{}
	if err := execute(newRootCmd(opts), opts); err != nil {
		if !errors.Is(err, errResponse) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
