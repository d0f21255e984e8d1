/*
 * Copyright (c) 2019 The chirp authors.
 * See the LICENSE file for more information.
 */

package main

import (
	"fmt"
	"os"

	"github.com/chirp-im/chirp/app"
)

func main() {
	instance := app.New(os.Stdout, os.Args)
	if err := instance.Run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "chirp: %v\n", err)
		os.Exit(-1)
	}
}
