package main

import (
	"os"

	"github.com/gnolang/misra/cmd"
)

func main() {
	os.Exit(cmd.ExitCode(cmd.Execute()))
}
