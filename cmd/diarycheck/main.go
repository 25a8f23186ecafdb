package main

import (
	"fmt"
	"os"

	"github.com/dlcks7456/diaryCleaning/cmd/diarycheck/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
