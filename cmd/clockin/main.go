package main

import (
	"os"

	"github.com/Jairedddy/ClockIn-Automation/internal/interface/cli"
)

func main() {
	os.Exit(cli.Execute())
}
