package main

import (
	"github.com/sidkik/copybara/cmd"
	"github.com/sidkik/copybara/cmd/util"
)

func main() {
	defer util.HandlePanic()
	cmd.Execute()
}
