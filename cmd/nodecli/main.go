package main

import (
	"github.com/robotalks/nodeterm/pkg/cli/sh"
	"github.com/robotalks/nodeterm/pkg/config"

	_ "github.com/robotalks/nodeterm/pkg/cli/cmds/all"
)

//go-build: CGO_ENABLED=0

func init() {
	config.SetupFlags()
}

func main() {
	sh.Main()
}
