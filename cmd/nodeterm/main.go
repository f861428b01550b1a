package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/nodeterm/pkg/config"
	"github.com/robotalks/nodeterm/pkg/env"
	"github.com/robotalks/nodeterm/pkg/framework"
)

func init() {
	config.SetupFlags()
}

func main() {
	if err := config.Parse(); err != nil {
		flag.Usage()
		glog.Exitf("invalid config: %v", err)
	}
	defer glog.Flush()

	e, err := env.New(context.Background(), config.Default())
	if err != nil {
		glog.Exitf("boot failed: %v", err)
	}
	defer e.Close()

	loop := framework.NewLoop(e.Clock)
	loop.Add(e)
	glog.Infof("node %s up, link %s", e.Config.NodeID, e.Config.Link)
	err = framework.NewRunner().
		HandleSignals().
		Go(framework.NamedRun("loop", loop), e.Console()).
		Wait()
	if err != nil {
		glog.Errorf("stopped: %v", err)
	}
}
