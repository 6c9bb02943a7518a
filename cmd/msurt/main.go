// Command msurt is the runtime binary: it loads a local config, wires up
// a runtime.Runtime, connects to the controller, and serves until signaled
// to stop. Shaped after the teacher's cmd/authn/main.go: flag parsing,
// signal handling, nlog setup, then handing off to the long-running
// server loop.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sw1001/DeDOS/cmn"
	"github.com/sw1001/DeDOS/cmn/cos"
	"github.com/sw1001/DeDOS/cmn/nlog"
	"github.com/sw1001/DeDOS/dfg"
	"github.com/sw1001/DeDOS/runtime"
)

var (
	build     string
	buildtime string

	configPath string
	dfgPath    string
)

func init() {
	flag.StringVar(&configPath, "config", "", "path to the runtime's JSON config file")
	flag.StringVar(&dfgPath, "dfg", "", "optional: implement this DFG JSON file at startup instead of waiting for the controller")
}

func main() {
	if len(os.Args) == 2 && os.Args[1] == "version" {
		printVer()
		os.Exit(0)
	}
	flag.Parse()
	if configPath == "" {
		cos.ExitLogf("missing -config: the runtime needs a local config file")
	}

	cfg, err := cmn.Load(configPath)
	if err != nil {
		cos.ExitLogf("failed to load config from %q: %v", configPath, err)
	}
	nlog.SetLogDirRole(cfg.LogDir, fmt.Sprintf("runtime-%d", cfg.LocalRuntimeID))
	nlog.Infof("msurt %s (build %s) starting as runtime %d", build, buildtime, cfg.LocalRuntimeID)

	rt := runtime.New(cfg)
	if err := rt.Start(); err != nil {
		cos.ExitLogf("failed to start runtime: %v", err)
	}

	if cfg.ControllerAddr != "" {
		if err := rt.ConnectController(cfg.ControllerAddr); err != nil {
			cos.ExitLogf("failed to connect to controller at %q: %v", cfg.ControllerAddr, err)
		}
	}

	if dfgPath != "" {
		implementDFGFile(rt, dfgPath)
	}

	waitForShutdownSignal()
	nlog.Infof("runtime %d shutting down", cfg.LocalRuntimeID)
	rt.Shutdown()
	nlog.Flush(true)
}

func implementDFGFile(rt *runtime.Runtime, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		cos.ExitLogf("failed to read dfg %q: %v", path, err)
	}
	g, err := dfg.Parse(data)
	if err != nil {
		cos.ExitLogf("failed to parse dfg %q: %v", path, err)
	}
	if err := rt.ImplementDFG(context.Background(), g); err != nil {
		cos.ExitLogf("failed to implement dfg %q: %v", path, err)
	}
}

func waitForShutdownSignal() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-c
}

func printVer() {
	fmt.Printf("msurt version %s (build %s)\n", build, buildtime)
}
