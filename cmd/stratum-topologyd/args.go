package main

import (
	"flag"
	"time"
)

type cliArgs struct {
	configPath     string
	bindAddr       string
	reloadInterval time.Duration
	verbose        bool
}

func parseCliArgs() cliArgs {
	args := cliArgs{}

	flag.StringVar(&args.configPath, "config", "topology.yaml", "path to the topology config")
	flag.StringVar(&args.bindAddr, "bind-addr", "127.0.0.1:8080", "address to bind the admin server")
	flag.DurationVar(&args.reloadInterval, "reload-interval", 30*time.Second, "config reload interval")
	flag.BoolVar(&args.verbose, "verbose", false, "verbose mode")

	flag.Parse()

	return args
}
