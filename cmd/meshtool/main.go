// meshtool is a headless utility for benchmarking reconstruction and
// recording sensor sessions.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Faultbox/depthmesh/internal/config"
	"github.com/Faultbox/depthmesh/internal/logger"
)

func main() {
	config.ParseFlags()
	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	args = args[1:]

	switch command {
	case "help", "-h", "--help":
		printUsage()
		return
	case "bench", "record", "info":
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	switch command {
	case "bench":
		err = cmdBench(cfg, args)
	case "record":
		err = cmdRecord(cfg, args)
	case "info":
		err = cmdInfo(args)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logger.Sync()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`meshtool - depth mesh reconstruction utility

Usage:
  meshtool [config flags] <command> [options]

Commands:
  bench  [-duration 10s] [-fps 60]     Run reconstruction and report build timings
  record [-frames 100] <dir>          Record the configured source into a directory
  info   <dir>                        Describe a recording

Examples:
  meshtool bench -duration 30s
  meshtool -smooth -method holefill bench
  meshtool record -frames 300 ./session1
  meshtool -playback ./session1 bench`)
}
