package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/majidtaherkhani/etf-service/internal/config"
	"github.com/majidtaherkhani/etf-service/internal/logger"
)

func main() {
	cfg := config.Load()
	logger.SetGlobalLogger(logger.New(logger.Config{Level: cfg.Log.Level, Pretty: true}))

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	commander.Register(&migrateCmd{cfg: cfg}, "database")
	commander.Register(&seedCmd{cfg: cfg}, "database")
	commander.Register(&pruneCmd{cfg: cfg}, "database")
	commander.Register(&analyzeCmd{cfg: cfg}, "")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
