package main

import (
	"flag"
	"os"

	"github.com/charmbracelet/log"
	"github.com/subosito/gotenv"

	"github.com/reubano/csv2ofx/pkg/config"
	"github.com/reubano/csv2ofx/pkg/server"
)

func main() {
	_ = gotenv.Load()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		Prefix:          "csv2ofx",
	})

	var cfgFile string
	flag.StringVar(&cfgFile, "config", "", "Config file path")
	flag.Parse()

	cfg, err := config.Build(cfgFile, nil)
	if err != nil {
		logger.Fatal("config error", "err", err)
	}

	srv := server.New(cfg, logger)
	logger.Info("starting server", "addr", cfg.ListenAddr)
	if err := srv.Start(cfg.ListenAddr); err != nil {
		logger.Fatal("server error", "err", err)
	}
}
