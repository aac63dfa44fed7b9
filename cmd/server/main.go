package main

import (
	"github.com/triplehop/triplehop/internal/server"
	"github.com/triplehop/triplehop/internal/util"
	"github.com/triplehop/triplehop/pkg/logger"
	"github.com/triplehop/triplehop/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
