package main

import (
	"log"
	"os"

	"github.com/Nono8Six/ia-learning-sub000/core"
	"github.com/Nono8Six/ia-learning-sub000/core/connect"
	backendsvc "github.com/Nono8Six/ia-learning-sub000/services/backend"
	logsvc "github.com/Nono8Six/ia-learning-sub000/services/logger"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	errAndDie(err)

	backend := backendsvc.NewService(conf)
	conn := connect.NewService(conf, backend, logsvc.NewConsoleLogger(logger), nil)

	// start CLI
	cli := commandLine{
		conf:    conf,
		backend: backend,
		conn:    conn,
		out:     os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
