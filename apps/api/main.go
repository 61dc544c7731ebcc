package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/Nono8Six/ia-learning-sub000/apps/api/echo"
	"github.com/Nono8Six/ia-learning-sub000/core"
	"github.com/Nono8Six/ia-learning-sub000/core/admin"
	"github.com/Nono8Six/ia-learning-sub000/core/connect"
	backendsvc "github.com/Nono8Six/ia-learning-sub000/services/backend"
	emailsvc "github.com/Nono8Six/ia-learning-sub000/services/email"
	sendgridmail "github.com/Nono8Six/ia-learning-sub000/services/email/sendgrid"
	logsvc "github.com/Nono8Six/ia-learning-sub000/services/logger"
	notifysvc "github.com/Nono8Six/ia-learning-sub000/services/notifier"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf, err := core.NewConfig()
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	// set up loggers
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	var logger core.Logger
	if conf.RollbarToken != "" {
		rollbarLogger := logsvc.NewRollbarLogger(stdLogger, conf)
		rollbarLogger.Enable(!conf.Debug)
		logger = rollbarLogger
	} else {
		logger = logsvc.NewConsoleLogger(stdLogger)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = sendgridmail.NewService(os.Getenv("SENDGRID_API_KEY"), conf, logger)
	}

	backend := backendsvc.NewService(conf)
	connSvc := connect.NewService(conf, backend, logger, mailSvc)
	notifier := notifysvc.NewConsoleNotifier(logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	adminSvc := admin.NewService(conf, connSvc, backend, notifier, logger, validate)

	// probe the backend once at startup so the status reflects reality
	if ok, cerr := connSvc.CheckConnection(context.Background()); !ok {
		logger.Warn(fmt.Sprintf("backend unreachable at startup: %v", cerr), cerr)
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			AdminSvc:   adminSvc,
			ConnSvc:    connSvc,
			Backend:    backend,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
