package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/trezcool/masomo-portal/apps/api/di"
	echoapi "github.com/trezcool/masomo-portal/apps/api/echo"
	"github.com/trezcool/masomo-portal/core"
	appfs "github.com/trezcool/masomo-portal/fs"
)

type apiDeps struct {
	dig.In

	Conf     *core.Config
	Zap      *zap.Logger
	Logger   core.Logger
	DBLogger core.Logger `name:"dbLogger"`
	CloseDB  di.DBCloser
	Server   *echoapi.Server
}

func main() {
	err := di.New(nil).Invoke(func(deps apiDeps) error {
		defer func() { _ = deps.Zap.Sync() }()
		return run(deps)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "api: %+v\n", err)
		os.Exit(1)
	}
}

func run(deps apiDeps) error {
	logger := deps.Logger
	logger.Info("api starting", map[string]interface{}{"version": deps.Conf.Build, "env": deps.Conf.Env})
	defer logger.Info("api stopped")

	defer func() {
		if err := deps.CloseDB(); err != nil {
			deps.DBLogger.Error("closing database", err)
		}
	}()

	if err := core.ParseEmailTemplates(appfs.FS, !deps.Conf.Debug); err != nil {
		return errors.Wrap(err, "parsing email templates")
	}

	startDebugServer(deps.Conf, logger)
	go deps.Server.Start()

	select {
	case err := <-deps.Server.Errors():
		return errors.Wrap(err, "serving api")
	case sig := <-deps.Server.ShutdownSignal():
		logger.Info("shutting down", map[string]interface{}{"signal": sig.String()})
		return shutdown(deps.Server, deps.Conf, logger)
	}
}

// startDebugServer exposes /debug/pprof and /debug/vars on the default mux.
func startDebugServer(conf *core.Config, logger core.Logger) {
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error("debug server closed", err)
		}
	}()
}

// shutdown drains in-flight requests until Server.ShutdownTimeout, then forces the listener closed.
func shutdown(server *echoapi.Server, conf *core.Config, logger core.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", err)
		return errors.Wrap(server.Close(), "forcing server close")
	}
	return nil
}
