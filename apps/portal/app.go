package main

import (
	"io"

	"github.com/spf13/afero"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/cache"
	"github.com/trezcool/masomo-portal/core/portal"
	notifysvc "github.com/trezcool/masomo-portal/services/notify"
	restsvc "github.com/trezcool/masomo-portal/services/rest"
	tokensvc "github.com/trezcool/masomo-portal/services/token"
)

// app holds what every command needs; commands are built around one app.
type app struct {
	conf     *core.Config
	logger   core.Logger
	tokens   *tokensvc.FileStore
	client   *restsvc.Client
	cache    *cache.Cache
	svc      *portal.Service
	notifier core.Notifier
}

func newApp(conf *core.Config, fs afero.Fs, out io.Writer, logger core.Logger) *app {
	if logger == nil {
		logger = core.NopLogger()
	}
	tokens := tokensvc.NewFileStore(fs, conf.Portal.TokenPath)
	client := restsvc.NewClient(conf, tokens, logger)
	c := cache.NewFromConfig(conf.Cache, logger)

	return &app{
		conf:     conf,
		logger:   logger,
		tokens:   tokens,
		client:   client,
		cache:    c,
		svc:      portal.NewService(client, c, logger),
		notifier: notifysvc.NewConsoleNotifier(out, logger),
	}
}
