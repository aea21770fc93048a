package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trezcool/masomo-portal/core"
	logsvc "github.com/trezcool/masomo-portal/services/logger"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "portal",
		Short:         "Masomo teacher portal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		loginCmd(a),
		logoutCmd(a),
		dashboardCmd(a),
		gradeCmd(a),
		watchCmd(a),
	)
	return root
}

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZap(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "building logger: %v\n", err)
		os.Exit(1)
	}
	// the terminal is for the user; only warnings and up are logged
	zl = zl.WithOptions(zap.IncreaseLevel(zap.WarnLevel)).Named("portal")
	logger := logsvc.NewRollbarLogger(zl, conf)

	a := newApp(conf, afero.NewOsFs(), os.Stdout, logger)
	err = newRootCmd(a).Execute()
	_ = zl.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", describe(err))
		os.Exit(1)
	}
}
