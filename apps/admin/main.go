package main

import (
	"context"
	"fmt"
	"os"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/classroom"
	"github.com/trezcool/masomo-portal/core/user"
	emailsvc "github.com/trezcool/masomo-portal/services/email"
	logsvc "github.com/trezcool/masomo-portal/services/logger"
	"github.com/trezcool/masomo-portal/storage/database"
	sqlxrepos "github.com/trezcool/masomo-portal/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZap(conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "building logger: %v\n", err)
		os.Exit(1)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("admin"), conf)

	// set up DB
	ctx := context.Background()
	if err = database.CreateIfNotExist(ctx, conf); err != nil {
		logger.Fatal("creating database", err)
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}

	validate, translator := core.NewValidator(user.RegisterValidators)

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db))
	mailSvc := emailsvc.New(conf, logger)

	// start CLI
	cli := commandLine{
		db:           db.DB,
		usrSvc:       usrSvc,
		classroomSvc: classroom.NewService(sqlxrepos.NewClassroomRepository(db), usrSvc, mailSvc, logger),
		validate:     validate,
		translator:   translator,
		out:          os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	_ = zl.Sync()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
