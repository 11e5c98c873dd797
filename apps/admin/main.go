package main

import (
	"fmt"
	"log"
	"os"

	"github.com/estetika/academy/core"
	"github.com/estetika/academy/core/learning"
	"github.com/estetika/academy/core/program"
	"github.com/estetika/academy/core/user"
	emailsvc "github.com/estetika/academy/services/email"
	logsvc "github.com/estetika/academy/services/logger"
	"github.com/estetika/academy/storage/database"
	sqlxrepos "github.com/estetika/academy/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	zl, err := logsvc.NewZapLogger(conf)
	if err != nil {
		log.Fatal(err)
	}
	logger := logsvc.NewRollbarLogger(zl.Named("admin"), conf)
	logger.Enable(!conf.Debug)

	// set up DB
	if err = database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	if err = db.Ping(); err != nil {
		logger.Fatal(fmt.Sprintf("pinging database: %v", err), err)
	}

	// set up services
	core.ParseEmailTemplates(logger, conf.Debug)
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(logger, conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(logger, conf)
	}
	tx := core.SQLTransactor{DB: db}
	usrRepo := sqlxrepos.NewUserRepository(db)
	usrSvc := user.NewService(usrRepo, mailSvc, logger, conf)
	progSvc := program.NewService(tx, sqlxrepos.NewProgramRepository(db), logger)

	// start CLI
	cli := commandLine{
		conf:     conf,
		db:       db,
		usrRepo:  usrRepo,
		programs: progSvc,
		learning: learning.NewService(tx, sqlxrepos.NewLearningRepository(db), progSvc, usrSvc, mailSvc, logger, conf),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	logger.Sync()
	if err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
