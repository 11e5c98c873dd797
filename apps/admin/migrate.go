package main

import (
	"github.com/estetika/academy/storage/database"
)

var gooseRunFunc = database.RunMigrations // mockable

func (cli *commandLine) migrate(args []string) error {
	return gooseRunFunc(cli.db.DB, cli.conf.Database.Engine, args[0], args[1:]...)
}
