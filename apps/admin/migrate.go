package main

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/trezcool/goose"

	appfs "github.com/trezcool/kanisa/fs"
)

var (
	gooseRunFunc = goose.RunFS // mockable

	errNoDatabase = errors.New("migrate requires the postgres database engine")
)

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate COMMAND [ARGS]",
		Short: "Run database migrations: up, up-by-one, up-to VERSION, down, down-to VERSION, redo, status, version",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usageErr(cmd)
			}
			return cli.migrate(args)
		},
	}
}

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoDatabase
	}
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(args[0], cli.db.DB, appfs.FS, appfs.MigrationsDir, arguments...)
}
