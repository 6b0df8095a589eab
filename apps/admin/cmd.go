package main

import (
	"errors"
	"fmt"
	"io"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/kanisa/core/attendance"
	"github.com/trezcool/kanisa/core/followup"
	"github.com/trezcool/kanisa/core/person"
	"github.com/trezcool/kanisa/core/staff"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	out         io.Writer
	db          *sqlx.DB // nil with the memory engine
	people      person.Repository
	records     attendance.Repository
	ignores     followup.IgnoreRepository
	staffRepo   staff.Repository
	staffSvc    *staff.Service
	followUpSvc *followup.Service
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Kanisa administration commands",
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)
	root.AddCommand(
		cli.migrateCmd(),
		cli.addStaffCmd(),
		cli.resetPasswordCmd(),
		cli.importCmd(),
		cli.digestCmd(),
	)
	return root
}

// run executes the command named in args; args[0] is the program name.
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	if len(args) > 1 {
		root.SetArgs(args[1:])
	} else {
		root.SetArgs([]string{})
	}
	return root.Execute()
}

// usageErr prints the usage of cmd and returns errHelp.
func usageErr(cmd *cobra.Command) error {
	_ = cmd.Usage()
	return errHelp
}

// promptPassword reads a password from the terminal without echoing it.
func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
