package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func (cli *commandLine) resetPasswordCmd() *cobra.Command {
	var uname string
	cmd := &cobra.Command{
		Use:   "resetpassword --username USERNAME|EMAIL",
		Short: "Reset a staff's password. The password is prompted next",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if uname == "" {
				return usageErr(cmd)
			}
			pwd, err := cli.promptPassword()
			if err != nil {
				return err
			}
			if pwd == "" {
				return usageErr(cmd)
			}
			return cli.resetPassword(uname, pwd)
		},
	}
	cmd.Flags().StringVarP(&uname, "username", "u", "", "the staff's username or email")
	return cmd
}

func (cli *commandLine) resetPassword(uname, pwd string) error {
	s, err := cli.staffSvc.SetPassword(context.Background(), uname, pwd)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "password of %q reset\n", s.Username)
	return nil
}
