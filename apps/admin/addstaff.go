package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trezcool/kanisa/core"
	"github.com/trezcool/kanisa/core/staff"
)

func (cli *commandLine) addStaffCmd() *cobra.Command {
	var (
		name, uname, email string
		roles              []string
		isAdmin            bool
	)
	cmd := &cobra.Command{
		Use:   "addstaff --username USERNAME [--email EMAIL] [--name NAME] [--role ROLE]... [--admin]",
		Short: "Create a staff account, or update the one with the same username or email. The password is prompted next",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if uname == "" && email == "" {
				return usageErr(cmd)
			}
			if isAdmin {
				roles = staff.AllRoles
			}
			pwd, err := cli.promptPassword()
			if err != nil {
				return err
			}
			if pwd == "" {
				return usageErr(cmd)
			}
			return cli.addStaff(name, uname, email, pwd, roles)
		},
	}
	cmd.Flags().StringVarP(&uname, "username", "u", "", "the staff's username")
	cmd.Flags().StringVarP(&email, "email", "e", "", "the staff's email")
	cmd.Flags().StringVarP(&name, "name", "n", "", "the staff's full name (defaults to the username)")
	cmd.Flags().StringSliceVarP(&roles, "role", "r", nil, "a role to grant: admin:, leader:service, leader:class, servant:")
	cmd.Flags().BoolVar(&isAdmin, "admin", false, "grant every role")
	return cmd
}

// addStaff updates or creates an active staff.Staff
func (cli *commandLine) addStaff(name, uname, email, pwd string, roles []string) error {
	if err := staff.CheckPasswordPolicy(pwd); err != nil {
		return err
	}
	for _, role := range roles {
		if staff.RolePriority(role) == 0 {
			return core.NewValidationError(fmt.Errorf("unknown role %q", role), core.FieldError{Field: "roles", Error: "invalid roles"})
		}
	}

	s := staff.Staff{
		Name:     core.CleanString(name),
		Username: uname,
		Email:    email,
		IsActive: true,
		Roles:    roles,
	}
	if err := s.SetPassword(pwd); err != nil {
		return err
	}
	s, err := cli.staffSvc.Save(context.Background(), s)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "staff %q saved (id %s)\n", s.Username, s.ID)
	return nil
}
