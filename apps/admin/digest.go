package main

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trezcool/kanisa/core"
	"github.com/trezcool/kanisa/core/person"
)

func (cli *commandLine) digestCmd() *cobra.Command {
	var (
		typ string
		to  []string
	)
	cmd := &cobra.Command{
		Use:   "digest --type child|servant --to ADDRESS[,ADDRESS]",
		Short: "Email today's follow-up list of a population, with the configured thresholds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if typ == "" || len(to) == 0 {
				return usageErr(cmd)
			}
			return cli.digest(typ, to)
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", "", "the population: child or servant")
	cmd.Flags().StringSliceVar(&to, "to", nil, "the recipients")
	return cmd
}

func (cli *commandLine) digest(typ string, to []string) error {
	t, err := person.ParseType(typ)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "type", Error: err.Error()})
	}
	addrs, err := mail.ParseAddressList(strings.Join(to, ","))
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "to", Error: err.Error()})
	}
	recipients := make([]mail.Address, 0, len(addrs))
	for _, addr := range addrs {
		recipients = append(recipients, *addr)
	}

	report, err := cli.followUpSvc.SendDigest(context.Background(), t, recipients)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "follow-up digest of the week of %s sent: %d %s in %d groups\n",
		report.ServiceWeek, report.Summary.Total, t.Plural(), report.Summary.GroupsCount)
	return nil
}
