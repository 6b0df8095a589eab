package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/volatiletech/null/v8"
	"gopkg.in/yaml.v3"

	"github.com/trezcool/kanisa/core"
	"github.com/trezcool/kanisa/core/attendance"
	"github.com/trezcool/kanisa/core/calendar"
	"github.com/trezcool/kanisa/core/person"
)

type (
	// roster is the YAML document loaded by the import command.
	roster struct {
		Classes    []person.Class `yaml:"classes"`
		People     []rosterPerson `yaml:"people"`
		Attendance []rosterMark   `yaml:"attendance"`
	}

	rosterPerson struct {
		ID         string      `yaml:"id"`
		Type       person.Type `yaml:"type"`
		Name       string      `yaml:"name"`
		Phone      string      `yaml:"phone"`
		ParentName string      `yaml:"parentName"`
		Class      string      `yaml:"class"` // class name
		Inactive   bool        `yaml:"inactive"`
	}

	rosterMark struct {
		Person     string            `yaml:"person"` // person ID
		Date       calendar.Date     `yaml:"date"`
		Status     attendance.Status `yaml:"status"`
		Notes      string            `yaml:"notes"`
		RecordedBy string            `yaml:"recordedBy"`
	}

	importStats struct {
		classes, people, marks int
	}
)

func loadRoster(r io.Reader) (roster, error) {
	var ros roster
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&ros); err != nil && err != io.EOF {
		return roster{}, core.NewValidationError(errors.Wrap(err, "decoding roster"))
	}
	return ros, nil
}

func (cli *commandLine) importCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import --file ROSTER.yaml",
		Short: "Load classes, people and attendance marks from a YAML roster, upserting by ID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				return usageErr(cmd)
			}
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			return cli.importRoster(f)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "the roster file")
	return cmd
}

func (cli *commandLine) importRoster(r io.Reader) error {
	ros, err := loadRoster(r)
	if err != nil {
		return err
	}

	ctx := context.Background()
	var stats importStats

	classes := make(map[string]person.Class, len(ros.Classes))
	for _, c := range ros.Classes {
		c.Name = core.CleanString(c.Name)
		if c.ID == "" {
			if existing, err := cli.people.GetClassByName(ctx, c.Name); err == nil {
				c.ID = existing.ID
			} else if !errors.Is(err, person.ErrClassNotFound) {
				return err
			}
		}
		saved, err := cli.people.SaveClass(ctx, c)
		if err != nil {
			return errors.Wrapf(err, "saving class %q", c.Name)
		}
		classes[saved.Name] = saved
		stats.classes++
	}

	types := make(map[string]person.Type, len(ros.People))
	for i, rp := range ros.People {
		p, err := cli.rosterPerson(ctx, rp, classes)
		if err != nil {
			return errors.Wrapf(err, "people[%d]", i)
		}
		saved, err := cli.people.SavePerson(ctx, p)
		if err != nil {
			return errors.Wrapf(err, "saving person %q", p.Name)
		}
		types[saved.ID] = saved.Type
		stats.people++
	}

	for i, mark := range ros.Attendance {
		t, ok := types[mark.Person]
		if !ok {
			p, err := cli.people.GetPerson(ctx, mark.Person)
			if err != nil {
				return errors.Wrapf(err, "attendance[%d]: person %q", i, mark.Person)
			}
			t = p.Type
		}
		rec := attendance.Record{
			PersonID:   mark.Person,
			PersonType: t,
			Date:       mark.Date,
			Status:     mark.Status,
			Notes:      null.NewString(mark.Notes, mark.Notes != ""),
			RecordedBy: null.NewString(mark.RecordedBy, mark.RecordedBy != ""),
		}
		if _, err := cli.records.SaveRecord(ctx, rec); err != nil {
			return errors.Wrapf(err, "attendance[%d]", i)
		}
		stats.marks++
	}

	fmt.Fprintf(cli.out, "imported %d classes, %d people, %d attendance marks\n", stats.classes, stats.people, stats.marks)
	return nil
}

func (cli *commandLine) rosterPerson(ctx context.Context, rp rosterPerson, classes map[string]person.Class) (person.Person, error) {
	t, err := person.ParseType(string(rp.Type))
	if err != nil {
		return person.Person{}, core.NewValidationError(err, core.FieldError{Field: "type", Error: err.Error()})
	}
	p := person.Person{
		ID:       rp.ID,
		Type:     t,
		Name:     core.CleanString(rp.Name),
		Phone:    core.CleanString(rp.Phone),
		IsActive: !rp.Inactive,
	}
	if p.Name == "" {
		return person.Person{}, core.NewValidationError(nil, core.FieldError{Field: "name", Error: "name is required"})
	}
	if t == person.TypeChild {
		p.ParentName = core.CleanString(rp.ParentName)
		if name := core.CleanString(rp.Class); name != "" {
			c, ok := classes[name]
			if !ok {
				if c, err = cli.people.GetClassByName(ctx, name); err != nil {
					return person.Person{}, err
				}
			}
			p.Class = &c
		}
	}
	return p, nil
}
