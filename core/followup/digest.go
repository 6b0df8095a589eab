package followup

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/mail"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/kanisa/core"
)

const digestTemplate = "followup_digest"

var errNoRecipients = errors.New("digest has no recipients")

type digestData struct {
	Report     Report
	Population string
}

// NewDigestMessage builds the follow-up digest email of report, with the list attached as CSV.
func NewDigestMessage(report Report, recipients []mail.Address) (*core.EmailMessage, error) {
	if len(recipients) == 0 {
		return nil, errNoRecipients
	}
	population := report.Summary.PersonType.Plural()
	msg := &core.EmailMessage{
		To:           recipients,
		Subject:      fmt.Sprintf("Follow-up %s: %d to contact (week of %s)", population, report.Summary.Total, report.ServiceWeek),
		TemplateName: digestTemplate,
		TemplateData: digestData{Report: report, Population: population},
	}

	content, err := reportCSV(report)
	if err != nil {
		return nil, errors.Wrap(err, "writing digest csv")
	}
	filename := fmt.Sprintf("followup-%s-%s.csv", population, report.ServiceWeek)
	if err := msg.Attach(bytes.NewReader(content), filename, "text/csv"); err != nil {
		return nil, errors.Wrap(err, "attaching digest csv")
	}
	return msg, nil
}

func reportCSV(report Report) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"consecutiveWeeks", "id", "name", "phone", "parentName", "class", "lastAttendance", "notes"})
	for _, grp := range report.Groups {
		for _, mbr := range grp.Members {
			var lastAttendance string
			if mbr.LastAttendance != nil {
				lastAttendance = mbr.LastAttendance.String()
			}
			var class string
			if mbr.Class != nil {
				class = mbr.Class.Name
			}
			_ = w.Write([]string{
				strconv.Itoa(grp.ConsecutiveWeeks),
				mbr.ID,
				mbr.Name,
				mbr.Phone,
				mbr.ParentName,
				class,
				lastAttendance,
				mbr.Notes,
			})
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
