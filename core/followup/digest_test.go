package followup_test

import (
	"encoding/base64"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kanisa/core"
	"github.com/trezcool/kanisa/core/followup"
	"github.com/trezcool/kanisa/core/person"
	"github.com/trezcool/kanisa/fs"
	"github.com/trezcool/kanisa/tests"
)

func TestNewDigestMessage(t *testing.T) {
	last := testutil.Friday(3)
	report := followup.Report{
		Summary: followup.Summary{PersonType: person.TypeChild, Total: 2, GroupsCount: 2},
		Groups: []followup.Group{
			{ConsecutiveWeeks: 12, Count: 1, PersonType: person.TypeChild, Members: []followup.Member{
				{ID: "c1", Name: "Eshe", Phone: "0811000005", ParentName: "Mama Eshe"},
			}},
			{ConsecutiveWeeks: 3, Count: 1, PersonType: person.TypeChild, Members: []followup.Member{
				{ID: "c2", Name: "Dalila", Class: &person.Class{ID: "g3", Name: "Grade 3"}, LastAttendance: &last, Notes: "moved, new address"},
			}},
		},
		ServiceWeek:   testutil.Friday(0),
		LookbackWeeks: 12,
	}
	to := []mail.Address{{Address: "leader@test.cd"}}

	msg, err := followup.NewDigestMessage(report, to)
	require.NoError(t, err)

	conf := &core.Config{AppName: "Kanisa", FrontendBaseURL: "http://localhost:3000", TestMode: true}
	renderer, err := core.NewEmailRenderer(appfs.FS, appfs.EmailTemplatesDir, conf)
	require.NoError(t, err)
	require.NoError(t, renderer.Render(msg))

	assert.Contains(t, msg.TextContent, "Follow-up list of children, service week of 2024-05-03.")
	assert.Contains(t, msg.TextContent, "12 consecutive weeks (1):")
	assert.Contains(t, msg.TextContent, "- Eshe, 0811000005, parent: Mama Eshe, never attended")
	assert.Contains(t, msg.TextContent, "- Dalila, class: Grade 3, last attended 2024-04-12 (moved, new address)")
	assert.Contains(t, msg.TextContent, "Kanisa")
	assert.Contains(t, msg.HTMLContent, "<td>Dalila</td>")
	assert.Contains(t, msg.HTMLContent, "http://localhost:3000")

	require.Len(t, msg.Attachments, 1)
	csv, err := base64.StdEncoding.DecodeString(msg.Attachments[0].Content.String())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(csv)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "consecutiveWeeks,id,name,phone,parentName,class,lastAttendance,notes", lines[0])
	assert.Equal(t, "12,c1,Eshe,0811000005,Mama Eshe,,,", lines[1])
	assert.Equal(t, `3,c2,Dalila,,,Grade 3,2024-04-12,"moved, new address"`, lines[2])
}

func TestNewDigestMessage_empty(t *testing.T) {
	report := followup.Report{Summary: followup.Summary{PersonType: person.TypeServant}, ServiceWeek: testutil.Friday(0), LookbackWeeks: 12}

	msg, err := followup.NewDigestMessage(report, []mail.Address{{Address: "leader@test.cd"}})
	require.NoError(t, err)

	renderer, err := core.NewEmailRenderer(appfs.FS, appfs.EmailTemplatesDir, &core.Config{AppName: "Kanisa", TestMode: true})
	require.NoError(t, err)
	require.NoError(t, renderer.Render(msg))
	assert.Contains(t, msg.TextContent, "Nobody needs follow-up this week.")
	assert.Equal(t, "Follow-up servants: 0 to contact (week of 2024-05-03)", msg.Subject)
}
