package emailsvc

import (
	"bytes"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/fs"
)

func TestConsoleService_SendMessages(t *testing.T) {
	require.NoError(t, core.ParseEmailTemplates(appfs.FS, true))

	conf := core.NewTestConfig()
	svc := NewConsoleServiceMock(conf)
	var out bytes.Buffer
	svc.out = &out

	svc.SendMessages(
		&core.EmailMessage{
			To:           []mail.Address{{Name: "Amani", Address: "amani@masomo.test"}},
			Subject:      "Graded: Essay",
			TemplateName: "grade_published",
			TemplateData: map[string]interface{}{
				"StudentName":     "Amani",
				"AssignmentID":    4,
				"AssignmentTitle": "Essay",
				"Grade":           18.0,
				"MaxPoints":       20.0,
				"Feedback":        "Well argued",
			},
		},
		&core.EmailMessage{Subject: "no recipients", BodyStr: "dropped"},
	)

	sent := svc.Sent()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].TextContent, `Your submission for "Essay" has been graded: 18/20.`)
	assert.Contains(t, sent[0].TextContent, "Well argued")
	assert.Contains(t, sent[0].TextContent, conf.FrontendBaseURL+"/assignments/4")
	assert.Contains(t, sent[0].HTMLContent, "<strong>Essay</strong>")

	assert.Contains(t, out.String(), "Subject: [Masomo] Graded: Essay")
	assert.Contains(t, out.String(), `To: "Amani" <amani@masomo.test>`)
}

func TestConsoleService_plainBody(t *testing.T) {
	svc := NewConsoleServiceMock(core.NewTestConfig())

	svc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Address: "teacher@masomo.test"}},
		Subject: "Hello",
		BodyStr: "plain text",
	})

	sent := svc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "plain text", sent[0].TextContent)
	assert.Empty(t, sent[0].HTMLContent)
}
