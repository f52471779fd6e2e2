package core_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minuum/qr-prayer-check/core"
)

func TestEmailMessage_Render(t *testing.T) {
	msg := &core.EmailMessage{
		Subject:      "출석 리포트",
		TemplateName: "attendance_report",
		TemplateData: map[string]interface{}{
			"Period":          "2026-03-02 ~ 2026-03-06",
			"TotalCheckIns":   4,
			"UniqueAttendees": 2,
			"SessionDays":     3,
			"Daily":           nil,
			"Rankings":        nil,
		},
	}
	require.NoError(t, msg.Render("2026 주중기도회"))
	assert.True(t, msg.HasContent())
	assert.True(t, strings.Contains(msg.TextContent, "2026-03-02 ~ 2026-03-06"), msg.TextContent)
	assert.True(t, strings.Contains(msg.HTMLContent, "2026-03-02 ~ 2026-03-06"), msg.HTMLContent)

	unknown := &core.EmailMessage{TemplateName: "lol"}
	assert.EqualError(t, unknown.Render("app"), `email template "lol" not found`)
}
