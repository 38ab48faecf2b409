package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/eventhub-saas/eventhub/internal/models"
)

var invitationTemplate = template.Must(template.New("invitation").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; background: #faf7f2; padding: 24px;">
  <div style="max-width: 560px; margin: 0 auto; background: #ffffff; border-radius: 12px; padding: 32px;">
    <p>Hello {{.GuestName}},</p>
    <h1 style="font-size: 24px;">You are invited to {{.EventName}}</h1>
    <p>{{.Date}}{{if .Location}} at {{.Location}}{{end}}</p>
    {{if .DressCode}}<p>Dress code: {{.DressCode}}</p>{{end}}
    {{if .Message}}<p>{{.Message}}</p>{{end}}
    <p style="margin: 32px 0;">
      <a href="{{.RSVPURL}}" style="background: #1f2937; color: #ffffff; padding: 12px 24px; border-radius: 8px; text-decoration: none;">Reply to the invitation</a>
    </p>
    <p style="color: #6b7280; font-size: 12px;">Sent with {{.SiteName}}</p>
  </div>
</body>
</html>`))

// InvitationData feeds the invitation template.
type InvitationData struct {
	GuestName string
	EventName string
	Date      string
	Location  string
	DressCode string
	Message   string
	RSVPURL   string
	SiteName  string
}

// RSVPLink returns the public RSVP page of a guest token.
func RSVPLink(appURL, token string) string {
	return strings.TrimRight(appURL, "/") + "/rsvp/" + token
}

// NewInvitationData collects the template fields of a guest invitation.
func NewInvitationData(event *models.Event, guest *models.Guest, appURL, siteName string) InvitationData {
	return InvitationData{
		GuestName: guest.FullName,
		EventName: event.Name,
		Date:      event.Date.UTC().Format(time.RFC1123),
		Location:  strings.TrimSpace(strings.Join(nonEmpty(event.LocationName, event.LocationAddress), ", ")),
		DressCode: event.DressCode,
		Message:   event.CustomMessage,
		RSVPURL:   RSVPLink(appURL, guest.InvitationToken),
		SiteName:  siteName,
	}
}

// RenderInvitation returns the subject and HTML body of an invitation.
func RenderInvitation(data InvitationData) (string, string, error) {
	var buf bytes.Buffer
	if errExec := invitationTemplate.Execute(&buf, data); errExec != nil {
		return "", "", fmt.Errorf("mail: render invitation: %w", errExec)
	}
	return "Invitation: " + data.EventName, buf.String(), nil
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
