package notification

import (
	"bytes"
	"html/template"
	"strings"
)

// SubjectPrefix starts every outgoing notification subject.
const SubjectPrefix = "New notification"

// emailData feeds both the HTML and plain-text templates.
type emailData struct {
	Subject  string
	Greeting string
	Summary  string
	Details  []string
	Link     string
}

// emailTmpl is the HTML wrapper applied to every outgoing notification.
// All fields are auto-escaped by html/template.
var emailTmpl = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width,initial-scale=1.0">
  <title>{{.Subject}}</title>
</head>
<body style="margin:0;padding:0;background-color:#f4f4f5;
     font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,Arial,sans-serif;">
  <table width="100%" cellpadding="0" cellspacing="0" role="presentation"
         style="background-color:#f4f4f5;padding:40px 16px;">
    <tr>
      <td align="center">
        <table width="600" cellpadding="0" cellspacing="0" role="presentation"
               style="max-width:600px;width:100%;">

          <!-- ── Subject bar ────────────────────────────────────── -->
          <tr>
            <td style="background-color:#18181f;padding:16px 40px;border-left:3px solid #6366f1;
                       border-radius:12px 12px 0 0;">
              <p style="margin:0;font-size:15px;font-weight:600;color:#e5e7eb;">{{.Subject}}</p>
            </td>
          </tr>

          <!-- ── Body ──────────────────────────────────────────── -->
          <tr>
            <td style="background-color:#ffffff;padding:36px 40px;">
              <p style="margin:0 0 16px;font-size:14px;color:#111827;">{{.Greeting}}</p>
              <p style="margin:0 0 16px;font-size:14px;line-height:1.7;color:#374151;">{{.Summary}}</p>
              {{- if .Details}}
              <ul style="margin:0 0 16px;padding-left:20px;font-size:13px;color:#4b5563;">
                {{- range .Details}}
                <li>{{.}}</li>
                {{- end}}
              </ul>
              {{- end}}
              {{- if .Link}}
              <a href="{{.Link}}"
                 style="display:inline-block;padding:10px 18px;background-color:#6366f1;color:#ffffff;
                        border-radius:6px;font-size:14px;text-decoration:none;">Open</a>
              {{- end}}
            </td>
          </tr>

          <!-- ── Footer ────────────────────────────────────────── -->
          <tr>
            <td style="background-color:#f9fafb;padding:20px 40px;
                       border-top:1px solid #e5e7eb;border-radius:0 0 12px 12px;">
              <p style="margin:0;font-size:12px;color:#9ca3af;">
                You are receiving this because you have unread notifications.
              </p>
            </td>
          </tr>

        </table>
      </td>
    </tr>
  </table>
</body>
</html>
`))

// buildEmailHTML renders the HTML email template.
func buildEmailHTML(d emailData) (string, error) {
	var buf bytes.Buffer
	if err := emailTmpl.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// buildEmailText renders the plain-text fallback body.
func buildEmailText(d emailData) string {
	var b strings.Builder
	b.WriteString(d.Greeting)
	b.WriteString("\n\n")
	b.WriteString(d.Summary)
	b.WriteString("\n")
	for _, line := range d.Details {
		b.WriteString("\n  - ")
		b.WriteString(line)
	}
	if d.Link != "" {
		b.WriteString("\n\n")
		b.WriteString(d.Link)
	}
	b.WriteString("\n")
	return b.String()
}
