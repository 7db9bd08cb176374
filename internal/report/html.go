package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	texttemplate "text/template"
	"time"

	"tsa-volume-tracker/internal/series"
)

// EmailData feeds the report email body templates.
type EmailData struct {
	Summary     *series.Summary
	GeneratedAt time.Time
	SourceURL   string
}

const emailHTML = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, Helvetica, sans-serif; color: #222222; margin: 0; padding: 16px;">
  <h2 style="margin: 0 0 4px 0;">TSA Checkpoint Passenger Volumes</h2>
  <p style="margin: 0 0 16px 0; color: #666666;">Daily report generated {{date .GeneratedAt}}</p>
  <table cellpadding="6" cellspacing="0" style="border-collapse: collapse;">
    <tr>
      <td style="border: 1px solid #cccccc;">Latest day</td>
      <td style="border: 1px solid #cccccc;"><b>{{date .Summary.LatestDate}}</b></td>
    </tr>
    <tr>
      <td style="border: 1px solid #cccccc;">Passengers screened</td>
      <td style="border: 1px solid #cccccc;"><b>{{comma .Summary.LatestVolume}}</b></td>
    </tr>
    <tr>
      <td style="border: 1px solid #cccccc;">Year-over-year</td>
      <td style="border: 1px solid #cccccc;">{{pct .Summary.LatestYoYPct}}</td>
    </tr>
    <tr>
      <td style="border: 1px solid #cccccc;">30-day average</td>
      <td style="border: 1px solid #cccccc;">{{comma .Summary.ThirtyDayAvg}}</td>
    </tr>
    <tr>
      <td style="border: 1px solid #cccccc;">Year-to-date average</td>
      <td style="border: 1px solid #cccccc;">{{comma .Summary.YTDAvg}}</td>
    </tr>
    <tr>
      <td style="border: 1px solid #cccccc;">Prior-year average</td>
      <td style="border: 1px solid #cccccc;">{{comma .Summary.PriorYearAvg}}</td>
    </tr>
    <tr>
      <td style="border: 1px solid #cccccc;">YTD vs prior year</td>
      <td style="border: 1px solid #cccccc;">{{pct .Summary.YTDvsPriorPct}}</td>
    </tr>
    <tr>
      <td style="border: 1px solid #cccccc;">Days of data</td>
      <td style="border: 1px solid #cccccc;">{{.Summary.TotalDays}}</td>
    </tr>
  </table>
  <p style="margin-top: 16px; font-size: 12px; color: #999999;">
    Source: TSA checkpoint travel numbers, <a href="{{.SourceURL}}">tsa.gov</a>.
    Chart and CSV exports attached.
  </p>
</body>
</html>
`

const emailText = `TSA Checkpoint Passenger Volumes
Daily report generated {{date .GeneratedAt}}

Latest day:           {{date .Summary.LatestDate}}
Passengers screened:  {{comma .Summary.LatestVolume}}
Year-over-year:       {{pct .Summary.LatestYoYPct}}
30-day average:       {{comma .Summary.ThirtyDayAvg}}
Year-to-date average: {{comma .Summary.YTDAvg}}
Prior-year average:   {{comma .Summary.PriorYearAvg}}
YTD vs prior year:    {{pct .Summary.YTDvsPriorPct}}

Source: TSA checkpoint travel numbers ({{.SourceURL}})
Chart and CSV exports attached.
`

var emailFuncs = map[string]interface{}{
	"comma": commaFormat,
	"pct":   pctFormat,
	"date":  func(t time.Time) string { return t.Format("Mon Jan 2, 2006") },
}

var (
	emailHTMLTmpl = template.Must(template.New("email-html").Funcs(emailFuncs).Parse(emailHTML))
	emailTextTmpl = texttemplate.Must(texttemplate.New("email-text").Funcs(emailFuncs).Parse(emailText))
)

// RenderEmailHTML renders the HTML report body.
func RenderEmailHTML(data EmailData) (string, error) {
	var buf bytes.Buffer
	if err := emailHTMLTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("report: render html body: %w", err)
	}
	return buf.String(), nil
}

// RenderEmailText renders the plain-text alternative body.
func RenderEmailText(data EmailData) (string, error) {
	var buf bytes.Buffer
	if err := emailTextTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("report: render text body: %w", err)
	}
	return buf.String(), nil
}

// commaFormat groups an integer with thousands separators.
func commaFormat(n int64) string {
	if n < 0 {
		return "-" + commaFormat(-n)
	}
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// pctFormat renders an optional percentage, "n/a" when absent.
func pctFormat(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.1f%%", *p)
}
