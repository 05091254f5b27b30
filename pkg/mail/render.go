package mail

import (
	"fmt"
	"html/template"
	"strings"
	"time"
)

// RankedItem is one article as it appears in the outgoing email.
type RankedItem struct {
	Rank           int
	Title          string
	Summary        string
	URL            string
	SourceType     string
	RelevanceScore float64
}

func Subject(userName string, date time.Time) string {
	if userName == "" {
		return "Daily AI News Digest - " + date.Format("Jan 2, 2006")
	}
	return fmt.Sprintf("Daily AI News Digest for %s - %s", userName, date.Format("Jan 2, 2006"))
}

// RenderText produces the plain-text part of the digest email.
func RenderText(userName string, items []RankedItem) string {
	var sb strings.Builder

	greeting := "Hello"
	if userName != "" {
		greeting = "Hello " + userName
	}
	sb.WriteString(greeting + ",\n\n")
	sb.WriteString(fmt.Sprintf("Here are your top %d AI stories today:\n\n", len(items)))

	for _, item := range items {
		sb.WriteString(fmt.Sprintf("%d. %s [%s]\n", item.Rank, item.Title, item.SourceType))
		sb.WriteString(item.Summary + "\n")
		sb.WriteString(item.URL + "\n\n")
	}

	sb.WriteString("— aidigest\n")
	return sb.String()
}

var htmlTemplate = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; max-width: 640px; margin: 0 auto;">
	<p>Hello{{if .Name}} {{.Name}}{{end}},</p>
	<p>Here are your top {{len .Items}} AI stories today:</p>
	{{range .Items}}
	<div style="margin-bottom: 24px;">
		<h3 style="margin-bottom: 4px;">{{.Rank}}. <a href="{{.URL}}">{{.Title}}</a></h3>
		<p style="color: #555; margin: 0 0 4px 0; font-size: 12px;">{{.SourceType}} · relevance {{printf "%.1f" .RelevanceScore}}</p>
		<p style="margin: 0;">{{.Summary}}</p>
	</div>
	{{end}}
	<p style="color: #999; font-size: 12px;">— aidigest</p>
</body>
</html>`))

// RenderHTML produces the HTML part of the digest email.
func RenderHTML(userName string, items []RankedItem) (string, error) {
	var sb strings.Builder
	err := htmlTemplate.Execute(&sb, struct {
		Name  string
		Items []RankedItem
	}{Name: userName, Items: items})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}
