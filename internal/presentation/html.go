package presentation

import (
	"bytes"
	"html/template"

	"github.com/Giopap1991/ai-agents/internal/models"
)

var deckTemplate = template.Must(template.New("deck").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <style>
      body { font-family: Arial, sans-serif; margin: 0; padding: 20px; }
      .slide { page-break-after: always; padding: 40px; height: 90vh; position: relative; }
      .slide-title { font-size: 32px; color: #333; margin-bottom: 40px; }
      .slide-content { font-size: 24px; }
      ul { margin: 0; padding-left: 25px; }
      li { margin-bottom: 15px; }
    </style>
  </head>
  <body>
    <div class="slide">
      <h1 class="slide-title" style="font-size: 40px; text-align: center;">{{.Topic}}</h1>
    </div>
    {{- range .Slides}}
    <div class="slide">
      <h2 class="slide-title">{{.Title}}</h2>
      <div class="slide-content">
        <ul>
          {{- range .Points}}
          <li>{{.}}</li>
          {{- end}}
        </ul>
      </div>
    </div>
    {{- end}}
  </body>
</html>
`))

// RenderHTML lays out a title slide followed by one page per slide. All
// model-produced text is escaped.
func RenderHTML(topic string, deck models.SlideDeck) (string, error) {
	var buf bytes.Buffer
	err := deckTemplate.Execute(&buf, struct {
		Topic  string
		Slides []models.Slide
	}{topic, deck.Slides})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
