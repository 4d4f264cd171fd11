// Package notify renders availability messages and delivers them over SMS
// (AWS SNS) and email (AWS SES).
package notify

import (
	"fmt"
	"strings"

	"github.com/ignite/seatwatch/internal/domain"
	"github.com/osteele/liquid"
)

// Subjects used for email deliveries.
var subjects = map[domain.Status]string{
	domain.StatusOpen:       "[AntAlmanac Class Notification] Class opened",
	domain.StatusWaitlisted: "[AntAlmanac Class Notification] Class waitlisted",
}

var bodies = map[domain.Status]string{
	domain.StatusOpen: `AntAlmanac: Space opened in {{ title | truncate: 60 }}. Code: {{ code }}
{{ link }}
To get notified again, re-subscribe: {{ manage_link }}`,
	domain.StatusWaitlisted: `AntAlmanac: Waitlist opened for {{ title | truncate: 60 }}. Code: {{ code }}
{{ link }}
To get notified again, re-subscribe: {{ manage_link }}`,
}

// MessageData is the input of a message template.
type MessageData struct {
	Title      string
	Code       domain.Code
	Link       string
	ManageLink string
}

// Renderer holds the compiled per-status templates.
type Renderer struct {
	templates map[domain.Status]*liquid.Template
}

// NewRenderer compiles the built-in templates.
func NewRenderer() (*Renderer, error) {
	engine := liquid.NewEngine()
	engine.RegisterFilter("truncate", truncate)

	r := &Renderer{templates: make(map[domain.Status]*liquid.Template, len(bodies))}
	for status, src := range bodies {
		tpl, err := engine.ParseString(src)
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", status, err)
		}
		r.templates[status] = tpl
	}
	return r, nil
}

// Render produces the message for status. Only dispatchable statuses have
// templates.
func (r *Renderer) Render(status domain.Status, data MessageData) (domain.Message, error) {
	tpl, ok := r.templates[status]
	if !ok {
		return domain.Message{}, fmt.Errorf("no template for status %q", status)
	}

	out, err := tpl.RenderString(map[string]interface{}{
		"title":       strings.TrimSpace(data.Title),
		"code":        data.Code.String(),
		"link":        data.Link,
		"manage_link": data.ManageLink,
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("rendering %s template: %w", status, err)
	}

	return domain.Message{Subject: subjects[status], Body: out}, nil
}

// truncate shortens s to at most length runes, ending in "..." when cut.
func truncate(s string, length int) string {
	if length < 0 {
		length = 0
	}
	runes := []rune(s)
	if len(runes) <= length {
		return s
	}
	if length <= 3 {
		return string(runes[:length])
	}
	return string(runes[:length-3]) + "..."
}
