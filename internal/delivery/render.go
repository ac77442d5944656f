package delivery

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/ykvlv/dailyping/assets"
	"github.com/ykvlv/dailyping/internal/domain"
)

const (
	defaultAppURL = "https://dailyping.org"
	reminderTitle = "DailyPing Reminder"
)

// Renderer turns domain events into email messages and push payloads.
type Renderer struct {
	tmpl       *template.Template
	respondURL string
}

func NewRenderer(appURL string) (*Renderer, error) {
	tmpl, err := template.ParseFS(assets.TemplateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	for _, name := range assets.List() {
		if tmpl.Lookup(name) == nil {
			return nil, fmt.Errorf("template %s missing", name)
		}
	}
	appURL = strings.TrimRight(strings.TrimSpace(appURL), "/")
	if appURL == "" {
		appURL = defaultAppURL
	}
	return &Renderer{tmpl: tmpl, respondURL: appURL + "/respond"}, nil
}

type view struct {
	Name       string
	Prompt     string
	Streak     int
	RespondURL string
}

// Ping renders the daily ping in the user's tone.
func (r *Renderer) Ping(u domain.User) (Message, Payload, error) {
	p := domain.PromptFor(u.Preferences.Tone)
	v := view{Name: u.Username, Prompt: p.Body, Streak: u.Streak.Current, RespondURL: r.respondURL}
	html, err := r.execute("ping.html", v)
	if err != nil {
		return Message{}, Payload{}, err
	}
	msg := Message{Subject: p.Subject, HTML: html, Text: plainText(v, "Respond now")}
	return msg, Payload{Title: p.Subject, Body: p.Body, URL: r.respondURL}, nil
}

// Reminder renders an entry or sub-item reminder.
func (r *Renderer) Reminder(u domain.User, text string) (Message, Payload, error) {
	body := "Reminder: " + text
	v := view{Name: u.Username, Prompt: body, RespondURL: r.respondURL}
	html, err := r.execute("reminder.html", v)
	if err != nil {
		return Message{}, Payload{}, err
	}
	msg := Message{Subject: reminderTitle, HTML: html, Text: plainText(v, "Open DailyPing")}
	return msg, Payload{Title: reminderTitle, Body: body, URL: r.respondURL}, nil
}

func (r *Renderer) execute(name string, v view) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, v); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func plainText(v view, action string) string {
	var b strings.Builder
	b.WriteString("Hi")
	if v.Name != "" {
		b.WriteString(" " + v.Name)
	}
	b.WriteString(",\n\n")
	b.WriteString(v.Prompt)
	b.WriteString("\n\n")
	if v.Streak > 0 {
		fmt.Fprintf(&b, "Current streak: %d\n\n", v.Streak)
	}
	b.WriteString(action + ": " + v.RespondURL + "\n")
	return b.String()
}
