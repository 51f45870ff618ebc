// Package report renders the merged evolution record into a single
// self-contained HTML document. It consumes the record read-only and is
// not part of the capture/analyze/merge core.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/calebh/contextmap/internal/evolution"
)

type stepView struct {
	Seq       int
	Intent    string
	Action    string
	Outcome   string
	Artifacts []string
	Trigger   string // why the work moved here from the previous step
}

type sessionView struct {
	SessionID string
	MergedAt  string
	Steps     []stepView
}

type pageData struct {
	Project      string
	UpdatedAt    string
	SessionCount int
	StepCount    int
	Anchor       evolution.Anchor
	Sessions     []sessionView
}

// Render produces the HTML document for a record.
func Render(project string, rec *evolution.Record) ([]byte, error) {
	data := pageData{
		Project:      project,
		UpdatedAt:    rec.UpdatedAt.Format("2006-01-02 15:04"),
		SessionCount: len(rec.Sessions),
		StepCount:    len(rec.Steps),
		Anchor:       rec.Anchor,
	}

	triggers := make(map[int]string, len(rec.Transitions))
	for _, t := range rec.Transitions {
		triggers[t.ToSeq] = t.Trigger
	}

	for _, span := range rec.Sessions {
		sv := sessionView{
			SessionID: span.SessionID,
			MergedAt:  span.MergedAt.Format("2006-01-02"),
		}
		for _, s := range rec.Steps {
			if s.Seq < span.FirstSeq || s.Seq > span.LastSeq {
				continue
			}
			sv.Steps = append(sv.Steps, stepView{
				Seq:       s.Seq,
				Intent:    s.Intent,
				Action:    s.Action,
				Outcome:   string(s.Outcome),
				Artifacts: s.Artifacts,
				Trigger:   triggers[s.Seq],
			})
		}
		data.Sessions = append(data.Sessions, sv)
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile renders the record and writes the document atomically.
func WriteFile(path, project string, rec *evolution.Record) error {
	html, err := Render(project, rec)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".journey-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp report: %w", err)
	}
	if _, err := tmp.Write(html); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace report: %w", err)
	}
	return nil
}

var pageTemplate = template.Must(template.New("journey").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>ContextMap · {{.Project}}</title>
<style>
  body { background:#1a1a1a; color:#e8e4df; margin:0;
         font:15px/1.7 -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; }
  main { max-width:880px; margin:0 auto; padding:48px 24px; }
  h1, h2 { font-family: Georgia, "Times New Roman", serif; font-weight:400; }
  h1 span { color:#d4a27f; }
  .meta { color:#a09a92; font-size:13px; margin-bottom:48px; }
  section { margin-bottom:48px; }
  .label { font-size:11px; text-transform:uppercase; letter-spacing:1.5px;
           color:#d4a27f; margin-bottom:12px; }
  .card { background:#222; border:1px solid rgba(255,255,255,0.07);
          border-radius:10px; padding:24px; margin-bottom:12px; }
  .card:hover { border-color:rgba(255,255,255,0.15); }
  .anchor-grid { display:grid; grid-template-columns:1fr 1fr; gap:12px; }
  @media (max-width:640px) { .anchor-grid { grid-template-columns:1fr; } }
  .session-divider { color:#d4a27f; font-size:11px; text-transform:uppercase;
                     letter-spacing:1.5px; margin:24px 0 12px; }
  .step-head { display:flex; gap:12px; align-items:baseline; }
  .step-num { color:#6b6560; font-family:monospace; }
  .badge { font-size:11px; padding:2px 10px; border-radius:999px; }
  .badge.success { background:rgba(110,200,155,0.12); color:#6ec89b; }
  .badge.failure { background:rgba(224,122,110,0.12); color:#e07a6e; }
  .badge.partial { background:rgba(224,184,97,0.12); color:#e0b861; }
  .action { color:#a09a92; margin:8px 0 0; }
  .artifact { font-family:monospace; font-size:12px; color:#d4a27f;
              background:rgba(212,162,127,0.12); border:1px solid rgba(212,162,127,0.2);
              border-radius:4px; padding:1px 6px; margin-right:6px; }
  .trigger { border-left:2px solid #d4a27f; color:#a09a92; font-style:italic;
             margin:12px 0 12px 12px; padding-left:12px; }
  ul { margin:8px 0; padding-left:20px; }
  footer { color:#6b6560; font-size:12px; border-top:1px solid rgba(255,255,255,0.07);
           padding-top:24px; }
</style>
</head>
<body>
<main>
  <h1>Context<span>Map</span></h1>
  <div class="meta">{{.Project}} · updated {{.UpdatedAt}} · {{.SessionCount}} sessions · {{.StepCount}} steps</div>

  <section id="anchor">
    <div class="label">Context Anchor</div>
    <div class="anchor-grid">
      <div class="card">
        <div class="label">Current State</div>
        {{.Anchor.CurrentState}}
      </div>
      <div class="card">
        <div class="label">Next Up</div>
        {{if .Anchor.NextSteps}}<ul>{{range .Anchor.NextSteps}}<li>{{.}}</li>{{end}}</ul>{{else}}Nothing queued.{{end}}
      </div>
      <div class="card">
        <div class="label">Open Concerns</div>
        {{if .Anchor.OpenConcerns}}<ul>{{range .Anchor.OpenConcerns}}<li>{{.}}</li>{{end}}</ul>{{else}}No open concerns.{{end}}
      </div>
    </div>
  </section>

  <section id="timeline">
    <div class="label">Evolution Timeline</div>
    {{range .Sessions}}
    <div class="session-divider">Session {{.SessionID}} · {{.MergedAt}}</div>
      {{range .Steps}}
      {{if .Trigger}}<div class="trigger">{{.Trigger}}</div>{{end}}
      <div class="card">
        <div class="step-head">
          <span class="step-num">#{{.Seq}}</span>
          <strong>{{.Intent}}</strong>
          <span class="badge {{.Outcome}}">{{.Outcome}}</span>
        </div>
        <p class="action">{{.Action}}</p>
        {{range .Artifacts}}<span class="artifact">{{.}}</span>{{end}}
      </div>
      {{end}}
    {{else}}
    <div class="card">No sessions analyzed yet.</div>
    {{end}}
  </section>

  <footer>Generated by ContextMap · {{.UpdatedAt}}</footer>
</main>
</body>
</html>
`))
