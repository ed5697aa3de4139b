package llm

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"GrowthAgent/internal/domain"
)

// Prompt file names inside the prompts directory.
const (
	EvaluationSystemFile = "content_evaluation.txt"
	EvaluationUserFile   = "content_evaluation_user.txt"
	DraftSystemFile      = "blog_generation.txt"
	DraftUserFile        = "blog_generation_user.txt"
)

const defaultEvaluationSystem = `You are a senior technology editor. Rate how valuable a piece of content is
for readers interested in AI, software engineering, and business growth.

Respond with a single JSON object and nothing else:
{"score": <integer 0-100>, "summary": "<one or two sentences>", "rationale": "<why it matters>"}

Scoring guide: 90-100 exceptional insight, 75-89 strong, 60-74 useful, below 60 noise.`

const defaultEvaluationUser = `Analyze this content from {{.Author}} ({{.Source}}):
{{- if .Title}}
Title: {{.Title}}
{{- end}}
{{- if .URL}}
URL: {{.URL}}
{{- end}}

{{.Content}}

Provide your evaluation in the required JSON format.`

const defaultDraftSystem = `You are a tech content writer producing a daily blog post.

CONTEXT:
{{.Context}}

REQUIREMENTS:
- Write clear, engaging content of 800-1500 words in markdown
- Start with YAML frontmatter between --- lines containing title, summary, and tags
- Credit each source by author and link`

const defaultDraftUser = `Based on the following curated content:
{{range .Items}}
**Source #{{.Index}}**
- Author: {{.Author}}
- URL: {{.URL}}
- Score: {{.Score}}/100
- Summary: {{.Summary}}
- Value: {{.Rationale}}
{{end}}
Generate a blog post.`

// EvaluationInput is the data available to the evaluation templates.
type EvaluationInput struct {
	Author  string
	Source  string
	Title   string
	URL     string
	Content string
}

// DraftItem is one curated record as shown to the drafter.
type DraftItem struct {
	Index     int
	Author    string
	Title     string
	URL       string
	Score     int
	Summary   string
	Rationale string
}

// DraftInput is the data available to the blog generation templates.
type DraftInput struct {
	Context string
	Items   []DraftItem
}

// Prompts holds the four parsed templates. Files found in the prompts
// directory replace the built-in defaults.
type Prompts struct {
	evalSystem  *template.Template
	evalUser    *template.Template
	draftSystem *template.Template
	draftUser   *template.Template
}

// DefaultPrompts returns the built-in templates.
func DefaultPrompts() *Prompts {
	p, err := LoadPrompts("")
	if err != nil {
		panic(err)
	}
	return p
}

// LoadPrompts parses templates from dir, falling back to the built-in
// default for every file that does not exist. An empty dir means defaults only.
func LoadPrompts(dir string) (*Prompts, error) {
	var p Prompts
	var err error
	if p.evalSystem, err = loadTemplate(dir, EvaluationSystemFile, defaultEvaluationSystem); err != nil {
		return nil, err
	}
	if p.evalUser, err = loadTemplate(dir, EvaluationUserFile, defaultEvaluationUser); err != nil {
		return nil, err
	}
	if p.draftSystem, err = loadTemplate(dir, DraftSystemFile, defaultDraftSystem); err != nil {
		return nil, err
	}
	if p.draftUser, err = loadTemplate(dir, DraftUserFile, defaultDraftUser); err != nil {
		return nil, err
	}
	return &p, nil
}

func loadTemplate(dir, name, fallback string) (*template.Template, error) {
	text := fallback
	if dir != "" {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		switch {
		case err == nil:
			text = string(raw)
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("%w: read prompt %s: %v", domain.ErrConfiguration, name, err)
		}
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: parse prompt %s: %v", domain.ErrConfiguration, name, err)
	}
	return tmpl, nil
}

// Evaluation renders the system and user messages for one record.
func (p *Prompts) Evaluation(text string, jc domain.JudgeContext) (system, user string, err error) {
	author := jc.Author
	if author == "" {
		author = "Unknown"
	}
	in := EvaluationInput{
		Author:  author,
		Source:  strings.ToUpper(string(jc.Source)),
		Title:   jc.Title,
		URL:     jc.URL,
		Content: text,
	}
	if system, err = execute(p.evalSystem, in); err != nil {
		return "", "", err
	}
	if user, err = execute(p.evalUser, in); err != nil {
		return "", "", err
	}
	return system, user, nil
}

// Draft renders the system and user messages for a day's curated records.
func (p *Prompts) Draft(records []domain.CuratedRecord, blogContext string) (system, user string, err error) {
	in := DraftInput{Context: blogContext, Items: make([]DraftItem, len(records))}
	for i, r := range records {
		author := r.Author
		if author == "" {
			author = "Unknown"
		}
		url := r.URL
		if url == "" {
			url = "N/A"
		}
		in.Items[i] = DraftItem{
			Index:     i + 1,
			Author:    author,
			Title:     r.Title,
			URL:       url,
			Score:     r.Score,
			Summary:   r.Summary,
			Rationale: r.Rationale,
		}
	}
	if system, err = execute(p.draftSystem, in); err != nil {
		return "", "", err
	}
	if user, err = execute(p.draftUser, in); err != nil {
		return "", "", err
	}
	return system, user, nil
}

func execute(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", tmpl.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}
