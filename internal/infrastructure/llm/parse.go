package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"GrowthAgent/internal/domain"
	"GrowthAgent/internal/frontmatter"
)

var (
	thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)
	codeFence  = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\\n(.*?)\\n?```\\s*$")
	markdown   = goldmark.New()
)

// cleanOutput removes reasoning blocks and a wrapping code fence.
func cleanOutput(raw string) string {
	out := strings.TrimSpace(thinkBlock.ReplaceAllString(raw, ""))
	if m := codeFence.FindStringSubmatch(out); m != nil {
		out = strings.TrimSpace(m[1])
	}
	return out
}

type judgementPayload struct {
	Score     *float64 `json:"score"`
	Summary   string   `json:"summary"`
	Rationale string   `json:"rationale"`
	Comment   string   `json:"comment"`
}

// ParseJudgement extracts the JSON verdict from model output. Anything that
// is not a JSON object with an in-range score and a summary is malformed.
func ParseJudgement(raw string) (domain.Judgement, error) {
	out := cleanOutput(raw)
	start := strings.Index(out, "{")
	end := strings.LastIndex(out, "}")
	if start < 0 || end <= start {
		return domain.Judgement{}, malformed(errors.New("no JSON object in output"))
	}

	var p judgementPayload
	if err := json.Unmarshal([]byte(out[start:end+1]), &p); err != nil {
		return domain.Judgement{}, malformed(fmt.Errorf("decode verdict: %w", err))
	}
	if p.Score == nil {
		return domain.Judgement{}, malformed(errors.New("verdict has no score"))
	}
	score := int(math.Round(*p.Score))
	if score < domain.MinScore || score > domain.MaxScore {
		return domain.Judgement{}, malformed(fmt.Errorf("score %v outside 0..100", *p.Score))
	}
	summary := strings.TrimSpace(p.Summary)
	if summary == "" {
		return domain.Judgement{}, malformed(errors.New("verdict has no summary"))
	}
	rationale := strings.TrimSpace(p.Rationale)
	if rationale == "" {
		rationale = strings.TrimSpace(p.Comment)
	}
	return domain.Judgement{Score: score, Summary: summary, Rationale: rationale}, nil
}

func malformed(err error) error {
	return &domain.JudgementError{Malformed: true, Err: err}
}

type draftHeader struct {
	Title   string   `yaml:"title"`
	Date    string   `yaml:"date"`
	Summary string   `yaml:"summary"`
	Tags    []string `yaml:"tags"`
	Author  string   `yaml:"author"`
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"}

// ParseDraft splits model output into frontmatter fields and a markdown body.
// Missing or broken frontmatter leaves the fields empty and keeps the whole
// output as the body; the title then falls back to the first level-one
// heading and the summary to the first paragraph.
func ParseDraft(raw string) (domain.Draft, error) {
	out := cleanOutput(raw)
	if out == "" {
		return domain.Draft{}, &domain.DraftError{Kind: domain.FailurePermanent, Err: errors.New("empty draft")}
	}

	var header draftHeader
	body, err := frontmatter.Parse([]byte(out+"\n"), &header)
	if err != nil {
		header = draftHeader{}
		body = []byte(out)
	}

	draft := domain.Draft{
		Title:   strings.TrimSpace(header.Title),
		Summary: strings.TrimSpace(header.Summary),
		Tags:    header.Tags,
		Author:  strings.TrimSpace(header.Author),
		Body:    strings.TrimSpace(string(body)) + "\n",
	}
	if t, ok := parseDate(header.Date); ok {
		draft.Date = &t
	}

	if draft.Title == "" || draft.Summary == "" {
		heading, paragraph := outline(body)
		if draft.Title == "" {
			draft.Title = heading
		}
		if draft.Summary == "" {
			draft.Summary = paragraph
		}
	}
	if strings.TrimSpace(draft.Body) == "" {
		return domain.Draft{}, &domain.DraftError{Kind: domain.FailurePermanent, Err: errors.New("draft has no body")}
	}
	return draft, nil
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// outline returns the text of the first level-one heading and of the first
// paragraph in a markdown document.
func outline(source []byte) (heading, paragraph string) {
	doc := markdown.Parser().Parse(text.NewReader(source))
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			if heading == "" && node.Level == 1 {
				heading = inlineText(node, source)
			}
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph:
			if paragraph == "" {
				paragraph = inlineText(node, source)
			}
			return ast.WalkSkipChildren, nil
		}
		if heading != "" && paragraph != "" {
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return heading, paragraph
}

func inlineText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		case *ast.CodeSpan:
			for child := t.FirstChild(); child != nil; child = child.NextSibling() {
				if txt, ok := child.(*ast.Text); ok {
					buf.Write(txt.Value(source))
				}
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(buf.String()), " ")
}
