// Package normalize turns backend "assessment start" payloads into the
// canonical AssessmentSession. Payload shapes differ between callers and
// record generations; everything optional falls back to the Defaults table.
package normalize

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/terra-clan/assessment-engine/internal/models"
)

var (
	ErrInvalidPayload      = errors.New("start payload is not a JSON object")
	ErrMissingAssessmentID = errors.New("start payload has no assessment_id")
	ErrMissingToken        = errors.New("start payload has no token")
)

// Report lists what the repo-file policy did to the payload's entries.
// Entries without a path are dropped; a repeated path overwrites the earlier
// entry's content and keeps its position.
type Report struct {
	DroppedFiles     int      `json:"dropped_files"`
	OverwrittenPaths []string `json:"overwritten_paths,omitempty"`
}

// Clean returns true if no entry was dropped or overwritten
func (r Report) Clean() bool {
	return r.DroppedFiles == 0 && len(r.OverwrittenPaths) == 0
}

// Normalizer maps raw start payloads using a fixed defaults table
type Normalizer struct {
	defaults Defaults
}

// New creates a normalizer. A table with a non-positive duration is replaced
// by DefaultTable; an empty indent falls back to the default indent.
func New(defaults Defaults) *Normalizer {
	if defaults.Validate() != nil {
		defaults = DefaultTable()
	}
	if defaults.ContentIndent == "" {
		defaults.ContentIndent = DefaultTable().ContentIndent
	}
	return &Normalizer{defaults: defaults}
}

// Defaults returns the table in use
func (n *Normalizer) Defaults() Defaults {
	return n.defaults
}

// Normalize maps raw with the built-in defaults
func Normalize(raw []byte) (*models.AssessmentSession, error) {
	return New(DefaultTable()).Normalize(raw)
}

// Normalize maps a raw start payload to a session
func (n *Normalizer) Normalize(raw []byte) (*models.AssessmentSession, error) {
	session, _, err := n.NormalizeWithReport(raw)
	return session, err
}

// NormalizeWithReport maps a raw start payload and reports repo-file entries
// that were dropped or overwritten.
func (n *Normalizer) NormalizeWithReport(raw []byte) (*models.AssessmentSession, Report, error) {
	if !gjson.ValidBytes(raw) {
		return nil, Report{}, ErrInvalidPayload
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil, Report{}, ErrInvalidPayload
	}

	id := scalarText(root.Get("assessment_id"))
	if id == "" {
		return nil, Report{}, ErrMissingAssessmentID
	}
	token := scalarText(root.Get("token"))
	if token == "" {
		return nil, Report{}, ErrMissingToken
	}

	task := root.Get("task")

	duration := n.defaults.DurationMinutes
	if d, ok := positiveInt(task.Get("duration_minutes")); ok && d <= MaxDurationMinutes {
		duration = d
	}

	remaining := duration * 60
	if tr, ok := number(root.Get("time_remaining")); ok {
		remaining = clamp(tr, 0, duration*60)
	}

	files, report := n.repoFiles(firstPresent(task.Get("repo_structure"), root.Get("repo_structure")))

	session := &models.AssessmentSession{
		ID:                id,
		Token:             token,
		StarterCode:       text(task.Get("starter_code")),
		DurationMinutes:   duration,
		RemainingSeconds:  remaining,
		TaskName:          text(firstPresent(task.Get("name"), task.Get("title"))),
		Description:       text(task.Get("description")),
		Scenario:          text(task.Get("scenario")),
		RepoFiles:         files,
		RubricCategories:  rubric(task.Get("rubric_categories"), root.Get("rubric_categories")),
		CloneCommand:      optionalText(firstPresent(task.Get("clone_command"), root.Get("clone_command"))),
		Budget:            budget(root.Get("claude_budget")),
		IsPaused:          n.defaults.IsPaused,
		PauseReason:       n.defaults.PauseReason,
		ProctoringEnabled: task.Get("proctoring_enabled").Bool(),
	}

	if p := root.Get("is_timer_paused"); p.Type == gjson.True || p.Type == gjson.False {
		session.IsPaused = p.Bool()
	}
	if r := root.Get("pause_reason"); r.Type == gjson.String {
		session.PauseReason = models.PauseReason(r.Str)
	}

	return session, report, nil
}

func (n *Normalizer) repoFiles(src gjson.Result) ([]models.RepoFile, Report) {
	var report Report
	files := []models.RepoFile{}
	index := make(map[string]int)

	add := func(path, content string) {
		path = strings.TrimSpace(path)
		if path == "" {
			report.DroppedFiles++
			return
		}
		if i, ok := index[path]; ok {
			files[i].Content = content
			report.OverwrittenPaths = append(report.OverwrittenPaths, path)
			return
		}
		index[path] = len(files)
		files = append(files, models.RepoFile{Path: path, Content: content})
	}

	switch {
	case src.IsArray():
		src.ForEach(func(_, entry gjson.Result) bool {
			if !entry.IsObject() {
				report.DroppedFiles++
				return true
			}
			add(scalarText(firstPresent(entry.Get("path"), entry.Get("name"))), n.content(entry.Get("content")))
			return true
		})
	case src.IsObject():
		src.ForEach(func(key, value gjson.Result) bool {
			add(key.String(), n.content(value))
			return true
		})
	}

	return files, report
}

// content renders a file body as text. Objects and arrays are pretty printed,
// other scalars keep their literal JSON text.
func (n *Normalizer) content(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Null:
		return ""
	case gjson.JSON:
		out := pretty.PrettyOptions([]byte(v.Raw), &pretty.Options{
			Width:  80,
			Indent: n.defaults.ContentIndent,
		})
		return strings.TrimRight(string(out), "\n")
	default:
		return v.Raw
	}
}

func rubric(primary, fallback gjson.Result) []models.RubricCategory {
	src := primary
	if !src.IsArray() {
		src = fallback
	}

	categories := []models.RubricCategory{}
	if !src.IsArray() {
		return categories
	}
	for _, entry := range src.Array() {
		if !entry.IsObject() {
			continue
		}
		name := scalarText(firstPresent(entry.Get("category"), entry.Get("name")))
		if name == "" {
			continue
		}
		categories = append(categories, models.RubricCategory{
			Category: name,
			Weight:   entry.Get("weight").Float(),
		})
	}
	return categories
}

func budget(v gjson.Result) *models.Budget {
	if !v.IsObject() {
		return nil
	}
	return &models.Budget{
		LimitUSD:    v.Get("limit_usd").Float(),
		ConsumedUSD: firstPresent(v.Get("consumed_usd"), v.Get("used_usd")).Float(),
	}
}

// firstPresent returns the first result that exists and is not null
func firstPresent(results ...gjson.Result) gjson.Result {
	for _, r := range results {
		if r.Exists() && r.Type != gjson.Null {
			return r
		}
	}
	return gjson.Result{}
}

// scalarText returns strings and numbers as text, "" for anything else
func scalarText(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return strings.TrimSpace(v.Str)
	case gjson.Number:
		return v.Raw
	default:
		return ""
	}
}

func text(v gjson.Result) string {
	if v.Type == gjson.String {
		return v.Str
	}
	return ""
}

func optionalText(v gjson.Result) *string {
	if v.Type != gjson.String || strings.TrimSpace(v.Str) == "" {
		return nil
	}
	s := v.Str
	return &s
}

// number accepts JSON numbers and numeric strings
func number(v gjson.Result) (int, bool) {
	switch v.Type {
	case gjson.Number:
		if math.Abs(v.Num) > maxNumber {
			return 0, false
		}
		return int(v.Int()), true
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil || math.IsNaN(f) || math.Abs(f) > maxNumber {
			return 0, false
		}
		return int(f), true
	default:
		return 0, false
	}
}

func positiveInt(v gjson.Result) (int, bool) {
	n, ok := number(v)
	if !ok || n <= 0 {
		return 0, false
	}
	return n, true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
