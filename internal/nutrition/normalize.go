package nutrition

import (
	"strings"
	"unicode"

	"github.com/tidwall/gjson"
)

const (
	codeFence    = "```"
	notAvailable = "N/A"
)

// retakePhrases short-circuit prose parsing. Matching is case-sensitive.
var retakePhrases = []string{RetakeMessage, "Uncertain"}

// transportErrorPrefixes mark text produced by a failed vendor call rather
// than by the model.
var transportErrorPrefixes = []string{"API Error", "Error:"}

// Normalize converts a raw model reply into a Record. The reply is tried as a
// JSON object first; text that is not JSON is classified as a transport error
// or parsed as prose. Normalize never fails: the worst case is a record of
// defaults.
func Normalize(raw string) *Record {
	if strings.Contains(raw, RetakeMessage) {
		return RetakeRecord()
	}
	if rec, ok := ParseJSON(raw); ok {
		return rec
	}
	if isTransportError(raw) {
		return ErrorRecord(strings.TrimSpace(raw))
	}
	return ParseProse(raw)
}

// ParseJSON reads raw as a single JSON object, optionally wrapped in a
// Markdown code fence. ok is false when raw is not a JSON object.
//
// An "error" key yields an ErrorRecord. Otherwise dish_name, description and
// portion_estimate are read with defaults, and a nutrition object, when
// present, is rendered as the six canonical lines with "N/A" for missing keys.
func ParseJSON(raw string) (rec *Record, ok bool) {
	body := unwrapFence(strings.TrimSpace(raw))
	if !gjson.Valid(body) {
		return nil, false
	}
	doc := gjson.Parse(body)
	if !doc.IsObject() {
		return nil, false
	}

	if errVal := doc.Get("error"); errVal.Exists() {
		errRec := ErrorRecord(errVal.String())
		errRec.Form = FormJSON
		return errRec, true
	}

	rec = &Record{
		DishName:       stringOr(doc.Get("dish_name"), UnknownDish),
		Description:    stringOr(doc.Get("description"), NoDescription),
		NutritionLines: []string{},
		Form:           FormJSON,
	}

	if portion := doc.Get("portion_estimate"); portion.Exists() && portion.Type != gjson.Null {
		s := portion.String()
		rec.PortionEstimate = &s
	}

	if facts := doc.Get("nutrition"); facts.IsObject() {
		rec.NutritionLines = make([]string, 0, len(Nutrients))
		for _, n := range Nutrients {
			rec.NutritionLines = append(rec.NutritionLines, nutritionLine(n.Label, stringOr(facts.Get(n.Key), notAvailable)))
		}
	}

	return rec, true
}

// ParseProse reads raw as line-oriented text: dish name, description,
// nutrition lines, and a final portion line. Bullet and emphasis markers are
// stripped and blank lines dropped. Nutrition lines are kept verbatim and are
// not checked against the canonical six; see Record.HasCanonicalNutrition.
func ParseProse(raw string) *Record {
	for _, phrase := range retakePhrases {
		if strings.Contains(raw, phrase) {
			return RetakeRecord()
		}
	}

	rec := &Record{
		DishName:       UnknownDish,
		Description:    NoDescription,
		NutritionLines: []string{},
		Form:           FormProse,
	}

	lines := cleanLines(raw)
	if len(lines) == 0 {
		return rec
	}

	rec.DishName = lines[0]
	if len(lines) > 1 {
		rec.Description = lines[1]
	}
	if len(lines) > 2 {
		portion := lines[len(lines)-1]
		rec.PortionEstimate = &portion
		rec.NutritionLines = append(rec.NutritionLines, lines[2:len(lines)-1]...)
	}
	return rec
}

func cleanLines(raw string) []string {
	lines := make([]string, 0)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimFunc(line, isDecoration)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func isDecoration(r rune) bool {
	switch r {
	case '*', '•', '-':
		return true
	}
	return unicode.IsSpace(r)
}

func isTransportError(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	for _, prefix := range transportErrorPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

// unwrapFence returns the contents of a ``` block when s starts with one,
// dropping a language tag such as "json" on the opening line.
func unwrapFence(s string) string {
	if !strings.HasPrefix(s, codeFence) {
		return s
	}
	rest := s[len(codeFence):]
	end := strings.Index(rest, codeFence)
	if end == -1 {
		return s
	}
	block := rest[:end]
	if idx := strings.IndexByte(block, '\n'); idx != -1 {
		if tag := strings.TrimSpace(block[:idx]); !strings.ContainsAny(tag, "{[") {
			block = block[idx+1:]
		}
	}
	return strings.TrimSpace(block)
}

func stringOr(v gjson.Result, fallback string) string {
	if !v.Exists() || v.Type == gjson.Null {
		return fallback
	}
	return v.String()
}
