package journal

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// Parsing deliberately stays minimal: the prompt has already instructed the
// model to produce a light structure, and we only peel that structure off.
// Whatever fails to parse becomes the kind's canonical empty value — a
// malformed response for one kind can never leak into another.

// parseSection applies a spec's parser with a local failure boundary.
func parseSection(spec sectionSpec, raw string) (result SectionResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Str("section", spec.Kind.String()).Interface("panic", r).Msg("parser panicked, using empty value")
			result = EmptyResult(spec.Kind)
		}
	}()
	return spec.Parse(raw)
}

// parseText keeps the full trimmed response verbatim.
func parseText(raw string) SectionResult {
	return SectionResult{Text: strings.TrimSpace(raw)}
}

// parseList turns each non-blank line into one item.
func parseList(raw string) SectionResult {
	var items []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		items = append(items, line)
	}
	return SectionResult{Items: items}
}

// parseMood looks for labeled `mood:` / `indicators:` lines; when absent it
// falls back to treating the first two non-blank lines positionally. An
// empty response stays empty — mood is never inferred without evidence.
func parseMood(raw string) SectionResult {
	var mood, indicators string
	var positional []string

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "mood:"):
			mood = strings.TrimSpace(line[len("mood:"):])
		case strings.HasPrefix(lower, "indicators:"):
			indicators = strings.TrimSpace(line[len("indicators:"):])
		default:
			positional = append(positional, line)
		}
	}

	if mood == "" && indicators == "" {
		if len(positional) > 0 {
			mood = positional[0]
		}
		if len(positional) > 1 {
			indicators = positional[1]
		}
	}
	return SectionResult{Mood: mood, Indicators: indicators}
}

// parseFields splits each line on the first colon into a key/value pair.
// Lines without a colon are ignored; one bad line never aborts the rest.
func parseFields(raw string) SectionResult {
	fields := make(map[string]string)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:colon])
		value := strings.TrimSpace(line[colon+1:])
		if key == "" {
			continue
		}
		fields[key] = value
	}
	if len(fields) == 0 {
		return SectionResult{}
	}
	return SectionResult{Fields: fields}
}

// normalize stamps the kind onto a parsed result and collapses anything
// empty to the canonical value.
func normalize(kind SectionKind, r SectionResult) SectionResult {
	r.Kind = kind
	if r.Empty() {
		return EmptyResult(kind)
	}
	return r
}
