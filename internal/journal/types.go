// Package journal holds the core pipeline: relevance filtering, section
// dispatch, response parsing, and document assembly.
package journal

import (
	"fmt"
)

// SectionKind enumerates the fixed set of document parts. The declaration
// order here is the canonical order sections appear in a persisted entry,
// regardless of the order their generation completed.
type SectionKind int

const (
	SectionSummary SectionKind = iota
	SectionTechnical
	SectionAccomplishments
	SectionChallenges
	SectionMood
	SectionDialogue
	SectionMetadata
)

func (k SectionKind) String() string {
	switch k {
	case SectionSummary:
		return "summary"
	case SectionTechnical:
		return "technical"
	case SectionAccomplishments:
		return "accomplishments"
	case SectionChallenges:
		return "challenges"
	case SectionMood:
		return "mood"
	case SectionDialogue:
		return "dialogue"
	case SectionMetadata:
		return "metadata"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// SectionResult is the typed outcome for one section kind. Only the fields
// matching the kind's shape are populated; a result is either well-formed
// for its kind or the kind's canonical empty value, never half-parsed.
type SectionResult struct {
	Kind SectionKind

	Text       string            // summary, technical
	Items      []string          // accomplishments, challenges, dialogue
	Mood       string            // mood
	Indicators string            // mood
	Fields     map[string]string // metadata
}

// EmptyResult is the canonical "nothing to show" value for a kind.
func EmptyResult(kind SectionKind) SectionResult {
	return SectionResult{Kind: kind}
}

// Empty reports whether the result equals its kind's canonical empty value.
func (r SectionResult) Empty() bool {
	switch r.Kind {
	case SectionSummary, SectionTechnical:
		return r.Text == ""
	case SectionAccomplishments, SectionChallenges, SectionDialogue:
		return len(r.Items) == 0
	case SectionMood:
		return r.Mood == "" && r.Indicators == ""
	case SectionMetadata:
		return len(r.Fields) == 0
	default:
		return true
	}
}

// SoftFailure records a localized degradation: the run continued, the
// affected unit fell back to its empty value.
type SoftFailure struct {
	Unit string
	Err  error
}

func (f SoftFailure) String() string {
	return fmt.Sprintf("%s: %v", f.Unit, f.Err)
}

// sectionSpec binds one kind to its title, prompt template, and parser.
// A kind with an empty template is rendered locally, without a model call.
type sectionSpec struct {
	Kind     SectionKind
	Title    string
	Template string
	Parse    func(string) SectionResult

	// ConversationOnly kinds have no evidence source other than the
	// conversation window; with an empty window they are omitted rather
	// than guessed.
	ConversationOnly bool
}

// registry is the static dispatch table. Section order in the assembled
// document follows this slice; the metadata block stays last.
var registry = []sectionSpec{
	{
		Kind:  SectionSummary,
		Title: "Summary",
		Template: "Write a short first-person narrative (one or two paragraphs) of this " +
			"development session, based only on the context below. Plain prose, no headings, " +
			"no bullet points. If the context gives you nothing to say, reply with an empty response.",
		Parse: parseText,
	},
	{
		Kind:  SectionTechnical,
		Title: "Technical Synopsis",
		Template: "Describe the technical substance of this commit: what changed, where, and " +
			"how the pieces fit. One or two paragraphs of plain prose grounded strictly in the " +
			"diff summary and conversation below. Do not invent details that are not in the context.",
		Parse: parseText,
	},
	{
		Kind:  SectionAccomplishments,
		Title: "Accomplishments",
		Template: "List what was completed in this session, one accomplishment per line. " +
			"No numbering, no bullets, no commentary. Only include items evidenced by the " +
			"context below. Reply with an empty response if nothing was completed.",
		Parse: parseList,
	},
	{
		Kind:  SectionChallenges,
		Title: "Challenges",
		Template: "List the difficulties or roadblocks encountered in this session, one per " +
			"line. No numbering, no bullets. Only include difficulties evidenced by the context " +
			"below. Reply with an empty response if none are evident.",
		Parse: parseList,
	},
	{
		Kind:  SectionMood,
		Title: "Mood",
		Template: "From the developer's own words in the conversation below, describe their " +
			"mood. Reply with exactly two lines:\nmood: <one short phrase>\nindicators: <the quoted " +
			"or paraphrased evidence>\nOnly report a mood that is explicitly evidenced; reply with " +
			"an empty response otherwise.",
		Parse:            parseMood,
		ConversationOnly: true,
	},
	{
		Kind:  SectionDialogue,
		Title: "Discussion Notes",
		Template: "Pick the most interesting or decision-carrying exchanges from the " +
			"conversation below, one per line, each formatted as `speaker: quote`. At most five " +
			"lines. Quote or closely paraphrase; never invent dialogue. Reply with an empty " +
			"response if the conversation is empty or uninteresting.",
		Parse:            parseList,
		ConversationOnly: true,
	},
	{
		Kind:  SectionMetadata,
		Title: "Commit Details",
		Parse: parseFields,
	},
}
