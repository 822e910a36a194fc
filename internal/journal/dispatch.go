package journal

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Completer is the language-model collaborator seen from the pipeline: one
// prompt in, one raw text response out. Implemented by llm.Client.
type Completer interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Dispatcher runs one independent generation per section kind. Each kind
// gets its own model call so one bad or slow section never forces the rest
// to regenerate, and quality doesn't degrade across one long response.
type Dispatcher struct {
	// Model may be nil when no client could be built; every model-backed
	// section then degrades to its empty value.
	Model Completer

	// TokenCap bounds the serialized conversation block per prompt.
	TokenCap int
}

// rawSection is one section's outcome before parsing.
type rawSection struct {
	spec    sectionSpec
	text    string
	err     error // generation failed; parsing will yield the empty value
	skipped bool  // omitted for lack of evidence; not a failure
}

// Responses holds every section's raw text in registry order, whatever
// order generation completed in.
type Responses struct {
	sections []rawSection
}

// Dispatch generates all sections, concurrently. A timeout or transport
// error in one call is captured in that section's slot and never cancels
// or delays the others.
func (d *Dispatcher) Dispatch(ctx context.Context, pc *PromptContext) *Responses {
	serialized := pc.Serialize(d.TokenCap)
	sections := make([]rawSection, len(registry))

	var wg sync.WaitGroup
	for i, spec := range registry {
		wg.Add(1)
		go func(i int, spec sectionSpec) {
			defer wg.Done()
			sections[i] = d.generateOne(ctx, spec, pc, serialized)
		}(i, spec)
	}
	wg.Wait()

	return &Responses{sections: sections}
}

func (d *Dispatcher) generateOne(ctx context.Context, spec sectionSpec, pc *PromptContext, serialized string) rawSection {
	// Locally rendered kinds never touch the model.
	if spec.Template == "" {
		return rawSection{spec: spec, text: renderMetadata(pc)}
	}

	// No conversation evidence means conversation-only kinds are omitted,
	// not guessed.
	if spec.ConversationOnly && len(pc.Window) == 0 {
		return rawSection{spec: spec, skipped: true}
	}

	if d.Model == nil {
		return rawSection{spec: spec, err: fmt.Errorf("no model client available")}
	}

	response, err := d.Model.Generate(ctx, buildPrompt(spec, serialized))
	if err != nil {
		log.Warn().Err(err).Str("section", spec.Kind.String()).Msg("section generation degraded")
		return rawSection{spec: spec, err: err}
	}
	return rawSection{spec: spec, text: response}
}

// Parse converts every raw response to its typed result. Results come back
// in canonical registry order; each failed or unparsable section becomes
// its kind's canonical empty value plus a soft failure.
func (r *Responses) Parse() ([]SectionResult, []SoftFailure) {
	results := make([]SectionResult, len(r.sections))
	var soft []SoftFailure

	for i, raw := range r.sections {
		if raw.err != nil {
			results[i] = EmptyResult(raw.spec.Kind)
			soft = append(soft, SoftFailure{Unit: "section/" + raw.spec.Kind.String(), Err: raw.err})
			continue
		}
		if raw.skipped {
			results[i] = EmptyResult(raw.spec.Kind)
			continue
		}
		results[i] = normalize(raw.spec.Kind, parseSection(raw.spec, raw.text))
	}
	return results, soft
}

func buildPrompt(spec sectionSpec, serialized string) string {
	var sb strings.Builder
	sb.WriteString(spec.Template)
	sb.WriteString("\n\n---\n\n")
	sb.WriteString(serialized)
	return sb.String()
}

// metadataKeys is the render order for the commit-details block.
var metadataKeys = []string{"Commit", "Author", "Date", "Files Changed", "Insertions", "Deletions"}

// renderMetadata serializes commit metadata as `key: value` lines. It runs
// through the same line parser as model responses, keeping the registry
// uniform: every section is raw text in, typed result out.
func renderMetadata(pc *PromptContext) string {
	c := pc.Commit
	var sb strings.Builder
	fmt.Fprintf(&sb, "Commit: %s\n", c.Hash)
	fmt.Fprintf(&sb, "Author: %s <%s>\n", c.Author, c.Email)
	fmt.Fprintf(&sb, "Date: %s\n", c.Date.Format("2006-01-02 15:04:05 -0700"))
	fmt.Fprintf(&sb, "Files Changed: %d\n", len(c.Files))
	fmt.Fprintf(&sb, "Insertions: %d\n", c.Insertions())
	fmt.Fprintf(&sb, "Deletions: %d\n", c.Deletions())
	return sb.String()
}
