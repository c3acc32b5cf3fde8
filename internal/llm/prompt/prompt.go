// Package prompt builds the payloads sent to the generation gateway: a
// per-variant system instruction plus a bounded message sequence.
package prompt

import (
	"fmt"
	"strings"

	"github.com/atelierhq/atelier/internal/llm/provider"
)

// maxRevisionHistory bounds the message sequence for revision chat. Oldest
// entries are dropped first so recency is preserved at bounded token cost.
const maxRevisionHistory = 20

// AssistantSystem is the instruction for the continuous ops-assistant
// conversation. The assistant answers questions about a project's current
// configuration and suggests next steps in plain prose.
const AssistantSystem = `You are the studio assistant for a product-configuration service. You help the operator understand a project's current state, answer questions about its brand, features, and build specification, and suggest concrete next steps.

Rules:
- Answer in plain prose. Do not emit JSON or code fences.
- Be concise. Two short paragraphs at most.
- If you do not know something about the project, say so instead of inventing details.`

// BrandSystem instructs the model to propose exactly three brand
// directions as a JSON array.
const BrandSystem = `You are a brand designer. Given a product description and its feature list, propose exactly 3 distinct brand directions.

Respond with ONLY a JSON array of 3 objects, no prose, in this exact shape:
[
  {
    "name": "short brand name",
    "vibe": "one-sentence description of the brand personality",
    "colors": {
      "primary": "#RRGGBB",
      "secondary": "#RRGGBB",
      "accent": "#RRGGBB",
      "background": "#RRGGBB",
      "text": "#RRGGBB"
    },
    "font": { "heading": "font family name", "body": "font family name" },
    "domains": ["available-sounding domain names"]
  }
]

Every color must be a 6-digit hex value. The three directions must feel clearly different from each other.`

// DecomposeSystem instructs the model to break features into priced task
// groups as a JSON array.
const DecomposeSystem = `You are a technical project estimator. Break each requested feature into concrete implementation tasks with a price for each task.

Respond with ONLY a JSON array, no prose, in this exact shape:
[
  {
    "feature": "the feature name as given",
    "tasks": [
      { "name": "task name", "description": "what the task covers", "price": 1200 }
    ]
  }
]

Prices are whole numbers in USD. Every feature in the input must appear exactly once, in the given order. Two to five tasks per feature.`

// SpecSystem instructs the model to synthesize a single build
// specification object.
const SpecSystem = `You are a software architect writing a build specification for a client. Synthesize the product description, feature list, chosen brand, and budget into one coherent specification.

Respond with ONLY a JSON object, no prose, in this exact shape:
{
  "summary": "two or three sentences describing what will be built",
  "sections": [
    { "title": "section title", "items": ["concrete deliverable"] }
  ],
  "tech": ["technology choices"],
  "timeline": "estimated delivery timeline",
  "notes": "assumptions or caveats"
}

Use 3 to 6 sections with 2 to 5 items each. Stay within what the description and features actually ask for.`

// ReviseSystem instructs the model to answer revision requests against an
// existing specification, flagging whether a change is being applied.
const ReviseSystem = `You are a software architect discussing revisions to an existing build specification with a client. The current specification and brand are provided below.

Respond with ONLY a JSON object, no prose, in this exact shape:
{
  "message": "your reply to the client",
  "applying": true or false,
  "changes": ["each concrete change you are making"]
}

Set "applying" to true only when the client has asked for a specific change you can describe. For questions or discussion, set it to false and omit or empty "changes".`

// Chat returns the full history followed by the new user message. The
// assistant conversation is unbounded; its cost grows with the session.
func Chat(history []provider.Message, userMessage string) []provider.Message {
	msgs := make([]provider.Message, 0, len(history)+1)
	msgs = append(msgs, history...)
	msgs = append(msgs, provider.Message{Role: "user", Content: userMessage})
	return msgs
}

// Revision filters incoming history to well-formed entries, appends the
// new user message, and truncates to the most recent entries. Entries
// missing a role or content are dropped rather than erroring; the caller
// resends history on every request so nothing here is authoritative.
func Revision(history []provider.Message, userMessage string) []provider.Message {
	msgs := make([]provider.Message, 0, len(history)+1)
	for _, m := range history {
		if m.Role == "" || m.Content == "" {
			continue
		}
		msgs = append(msgs, m)
	}
	msgs = append(msgs, provider.Message{Role: "user", Content: userMessage})

	if len(msgs) > maxRevisionHistory {
		msgs = msgs[len(msgs)-maxRevisionHistory:]
	}
	return msgs
}

// AssistantContext formats the project snapshot that precedes the
// operator's question in assistant chat.
func AssistantContext(projectName, userMessage string) string {
	if projectName == "" {
		return userMessage
	}
	return fmt.Sprintf("Project: %s\n\n%s", projectName, userMessage)
}

// BrandUser builds the single user message for one-shot brand generation.
func BrandUser(description string, features []string) []provider.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Product description: %s\n", description)
	if len(features) > 0 {
		b.WriteString("Selected features:\n")
		for _, f := range features {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	b.WriteString("\nPropose 3 brand directions.")
	return []provider.Message{{Role: "user", Content: b.String()}}
}

// DecomposeUser builds the single user message for feature decomposition.
func DecomposeUser(features []string) []provider.Message {
	var b strings.Builder
	b.WriteString("Features to break down:\n")
	for _, f := range features {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	b.WriteString("\nDecompose each feature into priced tasks.")
	return []provider.Message{{Role: "user", Content: b.String()}}
}

// SpecUser builds the single user message for spec synthesis. brand is the
// client's chosen brand direction serialized by the caller; total is the
// quoted budget.
func SpecUser(description string, features []string, brand string, total float64) []provider.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Product description: %s\n", description)
	if len(features) > 0 {
		b.WriteString("Selected features:\n")
		for _, f := range features {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	if brand != "" {
		fmt.Fprintf(&b, "Chosen brand:\n%s\n", brand)
	}
	if total > 0 {
		fmt.Fprintf(&b, "Quoted total: $%.2f\n", total)
	}
	b.WriteString("\nWrite the build specification.")
	return []provider.Message{{Role: "user", Content: b.String()}}
}

// ReviseContext formats the specification and brand snapshot injected into
// the revision system instruction.
func ReviseContext(spec, brand string) string {
	var b strings.Builder
	b.WriteString(ReviseSystem)
	if spec != "" {
		fmt.Fprintf(&b, "\n\nCurrent specification:\n%s", spec)
	}
	if brand != "" {
		fmt.Fprintf(&b, "\n\nCurrent brand:\n%s", brand)
	}
	return b.String()
}
