// Package studio implements the product-configuration flow: conversation
// variants against the generation gateway, structured result extraction,
// and session persistence.
package studio

// Colors is a brand palette. Every value is a 6-digit hex color.
type Colors struct {
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Accent     string `json:"accent"`
	Background string `json:"background"`
	Text       string `json:"text"`
}

// Font pairs a heading and body font family.
type Font struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// BrandOption is one proposed brand direction.
type BrandOption struct {
	Name    string   `json:"name"`
	Vibe    string   `json:"vibe"`
	Colors  Colors   `json:"colors"`
	Font    Font     `json:"font"`
	Domains []string `json:"domains"`
}

// Task is one priced implementation task within a feature.
type Task struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// TaskGroup is the priced decomposition of one requested feature.
type TaskGroup struct {
	Feature string `json:"feature"`
	Tasks   []Task `json:"tasks"`
}

// SpecSection is one titled section of a build specification.
type SpecSection struct {
	Title string   `json:"title"`
	Items []string `json:"items"`
}

// BuildSpec is the synthesized build specification.
type BuildSpec struct {
	Summary  string        `json:"summary"`
	Sections []SpecSection `json:"sections"`
	Tech     []string      `json:"tech"`
	Timeline string        `json:"timeline"`
	Notes    string        `json:"notes"`
}

// RevisionReply is the structured answer to a revision request. Changes
// is only meaningful when Applying is true.
type RevisionReply struct {
	Message  string   `json:"message"`
	Applying bool     `json:"applying"`
	Changes  []string `json:"changes,omitempty"`
}

// Schema defaults. Each is the safe, fully-typed value a caller receives
// when extraction cannot recover a valid structured result.

func defaultBrandOptions() []BrandOption { return []BrandOption{} }

func defaultTaskGroups() []TaskGroup { return []TaskGroup{} }

func defaultBuildSpec() BuildSpec {
	return BuildSpec{Sections: []SpecSection{}, Tech: []string{}}
}

func defaultRevisionReply() RevisionReply { return RevisionReply{} }
