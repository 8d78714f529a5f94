package plugins

// RenderContext carries the labels a target renderer may embed in its output.
type RenderContext struct {
	Source string
	Target string
}

// TargetPlugin renders the illustrative program for one target label.
type TargetPlugin interface {
	// Language returns the exact target label (e.g. "Spring Boot").
	Language() string
	// Render produces the program text for the given source/target pair.
	Render(rc RenderContext) (string, error)
}
