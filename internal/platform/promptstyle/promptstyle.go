package promptstyle

import "strings"

const marker = "[lessonforge:style:v1]"

type Mode string

const (
	ModeText Mode = "text"
	ModeJSON Mode = "json"
)

// ApplySystem prefixes a system prompt with the shared classroom-content guard.
// Empty prompts and prompts that already carry the guard are returned unchanged.
func ApplySystem(system string, mode Mode) string {
	base := strings.TrimSpace(system)
	if base == "" || strings.Contains(base, marker) {
		return base
	}

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString("\nYou write material for school classrooms.")
	b.WriteString("\nKeep language appropriate for the stated grade level.")
	b.WriteString("\nDo not invent citations, statistics or curriculum codes that were not provided.")
	if mode == ModeJSON {
		b.WriteString("\nReturn only the requested JSON object with no surrounding prose.")
	}
	b.WriteString("\n---\n")
	b.WriteString(base)
	return b.String()
}

// Strip removes the guard added by ApplySystem.
func Strip(system string) string {
	if !strings.HasPrefix(system, marker) {
		return system
	}
	if i := strings.Index(system, "\n---\n"); i >= 0 {
		return system[i+len("\n---\n"):]
	}
	return system
}
