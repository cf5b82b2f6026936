package character

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// WorkshopState is the mutable scene state woven into each prompt.
// Custom entries use keys prefixed "custom_" and their string values are
// appended verbatim.
type WorkshopState struct {
	IsPainting       bool
	IsCalculating    bool
	IsInventing      bool
	FocusedProject   string
	FrustrationLevel float64
	Custom           map[string]string
}

// Context renders prompts for one character. It combines the static
// persona with the current workshop state and the caller-supplied
// history transcript. Safe for concurrent use.
type Context struct {
	mu      sync.RWMutex
	persona *Persona
	state   WorkshopState
}

// NewContext creates a prompt context for the given persona.
func NewContext(persona *Persona) *Context {
	return &Context{persona: persona}
}

// Persona returns the static persona.
func (c *Context) Persona() *Persona {
	return c.persona
}

// SetState replaces the workshop state. FrustrationLevel is clamped to
// [0, 1]. Unknown focused projects are kept in the state but add no
// focus section to the prompt.
func (c *Context) SetState(state WorkshopState) {
	if state.FrustrationLevel < 0 {
		state.FrustrationLevel = 0
	} else if state.FrustrationLevel > 1 {
		state.FrustrationLevel = 1
	}
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

// State returns a copy of the current workshop state.
func (c *Context) State() WorkshopState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// BuildPrompt renders the full prompt for one visitor utterance. history
// is the formatted transcript of recent exchanges and may be empty. The
// prompt always ends with the character's speaker label so the model
// continues in-voice.
func (c *Context) BuildPrompt(userInput, history string) string {
	c.mu.RLock()
	state := c.state
	c.mu.RUnlock()

	var b strings.Builder
	b.WriteString(c.persona.Setting)
	b.WriteString("\n\n")
	b.WriteString(c.persona.Personality)
	b.WriteString("\n\n")
	b.WriteString(c.persona.MarkerInstructions)
	b.WriteString("\n")

	if p := c.persona.Project(state.FocusedProject); p != nil {
		fmt.Fprintf(&b, "\nCurrent Focus - %s:\n%s\n", p.Name, p.Description)
	}

	c.writeStateContext(&b, state)

	if c.persona.SpecialInstructions != "" {
		b.WriteString("\n")
		b.WriteString(c.persona.SpecialInstructions)
		b.WriteString("\n")
	}

	if history != "" {
		b.WriteString("\n")
		b.WriteString(history)
	}

	fmt.Fprintf(&b, "\nVisitor: %s\n%s: ", userInput, c.persona.Name)
	return b.String()
}

func (c *Context) writeStateContext(b *strings.Builder, state WorkshopState) {
	if state.FrustrationLevel > 0.7 {
		b.WriteString("\nYou are particularly frustrated with your mathematical calculations.\n")
	} else if state.FrustrationLevel < 0.3 {
		b.WriteString("\nYou are excited about a potential breakthrough in your measurements.\n")
	}

	switch {
	case state.IsPainting:
		b.WriteString("\nYou are working with your paints and brushes, but always ready to measure a visitor.\n")
	case state.IsCalculating:
		b.WriteString("\nYou are surrounded by mathematical calculations and measuring tools, eager to test new proportions.\n")
	case state.IsInventing:
		b.WriteString("\nYou are tinkering with mechanical components, drawing parallels to human anatomy.\n")
	}

	for _, v := range sortedValues(state.Custom) {
		b.WriteString("\n")
		b.WriteString(v)
		b.WriteString("\n")
	}
}

// sortedValues returns map values ordered by key so prompts render
// deterministically.
func sortedValues(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = m[k]
	}
	return out
}
