package chat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kidchat/kidchat-api/internal/models"
	"github.com/kidchat/kidchat-api/internal/services/ai"
)

// DefaultPromptCharBudget approximates the provider's input token limit in
// characters.
const DefaultPromptCharBudget = 6000

const basePersona = `You are Kiko, a super fun and smart virtual buddy! 🌟

YOUR PERSONALITY:
- You are like a cool older friend who knows how to explain things in an easy way
- You love fun facts, games, and learning new things together with kids
- You are cheerful, kind, and always positive!

HOW YOU TALK:
- Keep answers SHORT (2-3 sentences at most) and SUPER easy to understand
- Use a few emojis to make things fun! 🎨🦄⭐🌈🚀
- Use expressions like "How cool!", "Wow!", "Did you know...", "Guess what!"
- Ask a question back to keep the conversation going

SAFETY RULES:
- NEVER talk about grown-up topics, violence, or scary things
- If someone asks something odd, say: "Hmm, how about asking your parents? They'll love to explain! 💜"
- Always encourage talking to parents about important questions
- Always be gentle and welcoming`

// Composer builds the system prompt and conversation turns for the
// completion provider.
type Composer struct {
	charBudget int
}

// NewComposer creates a composer with the given character budget. A
// non-positive budget uses the default.
func NewComposer(charBudget int) *Composer {
	if charBudget <= 0 {
		charBudget = DefaultPromptCharBudget
	}
	return &Composer{charBudget: charBudget}
}

// Compose builds the system prompt from the child's age band and memory
// context, then appends the recent session window and the newest user
// message as turns. If the combined size exceeds the budget, history is
// dropped from the oldest end; the system prompt and the newest user turn
// are never dropped.
func (c *Composer) Compose(age int, memory models.MemoryContext, recent []*models.SessionMessage, userMessage string) (string, []ai.ChatMessage) {
	var sb strings.Builder
	sb.WriteString(basePersona)
	sb.WriteString("\n\n")
	sb.WriteString(ageBandGuidance(age))

	if facts := memoryFacts(memory); facts != "" {
		sb.WriteString("\n\n")
		sb.WriteString(facts)
	}

	systemPrompt := sb.String()

	turns := make([]ai.ChatMessage, 0, len(recent)+1)
	for _, msg := range recent {
		turns = append(turns, ai.ChatMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	turns = append(turns, ai.ChatMessage{Role: "user", Content: userMessage})

	// Budget pass: drop oldest history first. The last turn (the newest
	// user message) always survives.
	total := len(systemPrompt)
	for _, t := range turns {
		total += len(t.Content)
	}
	for total > c.charBudget && len(turns) > 1 {
		total -= len(turns[0].Content)
		turns = turns[1:]
	}

	return systemPrompt, turns
}

func ageBandGuidance(age int) string {
	switch {
	case age <= 6:
		return `THIS CHILD IS 4-6 YEARS OLD:
- Use very simple words a preschooler knows
- One idea at a time, tiny sentences
- Lots of warmth and playfulness, like telling a bedtime story`
	case age <= 9:
		return `THIS CHILD IS 7-9 YEARS OLD:
- Use simple words but you can explain how things work
- Fun facts and comparisons to everyday things work great
- Encourage curiosity and asking more questions`
	default:
		return `THIS CHILD IS 10-12 YEARS OLD:
- You can use slightly bigger words and real explanations
- Treat them as smart and capable, never babyish
- Connect answers to school topics and hobbies when it fits`
	}
}

func memoryFacts(m models.MemoryContext) string {
	if m.IsEmpty() {
		return ""
	}

	parts := []string{"WHAT YOU KNOW ABOUT THIS CHILD (use naturally in conversation):"}
	if m.Name != "" {
		parts = append(parts, fmt.Sprintf("- Name: %s", m.Name))
	}
	if m.Age != 0 {
		parts = append(parts, fmt.Sprintf("- Age: %d", m.Age))
	}
	if m.FavoriteColor != "" {
		parts = append(parts, fmt.Sprintf("- Favorite color: %s", m.FavoriteColor))
	}
	if m.FavoriteAnimal != "" {
		parts = append(parts, fmt.Sprintf("- Favorite animal: %s", m.FavoriteAnimal))
	}
	if len(m.Interests) > 0 {
		n := len(m.Interests)
		if n > 5 {
			n = 5
		}
		parts = append(parts, fmt.Sprintf("- Things they like: %s", strings.Join(m.Interests[:n], ", ")))
	}
	extraKeys := make([]string, 0, len(m.Extra))
	for k := range m.Extra {
		extraKeys = append(extraKeys, k)
	}
	sort.Strings(extraKeys)
	for _, k := range extraKeys {
		parts = append(parts, fmt.Sprintf("- %s: %s", k, m.Extra[k]))
	}

	if len(parts) == 1 {
		return ""
	}
	parts = append(parts, "Use these facts to personalize the chat and show you remember them!")
	return strings.Join(parts, "\n")
}
