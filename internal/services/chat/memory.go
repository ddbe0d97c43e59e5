package chat

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/kidchat/kidchat-api/internal/database"
	"github.com/kidchat/kidchat-api/internal/models"
)

// Extractor pulls durable facts out of a free-text child message. The
// extraction heuristic is pluggable; only the merge contract is fixed.
type Extractor interface {
	Extract(message string) models.MemoryContext
}

// MemoryService reads and merges per-child memory context.
type MemoryService struct {
	children database.ChildRepositoryInterface
}

// NewMemoryService creates a new memory service
func NewMemoryService(children database.ChildRepositoryInterface) *MemoryService {
	return &MemoryService{children: children}
}

// Read returns the child's memory context.
func (s *MemoryService) Read(ctx context.Context, childID uuid.UUID) (models.MemoryContext, error) {
	return s.children.GetMemoryContext(ctx, childID)
}

// Merge applies updates to the child's stored context. Idempotent,
// last-write-wins per key, no implicit deletion.
func (s *MemoryService) Merge(ctx context.Context, childID uuid.UUID, updates models.MemoryContext) (models.MemoryContext, error) {
	if updates.IsEmpty() {
		return s.children.GetMemoryContext(ctx, childID)
	}
	return s.children.MergeMemoryContext(ctx, childID, updates)
}

// RegexExtractor is the default Extractor: a small set of phrase patterns
// for names, ages, favorites, and interests.
type RegexExtractor struct{}

// NewRegexExtractor creates the default extractor
func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{}
}

var (
	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:my name is|i'm called|you can call me)\s+([a-z]+)`),
		// Case-sensitive on purpose: only a capitalized word after
		// "i am" reads as a name, not "i am hungry".
		regexp.MustCompile(`\b[Ii] am\s+([A-Z][a-z]+)\b`),
	}
	agePattern = regexp.MustCompile(`(?i)i(?:'m| am)\s+(\d{1,2})\s+years?\s+old`)

	colorPattern  = regexp.MustCompile(`(?i)my favou?rite colou?r is\s+([a-z]+)`)
	animalPattern = regexp.MustCompile(`(?i)my favou?rite animal is\s+(?:a\s+|an\s+)?([a-z]+)`)

	interestPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)i\s+(?:really\s+)?(?:like|love)\s+(?:to\s+)?([a-z][a-z ]{1,30}?)(?:[.!?,]|$)`),
	}
)

// Extract scans the message for recognized facts. Unmatched fields stay
// zero so Merge leaves the stored values alone.
func (e *RegexExtractor) Extract(message string) models.MemoryContext {
	out := models.MemoryContext{Version: models.MemoryContextVersion}

	for _, p := range namePatterns {
		if m := p.FindStringSubmatch(message); m != nil {
			out.Name = capitalize(m[1])
			break
		}
	}

	if m := agePattern.FindStringSubmatch(message); m != nil {
		if age, err := strconv.Atoi(m[1]); err == nil && age >= models.MinChildAge && age <= models.MaxChildAge {
			out.Age = age
		}
	}

	if m := colorPattern.FindStringSubmatch(message); m != nil {
		out.FavoriteColor = strings.ToLower(m[1])
	}
	if m := animalPattern.FindStringSubmatch(message); m != nil {
		out.FavoriteAnimal = strings.ToLower(m[1])
	}

	for _, p := range interestPatterns {
		for _, m := range p.FindAllStringSubmatch(message, -1) {
			interest := strings.TrimSpace(strings.ToLower(m[1]))
			if interest != "" {
				out.Interests = append(out.Interests, interest)
			}
		}
	}

	return out
}

func capitalize(s string) string {
	s = strings.ToLower(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
