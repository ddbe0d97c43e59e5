package models

// MemoryContextVersion is the current schema version of MemoryContext.
// Bump when recognized keys change so old rows can be migrated explicitly
// instead of drifting silently.
const MemoryContextVersion = 1

// MaxInterests caps the interests list carried in memory context.
const MaxInterests = 10

// MemoryContext is the durable per-child memory injected into prompts.
// Recognized keys are typed fields; anything an extractor learns that has
// no dedicated field goes into Extra.
type MemoryContext struct {
	Version        int               `json:"version"`
	Name           string            `json:"name,omitempty"`
	Age            int               `json:"age,omitempty"`
	FavoriteColor  string            `json:"favorite_color,omitempty"`
	FavoriteAnimal string            `json:"favorite_animal,omitempty"`
	Interests      []string          `json:"interests,omitempty"`
	Extra          map[string]string `json:"extra,omitempty"`
}

// NewMemoryContext returns an empty context at the current version.
func NewMemoryContext() MemoryContext {
	return MemoryContext{Version: MemoryContextVersion}
}

// IsEmpty reports whether the context carries no facts.
func (m MemoryContext) IsEmpty() bool {
	return m.Name == "" && m.Age == 0 && m.FavoriteColor == "" &&
		m.FavoriteAnimal == "" && len(m.Interests) == 0 && len(m.Extra) == 0
}

// Merge applies updates on top of m and returns the result. Merge is a
// shallow, last-write-wins merge: set fields in updates overwrite, unset
// fields leave the existing value alone, and nothing is ever deleted.
// Interests are unioned without duplicates and capped at MaxInterests,
// keeping the most recently added entries.
func (m MemoryContext) Merge(updates MemoryContext) MemoryContext {
	out := m
	out.Version = MemoryContextVersion

	if updates.Name != "" {
		out.Name = updates.Name
	}
	if updates.Age != 0 {
		out.Age = updates.Age
	}
	if updates.FavoriteColor != "" {
		out.FavoriteColor = updates.FavoriteColor
	}
	if updates.FavoriteAnimal != "" {
		out.FavoriteAnimal = updates.FavoriteAnimal
	}

	if len(updates.Interests) > 0 {
		merged := make([]string, 0, len(out.Interests)+len(updates.Interests))
		merged = append(merged, out.Interests...)
		for _, interest := range updates.Interests {
			if interest == "" || containsString(merged, interest) {
				continue
			}
			merged = append(merged, interest)
		}
		if len(merged) > MaxInterests {
			merged = merged[len(merged)-MaxInterests:]
		}
		out.Interests = merged
	}

	if len(updates.Extra) > 0 {
		extra := make(map[string]string, len(out.Extra)+len(updates.Extra))
		for k, v := range out.Extra {
			extra[k] = v
		}
		for k, v := range updates.Extra {
			extra[k] = v
		}
		out.Extra = extra
	}

	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
