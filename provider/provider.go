package provider

import (
	"context"
	"strings"

	"github.com/kbukum/phrame/errors"
)

// Provider is the base interface all providers implement.
type Provider interface {
	// Name returns the provider's unique name, one of the Name constants.
	Name() string
	// IsAvailable reports whether the provider is configured and can take
	// requests. It does not call the remote service.
	IsAvailable(ctx context.Context) bool
}

// Name identifies a supported AI service. The set is closed.
type Name string

const (
	OpenAI      Name = "openai"
	StabilityAI Name = "stabilityai"
	DeepAI      Name = "deepai"
	Dream       Name = "dream"
	LeonardoAI  Name = "leonardoai"
	Midjourney  Name = "midjourney"
	Gemini      Name = "gemini"
)

var names = []Name{OpenAI, StabilityAI, DeepAI, Dream, LeonardoAI, Midjourney, Gemini}

// Names returns every supported provider name in registry order.
func Names() []Name {
	out := make([]Name, len(names))
	copy(out, names)
	return out
}

// Valid reports whether n is a supported provider.
func (n Name) Valid() bool {
	for _, v := range names {
		if v == n {
			return true
		}
	}
	return false
}

func (n Name) String() string { return string(n) }

var displayNames = map[Name]string{
	OpenAI:      "OpenAI",
	StabilityAI: "Stability AI",
	DeepAI:      "DeepAI",
	Dream:       "Dream",
	LeonardoAI:  "Leonardo AI",
	Midjourney:  "Midjourney",
	Gemini:      "Gemini",
}

// DisplayName returns the vendor's spelling of n, e.g. "Stability AI".
func (n Name) DisplayName() string {
	if d, ok := displayNames[n]; ok {
		return d
	}
	return string(n)
}

// ParseName converts user input such as "OpenAI" into a Name.
func ParseName(s string) (Name, error) {
	n := Name(strings.ToLower(strings.TrimSpace(s)))
	if !n.Valid() {
		return "", errors.InvalidInput("provider", "unknown provider "+s)
	}
	return n, nil
}

func order(n Name) int {
	for i, v := range names {
		if v == n {
			return i
		}
	}
	return len(names)
}
