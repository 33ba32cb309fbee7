package payload

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"quantumbreach/internal/game"
	"quantumbreach/internal/logging"
)

// =============================================================================
// GOOGLE GENAI PAYLOAD SOURCE
// =============================================================================

// GeminiConfig configures GeminiSource.
type GeminiConfig struct {
	APIKey         string
	Model          string
	Temperature    float32
	ThinkingBudget int32
	Timeout        time.Duration
}

// DefaultGeminiConfig returns the defaults used by the console.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey:         apiKey,
		Model:          "gemini-3-pro-preview",
		Temperature:    1.0,
		ThinkingBudget: 2000,
		Timeout:        30 * time.Second,
	}
}

// GeminiSource generates stages with Google's Gemini API.
type GeminiSource struct {
	client *genai.Client
	cfg    GeminiConfig
}

// NewGeminiSource creates a Gemini-backed Source.
func NewGeminiSource(ctx context.Context, cfg GeminiConfig) (*GeminiSource, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiConfig("").Model
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiSource{client: client, cfg: cfg}, nil
}

// Generate implements Source.
func (g *GeminiSource) Generate(ctx context.Context, rank game.Rank, targetName string) ([]string, error) {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := g.client.Models.GenerateContent(ctx,
		g.cfg.Model,
		genai.Text(BuildPrompt(rank, targetName)),
		&genai.GenerateContentConfig{
			Temperature: genai.Ptr(g.cfg.Temperature),
			ThinkingConfig: &genai.ThinkingConfig{
				ThinkingBudget: genai.Ptr(g.cfg.ThinkingBudget),
			},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("GenAI generate failed: %w", err)
	}

	logging.Get(logging.CategoryPayload).Debug("gemini answered for %s in %s", targetName, time.Since(start))

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoStages
	}
	return strings.Split(text, "\n"), nil
}

// Name returns the source name.
func (g *GeminiSource) Name() string {
	return fmt.Sprintf("genai:%s", g.cfg.Model)
}

// BuildPrompt renders the generation prompt for a node.
func BuildPrompt(rank game.Rank, targetName string) string {
	var sb strings.Builder
	sb.WriteString("You are the core logic engine for QUANTUM_BREACH V1.\n")
	fmt.Fprintf(&sb, "Generate exactly %d unique, non-repetitive terminal commands for a hacking simulation.\n", StageCount)
	fmt.Fprintf(&sb, "The target node is '%s' with security rank '%s'.\n\n", targetName, rank)

	sb.WriteString("STRICT CHARACTER LENGTH CONSTRAINTS (Crucial):\n")
	for _, r := range game.Ranks {
		lo, hi := r.PayloadBand()
		fmt.Fprintf(&sb, "- %s: %d-%d chars\n", r, lo, hi)
	}

	sb.WriteString("\nRequirements:\n")
	sb.WriteString("1. No cliché commands. Use varied tools (sed, awk, openssl, tcpdump, nc, python -c, etc).\n")
	sb.WriteString("2. Ensure codes are syntactically interesting.\n")
	fmt.Fprintf(&sb, "3. Return ONLY the %d lines, one per line. No numbering.\n", StageCount)
	return sb.String()
}
