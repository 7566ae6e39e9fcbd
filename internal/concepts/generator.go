// Package concepts generates advertising concepts for a submission using the
// text LLM. Concept generation is the hard dependency of a brief run: if it
// fails, the run fails.
package concepts

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"whitecoat/internal/core"
	"whitecoat/internal/llm"
	"whitecoat/internal/logger"
)

const systemPrompt = `You are an expert DTC (Direct-to-Consumer) advertising strategist specializing in healthcare and medical brands. Your task is to create compelling ad concepts that leverage the founder's medical credibility while adhering to advertising best practices.

Your output must be valid JSON following this exact structure:
{
  "adConcepts": [
    {
      "adNumber": 1,
      "title": "Ad concept title (e.g., 'The Post-It Reveal')",
      "hookType": "Type of hook (e.g., 'Authority', 'Curiosity', 'Problem-Solution', 'Social Proof', 'Urgency')",
      "openingHook": "The first 3 seconds hook text - this is crucial for stopping the scroll",
      "visualAsset": {
        "description": "Detailed description of the visual - what should the image show?",
        "style": "Photography style (e.g., 'Professional medical setting', 'Lifestyle', 'Before/After', 'Product hero shot')",
        "keyElements": ["Element 1", "Element 2", "Element 3"]
      },
      "bodyScript": "The main body copy/script for the ad (2-3 sentences)",
      "callToAction": "Clear CTA text",
      "targetEmotion": "Primary emotion to evoke (e.g., 'Trust', 'Hope', 'Relief', 'Curiosity')",
      "platformRecommendation": "Best platform for this ad (e.g., 'Meta (Facebook/Instagram)', 'TikTok', 'YouTube')"
    }
  ]
}

Key principles for DTC medical/health ads:
1. Lead with credibility - the founder's medical credentials are a major differentiator
2. Use authority hooks - "As a [specialty], I see X every day..."
3. Address pain points directly - be specific about the problem
4. Avoid medical claims that could trigger ad rejection
5. Focus on the transformation/benefit, not just features
6. Use social proof strategically
7. Keep hooks under 3 seconds for social media
8. CTA should be clear and low-commitment ("Learn more", "Shop now", "See how")

Generate 10 diverse ad concepts that:
- Use different hook types (Authority, Curiosity, Problem-Solution, Social Proof, Urgency, Story)
- Target different stages of the customer journey
- Suit different platforms (Meta, TikTok, YouTube)
- Leverage the founder's medical credentials authentically
- Address the brand's specific challenges and target audience`

// GenerationError is returned when concept generation fails. It separates the
// LLM call failing from its output being unusable.
type GenerationError struct {
	Stage string // "generate" or "parse"
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("ad concept generation failed at %s: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Generator produces ad concepts from submission data
type Generator struct {
	llm *llm.Client
}

// NewGenerator creates a new ad concept generator
func NewGenerator(llmClient *llm.Client) *Generator {
	return &Generator{llm: llmClient}
}

// Generate creates ad concepts for a submission, optionally enriched with
// website insights. Returns a *GenerationError on failure.
func (g *Generator) Generate(ctx context.Context, submission *core.Submission, insights *core.WebsiteInsights) ([]core.AdConcept, error) {
	prompt := systemPrompt + "\n\n" + buildUserPrompt(submission, insights)

	response, err := g.llm.GenerateText(ctx, prompt, llm.TextGenerationOptions{
		Temperature: 0.8,
		MaxTokens:   8000,
	})
	if err != nil {
		return nil, &GenerationError{Stage: "generate", Err: err}
	}

	concepts, err := parseConcepts(response)
	if err != nil {
		logger.Error("Failed to parse concept response", err, "preview", previewText(response, 500))
		return nil, &GenerationError{Stage: "parse", Err: err}
	}

	logger.Info("Generated ad concepts", "count", len(concepts), "submission_id", submission.ID)
	return concepts, nil
}

// buildUserPrompt assembles the per-brand prompt, including website and
// visual style sections when insights are available.
func buildUserPrompt(submission *core.Submission, insights *core.WebsiteInsights) string {
	var websiteSection, visualStyleSection string
	if insights != nil {
		var b strings.Builder
		b.WriteString("\n**Website Analysis:**\n")
		b.WriteString(fmt.Sprintf("- Products/Services: %s\n", joinOrNotFound(insights.Products)))
		b.WriteString(fmt.Sprintf("- Pricing: %s\n", insights.Pricing))
		b.WriteString(fmt.Sprintf("- Brand Messaging: %s\n", insights.BrandMessaging))
		b.WriteString(fmt.Sprintf("- Unique Selling Points: %s\n", joinOrNotFound(insights.UniqueSellingPoints)))
		b.WriteString(fmt.Sprintf("- Key Benefits: %s\n", joinOrNotFound(insights.KeyBenefits)))
		if len(insights.Testimonials) > 0 {
			testimonials := insights.Testimonials
			if len(testimonials) > 3 {
				testimonials = testimonials[:3]
			}
			b.WriteString(fmt.Sprintf("- Customer Testimonials: %s\n", strings.Join(testimonials, " | ")))
		}
		websiteSection = b.String()

		if vs := insights.VisualStyle; vs != nil {
			visualStyleSection = fmt.Sprintf(`
**Brand Visual Style (from website):**
- Color Palette: %s
- Photography Style: %s
- Overall Aesthetic: %s
- Brand Mood: %s

IMPORTANT: When describing visual assets, match this brand's existing visual style. Use their color palette, photography style, and aesthetic.
`, strings.Join(vs.ColorPalette, ", "), vs.PhotographyStyle, vs.OverallAesthetic, vs.BrandMood)
		}
	}

	var b strings.Builder
	b.WriteString("Create 10 DTC ad concepts for the following brand:\n\n")
	b.WriteString(fmt.Sprintf("**Brand Name:** %s\n", submission.BrandName))
	b.WriteString(fmt.Sprintf("**Founder:** %s\n", submission.FounderName))
	b.WriteString(fmt.Sprintf("**Medical Credentials:** %s\n", submission.MedicalCredentials))
	b.WriteString(fmt.Sprintf("**Specialty:** %s\n", submission.Specialty))
	b.WriteString(fmt.Sprintf("**Product Type:** %s\n", submission.ProductType))
	b.WriteString(fmt.Sprintf("**Current Revenue:** %s\n", submission.CurrentRevenue))
	b.WriteString(fmt.Sprintf("**Biggest Challenge:** %s\n", submission.BiggestChallenge))
	b.WriteString(fmt.Sprintf("**Target Audience:** %s\n", submission.TargetAudience))
	if submission.Website != "" {
		b.WriteString(fmt.Sprintf("**Website:** %s\n", submission.Website))
	}
	if submission.AdditionalInfo != "" {
		b.WriteString(fmt.Sprintf("**Additional Info:** %s\n", submission.AdditionalInfo))
	}
	b.WriteString(websiteSection)
	b.WriteString(visualStyleSection)
	b.WriteString(fmt.Sprintf(`
Generate 10 unique ad concepts that:
1. Leverage %s's %s credentials
2. Address the challenge: "%s"
3. Resonate with the target audience: "%s"
4. Are appropriate for %s products
5. Use a variety of hook types and platforms
`, submission.FounderName, submission.MedicalCredentials, submission.BiggestChallenge,
		submission.TargetAudience, submission.ProductType))
	if insights != nil {
		b.WriteString("6. Incorporate specific products, benefits, and messaging from the website analysis above\n")
	}
	b.WriteString("\nReturn ONLY valid JSON, no markdown formatting or code blocks.")

	return b.String()
}

// parseConcepts decodes the LLM response, tolerating markdown code fences
func parseConcepts(response string) ([]core.AdConcept, error) {
	jsonText := strings.TrimSpace(response)

	if strings.HasPrefix(jsonText, "```json") {
		jsonText = jsonText[len("```json"):]
	} else if strings.HasPrefix(jsonText, "```") {
		jsonText = jsonText[len("```"):]
	}
	jsonText = strings.TrimSuffix(strings.TrimSpace(jsonText), "```")
	jsonText = strings.TrimSpace(jsonText)

	var parsed struct {
		AdConcepts []core.AdConcept `json:"adConcepts"`
	}
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse ad concepts: %w", err)
	}
	if parsed.AdConcepts == nil {
		return nil, fmt.Errorf("invalid response structure: missing adConcepts array")
	}
	if len(parsed.AdConcepts) == 0 {
		return nil, fmt.Errorf("response contained no ad concepts")
	}

	return parsed.AdConcepts, nil
}

func joinOrNotFound(items []string) string {
	if len(items) == 0 {
		return "Not found"
	}
	return strings.Join(items, ", ")
}

func previewText(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
