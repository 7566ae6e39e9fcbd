// Package brief derives image-generation prompts from ad concepts and
// compiles the final HTML brief. Everything here is pure: same inputs, same
// outputs.
package brief

import (
	"fmt"
	"regexp"
	"strings"

	"whitecoat/internal/core"
)

// ImagesPerConcept is how many prompt variants each concept gets.
const ImagesPerConcept = 3

var (
	// promptAllowRegex strips anything outside a safe allow-list before
	// free-text insight fields are interpolated into prompts.
	promptAllowRegex = regexp.MustCompile(`[^\w\s.,'()&/:%$!?-]`)
	hexColorPattern  = regexp.MustCompile(`^#(?:[0-9A-Fa-f]{3}|[0-9A-Fa-f]{6})$`)
	spaceRunRegex    = regexp.MustCompile(`\s+`)
)

// StyleContext carries optional brand style hints derived from website
// insights. All fields degrade to empty.
type StyleContext struct {
	Aesthetic        string
	PhotographyStyle string
	BrandColors      []string
	ProductNames     []string
}

// StyleContextFromInsights builds a StyleContext from extracted website
// insights, or nil when no insights are available.
func StyleContextFromInsights(insights *core.WebsiteInsights) *StyleContext {
	if insights == nil {
		return nil
	}
	sc := &StyleContext{
		BrandColors:  insights.BrandColors,
		ProductNames: insights.Products,
	}
	if insights.VisualStyle != nil {
		sc.Aesthetic = insights.VisualStyle.OverallAesthetic
		sc.PhotographyStyle = insights.VisualStyle.PhotographyStyle
	}
	return sc
}

// DerivePrompts produces the image prompts for one concept: three variants,
// imageNumber 1..3. Variant 1 emphasizes all key elements, variant 2 the
// first element with lifestyle framing, variant 3 the first two elements with
// a scroll-stopping social framing.
func DerivePrompts(concept core.AdConcept, brandName string, style *StyleContext) []core.ImagePrompt {
	visual := concept.VisualAsset

	basePrompt := fmt.Sprintf("Professional healthcare/medical advertising photography. %s. Style: %s. Brand: %s.",
		Sanitize(visual.Description), Sanitize(visual.Style), Sanitize(brandName))
	basePrompt += styleModifiers(style)

	elements := make([]string, 0, len(visual.KeyElements))
	for _, el := range visual.KeyElements {
		elements = append(elements, Sanitize(el))
	}

	firstElement := "product"
	if len(elements) > 0 && elements[0] != "" {
		firstElement = elements[0]
	}
	firstTwo := "brand identity"
	if len(elements) > 0 {
		n := len(elements)
		if n > 2 {
			n = 2
		}
		firstTwo = strings.Join(elements[:n], " and ")
	}

	emotion := Sanitize(concept.TargetEmotion)
	hookType := Sanitize(concept.HookType)

	return []core.ImagePrompt{
		{
			Prompt: fmt.Sprintf("%s Key elements: %s. Emotion: %s. Clean, modern, trustworthy aesthetic. High-quality product photography with medical credibility.",
				basePrompt, strings.Join(elements, ", "), emotion),
			AdNumber:    concept.AdNumber,
			ImageNumber: 1,
		},
		{
			Prompt: fmt.Sprintf("%s Focus on: %s. %s appeal. Lifestyle context showing real-world application. Warm, approachable lighting. Professional medical brand imagery.",
				basePrompt, firstElement, hookType),
			AdNumber:    concept.AdNumber,
			ImageNumber: 2,
		},
		{
			Prompt: fmt.Sprintf("%s Emphasizing: %s. Social media optimized composition. Bold, eye-catching for scroll-stopping. %s emotion. Healthcare innovation aesthetic.",
				basePrompt, firstTwo, emotion),
			AdNumber:    concept.AdNumber,
			ImageNumber: 3,
		},
	}
}

// DeriveAllPrompts flattens every concept's prompts in concept-major,
// imageNumber-minor order.
func DeriveAllPrompts(concepts []core.AdConcept, brandName string, style *StyleContext) []core.ImagePrompt {
	prompts := make([]core.ImagePrompt, 0, len(concepts)*ImagesPerConcept)
	for _, concept := range concepts {
		prompts = append(prompts, DerivePrompts(concept, brandName, style)...)
	}
	return prompts
}

// styleModifiers renders optional brand style hints into prompt text
func styleModifiers(style *StyleContext) string {
	if style == nil {
		return ""
	}

	var b strings.Builder
	if len(style.ProductNames) > 0 {
		names := make([]string, 0, len(style.ProductNames))
		for _, name := range style.ProductNames {
			if clean := Sanitize(name); clean != "" {
				names = append(names, clean)
			}
		}
		if len(names) > 3 {
			names = names[:3]
		}
		if len(names) > 0 {
			b.WriteString(fmt.Sprintf(" Featuring products: %s.", strings.Join(names, ", ")))
		}
	}
	if style.Aesthetic != "" || style.PhotographyStyle != "" {
		parts := []string{}
		if clean := Sanitize(style.Aesthetic); clean != "" {
			parts = append(parts, clean)
		}
		if clean := Sanitize(style.PhotographyStyle); clean != "" {
			parts = append(parts, clean)
		}
		if len(parts) > 0 {
			b.WriteString(fmt.Sprintf(" Brand aesthetic: %s.", strings.Join(parts, ", ")))
		}
	}

	// Hex colors are validated, not sanitized; anything off-pattern is dropped
	var colors []string
	for _, color := range style.BrandColors {
		if hexColorPattern.MatchString(color) {
			colors = append(colors, strings.ToUpper(color))
		}
	}
	if len(colors) > 0 {
		b.WriteString(fmt.Sprintf(" Brand color palette: %s.", strings.Join(colors, ", ")))
	}

	return b.String()
}

// Sanitize strips characters outside the prompt allow-list (word characters,
// whitespace, limited punctuation) and collapses whitespace runs.
func Sanitize(s string) string {
	clean := promptAllowRegex.ReplaceAllString(s, "")
	clean = spaceRunRegex.ReplaceAllString(clean, " ")
	return strings.TrimSpace(clean)
}
