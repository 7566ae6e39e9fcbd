package brief

import (
	"strings"
	"testing"

	"whitecoat/internal/core"
)

func testConcept(adNumber int) core.AdConcept {
	return core.AdConcept{
		AdNumber: adNumber,
		Title:    "The Morning Routine",
		HookType: "Authority",
		VisualAsset: core.VisualAsset{
			Description: "A dermatologist applying serum in a bright bathroom",
			Style:       "Lifestyle",
			KeyElements: []string{"serum bottle", "morning light", "bathroom counter"},
		},
		TargetEmotion: "Trust",
	}
}

func TestDerivePromptsCount(t *testing.T) {
	prompts := DerivePrompts(testConcept(1), "GlowMD", nil)

	if len(prompts) != ImagesPerConcept {
		t.Fatalf("Expected %d prompts, got %d", ImagesPerConcept, len(prompts))
	}

	for i, p := range prompts {
		if p.AdNumber != 1 {
			t.Errorf("Prompt %d: expected adNumber=1, got %d", i, p.AdNumber)
		}
		if p.ImageNumber != i+1 {
			t.Errorf("Prompt %d: expected imageNumber=%d, got %d", i, i+1, p.ImageNumber)
		}
		if p.Prompt == "" {
			t.Errorf("Prompt %d: empty prompt text", i)
		}
	}
}

func TestDeriveAllPromptsOrdering(t *testing.T) {
	concepts := []core.AdConcept{testConcept(1), testConcept(2), testConcept(3)}

	prompts := DeriveAllPrompts(concepts, "GlowMD", nil)

	if len(prompts) != len(concepts)*ImagesPerConcept {
		t.Fatalf("Expected %d prompts, got %d", len(concepts)*ImagesPerConcept, len(prompts))
	}

	// Concept-major order with imageNumber cycling 1,2,3 within each concept.
	for i, p := range prompts {
		wantAd := concepts[i/ImagesPerConcept].AdNumber
		wantImage := i%ImagesPerConcept + 1
		if p.AdNumber != wantAd || p.ImageNumber != wantImage {
			t.Errorf("Prompt %d: expected (ad=%d, image=%d), got (ad=%d, image=%d)",
				i, wantAd, wantImage, p.AdNumber, p.ImageNumber)
		}
	}
}

func TestDerivePromptsVariants(t *testing.T) {
	prompts := DerivePrompts(testConcept(4), "GlowMD", nil)

	if !strings.Contains(prompts[0].Prompt, "Key elements: serum bottle, morning light, bathroom counter.") {
		t.Errorf("Variant 1 missing key elements list: %s", prompts[0].Prompt)
	}
	if !strings.Contains(prompts[1].Prompt, "Focus on: serum bottle.") {
		t.Errorf("Variant 2 missing first element focus: %s", prompts[1].Prompt)
	}
	if !strings.Contains(prompts[2].Prompt, "Emphasizing: serum bottle and morning light.") {
		t.Errorf("Variant 3 missing first-two emphasis: %s", prompts[2].Prompt)
	}
}

func TestDerivePromptsEmptyKeyElements(t *testing.T) {
	concept := testConcept(1)
	concept.VisualAsset.KeyElements = nil

	prompts := DerivePrompts(concept, "GlowMD", nil)

	if !strings.Contains(prompts[1].Prompt, "Focus on: product.") {
		t.Errorf("Variant 2 should fall back to 'product': %s", prompts[1].Prompt)
	}
	if !strings.Contains(prompts[2].Prompt, "Emphasizing: brand identity.") {
		t.Errorf("Variant 3 should fall back to 'brand identity': %s", prompts[2].Prompt)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"clean text unchanged", "Bright, clean lifestyle shot", "Bright, clean lifestyle shot"},
		{"strips angle brackets", "serum <script>alert(1)</script>", "serum scriptalert(1)/script"},
		{"strips quotes and braces", `"quoted" {brace} [bracket]`, "quoted brace bracket"},
		{"keeps allowed punctuation", "50% off! Dr. Lee's pick (new & improved): $20/mo?", "50% off! Dr. Lee's pick (new & improved): $20/mo?"},
		{"collapses whitespace", "too   many\n\nspaces\there", "too many spaces here"},
		{"control characters removed", "line\x00one\x07", "lineone"},
		{"empty input", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.input); got != tt.expected {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestStyleModifiers(t *testing.T) {
	style := &StyleContext{
		Aesthetic:        "Clinical minimalism",
		PhotographyStyle: "Natural light",
		BrandColors:      []string{"#ff6b35", "#FFF", "not-a-color", "#12345"},
		ProductNames:     []string{"Serum One", "Serum Two", "Serum Three", "Serum Four"},
	}

	prompts := DerivePrompts(testConcept(1), "GlowMD", style)
	prompt := prompts[0].Prompt

	if !strings.Contains(prompt, "Featuring products: Serum One, Serum Two, Serum Three.") {
		t.Errorf("Product names not capped at three: %s", prompt)
	}
	if !strings.Contains(prompt, "Brand aesthetic: Clinical minimalism, Natural light.") {
		t.Errorf("Missing brand aesthetic: %s", prompt)
	}
	if !strings.Contains(prompt, "Brand color palette: #FF6B35, #FFF.") {
		t.Errorf("Hex colors not validated and uppercased: %s", prompt)
	}
	if strings.Contains(prompt, "not-a-color") || strings.Contains(prompt, "#12345") {
		t.Errorf("Invalid colors should be dropped: %s", prompt)
	}
}

func TestStyleContextFromInsights(t *testing.T) {
	if StyleContextFromInsights(nil) != nil {
		t.Error("Nil insights should produce nil style context")
	}

	insights := &core.WebsiteInsights{
		BrandColors: []string{"#112233"},
		Products:    []string{"Night Cream"},
		VisualStyle: &core.VisualStyle{
			OverallAesthetic: "Warm and clinical",
			PhotographyStyle: "Studio",
		},
	}

	sc := StyleContextFromInsights(insights)
	if sc == nil {
		t.Fatal("Expected a style context")
	}
	if sc.Aesthetic != "Warm and clinical" || sc.PhotographyStyle != "Studio" {
		t.Errorf("Visual style not carried over: %+v", sc)
	}
	if len(sc.BrandColors) != 1 || len(sc.ProductNames) != 1 {
		t.Errorf("Colors/products not carried over: %+v", sc)
	}
}
