package brief

import (
	"strings"
	"testing"
	"time"

	"whitecoat/internal/core"
)

func compileFixture() CompileInput {
	concepts := []core.AdConcept{
		{
			AdNumber: 1,
			Title:    "The Post-It Reveal",
			HookType: "Curiosity",
			VisualAsset: core.VisualAsset{
				Description: "Close-up of a handwritten note on a mirror",
				Style:       "Lifestyle",
				KeyElements: []string{"post-it", "mirror"},
			},
			OpeningHook:            "What my dermatologist wrote on my mirror...",
			BodyScript:             "A simple morning reminder changed my skin.",
			CallToAction:           "See how",
			TargetEmotion:          "Curiosity",
			PlatformRecommendation: "TikTok",
		},
		{
			AdNumber: 2,
			Title:    "Authority Hook",
			HookType: "Authority",
			VisualAsset: core.VisualAsset{
				Description: "Doctor in a clinic",
				Style:       "Professional medical setting",
				KeyElements: []string{"white coat"},
			},
			OpeningHook:            "As a board-certified dermatologist...",
			BodyScript:             "I formulated this after years in clinic.",
			CallToAction:           "Learn more",
			TargetEmotion:          "Trust",
			PlatformRecommendation: "Meta (Facebook/Instagram)",
		},
	}

	// Images arrive out of order and only for concept 1.
	images := []core.GeneratedImage{
		{ID: "i3", SubmissionID: "sub-1", AdNumber: 1, ImageNumber: 3, ImageURL: "https://cdn.example.com/3.png"},
		{ID: "i1", SubmissionID: "sub-1", AdNumber: 1, ImageNumber: 1, ImageURL: "https://cdn.example.com/1.png"},
		{ID: "i2", SubmissionID: "sub-1", AdNumber: 1, ImageNumber: 2, ImageURL: "https://cdn.example.com/2.png"},
	}

	return CompileInput{
		Submission: &core.Submission{
			ID:                 "sub-1",
			BrandName:          "GlowMD",
			FounderName:        "Dana Reyes",
			MedicalCredentials: "MD, FAAD",
			Specialty:          "Dermatology",
			ProductType:        "Skincare",
			TargetAudience:     "Women 30-50",
			BiggestChallenge:   "Standing out in a crowded market",
			Website:            "https://glowmd.example.com",
		},
		Concepts:    concepts,
		Images:      images,
		GeneratedAt: time.Date(2025, time.March, 14, 10, 30, 0, 0, time.UTC),
	}
}

func TestCompileDeterministic(t *testing.T) {
	input := compileFixture()

	first, err := Compile(input)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	second, err := Compile(input)
	if err != nil {
		t.Fatalf("Second compile failed: %v", err)
	}

	if first != second {
		t.Error("Compile is not deterministic for identical inputs")
	}
}

func TestCompileContent(t *testing.T) {
	html, err := Compile(compileFixture())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	for _, want := range []string{
		"GlowMD",
		"Dana Reyes",
		"MD, FAAD",
		"The Post-It Reveal",
		"Authority Hook",
		"As a board-certified dermatologist...",
		"Generated on March 14, 2025",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("Brief missing %q", want)
		}
	}

	if strings.Contains(html, "<link") || strings.Contains(html, "src=\"/") {
		t.Error("Brief should be self-contained with no external asset references")
	}
}

func TestCompileImageOrdering(t *testing.T) {
	html, err := Compile(compileFixture())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	// Images for concept 1 must appear sorted by image number even though
	// the input slice is shuffled.
	i1 := strings.Index(html, "https://cdn.example.com/1.png")
	i2 := strings.Index(html, "https://cdn.example.com/2.png")
	i3 := strings.Index(html, "https://cdn.example.com/3.png")
	if i1 == -1 || i2 == -1 || i3 == -1 {
		t.Fatal("Not all image URLs rendered")
	}
	if !(i1 < i2 && i2 < i3) {
		t.Errorf("Images not sorted by image number: positions %d, %d, %d", i1, i2, i3)
	}
}

func TestCompilePlaceholderForMissingImages(t *testing.T) {
	html, err := Compile(compileFixture())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	// Concept 2 has no images and must render the placeholder.
	if !strings.Contains(html, "Images generating...") {
		t.Error("Concept with zero images should render the placeholder")
	}
}

func TestCompileDataURISurvives(t *testing.T) {
	input := compileFixture()
	input.Images = []core.GeneratedImage{
		{AdNumber: 1, ImageNumber: 1, ImageURL: "data:image/png;base64,iVBORw0KGgo="},
	}

	html, err := Compile(input)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if !strings.Contains(html, "data:image/png;base64,iVBORw0KGgo=") {
		t.Error("Inline data URI was mangled by template escaping")
	}
	if strings.Contains(html, "ZgotmplZ") {
		t.Error("Template URL sanitizer rejected the data URI")
	}
}

func TestCompileContextSections(t *testing.T) {
	input := compileFixture()
	input.ProductPhotos = []core.ProductPhoto{
		{ID: "p1", SubmissionID: "sub-1", URL: "https://cdn.example.com/photo.jpg", Filename: "photo.jpg"},
	}

	html, err := Compile(input)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if !strings.Contains(html, "https://cdn.example.com/photo.jpg") {
		t.Error("Product photos should render in their own section")
	}
	if !strings.Contains(html, "Standing out in a crowded market") {
		t.Error("Brand context section missing the challenge text")
	}

	// Without photos or context fields, neither section appears.
	bare := compileFixture()
	bare.Submission = &core.Submission{ID: "sub-2", BrandName: "Bare"}
	bareHTML, err := Compile(bare)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if strings.Contains(bareHTML, `<div class="photo-gallery">`) {
		t.Error("Photo section should be omitted when there are no photos")
	}
}
