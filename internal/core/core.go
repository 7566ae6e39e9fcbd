package core

import "time"

// SubmissionStatus tracks a submission through the brief lifecycle.
type SubmissionStatus string

const (
	// StatusNew is the initial status after questionnaire intake.
	StatusNew SubmissionStatus = "new"
	// StatusGenerating means a brief-generation run is in flight.
	StatusGenerating SubmissionStatus = "generating"
	// StatusGenerated means the HTML brief has been compiled.
	StatusGenerated SubmissionStatus = "generated"
	// StatusInProgress means staff uploaded the finished PDF.
	StatusInProgress SubmissionStatus = "in_progress"
	// StatusSent means the PDF was emailed to the client.
	StatusSent SubmissionStatus = "sent"
)

// Valid reports whether s is one of the known lifecycle statuses.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case StatusNew, StatusGenerating, StatusGenerated, StatusInProgress, StatusSent:
		return true
	}
	return false
}

// Submission represents one client intake record from the questionnaire.
type Submission struct {
	ID                 string           `json:"id"`                 // Unique identifier
	BrandName          string           `json:"brandName"`          // Client brand name
	FounderName        string           `json:"founderName"`        // Founder's full name
	Email              string           `json:"email"`              // Contact email for brief delivery
	Website            string           `json:"website"`            // Optional brand website URL (may lack scheme)
	MedicalCredentials string           `json:"medicalCredentials"` // Founder's credentials (e.g. "MD, FAAD")
	Specialty          string           `json:"specialty"`          // Medical specialty
	ProductType        string           `json:"productType"`        // Product category (e.g. "Skincare")
	CurrentRevenue     string           `json:"currentRevenue"`     // Self-reported revenue band
	BiggestChallenge   string           `json:"biggestChallenge"`   // Free-text marketing challenge
	TargetAudience     string           `json:"targetAudience"`     // Free-text audience description
	Timeline           string           `json:"timeline"`           // Desired engagement timeline
	HowDidYouHear      string           `json:"howDidYouHear"`      // Attribution answer
	AdditionalInfo     string           `json:"additionalInfo"`     // Optional free-text extras
	Status             SubmissionStatus `json:"status"`             // Lifecycle status (see state machine)
	AdConcepts         []AdConcept      `json:"adConcepts"`         // Generated ad concepts (nil until a run succeeds)
	BriefHTML          string           `json:"briefHtml"`          // Compiled HTML brief (empty until generated)
	BriefGeneratedAt   *time.Time       `json:"briefGeneratedAt"`   // When the brief was last compiled
	PDFURL             string           `json:"pdfUrl"`             // Blob URL of the staff-uploaded PDF
	SentAt             *time.Time       `json:"sentAt"`             // When the brief email went out
	CreatedAt          time.Time        `json:"createdAt"`          // Intake timestamp
}

// AdConcept is one proposed advertisement idea. Ten are generated per run.
type AdConcept struct {
	AdNumber               int         `json:"adNumber"`               // Ordinal within the run (1..N, dense)
	Title                  string      `json:"title"`                  // Concept title
	HookType               string      `json:"hookType"`               // Hook label (Authority, Curiosity, ...)
	OpeningHook            string      `json:"openingHook"`            // First-3-seconds hook text
	VisualAsset            VisualAsset `json:"visualAsset"`            // Visual specification
	BodyScript             string      `json:"bodyScript"`             // Main body copy
	CallToAction           string      `json:"callToAction"`           // CTA text
	TargetEmotion          string      `json:"targetEmotion"`          // Primary emotion to evoke
	PlatformRecommendation string      `json:"platformRecommendation"` // Suggested platform
}

// VisualAsset describes what a concept's imagery should show.
type VisualAsset struct {
	Description string   `json:"description"` // What the image should show
	Style       string   `json:"style"`       // Photography style
	KeyElements []string `json:"keyElements"` // Required visual elements
}

// GeneratedImage is one AI-generated image for an (adNumber, imageNumber) slot.
type GeneratedImage struct {
	ID           string    `json:"id"`
	SubmissionID string    `json:"submissionId"`
	AdNumber     int       `json:"adNumber"`    // Owning concept ordinal
	ImageNumber  int       `json:"imageNumber"` // Variant slot, 1..3
	Prompt       string    `json:"prompt"`      // Prompt text used for generation
	ImageURL     string    `json:"imageUrl"`    // Durable URL or inline data URI
	CreatedAt    time.Time `json:"createdAt"`
}

// ProductPhoto is a client-supplied product photo uploaded by staff.
type ProductPhoto struct {
	ID           string    `json:"id"`
	SubmissionID string    `json:"submissionId"`
	URL          string    `json:"url"`      // Blob store URL
	Filename     string    `json:"filename"` // Original upload filename
	CreatedAt    time.Time `json:"createdAt"`
}

// Product is a structured product record extracted from a client website.
type Product struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Category    string `json:"category,omitempty"`
}

// VisualStyle characterizes a brand's photography from a sampled website image.
type VisualStyle struct {
	ColorPalette     []string `json:"colorPalette"`
	PhotographyStyle string   `json:"photographyStyle"`
	OverallAesthetic string   `json:"overallAesthetic"`
	BrandMood        string   `json:"brandMood"`
	ImageDescription string   `json:"imageDescription"`
}

// WebsiteInsights is a best-effort structured summary of a client's website.
// Every field degrades to an empty default so downstream prompt construction
// only ever needs emptiness checks.
type WebsiteInsights struct {
	Products            []string     `json:"products"`
	StructuredProducts  []Product    `json:"structuredProducts"`
	Pricing             string       `json:"pricing"`
	BrandMessaging      string       `json:"brandMessaging"`
	UniqueSellingPoints []string     `json:"uniqueSellingPoints"`
	TargetAudience      string       `json:"targetAudience"`
	Testimonials        []string     `json:"testimonials"`
	KeyBenefits         []string     `json:"keyBenefits"`
	Certifications      []string     `json:"certifications"`
	BrandColors         []string     `json:"brandColors"` // Hex/rgb literals from site CSS
	RawContent          string       `json:"rawContent"`  // Truncated scraped text kept for context
	VisualStyle         *VisualStyle `json:"visualStyle,omitempty"`
	ProductImageURLs    []string     `json:"productImageUrls,omitempty"`
}

// ImagePrompt is one derived image-generation prompt tagged with its slot.
type ImagePrompt struct {
	Prompt      string `json:"prompt"`
	AdNumber    int    `json:"adNumber"`
	ImageNumber int    `json:"imageNumber"` // 1..3
}

// ImageResult is the per-item outcome of one image-generation attempt.
// Exactly one of ImageURL and Error is non-empty.
type ImageResult struct {
	Prompt      string `json:"prompt"`
	ImageURL    string `json:"imageUrl"`
	Error       string `json:"error"`
	AdNumber    int    `json:"adNumber"`
	ImageNumber int    `json:"imageNumber"`
}

// Succeeded reports whether the generation attempt produced an image.
func (r ImageResult) Succeeded() bool { return r.ImageURL != "" }
