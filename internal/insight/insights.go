package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"whitecoat/internal/config"
	"whitecoat/internal/core"
	"whitecoat/internal/llm"
	"whitecoat/internal/logger"
)

const extractionPrompt = `You are analyzing a DTC (Direct-to-Consumer) brand's e-commerce website. Extract detailed information for creating effective advertising briefs. Be specific and detailed.

Return ONLY valid JSON with this structure:
{
  "products": ["Product name 1", "Product name 2"],
  "structuredProducts": [
    {
      "name": "Full Product Name",
      "description": "Product description or tagline from the website",
      "price": "$29.99 or price range",
      "category": "Category if identifiable (e.g., Skincare, Supplements, etc.)"
    }
  ],
  "pricing": "Price range or pricing model (e.g., '$15-$45', 'Subscription: $25/mo')",
  "brandMessaging": "The main brand message, tagline, or value proposition",
  "uniqueSellingPoints": ["What makes this brand unique", "Key differentiators"],
  "targetAudience": "Who the brand appears to be targeting based on messaging",
  "testimonials": ["Any customer testimonials or reviews found"],
  "keyBenefits": ["Main benefits highlighted for customers"],
  "certifications": ["FDA approved", "Dermatologist tested", "Cruelty-free", "etc."]
}

IMPORTANT:
- Extract ACTUAL product names from the website, not generic descriptions
- Include specific prices when visible
- Look for product descriptions, ingredients, or key features
- Identify any certifications, awards, or trust badges

Website content to analyze:`

const visualStylePrompt = `Analyze this product/brand image and extract the visual style. Return ONLY valid JSON:
{
  "colorPalette": ["primary color", "secondary color", "accent color"],
  "photographyStyle": "Describe the photography style (e.g., 'clean product shots on white background', 'lifestyle photography with natural lighting', 'clinical/medical aesthetic')",
  "overallAesthetic": "Describe the overall visual aesthetic (e.g., 'modern minimalist', 'warm and approachable', 'premium luxury', 'clinical and trustworthy')",
  "brandMood": "The mood/feeling conveyed (e.g., 'professional', 'friendly', 'innovative', 'calming')",
  "imageDescription": "Brief description of what's shown in the image"
}`

const couldNotExtract = "Could not extract"

// Extractor turns a client website into structured brand insights.
// Every operation is best-effort; a failed run yields nil, never an error
// that blocks the caller.
type Extractor struct {
	llm     *llm.Client
	scraper *Scraper
	cfg     config.Scraper
}

// NewExtractor creates a new insight extractor
func NewExtractor(llmClient *llm.Client, scraper *Scraper, cfg config.Scraper) *Extractor {
	return &Extractor{
		llm:     llmClient,
		scraper: scraper,
		cfg:     cfg,
	}
}

// GetWebsiteInsights scrapes a client website and extracts structured
// insights. The whole operation runs under the configured overall timeout.
// Returns nil on any failure; insight extraction never blocks a brief run.
func (e *Extractor) GetWebsiteInsights(ctx context.Context, websiteURL string) *core.WebsiteInsights {
	log := logger.Get()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.OverallTimeout)
	defer cancel()

	baseURL, err := NormalizeURL(websiteURL)
	if err != nil {
		log.Warn("Skipping website insights", "error", err)
		return nil
	}

	log.Info("Scraping website", "url", baseURL)

	pages := e.scraper.DiscoverPages(ctx, baseURL)

	var combinedContent, combinedHTML strings.Builder
	finalURL := baseURL
	for _, pageURL := range pages {
		result, err := e.scraper.ScrapePage(ctx, pageURL)
		if err != nil {
			log.Warn("Failed to scrape page", "url", pageURL, "error", err)
			continue
		}
		combinedContent.WriteString(fmt.Sprintf("\n\n--- Content from %s ---\n\n%s", pageURL, result.TextContent))
		combinedHTML.WriteString(result.HTML)
		if pageURL == baseURL {
			finalURL = result.FinalURL
		}
	}

	content := combinedContent.String()
	if strings.TrimSpace(content) == "" {
		log.Warn("No content extracted from website", "url", baseURL)
		return nil
	}
	if len(content) > e.cfg.TotalCharLimit {
		log.Info("Truncating scraped content", "chars", len(content), "limit", e.cfg.TotalCharLimit)
		content = truncateToRune(content, e.cfg.TotalCharLimit)
	}

	insights, err := e.ExtractInsights(ctx, content)
	if err != nil {
		log.Warn("Insight extraction failed", "error", err)
		return nil
	}

	html := combinedHTML.String()
	insights.BrandColors = ExtractColors(html)
	insights.ProductImageURLs = ExtractImageURLs(html, finalURL)

	log.Info("Website insights extracted",
		"products", len(insights.Products),
		"colors", len(insights.BrandColors),
		"images", len(insights.ProductImageURLs))

	// Analyze visual style from the first image that works; try at most 2
	for i, imageURL := range insights.ProductImageURLs {
		if i >= 2 {
			break
		}
		data, mimeType, err := e.scraper.FetchImage(ctx, imageURL)
		if err != nil {
			log.Debug("Failed to fetch image for style analysis", "url", imageURL, "error", err)
			continue
		}
		style, err := e.analyzeVisualStyle(ctx, data, mimeType)
		if err != nil {
			log.Debug("Visual style analysis failed", "url", imageURL, "error", err)
			continue
		}
		insights.VisualStyle = style
		log.Info("Visual style extracted", "aesthetic", style.OverallAesthetic)
		break
	}

	return insights
}

// ExtractInsights runs the extraction prompt over scraped text content.
// Unparseable LLM output degrades to an empty insights struct rather than
// failing the run.
func (e *Extractor) ExtractInsights(ctx context.Context, content string) (*core.WebsiteInsights, error) {
	log := logger.Get()

	response, err := e.llm.GenerateText(ctx, extractionPrompt+"\n\n"+content, llm.TextGenerationOptions{
		Temperature: 0.3,
		MaxTokens:   4000,
	})
	if err != nil {
		return nil, fmt.Errorf("insight extraction call failed: %w", err)
	}

	rawContent := truncateToRune(content, 2000)

	insights := &core.WebsiteInsights{
		Pricing:        couldNotExtract,
		BrandMessaging: couldNotExtract,
		TargetAudience: couldNotExtract,
		RawContent:     rawContent,
	}

	jsonText := extractJSONObject(response)
	if jsonText == "" {
		log.Warn("No JSON object in insight response")
		return insights, nil
	}

	var parsed struct {
		Products            []string       `json:"products"`
		StructuredProducts  []core.Product `json:"structuredProducts"`
		Pricing             string         `json:"pricing"`
		BrandMessaging      string         `json:"brandMessaging"`
		UniqueSellingPoints []string       `json:"uniqueSellingPoints"`
		TargetAudience      string         `json:"targetAudience"`
		Testimonials        []string       `json:"testimonials"`
		KeyBenefits         []string       `json:"keyBenefits"`
		Certifications      []string       `json:"certifications"`
	}
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		log.Warn("Failed to parse insight JSON", "error", err, "preview", preview(jsonText, 200))
		return insights, nil
	}

	insights.Products = parsed.Products
	insights.StructuredProducts = parsed.StructuredProducts
	insights.UniqueSellingPoints = parsed.UniqueSellingPoints
	insights.Testimonials = parsed.Testimonials
	insights.KeyBenefits = parsed.KeyBenefits
	insights.Certifications = parsed.Certifications
	if parsed.Pricing != "" {
		insights.Pricing = parsed.Pricing
	}
	if parsed.BrandMessaging != "" {
		insights.BrandMessaging = parsed.BrandMessaging
	}
	if parsed.TargetAudience != "" {
		insights.TargetAudience = parsed.TargetAudience
	}

	return insights, nil
}

// analyzeVisualStyle asks the vision model to characterize one brand image
func (e *Extractor) analyzeVisualStyle(ctx context.Context, imageData []byte, mimeType string) (*core.VisualStyle, error) {
	response, err := e.llm.DescribeImage(ctx, visualStylePrompt, imageData, mimeType, llm.TextGenerationOptions{
		Temperature: 0.3,
		MaxTokens:   1000,
	})
	if err != nil {
		return nil, err
	}

	jsonText := extractJSONObject(response)
	if jsonText == "" {
		return nil, fmt.Errorf("no JSON object in visual style response")
	}

	var style core.VisualStyle
	if err := json.Unmarshal([]byte(jsonText), &style); err != nil {
		return nil, fmt.Errorf("failed to parse visual style JSON: %w", err)
	}
	return &style, nil
}

// extractJSONObject strips markdown code fences and returns the first
// top-level {...} block of the response, or "" when none exists.
func extractJSONObject(response string) string {
	text := strings.TrimSpace(response)

	if strings.HasPrefix(text, "```json") {
		text = text[len("```json"):]
	} else if strings.HasPrefix(text, "```") {
		text = text[len("```"):]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return text[start : end+1]
}

func preview(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
