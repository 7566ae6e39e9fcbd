package brief

import (
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"whitecoat/internal/core"
)

// CompileInput carries everything the compiler needs. GeneratedAt is injected
// by the caller so compilation stays deterministic.
type CompileInput struct {
	Submission    *core.Submission
	Concepts      []core.AdConcept
	Images        []core.GeneratedImage
	ProductPhotos []core.ProductPhoto
	GeneratedAt   time.Time
}

type imageView struct {
	ImageNumber int
	// template.URL because generated images may be inline data URIs, which
	// html/template's URL sanitizer would otherwise reject
	URL template.URL
}

type conceptView struct {
	core.AdConcept
	PaddedNumber string
	Images       []imageView
}

type briefData struct {
	Submission    *core.Submission
	Date          string
	Concepts      []conceptView
	ProductPhotos []core.ProductPhoto
	HasContext    bool
}

// Compile renders the complete self-contained HTML brief. Images are grouped
// by ad number and sorted by image number; concepts with no images get the
// "Images generating..." placeholder.
func Compile(input CompileInput) (string, error) {
	imagesByAd := make(map[int][]core.GeneratedImage)
	for _, img := range input.Images {
		imagesByAd[img.AdNumber] = append(imagesByAd[img.AdNumber], img)
	}
	for adNumber := range imagesByAd {
		imgs := imagesByAd[adNumber]
		sort.Slice(imgs, func(i, j int) bool { return imgs[i].ImageNumber < imgs[j].ImageNumber })
		imagesByAd[adNumber] = imgs
	}

	views := make([]conceptView, 0, len(input.Concepts))
	for _, concept := range input.Concepts {
		var imgs []imageView
		for _, img := range imagesByAd[concept.AdNumber] {
			imgs = append(imgs, imageView{ImageNumber: img.ImageNumber, URL: template.URL(img.ImageURL)})
		}
		views = append(views, conceptView{
			AdConcept:    concept,
			PaddedNumber: fmt.Sprintf("%02d", concept.AdNumber),
			Images:       imgs,
		})
	}

	sub := input.Submission
	data := briefData{
		Submission:    sub,
		Date:          input.GeneratedAt.Format("January 2, 2006"),
		Concepts:      views,
		ProductPhotos: input.ProductPhotos,
		HasContext: sub.TargetAudience != "" || sub.BiggestChallenge != "" ||
			sub.AdditionalInfo != "" || sub.Website != "",
	}

	var b strings.Builder
	if err := briefTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render brief: %w", err)
	}
	return b.String(), nil
}

var briefTemplate = template.Must(template.New("brief").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>WhiteCoat Brief - {{.Submission.BrandName}}</title>
  <style>
    * {
      margin: 0;
      padding: 0;
      box-sizing: border-box;
    }

    body {
      font-family: 'Inter', -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
      background: #f8fafc;
      color: #0f172a;
      line-height: 1.6;
    }

    .brief-container {
      max-width: 1200px;
      margin: 0 auto;
      padding: 40px 20px;
    }

    .brief-header {
      background: linear-gradient(135deg, #0f172a 0%, #1e293b 100%);
      color: white;
      padding: 60px 40px;
      border-radius: 16px;
      margin-bottom: 40px;
    }

    .brief-header h1 {
      font-size: 2.5rem;
      font-weight: 700;
      margin-bottom: 8px;
    }

    .brief-header .subtitle {
      font-size: 1.25rem;
      color: #94a3b8;
      margin-bottom: 24px;
    }

    .brand-info {
      display: grid;
      grid-template-columns: repeat(auto-fit, minmax(200px, 1fr));
      gap: 24px;
      padding-top: 24px;
      border-top: 1px solid #334155;
    }

    .brand-info-item {
      display: flex;
      flex-direction: column;
    }

    .brand-info-item label {
      font-size: 0.75rem;
      text-transform: uppercase;
      letter-spacing: 0.05em;
      color: #64748b;
      margin-bottom: 4px;
    }

    .brand-info-item span {
      font-size: 1rem;
      color: white;
    }

    .section-title {
      font-size: 1.5rem;
      font-weight: 600;
      margin-bottom: 24px;
      padding-bottom: 12px;
      border-bottom: 2px solid #059669;
      display: inline-block;
    }

    .context-section, .photo-section {
      background: white;
      border-radius: 16px;
      padding: 32px;
      margin-bottom: 32px;
      box-shadow: 0 1px 3px rgba(0, 0, 0, 0.1);
    }

    .photo-gallery {
      display: grid;
      grid-template-columns: repeat(auto-fill, minmax(200px, 1fr));
      gap: 16px;
    }

    .photo-gallery img {
      width: 100%;
      border-radius: 12px;
      object-fit: cover;
      aspect-ratio: 1;
    }

    .ad-concept {
      background: white;
      border-radius: 16px;
      padding: 32px;
      margin-bottom: 32px;
      box-shadow: 0 1px 3px rgba(0, 0, 0, 0.1);
    }

    .ad-header {
      display: flex;
      align-items: center;
      gap: 16px;
      margin-bottom: 24px;
      flex-wrap: wrap;
    }

    .ad-number {
      background: #059669;
      color: white;
      font-size: 0.75rem;
      font-weight: 700;
      padding: 6px 12px;
      border-radius: 6px;
      letter-spacing: 0.05em;
    }

    .ad-title {
      font-size: 1.5rem;
      font-weight: 600;
      flex: 1;
      min-width: 200px;
    }

    .hook-type {
      background: #f1f5f9;
      color: #475569;
      font-size: 0.875rem;
      padding: 6px 12px;
      border-radius: 6px;
    }

    .image-gallery {
      display: grid;
      grid-template-columns: repeat(3, 1fr);
      gap: 16px;
      margin-bottom: 24px;
    }

    .image-card {
      position: relative;
      border-radius: 12px;
      overflow: hidden;
      background: #f1f5f9;
      aspect-ratio: 1;
    }

    .image-card img {
      width: 100%;
      height: 100%;
      object-fit: cover;
    }

    .image-label {
      position: absolute;
      bottom: 8px;
      left: 8px;
      background: rgba(0, 0, 0, 0.7);
      color: white;
      font-size: 0.75rem;
      padding: 4px 8px;
      border-radius: 4px;
    }

    .no-images {
      color: #94a3b8;
      font-style: italic;
      padding: 40px;
      text-align: center;
      background: #f8fafc;
      border-radius: 12px;
      grid-column: 1 / -1;
    }

    .ad-content {
      display: flex;
      flex-direction: column;
      gap: 20px;
    }

    .content-row {
      display: grid;
      grid-template-columns: repeat(2, 1fr);
      gap: 20px;
    }

    .content-block {
      background: #f8fafc;
      padding: 20px;
      border-radius: 12px;
    }

    .content-block.full-width {
      grid-column: 1 / -1;
    }

    .content-block h4 {
      font-size: 0.75rem;
      text-transform: uppercase;
      letter-spacing: 0.05em;
      color: #64748b;
      margin-bottom: 8px;
    }

    .content-block p {
      color: #334155;
    }

    .hook-text {
      font-size: 1.125rem;
      font-weight: 500;
      color: #0f172a !important;
      font-style: italic;
    }

    .cta-text {
      font-weight: 600;
      color: #059669 !important;
    }

    .visual-spec p {
      margin-bottom: 8px;
    }

    .visual-spec p:last-child {
      margin-bottom: 0;
    }

    .brief-footer {
      text-align: center;
      padding: 40px;
      color: #64748b;
      font-size: 0.875rem;
    }

    .brief-footer .logo {
      font-weight: 700;
      color: #0f172a;
      margin-bottom: 8px;
    }

    @media (max-width: 768px) {
      .brief-header {
        padding: 40px 24px;
      }

      .brief-header h1 {
        font-size: 1.75rem;
      }

      .image-gallery {
        grid-template-columns: 1fr;
      }

      .content-row {
        grid-template-columns: 1fr;
      }

      .ad-concept {
        padding: 24px;
      }
    }

    @media print {
      body {
        background: white;
      }

      .brief-container {
        padding: 0;
      }

      .ad-concept {
        break-inside: avoid;
        page-break-inside: avoid;
      }
    }
  </style>
</head>
<body>
  <div class="brief-container">
    <header class="brief-header">
      <h1>WhiteCoat Brief</h1>
      <p class="subtitle">DTC Intelligence Brief for {{.Submission.BrandName}}</p>

      <div class="brand-info">
        <div class="brand-info-item">
          <label>Founder</label>
          <span>{{.Submission.FounderName}}</span>
        </div>
        <div class="brand-info-item">
          <label>Credentials</label>
          <span>{{.Submission.MedicalCredentials}}</span>
        </div>
        <div class="brand-info-item">
          <label>Specialty</label>
          <span>{{.Submission.Specialty}}</span>
        </div>
        <div class="brand-info-item">
          <label>Product Type</label>
          <span>{{.Submission.ProductType}}</span>
        </div>
        <div class="brand-info-item">
          <label>Target Audience</label>
          <span>{{.Submission.TargetAudience}}</span>
        </div>
        <div class="brand-info-item">
          <label>Generated</label>
          <span>{{.Date}}</span>
        </div>
      </div>
    </header>

    <main>
{{- if .ProductPhotos}}
      <section class="photo-section">
        <h2 class="section-title">Product Photos</h2>
        <div class="photo-gallery">
{{- range .ProductPhotos}}
          <img src="{{.URL}}" alt="{{.Filename}}" />
{{- end}}
        </div>
      </section>
{{- end}}
{{- if .HasContext}}
      <section class="context-section">
        <h2 class="section-title">Brand Context</h2>
{{- if .Submission.TargetAudience}}
        <p><strong>Target Audience:</strong> {{.Submission.TargetAudience}}</p>
{{- end}}
{{- if .Submission.BiggestChallenge}}
        <p><strong>Biggest Challenge:</strong> {{.Submission.BiggestChallenge}}</p>
{{- end}}
{{- if .Submission.AdditionalInfo}}
        <p><strong>Additional Info:</strong> {{.Submission.AdditionalInfo}}</p>
{{- end}}
{{- if .Submission.Website}}
        <p><strong>Website:</strong> {{.Submission.Website}}</p>
{{- end}}
      </section>
{{- end}}
      <h2 class="section-title">Ad Concepts ({{len .Concepts}})</h2>
{{- range .Concepts}}
      <section class="ad-concept">
        <div class="ad-header">
          <span class="ad-number">AD {{.PaddedNumber}}</span>
          <h2 class="ad-title">{{.Title}}</h2>
          <span class="hook-type">{{.HookType}}</span>
        </div>

{{- if .Images}}
        <div class="image-gallery">
{{- $ad := .AdNumber}}
{{- range .Images}}
          <div class="image-card">
            <img src="{{.URL}}" alt="Ad {{$ad}} - Variation {{.ImageNumber}}" />
            <span class="image-label">Variation {{.ImageNumber}}</span>
          </div>
{{- end}}
        </div>
{{- else}}
        <p class="no-images">Images generating...</p>
{{- end}}

        <div class="ad-content">
          <div class="content-row">
            <div class="content-block">
              <h4>Opening Hook</h4>
              <p class="hook-text">&quot;{{.OpeningHook}}&quot;</p>
            </div>
            <div class="content-block">
              <h4>Target Emotion</h4>
              <p>{{.TargetEmotion}}</p>
            </div>
          </div>

          <div class="content-block full-width">
            <h4>Body Script</h4>
            <p>{{.BodyScript}}</p>
          </div>

          <div class="content-row">
            <div class="content-block">
              <h4>Call to Action</h4>
              <p class="cta-text">{{.CallToAction}}</p>
            </div>
            <div class="content-block">
              <h4>Platform</h4>
              <p>{{.PlatformRecommendation}}</p>
            </div>
          </div>

          <div class="content-block full-width visual-spec">
            <h4>Visual Specification</h4>
            <p><strong>Description:</strong> {{.VisualAsset.Description}}</p>
            <p><strong>Style:</strong> {{.VisualAsset.Style}}</p>
            <p><strong>Key Elements:</strong> {{join .VisualAsset.KeyElements ", "}}</p>
          </div>
        </div>
      </section>
{{- end}}
    </main>

    <footer class="brief-footer">
      <p class="logo">WhiteCoat Brief</p>
      <p>Generated on {{.Date}}</p>
      <p>This brief contains AI-generated content and images for creative direction purposes.</p>
    </footer>
  </div>
</body>
</html>`))
