package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"sync"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiProvider calls the Gemini API through the genai SDK.
// The SDK client is built on first use, so a missing API key surfaces on the
// first request rather than at startup.
type GeminiProvider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiProvider creates a provider for model. baseURL may be empty to use
// the public endpoint; httpClient may be nil.
func NewGeminiProvider(apiKey, model, baseURL string, httpClient *http.Client) *GeminiProvider {
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiProvider{
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

func (p *GeminiProvider) sdk(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	// An empty key lets the SDK fall back to GEMINI_API_KEY or GOOGLE_API_KEY.
	cfg := &genai.ClientConfig{
		APIKey:     p.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: p.httpClient,
	}
	if p.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: p.baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	p.client = client
	return client, nil
}

// GenerateStructured sends the image and prompt with a JSON response schema.
func (p *GeminiProvider) GenerateStructured(ctx context.Context, req StructuredRequest) (string, error) {
	client, err := p.sdk(ctx)
	if err != nil {
		return "", err
	}

	img, err := base64.StdEncoding.DecodeString(req.Image.Data)
	if err != nil {
		return "", fmt.Errorf("decode image data: %w", err)
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(img, req.Image.MIMEType),
			genai.NewPartFromText(req.Prompt),
		}, genai.RoleUser),
	}
	resp, err := client.Models.GenerateContent(ctx, p.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   req.Schema.genaiSchema(),
		Temperature:      genai.Ptr(req.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return resp.Text(), nil
}

// GenerateText sends a single text prompt.
func (p *GeminiProvider) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	client, err := p.sdk(ctx)
	if err != nil {
		return "", err
	}

	resp, err := client.Models.GenerateContent(ctx, p.model, genai.Text(req.Prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return resp.Text(), nil
}
