package embedder

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Provider configuration
const (
	ProviderJina   = "jina"
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	// Default models
	DefaultJinaModel   = "jina-embeddings-v3"
	DefaultOpenAIModel = "text-embedding-3-small"

	// Dimensions
	JinaDimension   = 1024
	OpenAIDimension = 1536
	LocalDimension  = 384

	// Default API endpoints
	DefaultJinaBaseURL   = "https://api.jina.ai"
	DefaultOpenAIBaseURL = "https://api.openai.com"

	// Batch limits
	DefaultBatchSize = 50
	MinBatchSize     = 10
	MaxBatchSize     = 100

	// Environment variables
	EnvProvider     = "DOCDEX_EMBEDDING_PROVIDER"
	EnvJinaAPIKey   = "JINA_API_KEY"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
)

// Options configures an HTTP embedding provider. Zero values fall back to
// provider defaults.
type Options struct {
	APIKey            string
	Model             string
	BaseURL           string
	RequestsPerSecond float64 // 0 disables rate limiting
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// httpProvider is the shared machinery of HTTP embedding APIs: both Jina
// and OpenAI speak the same embeddings request shape.
type httpProvider struct {
	name       string
	apiKey     string
	model      string
	endpoint   string
	dimension  int
	httpClient *http.Client
	limiter    *rate.Limiter
}

func (p *httpProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateBatch(texts); err != nil {
		return nil, err
	}
	if len(texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, MaxBatchSize)
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	return p.callAPI(ctx, texts)
}

func (p *httpProvider) callAPI(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := map[string]interface{}{
		"input": texts,
		"model": p.model,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		if payloadTooLarge(resp.StatusCode, bodyBytes) {
			return nil, fmt.Errorf("%w: api error %d", ErrPayloadTooLarge, resp.StatusCode)
		}
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(apiResp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrProviderFailed, len(apiResp.Data), len(texts))
	}

	// Reassemble by index; providers may return entries out of order.
	vectors := make([][]float32, len(texts))
	for i, data := range apiResp.Data {
		idx := data.Index
		if idx < 0 || idx >= len(vectors) {
			idx = i
		}
		vectors[idx] = data.Embedding
	}
	return vectors, nil
}

// payloadTooLarge detects the provider's request-size rejection. 413 is the
// canonical signal; some providers answer 400 with a size complaint.
func payloadTooLarge(status int, body []byte) bool {
	if status == http.StatusRequestEntityTooLarge {
		return true
	}
	if status == http.StatusBadRequest {
		msg := strings.ToLower(string(body))
		return strings.Contains(msg, "too large") || strings.Contains(msg, "payload size")
	}
	return false
}

func (p *httpProvider) Dimension() int   { return p.dimension }
func (p *httpProvider) Provider() string { return p.name }
func (p *httpProvider) Model() string    { return p.model }

func (p *httpProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// JinaProvider implements Provider using the Jina AI API
type JinaProvider struct {
	httpProvider
}

// NewJinaProvider creates a new Jina AI embedding provider
func NewJinaProvider(opts Options) (*JinaProvider, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvJinaAPIKey)
	}
	model := opts.Model
	if model == "" {
		model = DefaultJinaModel
	}
	baseURL := strings.TrimSuffix(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultJinaBaseURL
	}

	return &JinaProvider{httpProvider{
		name:      ProviderJina,
		apiKey:    opts.APIKey,
		model:     model,
		endpoint:  baseURL + "/v1/embeddings",
		dimension: JinaDimension,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: newLimiter(opts.RequestsPerSecond),
	}}, nil
}

// OpenAIProvider implements Provider using the OpenAI API
type OpenAIProvider struct {
	httpProvider
}

// NewOpenAIProvider creates a new OpenAI embedding provider
func NewOpenAIProvider(opts Options) (*OpenAIProvider, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvOpenAIAPIKey)
	}
	model := opts.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	baseURL := strings.TrimSuffix(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}

	return &OpenAIProvider{httpProvider{
		name:      ProviderOpenAI,
		apiKey:    opts.APIKey,
		model:     model,
		endpoint:  baseURL + "/v1/embeddings",
		dimension: OpenAIDimension,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: newLimiter(opts.RequestsPerSecond),
	}}, nil
}

// LocalProvider produces deterministic hash-derived vectors without any
// network dependency. Useful for tests and offline development; the vectors
// carry no semantic signal.
type LocalProvider struct {
	model     string
	dimension int
}

// NewLocalProvider creates a local embedding provider with the given
// dimension (0 uses LocalDimension).
func NewLocalProvider(dimension int) (*LocalProvider, error) {
	if dimension < 0 {
		return nil, fmt.Errorf("%w: dimension %d", ErrInvalidInput, dimension)
	}
	if dimension == 0 {
		dimension = LocalDimension
	}
	return &LocalProvider{
		model:     "local-embeddings",
		dimension: dimension,
	}, nil
}

func (l *LocalProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateBatch(texts); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = l.embedText(text)
	}
	return vectors, nil
}

// embedText derives a unit vector from the text hash. Identical text always
// maps to the identical vector.
func (l *LocalProvider) embedText(text string) []float32 {
	seed := sha256.Sum256([]byte(text))
	vector := make([]float32, l.dimension)
	for i := range vector {
		b := seed[i%len(seed)] ^ byte(i)
		vector[i] = float32(b)/127.5 - 1.0
	}
	return NormalizeVector(vector)
}

func (l *LocalProvider) Dimension() int   { return l.dimension }
func (l *LocalProvider) Provider() string { return ProviderLocal }
func (l *LocalProvider) Model() string    { return l.model }
func (l *LocalProvider) Close() error     { return nil }

// NormalizeVector normalizes a vector to unit length (for cosine similarity)
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val * val)
	}

	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}

	return result
}
