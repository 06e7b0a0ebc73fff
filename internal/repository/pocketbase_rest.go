// Package repository provides PocketBase REST API implementations
package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"attendance-scanner/internal/models"
)

const participantCollection = "participant"

// participantRecord is the PocketBase JSON shape of a participant row.
// Flags hold "" (null) or "done".
type participantRecord struct {
	ID        string `json:"id"`
	SRN       string `json:"srn"`
	Entry     string `json:"entry"`
	Dinner    string `json:"dinner"`
	Snacks    string `json:"snacks"`
	Breakfast string `json:"breakfast"`
}

func (r participantRecord) toModel() *models.Participant {
	return &models.Participant{
		SRN:       r.SRN,
		Entry:     r.Entry == models.FlagDone,
		Dinner:    r.Dinner == models.FlagDone,
		Snacks:    r.Snacks == models.FlagDone,
		Breakfast: r.Breakfast == models.FlagDone,
	}
}

// PocketBaseRESTParticipantRepository implements ParticipantRepository
type PocketBaseRESTParticipantRepository struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// PocketBaseOption configures the REST repository
type PocketBaseOption func(*PocketBaseRESTParticipantRepository)

// WithAuthToken sets the Authorization header sent with every request
func WithAuthToken(token string) PocketBaseOption {
	return func(r *PocketBaseRESTParticipantRepository) { r.authToken = token }
}

// WithRateLimit caps outbound requests per second
func WithRateLimit(rps float64, burst int) PocketBaseOption {
	return func(r *PocketBaseRESTParticipantRepository) {
		r.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) PocketBaseOption {
	return func(r *PocketBaseRESTParticipantRepository) { r.httpClient = c }
}

// NewPocketBaseRESTParticipantRepository creates repository
func NewPocketBaseRESTParticipantRepository(baseURL string, opts ...PocketBaseOption) *PocketBaseRESTParticipantRepository {
	r := &PocketBaseRESTParticipantRepository{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *PocketBaseRESTParticipantRepository) addAuthHeader(req *http.Request) {
	if r.authToken != "" {
		req.Header.Set("Authorization", r.authToken)
	}
}

func (r *PocketBaseRESTParticipantRepository) do(req *http.Request) (*http.Response, error) {
	if err := r.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	r.addAuthHeader(req)
	return r.httpClient.Do(req)
}

// Lookup fetches a single participant by SRN
func (r *PocketBaseRESTParticipantRepository) Lookup(ctx context.Context, srn string) (*models.Participant, error) {
	rec, err := r.find(ctx, srn)
	if err != nil {
		return nil, err
	}
	return rec.toModel(), nil
}

func (r *PocketBaseRESTParticipantRepository) find(ctx context.Context, srn string) (*participantRecord, error) {
	filter := fmt.Sprintf("srn='%s'", escapeFilterValue(srn))
	apiURL := fmt.Sprintf("%s/api/collections/%s/records?filter=%s&perPage=2&skipTotal=1",
		r.baseURL, participantCollection, url.QueryEscape(filter))

	log.Printf("🔍 Looking up participant by SRN: %s", srn)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.do(req)
	if err != nil {
		log.Printf("❌ HTTP error looking up participant: %v", err)
		return nil, fmt.Errorf("lookup participant: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to get participant: %s - %s", resp.Status, string(body))
	}

	var result struct {
		Items []participantRecord `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode participant: %w", err)
	}

	switch len(result.Items) {
	case 0:
		return nil, ErrParticipantNotFound
	case 1:
		return &result.Items[0], nil
	default:
		log.Printf("❌ Multiple participant records for SRN: %s", srn)
		return nil, fmt.Errorf("failed to get participant: %d records match srn %q", len(result.Items), srn)
	}
}

// MarkDone sets the category flag to "done". PocketBase addresses records by
// their internal id, so the row is resolved by SRN first.
func (r *PocketBaseRESTParticipantRepository) MarkDone(ctx context.Context, srn string, category models.Category) (*models.Participant, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownCategory, category)
	}

	rec, err := r.find(ctx, srn)
	if err != nil {
		return nil, err
	}

	updateURL := fmt.Sprintf("%s/api/collections/%s/records/%s", r.baseURL, participantCollection, rec.ID)
	jsonData, err := json.Marshal(map[string]string{string(category): models.FlagDone})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, updateURL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.do(req)
	if err != nil {
		log.Printf("❌ HTTP error updating participant: %v", err)
		return nil, fmt.Errorf("update participant: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrParticipantNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to update participant: %s - %s", resp.Status, string(body))
	}

	var updated participantRecord
	if err := json.NewDecoder(resp.Body).Decode(&updated); err != nil {
		return nil, fmt.Errorf("decode participant: %w", err)
	}

	log.Printf("💾 Marked %s=done for participant %s", category, srn)
	return updated.toModel(), nil
}

// Ping calls the PocketBase health endpoint
func (r *PocketBaseRESTParticipantRepository) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/api/health", nil)
	if err != nil {
		return err
	}
	resp, err := r.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("store unhealthy: %s", resp.Status)
	}
	return nil
}

func escapeFilterValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
