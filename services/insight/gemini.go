// Package insightsvc talks to a hosted generative-text API to produce
// teaching suggestions. One request, one response; callers own the
// degraded-mode behavior when the service is unreachable.
package insightsvc

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	gojson "github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/trezcool/umahiri/core"
)

type geminiService struct {
	baseURL string
	key     string
	model   string
	client  *http.Client
}

var _ core.InsightService = (*geminiService)(nil)

func NewGeminiService(conf *core.Config) core.InsightService {
	return &geminiService{
		baseURL: strings.TrimSuffix(conf.Insight.BaseURL, "/"),
		key:     conf.Insight.ApiKey,
		model:   conf.Insight.Model,
		client:  &http.Client{Timeout: conf.Insight.Timeout},
	}
}

type (
	generateRequest struct {
		Contents []content `json:"contents"`
	}
	content struct {
		Parts []part `json:"parts"`
	}
	part struct {
		Text string `json:"text"`
	}
	generateResponse struct {
		Candidates []struct {
			Content content `json:"content"`
		} `json:"candidates"`
	}
)

func (svc *geminiService) Suggest(ctx context.Context, prompt string) (string, error) {
	payload := generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}}
	body, err := gojson.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(err, "encoding insight request")
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", svc.baseURL, svc.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "building insight request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", svc.key)

	res, err := svc.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "calling insight service")
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return "", errors.Errorf("insight service returned status %d", res.StatusCode)
	}

	var data generateResponse
	if err = gojson.NewDecoder(res.Body).Decode(&data); err != nil {
		return "", errors.Wrap(err, "decoding insight response")
	}

	// the response text is opaque prose; concatenate the parts as-is
	var b strings.Builder
	for _, cand := range data.Candidates {
		for _, p := range cand.Content.Parts {
			b.WriteString(p.Text)
		}
		break // only the first candidate is used
	}
	return b.String(), nil
}
