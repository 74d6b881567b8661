package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/juju/clock"

	"github.com/user/slot-watcher/internal/entity"
	"github.com/user/slot-watcher/internal/fingerprint"
	"github.com/user/slot-watcher/internal/repository"
	"github.com/user/slot-watcher/pkg/utils"
)

const (
	qualificationListPath = "/assets/static/its/vaccination-list.json"
	checkPath             = "/rest/suche/termincheck"

	maxResponseBodySize = 1 << 20 // 1MB
)

type qualification struct {
	Qualification string `json:"qualification"`
	Name          string `json:"name"`
}

type checkResponse struct {
	AppointmentsAvailable bool `json:"termineVorhanden"`
}

// DirectQueryProbe asks a center's check endpoint whether any appointment exists.
// The endpoint only reports presence, so the count is always 0 or 1.
type DirectQueryProbe struct {
	client  *http.Client
	clock   clock.Clock
	timeout time.Duration
}

// NewDirectQueryProbe creates a probe for KindDirect sources. timeout bounds each HTTP request.
func NewDirectQueryProbe(client *http.Client, clk clock.Clock, timeout time.Duration) *DirectQueryProbe {
	if client == nil {
		client = http.DefaultClient
	}
	return &DirectQueryProbe{client: client, clock: clk, timeout: timeout}
}

// Probe queries the check endpoint derived from the source locator. The session is unused.
func (p *DirectQueryProbe) Probe(ctx context.Context, src entity.Source, _ repository.BrowserSession) (*entity.Payload, error) {
	if src.Kind != entity.KindDirect {
		return nil, fmt.Errorf("%w: %s is %s, not direct", repository.ErrUnclassifiedSource, src.ID, src.Kind)
	}

	u, err := url.Parse(src.Locator)
	if err != nil {
		return nil, fmt.Errorf("%w: parse locator: %v", repository.ErrProbeTransport, err)
	}
	base := utils.BaseURL(u)

	qualifications, err := p.fetchQualifications(ctx, base)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("plz", u.Query().Get("plz"))
	query.Set("leistungsmerkmale", strings.Join(qualifications, ","))
	query.Set("cachebuster", strconv.FormatInt(p.clock.Now().UnixMilli(), 10))

	body, err := p.get(ctx, base+checkPath+"?"+query.Encode())
	if err != nil {
		return nil, err
	}

	var resp checkResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode check response: %v", repository.ErrProbeTransport, err)
	}

	count := 0
	if resp.AppointmentsAvailable {
		count = 1
	}
	return &entity.Payload{
		AvailableCount: count,
		RawContent:     string(body),
		Fingerprint:    fingerprint.JSON(body),
	}, nil
}

func (p *DirectQueryProbe) fetchQualifications(ctx context.Context, base string) ([]string, error) {
	body, err := p.get(ctx, base+qualificationListPath)
	if err != nil {
		return nil, err
	}

	var list []qualification
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("%w: decode qualification list: %v", repository.ErrProbeTransport, err)
	}

	codes := make([]string, 0, len(list))
	for _, q := range list {
		if q.Qualification != "" {
			codes = append(codes, q.Qualification)
		}
	}
	return codes, nil
}

func (p *DirectQueryProbe) get(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", repository.ErrProbeTransport, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: %s returned %d", repository.ErrRateLimited, req.URL.Path, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %d", repository.ErrProbeTransport, req.URL.Path, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, classifyError(err)
	}
	return body, nil
}
