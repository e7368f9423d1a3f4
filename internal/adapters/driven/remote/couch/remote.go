package couch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/apidae-tourisme/seedsync/internal/core/domain"
	"github.com/apidae-tourisme/seedsync/internal/core/ports/driven"
)

const (
	// defaultRequestsPerSecond bounds the shared request throttle.
	defaultRequestsPerSecond = 10

	defaultTimeout = 30 * time.Second
)

// Remote talks to a CouchDB-compatible server over HTTP.
type Remote struct {
	client   *http.Client
	baseURL  string
	database string
	limiter  *rate.Limiter
}

var _ driven.RemoteStore = (*Remote)(nil)

// Option configures a Remote.
type Option func(*Remote)

// WithHTTPClient sets the HTTP client, typically one carrying an OAuth2
// transport.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Remote) { r.client = client }
}

// WithRateLimit overrides the request throttle.
func WithRateLimit(perSecond float64) Option {
	return func(r *Remote) {
		r.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// NewRemote creates a Remote for the given server URL and database.
func NewRemote(baseURL, database string, opts ...Option) *Remote {
	r := &Remote{
		client:   &http.Client{Timeout: defaultTimeout},
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		database: database,
		limiter:  rate.NewLimiter(defaultRequestsPerSecond, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// viewResponse is the seeds/visible view result envelope.
type viewResponse struct {
	TotalRows int `json:"total_rows"`
	Rows      []struct {
		Doc wireSeed `json:"doc"`
	} `json:"rows"`
}

// Count returns the number of documents visible to the user.
func (r *Remote) Count(ctx context.Context, userEmail string) (int, error) {
	query := url.Values{
		"user":  {userEmail},
		"limit": {"0"},
	}
	var resp viewResponse
	if err := r.get(ctx, r.viewPath(), query, &resp); err != nil {
		return 0, err
	}
	return resp.TotalRows, nil
}

// List returns one page of visible documents ordered by id.
func (r *Remote) List(ctx context.Context, userEmail string, limit, skip int) ([]domain.Seed, error) {
	query := url.Values{
		"user":         {userEmail},
		"limit":        {strconv.Itoa(limit)},
		"skip":         {strconv.Itoa(skip)},
		"include_docs": {"true"},
		"attachments":  {"true"},
	}
	var resp viewResponse
	if err := r.get(ctx, r.viewPath(), query, &resp); err != nil {
		return nil, err
	}
	seeds := make([]domain.Seed, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		seeds = append(seeds, fromWire(row.Doc))
	}
	return seeds, nil
}

// changesResponse is the _changes feed envelope.
type changesResponse struct {
	Results []struct {
		Seq     seq      `json:"seq"`
		Deleted bool     `json:"deleted"`
		Doc     wireSeed `json:"doc"`
	} `json:"results"`
	LastSeq seq   `json:"last_seq"`
	Pending int64 `json:"pending"`
}

// Changes reads the next batch of the filtered remote change feed.
func (r *Remote) Changes(ctx context.Context, userEmail string, since int64, limit int) ([]domain.Change, int64, bool, error) {
	query := url.Values{
		"filter":       {"seeds/visible"},
		"user":         {userEmail},
		"since":        {strconv.FormatInt(since, 10)},
		"limit":        {strconv.Itoa(limit)},
		"include_docs": {"true"},
	}
	var resp changesResponse
	if err := r.get(ctx, r.dbPath("_changes"), query, &resp); err != nil {
		return nil, 0, false, err
	}

	changes := make([]domain.Change, 0, len(resp.Results))
	for _, result := range resp.Results {
		changes = append(changes, domain.Change{
			Seed:    fromWire(result.Doc),
			Seq:     int64(result.Seq),
			Deleted: result.Deleted,
		})
	}
	return changes, int64(resp.LastSeq), resp.Pending == 0, nil
}

// bulkDocsRequest uploads documents with their revisions preserved.
type bulkDocsRequest struct {
	Docs     []wireSeed `json:"docs"`
	NewEdits bool       `json:"new_edits"`
}

type bulkDocsResult struct {
	ID    string `json:"id"`
	Error string `json:"error,omitempty"`
}

// Push uploads local edits via _bulk_docs, preserving revisions.
func (r *Remote) Push(ctx context.Context, seeds []domain.Seed) error {
	docs := make([]wireSeed, 0, len(seeds))
	for _, seed := range seeds {
		docs = append(docs, toWire(seed))
	}

	var results []bulkDocsResult
	if err := r.post(ctx, r.dbPath("_bulk_docs"), bulkDocsRequest{Docs: docs, NewEdits: false}, &results); err != nil {
		return err
	}

	var rejected []string
	for _, result := range results {
		if result.Error == "conflict" {
			return fmt.Errorf("pushing %s: %w", result.ID, domain.ErrRevisionConflict)
		}
		if result.Error != "" {
			rejected = append(rejected, result.ID)
		}
	}
	if len(rejected) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrBulkWritePartial, strings.Join(rejected, ", "))
	}
	return nil
}

func (r *Remote) viewPath() string {
	return r.dbPath("_design/seeds/_view/visible")
}

func (r *Remote) dbPath(suffix string) string {
	return r.baseURL + "/" + r.database + "/" + suffix
}

func (r *Remote) get(ctx context.Context, rawURL string, query url.Values, out any) error {
	return r.do(ctx, http.MethodGet, rawURL+"?"+query.Encode(), nil, out)
}

func (r *Remote) post(ctx context.Context, rawURL string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	return r.do(ctx, http.MethodPost, rawURL, bytes.NewReader(payload), out)
}

func (r *Remote) do(ctx context.Context, method, rawURL string, body io.Reader, out any) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// statusError maps HTTP statuses to domain sentinels.
func statusError(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", domain.ErrAuthDenied, status)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: status %d", domain.ErrNotFound, status)
	case status == http.StatusConflict:
		return fmt.Errorf("%w: status %d", domain.ErrRevisionConflict, status)
	default:
		return fmt.Errorf("%w: status %d", domain.ErrNetworkUnavailable, status)
	}
}

// seq decodes a feed sequence that may arrive as a JSON number or as a
// "<n>-<opaque>" string.
type seq int64

func (s *seq) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		if idx := strings.IndexByte(str, '-'); idx > 0 {
			str = str[:idx]
		}
		n, err := strconv.ParseInt(str, 10, 64)
		if err != nil {
			return fmt.Errorf("parsing sequence %q: %w", str, err)
		}
		*s = seq(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = seq(n)
	return nil
}
