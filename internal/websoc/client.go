package websoc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ignite/seatwatch/internal/config"
	"github.com/ignite/seatwatch/internal/domain"
	"github.com/ignite/seatwatch/internal/pkg/httpretry"
	"github.com/ignite/seatwatch/internal/pkg/logger"
)

// Client issues schedule-of-classes queries. It never retries: a failed
// query is reported to the caller, which decides whether to skip it.
type Client struct {
	baseURL    string
	httpClient httpretry.HTTPDoer
	timeout    time.Duration
	agents     []string

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewClient creates a WebSoc client. httpClient may be nil.
func NewClient(cfg config.WebSocConfig, httpClient httpretry.HTTPDoer) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	agents := cfg.UserAgents
	if len(agents) == 0 {
		agents = DefaultUserAgents
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
		timeout:    timeout,
		agents:     agents,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *Client) userAgent() string {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()
	return c.agents[c.rng.Intn(len(c.agents))]
}

// Query fetches the sections matching courseCodes, which is either an
// inclusive "first-last" range or a comma-separated code list.
func (c *Client) Query(ctx context.Context, term, courseCodes string) ([]Section, error) {
	params := url.Values{
		"YearTerm":         {term},
		"CourseCodes":      {courseCodes},
		"CancelledCourses": {"Include"},
		"Submit":           {"XML"},
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building websoc request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		io.Copy(io.Discard, resp.Body)
		return nil, &HTTPResponseError{StatusCode: resp.StatusCode}
	}
	if resp.ContentLength == 0 {
		return nil, ErrEmptyPage
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading websoc response: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyPage
	}

	return ParseSections(bytes.NewReader(body))
}

// ParseSections extracts (course_code, sec_status) pairs from a WebSoc XML
// document. Rows with a missing or malformed code are skipped and logged.
func ParseSections(r io.Reader) ([]Section, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing websoc response: %w", err)
	}

	var sections []Section
	doc.Find("section").Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Find("course_code").First().Text())
		if raw == "" {
			logger.Debug("websoc: section without course_code skipped")
			return
		}
		code, err := domain.ParseCode(raw)
		if err != nil {
			logger.Warn("websoc: malformed course_code skipped", "raw", raw)
			return
		}
		sections = append(sections, Section{
			Code:  code,
			Label: strings.ToLower(strings.TrimSpace(s.Find("sec_status").First().Text())),
		})
	})
	return sections, nil
}

// QueryLink returns the public WebSoc results page for one section.
func (c *Client) QueryLink(term string, code domain.Code) string {
	params := url.Values{
		"YearTerm":    {term},
		"CourseCodes": {code.String()},
		"Submit":      {"Display Web Results"},
	}
	return c.baseURL + "?" + params.Encode()
}

// IsUnavailable reports whether err means WebSoc could not be reached at
// all (DNS failure, refused connection) rather than a single bad query.
// Timeouts and HTTP status errors are query-scoped.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return !dnsErr.IsTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial" && !opErr.Timeout()
	}
	return false
}
