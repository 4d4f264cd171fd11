package websoc

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ignite/seatwatch/internal/config"
	"github.com/ignite/seatwatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<websoc_results>
  <course_list>
    <school><department><course course_number="101" course_title="INTRO PROGRAMMING">
      <section>
        <course_code>00200</course_code>
        <sec_status>OPEN</sec_status>
      </section>
      <section>
        <course_code>00950</course_code>
        <sec_status>Waitl</sec_status>
      </section>
      <section>
        <course_code>01500</course_code>
        <sec_status>FULL</sec_status>
      </section>
      <section>
        <sec_status>OPEN</sec_status>
      </section>
    </course></department></school>
  </course_list>
</websoc_results>`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.WebSocConfig{BaseURL: srv.URL + "/perl/WebSoc", TimeoutSeconds: 2, UserAgents: []string{"ua-1", "ua-2"}}
	return NewClient(cfg, srv.Client()), srv
}

func TestParseSections(t *testing.T) {
	sections, err := ParseSections(strings.NewReader(sampleXML))
	require.NoError(t, err)
	require.Len(t, sections, 3)

	assert.Equal(t, domain.MustParseCode("200"), sections[0].Code)
	assert.Equal(t, "open", sections[0].Label)
	assert.Equal(t, domain.StatusOpen, sections[0].Status())
	assert.Equal(t, domain.StatusWaitlisted, sections[1].Status())
	assert.Equal(t, domain.StatusFull, sections[2].Status())
}

func TestParseSections_NoSections(t *testing.T) {
	sections, err := ParseSections(strings.NewReader(`<websoc_results><error>none</error></websoc_results>`))
	require.NoError(t, err)
	assert.Empty(t, sections)
}

func TestQuery_SendsParamsAndUserAgent(t *testing.T) {
	var mu sync.Mutex
	var got []*http.Request
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		got = append(got, r.Clone(context.Background()))
		mu.Unlock()
		w.Write([]byte(sampleXML))
	})

	sections, err := client.Query(context.Background(), "2024-92", "00100-00950")
	require.NoError(t, err)
	assert.Len(t, sections, 3)

	require.Len(t, got, 1)
	q := got[0].URL.Query()
	assert.Equal(t, "/perl/WebSoc", got[0].URL.Path)
	assert.Equal(t, "2024-92", q.Get("YearTerm"))
	assert.Equal(t, "00100-00950", q.Get("CourseCodes"))
	assert.Equal(t, "Include", q.Get("CancelledCourses"))
	assert.Equal(t, "XML", q.Get("Submit"))
	assert.Contains(t, []string{"ua-1", "ua-2"}, got[0].Header.Get("User-Agent"))
}

func TestQuery_HTTPError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Query(context.Background(), "2024-92", "00001")
	var httpErr *HTTPResponseError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
	assert.False(t, IsUnavailable(err))
}

func TestQuery_EmptyPage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	_, err := client.Query(context.Background(), "2024-92", "00001")
	assert.ErrorIs(t, err, ErrEmptyPage)
}

func TestQuery_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewClient(config.WebSocConfig{BaseURL: srv.URL}, srv.Client())
	client.timeout = 50 * time.Millisecond

	_, err := client.Query(context.Background(), "2024-92", "00001")
	require.Error(t, err)
	assert.False(t, IsUnavailable(err), "timeouts are chunk-scoped")
}

func TestIsUnavailable_ConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	client := NewClient(config.WebSocConfig{BaseURL: "http://" + addr + "/perl/WebSoc"}, nil)
	_, err = client.Query(context.Background(), "2024-92", "00001")
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
}

func TestQueryLink(t *testing.T) {
	client := NewClient(config.WebSocConfig{BaseURL: "https://www.reg.uci.edu/perl/WebSoc"}, nil)
	link := client.QueryLink("2024-92", domain.MustParseCode("200"))
	assert.Equal(t, "https://www.reg.uci.edu/perl/WebSoc?CourseCodes=00200&Submit=Display+Web+Results&YearTerm=2024-92", link)
}

func TestEnumerator_ListCodes(t *testing.T) {
	var mu sync.Mutex
	var ranges []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("CourseCodes")
		mu.Lock()
		ranges = append(ranges, q)
		mu.Unlock()
		switch q {
		case "00000-00900":
			w.Write([]byte(`<r><section><course_code>00200</course_code><sec_status>OPEN</sec_status></section>
				<section><course_code>00100</course_code><sec_status>FULL</sec_status></section></r>`))
		case "00901-01801":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.Write([]byte(`<r><section><course_code>02000</course_code><sec_status>OPEN</sec_status></section></r>`))
		}
	})

	codes, err := NewEnumerator(client, 900, 2000).ListCodes(context.Background(), "2024-92")
	require.NoError(t, err)
	assert.Equal(t, []domain.Code{"00100", "00200", "02000"}, codes)
	assert.Equal(t, []string{"00000-00900", "00901-01801", "01802-02000"}, ranges)
}

func TestEnumerator_AllRangesFail(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := NewEnumerator(client, 900, 1000).ListCodes(context.Background(), "2024-92")
	assert.Error(t, err)
}
