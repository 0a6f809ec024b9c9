package feed

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type mockTransport struct {
	body       string
	statusCode int
	err        error
}

func (m *mockTransport) Do(_ *http.Request) (*http.Response, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

func loadFixture(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture %s: %v", path, err)
	}
	return string(data)
}

func fetchFixture(t *testing.T, path string) *Feed {
	t.Helper()
	f := NewFetcher(&mockTransport{body: loadFixture(t, path), statusCode: 200}, time.Second)
	parsed, err := f.Fetch(context.Background(), "~bitcoin", "https://stacker.news/~bitcoin/rss")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return parsed
}

func TestFetch(t *testing.T) {
	xml := loadFixture(t, "testdata/bitcoin.xml")

	tests := []struct {
		name      string
		transport *mockTransport
		wantItems int
		wantErr   error
		wantParse bool
	}{
		{
			name:      "successful fetch",
			transport: &mockTransport{body: xml, statusCode: 200},
			wantItems: 5,
		},
		{
			name:      "http error status",
			transport: &mockTransport{body: "not found", statusCode: 404},
			wantErr:   &UpstreamError{Status: 404},
		},
		{
			name:      "timeout",
			transport: &mockTransport{err: context.DeadlineExceeded},
			wantErr:   ErrTimeout,
		},
		{
			name:      "invalid xml",
			transport: &mockTransport{body: "not xml at all", statusCode: 200},
			wantParse: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFetcher(tt.transport, time.Second)
			parsed, err := f.Fetch(context.Background(), "~bitcoin", "https://stacker.news/~bitcoin/rss")

			if tt.wantParse {
				var parseErr *ParseError
				if !errors.As(err, &parseErr) {
					t.Fatalf("expected ParseError, got %v", err)
				}
				return
			}
			if tt.wantErr != nil {
				var upstream *UpstreamError
				switch {
				case errors.As(tt.wantErr, &upstream):
					var got *UpstreamError
					if !errors.As(err, &got) {
						t.Fatalf("expected UpstreamError, got %v", err)
					}
					if got.Status != upstream.Status {
						t.Errorf("status = %d, want %d", got.Status, upstream.Status)
					}
				default:
					if !errors.Is(err, tt.wantErr) {
						t.Fatalf("expected %v, got %v", tt.wantErr, err)
					}
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.wantItems, len(parsed.Items)); diff != "" {
				t.Errorf("item count mismatch (-want +got):\n%s", diff)
			}
			if parsed.Territory != "~bitcoin" {
				t.Errorf("territory = %q, want %q", parsed.Territory, "~bitcoin")
			}
		})
	}
}

func TestNormalizeHeuristics(t *testing.T) {
	parsed := fetchFixture(t, "testdata/bitcoin.xml")
	items := parsed.Items

	if items[0].Title != "Lightning channels explained & demystified" {
		t.Errorf("title = %q, entities not decoded", items[0].Title)
	}
	if items[0].Points != 42 || items[0].Author != "alice" {
		t.Errorf("item 0: points=%d author=%q, want 42/alice", items[0].Points, items[0].Author)
	}
	if items[0].Comments != 7 {
		t.Errorf("item 0: comments = %d, want 7", items[0].Comments)
	}

	// Structured creator beats the "by <name>" text fallback.
	if items[1].Author != "bob" {
		t.Errorf("item 1: author = %q, want structured creator bob", items[1].Author)
	}
	if items[1].Points != 10 {
		t.Errorf("item 1: points = %d, want 10 from sats pattern", items[1].Points)
	}

	if items[2].Points != 0 || items[2].Author != UnknownAuthor {
		t.Errorf("item 2: points=%d author=%q, want 0/%s", items[2].Points, items[2].Author, UnknownAuthor)
	}

	if items[4].Points != 3 || items[4].Author != "dave" {
		t.Errorf("item 4: points=%d author=%q, want 3/dave", items[4].Points, items[4].Author)
	}
}

func TestItemIDFallbacks(t *testing.T) {
	parsed := fetchFixture(t, "testdata/bitcoin.xml")
	items := parsed.Items

	tests := []struct {
		name  string
		index int
		want  string
	}{
		{"guid preferred", 0, "https://stacker.news/items/1001"},
		{"link when guid missing", 2, "https://stacker.news/items/1003"},
		{"positional when both missing", 3, "~bitcoin-3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, items[tt.index].ID); diff != "" {
				t.Errorf("id mismatch (-want +got):\n%s", diff)
			}
		})
	}

	// Malformed items keep their slot so positional indices stay stable.
	if items[3].Title != "" || items[3].Link != "" {
		t.Errorf("item 3: expected empty-string defaults, got title=%q link=%q", items[3].Title, items[3].Link)
	}
}

func TestFetchEmptyFeed(t *testing.T) {
	parsed := fetchFixture(t, "testdata/empty.xml")
	if parsed.Items == nil {
		t.Fatal("items should be an empty slice, not nil")
	}
	if len(parsed.Items) != 0 {
		t.Fatalf("expected 0 items, got %d", len(parsed.Items))
	}
}
