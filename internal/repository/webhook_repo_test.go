package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gitea-reporter/internal/dto"
	"gitea-reporter/pkg/httpclient"
	"gitea-reporter/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("error", "console")
	require.NoError(t, err)
	return log
}

func newTestWebhookRepository(t *testing.T) *webhookRepository {
	t.Helper()
	log := testLogger(t)
	return &webhookRepository{
		httpClient: httpclient.New(log, "", 5*time.Second, ""),
		logger:     log,
	}
}

func TestSplitMarkdown(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		maxBytes   int
		wantChunks int
	}{
		{
			name:       "content within limit stays whole",
			content:    "short report",
			maxBytes:   4000,
			wantChunks: 1,
		},
		{
			name:       "empty content stays a single empty chunk",
			content:    "",
			maxBytes:   10,
			wantChunks: 1,
		},
		{
			name:       "lines redistribute over multiple chunks",
			content:    strings.Repeat("0123456789\n", 10),
			maxBytes:   30,
			wantChunks: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := splitMarkdown(tt.content, tt.maxBytes)
			assert.Len(t, chunks, tt.wantChunks)
			assert.Equal(t, tt.content, strings.Join(chunks, ""), "chunks must concatenate back to the input")
			for i, chunk := range chunks {
				assert.LessOrEqual(t, len(chunk), tt.maxBytes, "chunk %d over limit", i)
			}
		})
	}
}

func TestSplitMarkdown_NeverBreaksInsideLine(t *testing.T) {
	content := "first line\nsecond line\nthird line\n"
	chunks := splitMarkdown(content, 12)

	for _, chunk := range chunks {
		for _, line := range strings.Split(strings.TrimRight(chunk, "\n"), "\n") {
			assert.Contains(t, []string{"first line", "second line", "third line"}, line)
		}
	}
	assert.Equal(t, content, strings.Join(chunks, ""))
}

func TestSplitMarkdown_OversizedLineKeptWhole(t *testing.T) {
	long := strings.Repeat("x", 50)
	content := "head\n" + long + "\ntail\n"

	chunks := splitMarkdown(content, 20)

	require.Len(t, chunks, 3)
	assert.Equal(t, "head\n", chunks[0])
	assert.Equal(t, long+"\n", chunks[1], "a line over the limit must not be split")
	assert.Equal(t, "tail\n", chunks[2])
}

func TestSplitMarkdown_MultibyteBoundary(t *testing.T) {
	// Each line is 16 bytes: five 3-byte CJK runes plus the newline.
	content := strings.Repeat("提交了代码\n", 6)
	chunks := splitMarkdown(content, 35)

	assert.Equal(t, content, strings.Join(chunks, ""))
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 35)
		assert.True(t, strings.HasSuffix(chunk, "\n"))
	}
}

func TestSendMarkdown_SingleChunkHasNoContinuationMarker(t *testing.T) {
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload dto.MarkdownWebhookPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "markdown", payload.MsgType)
		bodies = append(bodies, payload.Markdown.Content)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	repo := newTestWebhookRepository(t)
	ok := repo.SendMarkdown(context.Background(), server.URL, "short report")

	assert.True(t, ok)
	require.Len(t, bodies, 1)
	assert.Equal(t, "short report", bodies[0])
	assert.NotContains(t, bodies[0], "(续")
}

func TestSendMarkdown_ChunksCarryContinuationMarkers(t *testing.T) {
	var bodies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload dto.MarkdownWebhookPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		bodies = append(bodies, payload.Markdown.Content)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	content := strings.Repeat("line of report content\n", 300)
	require.Greater(t, len(content), maxChunkBytes)

	repo := newTestWebhookRepository(t)
	ok := repo.SendMarkdown(context.Background(), server.URL, content)

	assert.True(t, ok)
	require.Greater(t, len(bodies), 1)
	var rejoined strings.Builder
	for i, body := range bodies {
		marker := fmt.Sprintf("\n\n(续 %d/%d)", i+1, len(bodies))
		require.True(t, strings.HasSuffix(body, marker), "chunk %d missing marker", i+1)
		rejoined.WriteString(strings.TrimSuffix(body, marker))
	}
	assert.Equal(t, content, rejoined.String())
}

func TestSendMarkdown_NonOKStatusFailsDelivery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	repo := newTestWebhookRepository(t)
	assert.False(t, repo.SendMarkdown(context.Background(), server.URL, "report"))
}

func TestSendMarkdown_AllChunksAttemptedAfterFailure(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	content := strings.Repeat("line of report content\n", 300)
	repo := newTestWebhookRepository(t)

	ok := repo.SendMarkdown(context.Background(), server.URL, content)

	assert.False(t, ok, "one rejected chunk fails the whole delivery")
	assert.Greater(t, calls, 1, "remaining chunks are still attempted")
}

func TestSendMarkdown_UnreachableURLFails(t *testing.T) {
	repo := newTestWebhookRepository(t)
	assert.False(t, repo.SendMarkdown(context.Background(), "http://127.0.0.1:1/webhook", "report"))
}
