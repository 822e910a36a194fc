package journal

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitjournal/internal/chatlog"
	"gitjournal/internal/gitctx"
	"gitjournal/internal/shellhist"
)

func testCommit() *gitctx.Commit {
	return &gitctx.Commit{
		Hash:      "a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2",
		ShortHash: "a1b2c3d",
		Author:    "Jane Dev",
		Email:     "jane@example.com",
		Date:      time.Date(2026, 8, 27, 14, 3, 22, 0, time.UTC),
		Message:   "Fix auth token refresh",
		Files: []gitctx.FileChange{
			{Path: "internal/auth/auth.go", Insertions: 12, Deletions: 3},
			{Path: "docs/diagram.png", Binary: true},
		},
	}
}

func TestSerializeIncludesAllBlocks(t *testing.T) {
	pc := &PromptContext{
		Commit: testCommit(),
		Window: []chatlog.Record{
			{Role: chatlog.RoleHuman, Text: "why does auth.py reject fresh tokens?"},
			{Role: chatlog.RoleAssistant, Text: "expiry comparison is in local time"},
		},
		Commands: []shellhist.Command{{Line: "go test ./internal/auth/..."}},
	}

	out := pc.Serialize(10000)
	assert.Contains(t, out, "## Commit")
	assert.Contains(t, out, "a1b2c3d by Jane Dev")
	assert.Contains(t, out, "- internal/auth/auth.go (+12/-3)")
	assert.Contains(t, out, "- docs/diagram.png (binary changed)")
	assert.Contains(t, out, "$ go test ./internal/auth/...")
	assert.Contains(t, out, "Human: why does auth.py reject fresh tokens?")
	assert.Contains(t, out, "Assistant: expiry comparison is in local time")
}

func TestSerializeOmitsEmptyBlocks(t *testing.T) {
	pc := &PromptContext{Commit: testCommit()}
	out := pc.Serialize(10000)
	assert.NotContains(t, out, "## Conversation")
	assert.NotContains(t, out, "## Terminal")
}

func TestSerializeTrimsOldestConversationFirst(t *testing.T) {
	long := strings.Repeat("the cache is definitely lying to us. ", 40)
	pc := &PromptContext{
		Commit: testCommit(),
		Window: []chatlog.Record{
			{Role: chatlog.RoleHuman, Text: "OLDEST " + long},
			{Role: chatlog.RoleHuman, Text: "MIDDLE " + long},
			{Role: chatlog.RoleHuman, Text: "NEWEST short closing remark"},
		},
	}

	out := pc.Serialize(estimateTokens(long) + 200)
	assert.Contains(t, out, "NEWEST")
	assert.NotContains(t, out, "OLDEST")
}

func TestEstimateTokens(t *testing.T) {
	require.Equal(t, 10, estimateTokens(strings.Repeat("x", 35)))
}
