package chatlog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSession(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestRecordsFromJSONL(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir, "s1.jsonl",
		`{"type":"user","message":{"role":"user","content":"why does auth.py reject fresh tokens?"},"timestamp":"2026-08-27T10:00:00Z","sessionId":"s1"}
{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"The refresh path compares expiry in UTC."},{"type":"tool_use","text":""}]},"timestamp":"2026-08-27T10:00:05Z","sessionId":"s1"}
{"type":"summary","summary":"irrelevant index line"}
not even json
{"type":"assistant","message":{"role":"assistant","content":[{"type":"tool_use","text":""}]},"sessionId":"s1"}
`)

	st := &Store{dir: dir}
	records, err := st.Records(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, RoleHuman, records[0].Role)
	assert.Contains(t, records[0].Text, "auth.py")
	assert.Equal(t, RoleAssistant, records[1].Role)
	assert.Equal(t, "s1", records[1].SessionID)
	assert.False(t, records[0].Timestamp.IsZero())
}

func TestRecordsLimitKeepsNewest(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir, "s1.jsonl",
		`{"type":"user","message":{"role":"user","content":"first"},"sessionId":"s1"}
{"type":"user","message":{"role":"user","content":"second"},"sessionId":"s1"}
{"type":"user","message":{"role":"user","content":"third"},"sessionId":"s1"}
`)

	st := &Store{dir: dir}
	records, err := st.Records(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "second", records[0].Text)
	assert.Equal(t, "third", records[1].Text)
}

func TestRecordsMissingDirIsEmpty(t *testing.T) {
	st := &Store{dir: filepath.Join(t.TempDir(), "nope")}
	records, err := st.Records(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestMungePath(t *testing.T) {
	assert.Equal(t, "-home-jane-src-widget-api", mungePath("/home/jane/src/widget.api"))
}
