package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	domainerrors "github.com/linkstash/linkstash/internal/errors"
)

type cli struct {
	t    *testing.T
	data string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	return &cli{t: t, data: t.TempDir()}
}

// run executes one command against the test data directory.
func (c *cli) run(stdin string, args ...string) (string, string, error) {
	c.t.Helper()
	var out, errOut bytes.Buffer
	err := execute(context.Background(), append([]string{
		"--data", c.data,
		"--env-file", filepath.Join(c.data, "none.env"),
		"--log-level", "error",
	}, args...), strings.NewReader(stdin), &out, &errOut)
	return out.String(), errOut.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, errOut, err := c.run("", args...)
	require.NoError(c.t, err, "stderr: %s", errOut)
	return out
}

func decodeItems(t *testing.T, out string) []itemView {
	t.Helper()
	var items []itemView
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	return items
}

func TestSaveAndList(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("-u", "alice", "-o", "json", "save", "HTTPS://Go.dev/blog", "--tags", "Go,reading,go")
	var saved itemView
	require.NoError(t, json.Unmarshal([]byte(out), &saved))
	assert.Equal(t, "https://go.dev/blog", saved.URL)
	assert.ElementsMatch(t, []string{"Go", "reading"}, saved.Tags)

	c.mustRun("-u", "alice", "save", "--text", "see https://example.com/post for details")

	items := decodeItems(t, c.mustRun("-u", "alice", "-o", "json", "list"))
	require.Len(t, items, 2)
	assert.Equal(t, "https://example.com/post", items[0].URL)

	items = decodeItems(t, c.mustRun("-u", "alice", "-o", "json", "list", "--tag", "GO"))
	require.Len(t, items, 1)
	assert.Equal(t, saved.ID, items[0].ID)

	items = decodeItems(t, c.mustRun("-u", "bob", "-o", "json", "list"))
	assert.Empty(t, items)

	table := c.mustRun("-u", "alice", "list", "--search", "go.dev")
	assert.Contains(t, table, "https://go.dev/blog")
	assert.NotContains(t, table, "example.com")
}

func TestListPages(t *testing.T) {
	c := newCLI(t)
	for i := range 25 {
		c.mustRun("-u", "alice", "save", "https://example.com/"+strings.Repeat("p", i+1))
	}

	assert.Len(t, decodeItems(t, c.mustRun("-u", "alice", "-o", "json", "list")), 20)
	assert.Len(t, decodeItems(t, c.mustRun("-u", "alice", "-o", "json", "list", "--pages", "0")), 25)

	out := c.mustRun("-u", "alice", "list")
	assert.Contains(t, out, "--pages 2")
}

func TestEditAndToggle(t *testing.T) {
	c := newCLI(t)

	var item itemView
	require.NoError(t, json.Unmarshal([]byte(c.mustRun("-u", "alice", "-o", "json", "save", "https://a.test/x", "-t", "one")), &item))

	out := c.mustRun("-u", "alice", "-o", "yaml", "edit", item.ID, "--title", "  Edited  ", "--tags", "two,three")
	var edited itemView
	require.NoError(t, yaml.Unmarshal([]byte(out), &edited))
	assert.Equal(t, "Edited", edited.Title)
	assert.ElementsMatch(t, []string{"two", "three"}, edited.Tags)

	require.NoError(t, json.Unmarshal([]byte(c.mustRun("-u", "alice", "-o", "json", "favorite", item.ID)), &edited))
	assert.True(t, edited.Favorite)
	assert.Len(t, decodeItems(t, c.mustRun("-u", "alice", "-o", "json", "list", "-f", "favorites")), 1)

	require.NoError(t, json.Unmarshal([]byte(c.mustRun("-u", "alice", "-o", "json", "archive", item.ID)), &edited))
	assert.True(t, edited.Archived)
	assert.Empty(t, decodeItems(t, c.mustRun("-u", "alice", "-o", "json", "list", "-f", "favorites")))
	assert.Len(t, decodeItems(t, c.mustRun("-u", "alice", "-o", "json", "list", "-f", "archived")), 1)

	_, _, err := c.run("", "-u", "alice", "edit", item.ID)
	assert.Equal(t, domainerrors.CodeInvalidInput, domainerrors.CodeOf(err))

	c.mustRun("-u", "alice", "delete", item.ID)
	_, _, err = c.run("", "-u", "alice", "show", item.ID)
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))
}

func TestTags(t *testing.T) {
	c := newCLI(t)
	c.mustRun("-u", "alice", "save", "https://a.test/1", "-t", "golang,reading")
	c.mustRun("-u", "alice", "save", "https://a.test/2", "-t", "golang")
	c.mustRun("-u", "alice", "tags", "add", "Garden")

	var tags []tagView
	require.NoError(t, yaml.Unmarshal([]byte(c.mustRun("-u", "alice", "-o", "yaml", "tags")), &tags))
	require.Len(t, tags, 3)

	require.NoError(t, json.Unmarshal([]byte(c.mustRun("-u", "alice", "-o", "json", "tags", "suggest", "-n", "1")), &tags))
	require.Len(t, tags, 1)
	assert.Equal(t, "golang", tags[0].Name)

	require.NoError(t, json.Unmarshal([]byte(c.mustRun("-u", "alice", "-o", "json", "tags", "suggest", "gdn")), &tags))
	require.NotEmpty(t, tags)
	assert.Equal(t, "Garden", tags[0].Name)

	c.mustRun("-u", "alice", "tags", "delete", "READING")
	_, _, err := c.run("", "-u", "alice", "tags", "delete", "reading")
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))

	_, _, err = c.run("", "tags")
	assert.Equal(t, domainerrors.CodeUnauthenticated, domainerrors.CodeOf(err))
}

func TestShare(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("-u", "alice", "-o", "json", "share", "--source", "Reader", "--text", "Worth reading\nhttps://a.test/shared")
	var item itemView
	require.NoError(t, json.Unmarshal([]byte(out), &item))
	assert.Equal(t, "https://a.test/shared", item.URL)
	assert.Equal(t, "Worth reading", item.Title)
	assert.Equal(t, "Reader", item.SourceApp)

	out, _, err := c.run(`{"data": {"url": "https://a.test/piped"}}`, "-u", "alice", "-o", "json", "share", "-")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &item))
	assert.Equal(t, "https://a.test/piped", item.URL)

	_, _, err = c.run("", "-u", "alice", "share", "--text", "no link here")
	assert.Equal(t, domainerrors.CodeUnsupportedShare, domainerrors.CodeOf(err))

	_, _, err = c.run(`{"data": 42}`, "-u", "alice", "share", "-")
	assert.Equal(t, domainerrors.CodeUnsupportedShare, domainerrors.CodeOf(err))
}

func TestShare_KeptUntilSignIn(t *testing.T) {
	c := newCLI(t)

	out, errOut, err := c.run("", "share", "--text", "https://a.test/later")
	require.NoError(t, err)
	assert.Contains(t, errOut, "sign in")
	assert.Contains(t, out, "kept in the inbox")

	entries, err := os.ReadDir(filepath.Join(c.data, "inbox"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	out = c.mustRun("-u", "alice", "watch", "--once")
	assert.Contains(t, out, "https://a.test/later")

	items := decodeItems(t, c.mustRun("-u", "alice", "-o", "json", "list"))
	require.Len(t, items, 1)
	assert.Equal(t, "https://a.test/later", items[0].URL)

	assert.Contains(t, c.mustRun("-u", "alice", "watch", "--once"), "no waiting share")
}

func TestInvalidFlags(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.run("", "-o", "xml", "list")
	assert.Equal(t, domainerrors.CodeInvalidInput, domainerrors.CodeOf(err))

	_, _, err = c.run("", "--store", "postgres", "list")
	assert.Error(t, err)

	_, _, err = c.run("", "-u", "alice", "list", "-f", "starred")
	assert.Equal(t, domainerrors.CodeInvalidInput, domainerrors.CodeOf(err))
}

func TestShellQuote(t *testing.T) {
	assert.Equal(t, `'plain'`, shellQuote("plain"))
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
}
