package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderForm(t *testing.T) {
	raw := []byte(`{"title":"Walkthrough","schema":{"sections":[{"id":"p1","title":"Lobby"}],"fields":[{"id":"f1","type":"textarea","label":"Notes","section":"p1"}]}}`)
	var buf bytes.Buffer
	require.NoError(t, renderForm(raw, true, &buf))
	html := buf.String()
	assert.Contains(t, html, "Walkthrough")
	assert.Contains(t, html, "Lobby")
	assert.Contains(t, html, "<textarea")
	assert.Contains(t, html, "disabled")
}

func TestRenderForm_Invalid(t *testing.T) {
	var buf bytes.Buffer
	err := renderForm([]byte(`{"title":"x","schema":{"sections":[],"fields":[]}}`), false, &buf)
	assert.Error(t, err)
	assert.Zero(t, buf.Len())
}
