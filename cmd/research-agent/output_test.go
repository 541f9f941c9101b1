// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-agent/pkg/types"
)

func TestMask(t *testing.T) {
	assert.Equal(t, "", mask(""))
	assert.Equal(t, "*****", mask("short"))
	assert.Equal(t, "********cdef", mask("sk-ant-0123456789abcdef"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdefgh", 5))
}

func TestPrintResult(t *testing.T) {
	res := types.CycleResult{
		ID:        "c-1",
		Job:       "daily",
		Status:    types.CycleSuccess,
		Attempts:  2,
		Duration:  1500 * time.Millisecond,
		Fetched:   20,
		Filtered:  8,
		New:       5,
		Analyzed:  5,
		Cached:    3,
		Published: 6,
		Artifacts: map[string]string{"markdown": "output/digest.md", "json": "output/digest.json"},
	}

	var buf bytes.Buffer
	require.NoError(t, printResult(&buf, res, false))
	out := buf.String()
	assert.Contains(t, out, "Cycle c-1 (daily): success")
	assert.Contains(t, out, "attempts: 2  duration: 1.5s")
	assert.Contains(t, out, "fetched 20, filtered 8, new 5, analyzed 5, cached 3, published 6")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("json")), bytes.Index(buf.Bytes(), []byte("markdown")))

	buf.Reset()
	require.NoError(t, printResult(&buf, res, true))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "success", decoded["status"])
}
