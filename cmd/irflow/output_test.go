package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/715d/irflow/pkg/irflow"
)

func TestWriteUnreachable(t *testing.T) {
	res := &irflow.UnreachableResult{
		Methods: []irflow.UnreachableMethod{{
			Name:      "Main.unused()",
			Signature: "<Main: void unused()>",
			Class:     "Main",
			Line:      1,
			Reason:    "not reachable from entry points under CHA",
		}},
		Total:      3,
		Suppressed: 1,
	}

	t.Cleanup(func() { cfg = Config{} })

	cfg = Config{}
	var buf bytes.Buffer
	require.NoError(t, writeUnreachable(&buf, res, 0))
	require.Equal(t, "Main:1 Main.unused()\n", buf.String())

	cfg = Config{JSON: true}
	buf.Reset()
	require.NoError(t, writeUnreachable(&buf, res, 0))
	var out struct {
		Unreachable []irflow.UnreachableMethod `json:"unreachable"`
		Stats       map[string]any             `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Equal(t, res.Methods, out.Unreachable)
	require.EqualValues(t, 3, out.Stats["total_methods"])
	require.EqualValues(t, 1, out.Stats["suppressed_methods"])
}

func TestCodedError(t *testing.T) {
	err := errWithCode(nil, exitFindings)
	require.Empty(t, err.Error())

	var cErr codedError
	require.ErrorAs(t, err, &cErr)
	require.Equal(t, exitFindings, cErr.code)
}
