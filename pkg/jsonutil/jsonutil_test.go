package jsonutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradementor/tradementor/pkg/jsonutil"
)

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	type payload struct {
		Name  string   `json:"name"`
		Count int      `json:"count"`
		Tags  []string `json:"tags"`
	}

	in := payload{Name: "rsi", Count: 3, Tags: []string{"momentum", "indicator"}}
	data, err := jsonutil.Marshal(in)
	require.NoError(t, err)

	var out payload
	require.NoError(t, jsonutil.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestMarshalIndent(t *testing.T) {
	records := []string{"a", "b"}

	data, err := jsonutil.MarshalIndent(records, "", "  ")
	require.NoError(t, err)
	assert.Equal(t, "[\n  \"a\",\n  \"b\"\n]", string(data))

	data, err = jsonutil.MarshalIndent(map[string]int{"n": 1}, "> ", "\t")
	require.NoError(t, err)
	assert.Equal(t, "{\n> \t\"n\": 1\n> }", string(data))
}
