package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	t.Run("bare object", func(t *testing.T) {
		raw, err := ExtractJSON(`{"intent":"data_question"}`)
		require.NoError(t, err)
		assert.Equal(t, `{"intent":"data_question"}`, raw)
	})

	t.Run("object wrapped in prose", func(t *testing.T) {
		raw, err := ExtractJSON("Sure, here you go:\n{\"a\": 1}\nLet me know if that helps.")
		require.NoError(t, err)
		assert.Equal(t, `{"a": 1}`, raw)
	})

	t.Run("object in markdown fence", func(t *testing.T) {
		raw, err := ExtractJSON("```json\n{\"a\": 1}\n```")
		require.NoError(t, err)
		assert.Equal(t, `{"a": 1}`, raw)
	})

	t.Run("no object", func(t *testing.T) {
		_, err := ExtractJSON("no json here")
		var perr *ParseError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "no JSON object found", perr.Reason)
	})

	t.Run("unbalanced braces", func(t *testing.T) {
		_, err := ExtractJSON("}{")
		var perr *ParseError
		require.ErrorAs(t, err, &perr)
	})
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Intent string `json:"intent"`
	}

	t.Run("decodes into struct", func(t *testing.T) {
		var out payload
		err := DecodeJSON(`The classification is {"intent":"create_visual"} as requested.`, &out)
		require.NoError(t, err)
		assert.Equal(t, "create_visual", out.Intent)
	})

	t.Run("invalid json yields ParseError", func(t *testing.T) {
		var out payload
		err := DecodeJSON(`{"intent": }`, &out)
		var perr *ParseError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, "invalid JSON object", perr.Reason)
		assert.NotNil(t, errors.Unwrap(perr))
	})
}

func TestExtractCodeBlock(t *testing.T) {
	t.Run("python fence", func(t *testing.T) {
		content := "Here is the code:\n```python\ndef analyze_data(dataframes):\n    return 42\n```\nDone."
		code := ExtractCodeBlock(content)
		assert.Equal(t, "def analyze_data(dataframes):\n    return 42", code)
	})

	t.Run("anonymous fence", func(t *testing.T) {
		code := ExtractCodeBlock("```\nx = 1\n```")
		assert.Equal(t, "x = 1", code)
	})

	t.Run("bare code falls through", func(t *testing.T) {
		code := ExtractCodeBlock("\ndef analyze_data(dataframes):\n    return None\n")
		assert.Equal(t, "def analyze_data(dataframes):\n    return None", code)
	})

	t.Run("first fence wins", func(t *testing.T) {
		code := ExtractCodeBlock("```python\nfirst = 1\n```\n```python\nsecond = 2\n```")
		assert.Equal(t, "first = 1", code)
	})
}
