package geminiapi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartTextRoundTrip(t *testing.T) {
	p := TextPart("hello")
	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"hello"}`, string(data))

	var decoded Part
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, PartText, decoded.Kind)
	text, ok := decoded.AsText()
	assert.True(t, ok)
	assert.Equal(t, "hello", text)
}

func TestPartTextWithThoughtFlagUnmarshal(t *testing.T) {
	raw := []byte(`{"text":"reasoning snippet","thought":true,"thoughtSignature":"sig-1"}`)
	var p Part
	require.NoError(t, json.Unmarshal(raw, &p))
	assert.Equal(t, PartText, p.Kind)
	assert.True(t, p.IsThought)
	assert.Equal(t, "sig-1", p.ThoughtSignature)
}

func TestPartThoughtVariantUnmarshal(t *testing.T) {
	raw := []byte(`{"thought":"pure reasoning text"}`)
	var p Part
	require.NoError(t, json.Unmarshal(raw, &p))
	assert.Equal(t, PartThought, p.Kind)
	text, ok := p.AsText()
	assert.True(t, ok)
	assert.Equal(t, "pure reasoning text", text)
}

func TestPartFunctionCallRoundTrip(t *testing.T) {
	p := FunctionCallPart("get_weather", map[string]interface{}{"city": "NYC"}, "sig-xyz")
	data, err := json.Marshal(p)
	require.NoError(t, err)

	var decoded Part
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, PartFunctionCall, decoded.Kind)
	assert.Equal(t, "get_weather", decoded.FunctionCall.Name)
	assert.Equal(t, "sig-xyz", decoded.ThoughtSignature)
}

func TestPartFunctionResponseRoundTrip(t *testing.T) {
	p := FunctionResponsePart("get_weather", map[string]interface{}{"output": "sunny"})
	data, err := json.Marshal(p)
	require.NoError(t, err)

	var decoded Part
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, PartFunctionResponse, decoded.Kind)
	assert.Equal(t, "get_weather", decoded.FunctionResponse.Name)
}

func TestPartInlineDataRoundTrip(t *testing.T) {
	p := InlineDataPart("image/png", "AAAA")
	data, err := json.Marshal(p)
	require.NoError(t, err)

	var decoded Part
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, PartInlineData, decoded.Kind)
	assert.Equal(t, "image/png", decoded.InlineData.MimeType)
}

func TestGenerateContentResponseEnvelope(t *testing.T) {
	raw := []byte(`{"response":{"candidates":[{"content":{"role":"model","parts":[{"text":"Hello"}]}}]}}`)
	var resp GenerateContentResponse
	require.NoError(t, json.Unmarshal(raw, &resp))
	require.NotNil(t, resp.Response)
	require.Len(t, resp.Response.Candidates, 1)
	text, _ := resp.Response.Candidates[0].Content.Parts[0].AsText()
	assert.Equal(t, "Hello", text)
}
