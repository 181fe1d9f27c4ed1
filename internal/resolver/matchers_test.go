package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_StructuredPayload(t *testing.T) {
	raw := `{"code":"CON-00042","a":{"eq":"core-sw-1","p":"ge-0/0/1"},"b":{"eq":"cam-lobby","p":"eth0"}}`

	out := Extract(raw)
	require.True(t, out.Recognized)
	assert.Equal(t, "structured_payload", out.Matcher)
	assert.Equal(t, KindCode, out.Kind)
	assert.Equal(t, "CON-00042", out.Key)
	require.NotNil(t, out.Payload)
	assert.Equal(t, "core-sw-1", out.Payload.A.Equipment)
	assert.Equal(t, "eth0", out.Payload.B.Port)
}

func TestExtract_StructuredPayloadWithID(t *testing.T) {
	raw := `{"id":"A1B2C3D4-0000-4000-8000-000000000042","a":{"eq":"e1","p":"p1"},"b":{"eq":"e2","p":"p2"}}`

	out := Extract(raw)
	require.True(t, out.Recognized)
	assert.Equal(t, KindUUID, out.Kind)
	assert.Equal(t, "a1b2c3d4-0000-4000-8000-000000000042", out.Key)
}

func TestExtract_StructuredPayloadMissingEndpoints(t *testing.T) {
	// 缺端点标签的 JSON 不走快速路径
	out := Extract(`{"code":"CON-00042"}`)
	assert.False(t, out.Recognized)
}

func TestExtract_URLPathSegment(t *testing.T) {
	out := Extract("https://app.example/c/CON-00042?foo=bar")
	require.True(t, out.Recognized)
	assert.Equal(t, "url", out.Matcher)
	assert.Equal(t, KindCode, out.Kind)
	assert.Equal(t, "CON-00042", out.Key)
}

func TestExtract_URLQueryParamPrecedesPath(t *testing.T) {
	out := Extract("https://app.example/c/CON-99999?code=CAB-12-34")
	require.True(t, out.Recognized)
	assert.Equal(t, "CAB-12-34", out.Key)
}

func TestExtract_URLWithUUIDParam(t *testing.T) {
	out := Extract("https://app.example/view?id=a1b2c3d4-0000-4000-8000-000000000042")
	require.True(t, out.Recognized)
	assert.Equal(t, KindUUID, out.Kind)
	assert.Equal(t, "a1b2c3d4-0000-4000-8000-000000000042", out.Key)
}

func TestExtract_BareUUID(t *testing.T) {
	out := Extract("  A1B2C3D4-0000-4000-8000-000000000042  ")
	require.True(t, out.Recognized)
	assert.Equal(t, "uuid", out.Matcher)
	assert.Equal(t, KindUUID, out.Kind)
	assert.Equal(t, "a1b2c3d4-0000-4000-8000-000000000042", out.Key)
}

func TestExtract_SystemPrefixCanonicalizes(t *testing.T) {
	cases := map[string]string{
		"CON-00042":  "CON-00042",
		"con-00042":  "CON-00042",
		"cab_12-34":  "CAB-12-34",
		"NET_7_22":   "NET-7-22",
		"fib-0a-9":   "FIB-0A-9",
		"LINK-X1":    "LINK-X1",
		"c-00034":    "C-00034",
		"C_99_88_77": "C-99-88-77",
	}
	for raw, want := range cases {
		out := Extract(raw)
		require.True(t, out.Recognized, "raw=%q", raw)
		assert.Equal(t, "system_prefix", out.Matcher, "raw=%q", raw)
		assert.Equal(t, want, out.Key, "raw=%q", raw)
	}
}

func TestExtract_GenericCodeFallback(t *testing.T) {
	out := Extract("PANEL-A12")
	require.True(t, out.Recognized)
	assert.Equal(t, "generic_code", out.Matcher)
	assert.Equal(t, KindCode, out.Kind)
	assert.Equal(t, "PANEL-A12", out.Key)
}

func TestExtract_NotRecognized(t *testing.T) {
	for _, raw := range []string{
		"",
		"   ",
		"no code here",
		"12345",
		"C00034", // 无分隔符
	} {
		out := Extract(raw)
		assert.False(t, out.Recognized, "raw=%q", raw)
	}
}

func TestCanonicalize(t *testing.T) {
	assert.Equal(t, "CAB-12-34", Canonicalize("cab_12-34"))
	assert.Equal(t, "CON-00042", Canonicalize("CON-00042"))
}
