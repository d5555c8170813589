package share

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNarrow(t *testing.T) {
	tests := []struct {
		name   string
		data   ShareData
		want   string
		wantOK bool
	}{
		{"text", Text("https://a.test/x"), "https://a.test/x", true},
		{"empty text", Text(""), "", true},
		{"list uses first", TextList("first", "second"), "first", true},
		{"empty list", TextList(), "", false},
		{"keyed url", Keyed(map[string]any{"url": "u", "text": "t"}), "u", true},
		{"keyed falls through empty", Keyed(map[string]any{"url": "", "value": "v"}), "v", true},
		{"keyed data", Keyed(map[string]any{"data": "d"}), "d", true},
		{"keyed non-string", Keyed(map[string]any{"url": 42.0}), "", false},
		{"keyed unknown field", Keyed(map[string]any{"link": "l"}), "", false},
		{"unsupported", Unsupported(), "", false},
		{"zero value", ShareData{}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Narrow(tt.data)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestShareData_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind Kind
		want     string
	}{
		{"string", `"see https://a.test/x"`, KindText, "see https://a.test/x"},
		{"array keeps strings only", `[1, "https://a.test/x", null]`, KindTextList, "https://a.test/x"},
		{"object", `{"text": "https://a.test/x", "n": 1}`, KindKeyed, "https://a.test/x"},
		{"number", `12`, KindUnsupported, ""},
		{"bool", `true`, KindUnsupported, ""},
		{"null", `null`, KindUnsupported, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d ShareData
			require.NoError(t, json.Unmarshal([]byte(tt.input), &d))
			assert.Equal(t, tt.wantKind, d.Kind())

			got, _ := Narrow(d)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPayload_Decode(t *testing.T) {
	var p Payload
	err := json.Unmarshal([]byte(`{
		"data": {"url": "https://a.test/x"},
		"mimeType": "text/plain",
		"extraData": {"sourceApp": "com.example.reader"}
	}`), &p)
	require.NoError(t, err)

	assert.Equal(t, KindKeyed, p.Data.Kind())
	assert.Equal(t, "text/plain", p.MimeType)
	assert.Equal(t, "com.example.reader", p.ExtraData["sourceApp"])

	// A missing data field leaves the zero value.
	var empty Payload
	require.NoError(t, json.Unmarshal([]byte(`{"mimeType": "text/plain"}`), &empty))
	assert.Equal(t, KindUnsupported, empty.Data.Kind())
}

func TestShareData_MarshalJSON(t *testing.T) {
	out, err := json.Marshal(Payload{Data: TextList("a", "b")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"data": ["a", "b"]}`, string(out))

	out, err = json.Marshal(Payload{Data: Unsupported()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"data": null}`, string(out))
}

func TestKeyed_CopiesInput(t *testing.T) {
	m := map[string]any{"url": "https://a.test/x"}
	d := Keyed(m)
	m["url"] = "changed"

	got, ok := Narrow(d)
	require.True(t, ok)
	assert.Equal(t, "https://a.test/x", got)
}
