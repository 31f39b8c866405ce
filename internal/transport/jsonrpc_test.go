package transport

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRequest(t *testing.T) {
	body := bytes.NewBufferString(`{"jsonrpc":"2.0","method":"test","params":{"a":1},"id":"abc"}`)
	req, err := ParseRequest(body)
	require.NoError(t, err)
	require.Equal(t, "2.0", req.JSONRPC)
	require.Equal(t, "test", req.Method)
	require.Equal(t, json.RawMessage(`{"a":1}`), req.Params)
	require.Equal(t, json.RawMessage(`"abc"`), req.ID)
	require.False(t, req.IsNotification())
}

func TestParseRequest_NotificationAndNullParams(t *testing.T) {
	req, err := ParseRequest(bytes.NewBufferString(`{"jsonrpc":"2.0","method":"get_state","params":null,"id":null}`))
	require.NoError(t, err)
	require.Nil(t, req.Params)
	require.True(t, req.IsNotification())
}

func TestParseRequest_Invalid(t *testing.T) {
	cases := map[string]struct {
		body string
		want error
	}{
		"missing method":  {`{"jsonrpc":"2.0","id":1}`, errInvalid},
		"wrong version":   {`{"jsonrpc":"1.0","method":"x","id":1}`, errInvalid},
		"positional args": {`{"jsonrpc":"2.0","method":"x","params":[1,2],"id":1}`, errInvalid},
		"batch":           {`[{"jsonrpc":"2.0","method":"x","id":1}]`, errInvalid},
		"truncated":       {`{"jsonrpc":`, errParse},
		"oversized":       {`{"jsonrpc":"2.0","method":"x","params":{"s":"` + strings.Repeat("a", maxRequestBytes) + `"}}`, errInvalid},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRequest(strings.NewReader(tc.body))
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestWriteError_NullID(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, nil, ErrInvalidParams, "bad params", nil)

	require.Equal(t, 200, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp, "id")
	require.Nil(t, resp["id"])
	require.Contains(t, resp, "error")
}
