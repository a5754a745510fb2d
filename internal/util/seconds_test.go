package util

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecondsJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		D Seconds `json:"d"`
	}{Seconds(12340 * time.Millisecond)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"12.34s"}`, string(b))

	var got Seconds
	require.NoError(t, json.Unmarshal([]byte(`"1.50s"`), &got))
	assert.Equal(t, Seconds(1500*time.Millisecond), got)
	assert.Error(t, json.Unmarshal([]byte(`1500`), &got))
}
