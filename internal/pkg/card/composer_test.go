package card

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose(t *testing.T) {
	c := Compose("Jane Doe", "2026-01-20", "...", "x.pdf")

	require.Len(t, c.Body, 4)
	assert.Contains(t, c.Body[0].Text, "Jane Doe")
	assert.Equal(t, "Date: 2026-01-20", c.Body[1].Text)
	assert.Equal(t, "...", c.Body[2].Text)
	assert.True(t, c.Body[2].Wrap)
	assert.Contains(t, c.Body[3].Text, "x.pdf")
	assert.True(t, c.Body[3].IsSubtle)
}

func TestCompose_JSON(t *testing.T) {
	b, err := json.Marshal(Compose("Jane Doe", "2026-01-20", "notes", "x.pdf"))
	require.Nil(t, err)

	var m map[string]interface{}
	require.Nil(t, json.Unmarshal(b, &m))
	assert.Equal(t, "AdaptiveCard", m["type"])
	assert.Equal(t, "1.4", m["version"])
	assert.Equal(t, "http://adaptivecards.io/schemas/adaptive-card.json", m["$schema"])
	body := m["body"].([]interface{})
	header := body[0].(map[string]interface{})
	assert.Equal(t, "Bolder", header["weight"])
	assert.Equal(t, "Large", header["size"])
	_, hasWrap := header["wrap"]
	assert.False(t, hasWrap)
}
