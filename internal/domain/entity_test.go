package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAttr(t *testing.T) {
	tests := []struct {
		raw  string
		want Attr
	}{
		{"30", Attr{Num: 30, IsInt: true}},
		{"-2", Attr{Num: -2, IsInt: true}},
		{"wizard", Attr{Text: "wizard"}},
		{"1.5", Attr{Text: "1.5"}},
		{"", Attr{Text: ""}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := ParseAttr(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.raw, got.String())
		})
	}
}

func TestEntityAttributesAreTyped(t *testing.T) {
	r := NewEntityRegistry()
	e, err := r.Create("e1", EntityTypeCharacter, map[string]string{"name": "007", "hp": "30", "class": "wizard"})
	require.NoError(t, err)

	assert.Equal(t, "007", e.Name(), "the name is never parsed")
	assert.Equal(t, Attr{Num: 30, IsInt: true}, e.Attributes["hp"])
	_, ok := e.Int("class")
	assert.False(t, ok)

	raw, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"e1","entity_type":"character","attributes":{"name":"007","hp":30,"class":"wizard"}}`, string(raw))

	var decoded Entity
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, e, &decoded)

	assert.Error(t, json.Unmarshal([]byte(`{"attributes":{"hp":1.5}}`), &decoded))
}
