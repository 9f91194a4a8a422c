package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/inventory-tracker/internal/domain/inventory"
)

func TestSnapshotEncode_FourSpaceIndentInSliceOrder(t *testing.T) {
	s := inventory.Snapshot{
		{Name: "kiwi", Quantity: 5},
		{Name: "apple", Quantity: 7},
		{Name: "banana", Quantity: 3},
	}

	data, err := s.Encode()
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"kiwi\": 5,\n    \"apple\": 7,\n    \"banana\": 3\n}", string(data))
}

func TestSnapshotEncode_Empty(t *testing.T) {
	data, err := inventory.Snapshot{}.Encode()
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	data, err = inventory.Snapshot(nil).Encode()
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestSnapshotEncode_DoesNotEscapeHTML(t *testing.T) {
	data, err := inventory.Snapshot{{Name: "salt & pepper <1kg>", Quantity: 2}}.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"salt & pepper <1kg>": 2`)
}

func TestSnapshot_RoundTrip(t *testing.T) {
	in := inventory.Snapshot{
		{Name: "zucchini", Quantity: 1},
		{Name: "café", Quantity: -4},
		{Name: "\"quoted\"", Quantity: 0},
		{Name: "apple", Quantity: 1 << 40},
	}

	data, err := in.Encode()
	require.NoError(t, err)

	out, err := inventory.DecodeSnapshot(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeSnapshot_DuplicateKeyKeepsFirstPositionLastValue(t *testing.T) {
	out, err := inventory.DecodeSnapshot([]byte(`{"apple": 1, "banana": 2, "apple": 9}`))
	require.NoError(t, err)
	assert.Equal(t, inventory.Snapshot{{Name: "apple", Quantity: 9}, {Name: "banana", Quantity: 2}}, out)
}

func TestDecodeSnapshot_RejectsMalformedDocuments(t *testing.T) {
	cases := map[string]string{
		"empty":          ``,
		"not json":       `apple=3`,
		"array":          `[1, 2]`,
		"string value":   `{"apple": "ten"}`,
		"numeric string": `{"apple": "10"}`,
		"float value":    `{"apple": 1.5}`,
		"null value":     `{"apple": null}`,
		"nested":         `{"apple": {"qty": 1}}`,
		"empty key":      `{"": 1}`,
		"trailing data":  `{"apple": 1} {}`,
		"truncated":      `{"apple": 1,`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := inventory.DecodeSnapshot([]byte(doc))
			require.ErrorIs(t, err, inventory.ErrSnapshotMalformed)
		})
	}
}
