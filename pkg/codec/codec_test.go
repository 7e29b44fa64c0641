package codec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSnapshotFillsDefaults(t *testing.T) {
	snap, err := NormalizeSnapshot(nil, json.RawMessage(`null`), nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(snap.Glyphs))
	assert.JSONEq(t, `[]`, string(snap.Syntaxes))
	assert.JSONEq(t, `{}`, string(snap.Metrics))
}

func TestNormalizeSnapshotRejectsInvalidJSON(t *testing.T) {
	_, err := NormalizeSnapshot(json.RawMessage(`{not json`), nil, nil)
	require.Error(t, err)
	var invalid *InvalidPayloadError
	assert.ErrorAs(t, err, &invalid)
}

func TestParseEntityArrayIndexesByID(t *testing.T) {
	entities, err := ParseEntityArray(json.RawMessage(`[{"id":"a","name":"A"},{"id":"b","name":"B"}]`))
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Contains(t, string(entities["a"]), `"A"`)
	assert.Contains(t, string(entities["b"]), `"B"`)
}

func TestParseEntityArrayLaterDuplicateWins(t *testing.T) {
	entities, err := ParseEntityArray(json.RawMessage(`[{"id":"a","v":1},{"id":"a","v":2}]`))
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Contains(t, string(entities["a"]), `"v":2`)
}

func TestParseEntityArrayRejectsNonArray(t *testing.T) {
	_, err := ParseEntityArray(json.RawMessage(`{"id":"a"}`))
	require.Error(t, err)
}

func TestParseEntityArrayRejectsMissingID(t *testing.T) {
	_, err := ParseEntityArray(json.RawMessage(`[{"name":"no id"}]`))
	require.Error(t, err)
}

func TestParseEntityArrayRejectsEmptyID(t *testing.T) {
	_, err := ParseEntityArray(json.RawMessage(`[{"id":"  "}]`))
	require.Error(t, err)
}

func TestParseEntityItemTrimsID(t *testing.T) {
	id, canonical, err := ParseEntityItem(json.RawMessage(`{"id":"  a  ","n":1}`))
	require.NoError(t, err)
	assert.Equal(t, "a", id)
	assert.Contains(t, string(canonical), `"n":1`)
}

func TestNormalizedRawObjectRejectsNonObject(t *testing.T) {
	_, err := NormalizedRawObject(json.RawMessage(`[1,2,3]`))
	require.Error(t, err)
}

func TestNormalizedRawObjectIsDeterministic(t *testing.T) {
	a, err := NormalizedRawObject(json.RawMessage(`{"b":1,"a":2}`))
	require.NoError(t, err)
	b, err := NormalizedRawObject(json.RawMessage(`{"a":2,   "b":1}`))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestSerializeEntityMapSortsByID(t *testing.T) {
	out := SerializeEntityMap(map[string]json.RawMessage{
		"b": json.RawMessage(`{"id":"b"}`),
		"a": json.RawMessage(`{"id":"a"}`),
	})
	assert.JSONEq(t, `[{"id":"a"},{"id":"b"}]`, string(out))
}

func TestSerializeEntityMapEmpty(t *testing.T) {
	out := SerializeEntityMap(map[string]json.RawMessage{})
	assert.Equal(t, "[]", string(out))
}

func TestEntityNameStripsEmojiAndControlChars(t *testing.T) {
	name := EntityName(json.RawMessage(`{"name":"🔥Hot Glyph"}`))
	assert.Equal(t, "Hot Glyph", name)
}

func TestEntityNameAbsentYieldsEmpty(t *testing.T) {
	assert.Equal(t, "", EntityName(json.RawMessage(`{"id":"a"}`)))
	assert.Equal(t, "", EntityName(json.RawMessage(`not json`)))
}
