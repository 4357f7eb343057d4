package export

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dictObject struct {
	fields map[string]any
}

func (d dictObject) AsMap() (map[string]any, error) {
	return d.fields, nil
}

type brokenObject struct{}

func (brokenObject) AsMap() (map[string]any, error) {
	return nil, errors.New("decompose failed")
}

func (brokenObject) String() string { return "BrokenObject()" }

func TestNormalizeScalars(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Null()},
		{"bool", true, BoolValue(true)},
		{"int", 42, IntValue(42)},
		{"int64", int64(-7), IntValue(-7)},
		{"uint32", uint32(9), IntValue(9)},
		{"float", 3.5, FloatValue(3.5)},
		{"string", "hi", StringValue("hi")},
		{"named int", time.Month(3), IntValue(3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeBytesHexEncodes(t *testing.T) {
	t.Parallel()

	got := Normalize([]byte{0xde, 0xad, 0xbe, 0xef})
	assert.Equal(t, KindBytes, got.Kind)
	assert.Equal(t, "deadbeef", got.Text)
}

func TestNormalizeTimestamp(t *testing.T) {
	t.Parallel()

	when := time.Unix(1700000000, 0).UTC()
	got := Normalize(when)
	assert.Equal(t, KindTimestamp, got.Kind)
	assert.Equal(t, "2023-11-14T22:13:20Z", got.Text)

	var nilTime *time.Time
	assert.True(t, Normalize(nilTime).IsNull())

	ptr := Normalize(&when)
	assert.Equal(t, got, ptr)
}

func TestNormalizeMappingSortsKeys(t *testing.T) {
	t.Parallel()

	got := Normalize(map[string]any{"b": 2, "a": 1, "c": nil})
	require.Equal(t, KindMapping, got.Kind)
	require.Len(t, got.Map, 3)
	assert.Equal(t, "a", got.Map[0].Key)
	assert.Equal(t, "b", got.Map[1].Key)
	assert.Equal(t, "c", got.Map[2].Key)
	assert.True(t, got.Map[2].Value.IsNull())
}

func TestNormalizeTypedCollections(t *testing.T) {
	t.Parallel()

	seq := Normalize([]int{3, 1, 2})
	require.Equal(t, KindSequence, seq.Kind)
	require.Len(t, seq.Seq, 3)
	assert.Equal(t, IntValue(3), seq.Seq[0])

	m := Normalize(map[int]string{2: "two", 1: "one"})
	require.Equal(t, KindMapping, m.Kind)
	assert.Equal(t, "1", m.Map[0].Key)
	assert.Equal(t, StringValue("one"), m.Map[0].Value)
}

func TestNormalizeNestedStructure(t *testing.T) {
	t.Parallel()

	in := map[string]any{
		"media": dictObject{fields: map[string]any{
			"_":     "MessageMediaPhoto",
			"photo": dictObject{fields: map[string]any{"id": int64(99), "bytes": []byte{0x01}}},
		}},
		"tags": []any{"a", 1, nil},
	}
	got := Normalize(in)
	require.Equal(t, KindMapping, got.Kind)

	media, ok := mappingField(got, "media")
	require.True(t, ok)
	require.Equal(t, KindMapping, media.Kind)

	photo, ok := mappingField(media, "photo")
	require.True(t, ok)
	raw, ok := mappingField(photo, "bytes")
	require.True(t, ok)
	assert.Equal(t, "01", raw.Text)
}

func TestNormalizeMapperFailureFallsBackToOpaque(t *testing.T) {
	t.Parallel()

	got := Normalize(brokenObject{})
	assert.Equal(t, KindOpaque, got.Kind)
	assert.Equal(t, "BrokenObject()", got.Text)
}

func TestNormalizeIsTotal(t *testing.T) {
	t.Parallel()

	// Shapes with no mapping decomposition must degrade to Opaque, not
	// panic or error.
	inputs := []any{
		make(chan int),
		func() {},
		struct{ X int }{X: 1},
		complex(1, 2),
		math.NaN(),
		uint64(math.MaxUint64),
	}
	for _, in := range inputs {
		got := Normalize(in)
		assert.NotPanics(t, func() { _ = got.JSONText() })
	}

	assert.Equal(t, OpaqueValue("18446744073709551615"), Normalize(uint64(math.MaxUint64)))
}

func TestNormalizeDeterministic(t *testing.T) {
	t.Parallel()

	in := map[string]any{"z": 1, "a": map[string]any{"k": []any{1, "x"}}, "m": nil}
	first := Normalize(in)
	second := Normalize(in)
	assert.Equal(t, first, second)
	assert.Equal(t, first.JSONText(), second.JSONText())
}

func TestNormalizeJSONRoundTrip(t *testing.T) {
	t.Parallel()

	in := map[string]any{
		"id":   int64(158404),
		"text": "привет\nмир",
		"meta": map[string]any{"flag": true, "score": 1.5},
		"refs": []any{int64(1), int64(2)},
		"gone": nil,
	}
	text := Normalize(in).JSONText()

	var back map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &back))
	assert.Equal(t, "привет\nмир", back["text"])
	assert.Equal(t, float64(158404), back["id"])
	assert.Equal(t, map[string]any{"flag": true, "score": 1.5}, back["meta"])
	assert.Equal(t, []any{float64(1), float64(2)}, back["refs"])
	assert.Nil(t, back["gone"])
}

func mappingField(v Value, key string) (Value, bool) {
	for _, f := range v.Map {
		if f.Key == key {
			return f.Value, true
		}
	}
	return Null(), false
}
