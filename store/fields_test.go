package store

import (
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestFields_String(t *testing.T) {
	f := fields(t, `{"s":"x","n":12.5,"b":true,"z":null,"e":""}`)

	v, ok, err := f.String("s")
	assert.Equal(t, err, nil)
	assert.Equal(t, ok, true)
	assert.Equal(t, v, "x")

	v, _, err = f.String("n")
	assert.Equal(t, err, nil)
	assert.Equal(t, v, "12.5")

	_, _, err = f.String("b")
	assert.NotEqual(t, err, nil)

	_, ok, _ = f.String("z")
	assert.Equal(t, ok, false)

	v, ok, _ = f.String("e")
	assert.Equal(t, ok, true)
	assert.Equal(t, v, "")
}

func TestFields_Numbers(t *testing.T) {
	f := fields(t, `{"a":"7.9","b":3,"c":"","d":"NaN","e":[1]}`)

	n, ok, err := f.Int("a")
	assert.Equal(t, err, nil)
	assert.Equal(t, ok, true)
	assert.Equal(t, n, 7)

	x, _, _ := f.Float("b")
	assert.Equal(t, x, 3.0)

	for _, key := range []string{"c", "d", "e"} {
		_, _, err := f.Float(key)
		assert.NotEqual(t, err, nil)
	}

	_, ok, err = f.Float("missing")
	assert.Equal(t, ok, false)
	assert.Equal(t, err, nil)
}

func TestFields_IntRange(t *testing.T) {
	f := fields(t, `{"big":1e30,"neg":"-3000000000","edge":2147483647,"low":-2147483648.9}`)

	for _, key := range []string{"big", "neg"} {
		_, ok, err := f.Int(key)
		assert.NotEqual(t, err, nil)
		assert.Equal(t, ok, false)
	}

	n, _, err := f.Int("edge")
	assert.Equal(t, err, nil)
	assert.Equal(t, n, 2147483647)

	n, _, err = f.Int("low")
	assert.Equal(t, err, nil)
	assert.Equal(t, n, -2147483648)
}

func TestDecodeFields_RequiresObject(t *testing.T) {
	for _, body := range []string{`[]`, `null`, `"x"`, `{`} {
		_, err := DecodeFields([]byte(body))
		assert.NotEqual(t, err, nil)
	}
}

func TestNormalizeDate(t *testing.T) {
	assert.Equal(t, NormalizeDate(" 2024-01-05 "), "2024-01-05")
	assert.Equal(t, NormalizeDate("2024-1-5"), "")
	assert.Equal(t, NormalizeDate("2024-01-05T00:00:00Z"), "")
}
