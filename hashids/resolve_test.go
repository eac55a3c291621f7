package hashids

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestResolveNamedParametersOverrideDefaults(t *testing.T) {
	defaults := Config{Salt: "global", MinLength: 0, Alphabet: DefaultAlphabet}

	e, err := Resolve(Options{Salt: strPtr("AAA"), MinLength: intPtr(5), Alphabet: strPtr("OPQRST1234567890")}, defaults)
	require.NoError(t, err)

	want := MustNew(Config{Salt: "AAA", MinLength: 5, Alphabet: "OPQRST1234567890"})
	got, err := e.Encode(7)
	require.NoError(t, err)
	expected, err := want.Encode(7)
	require.NoError(t, err)
	assert.Equal(t, expected, got)

	// only salt overridden, defaults fill the rest
	e, err = Resolve(Options{Salt: strPtr("other")}, defaults)
	require.NoError(t, err)
	got, err = e.Encode(7)
	require.NoError(t, err)
	expected, err = MustNew(Config{Salt: "other"}).Encode(7)
	require.NoError(t, err)
	assert.Equal(t, expected, got)
}

func TestResolveInstance(t *testing.T) {
	own := MustNew(Config{Salt: "instance"})

	e, err := Resolve(Options{Encoder: own}, DefaultConfig())
	require.NoError(t, err)
	assert.Same(t, own.(*hashID), e.(*hashID))
}

func TestResolveConflict(t *testing.T) {
	own := MustNew(Config{Salt: "instance"})

	cases := map[string]Options{
		"salt":       {Encoder: own, Salt: strPtr("Anotherone")},
		"min_length": {Encoder: own, MinLength: intPtr(0)},
		"alphabet":   {Encoder: own, Alphabet: strPtr(DefaultAlphabet)},
		"all":        {Encoder: own, Salt: strPtr("x"), MinLength: intPtr(3), Alphabet: strPtr(DefaultAlphabet)},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Resolve(opts, DefaultConfig())
			assert.ErrorIs(t, err, ErrConfig)
		})
	}
}

func TestDefaultsAndRegistry(t *testing.T) {
	prev := Defaults()
	t.Cleanup(func() { SetDefaults(prev) })

	SetDefaults(Config{Salt: "settings"})
	assert.Equal(t, Config{Salt: "settings", Alphabet: DefaultAlphabet}, Defaults())

	own := MustNew(Config{Salt: "registered"})
	Register("test-registry", own)
	t.Cleanup(func() { Register("test-registry", nil) })

	got, ok := Lookup("test-registry")
	require.True(t, ok)
	assert.Equal(t, own, got)

	Register("test-registry", nil)
	_, ok = Lookup("test-registry")
	assert.False(t, ok)
}
