package srtgo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupOptionCaseAndPrefixInsensitive(t *testing.T) {
	for _, name := range []string{"latency", "LATENCY", "SRTO_LATENCY", "srto_latency"} {
		opt, ok := LookupOption(name)
		require.True(t, ok, "lookup of %q should succeed", name)
		assert.Equal(t, "latency", opt.Name())
		assert.Equal(t, LifecyclePre, opt.Lifecycle())
	}
}

func TestLookupOptionUnknown(t *testing.T) {
	_, ok := LookupOption("not_a_real_option")
	assert.False(t, ok)
}

func TestCanSetAtPrebindOnlyOption(t *testing.T) {
	opt, ok := LookupOption("mss")
	require.True(t, ok)
	assert.True(t, opt.CanSetAt(LifecyclePrebind))
	assert.False(t, opt.CanSetAt(LifecyclePre))
	assert.False(t, opt.CanSetAt(LifecyclePost))
}

func TestCanSetAtPreOptionAlsoLegalAtPrebind(t *testing.T) {
	opt, ok := LookupOption("latency")
	require.True(t, ok)
	assert.True(t, opt.CanSetAt(LifecyclePrebind))
	assert.True(t, opt.CanSetAt(LifecyclePre))
	assert.False(t, opt.CanSetAt(LifecyclePost))
}

func TestCanSetAtPostOptionLegalAnywhere(t *testing.T) {
	opt, ok := LookupOption("maxbw")
	require.True(t, ok)
	assert.True(t, opt.CanSetAt(LifecyclePrebind))
	assert.True(t, opt.CanSetAt(LifecyclePre))
	assert.True(t, opt.CanSetAt(LifecyclePost))
}

func TestParseOptionValueInt32(t *testing.T) {
	opt, _ := LookupOption("latency")
	v, err := ParseOptionValue(opt, "120")
	require.NoError(t, err)
	assert.Equal(t, int32(120), v)
}

func TestParseOptionValueInt32Invalid(t *testing.T) {
	opt, _ := LookupOption("latency")
	_, err := ParseOptionValue(opt, "not-a-number")
	assert.True(t, IsInvalidArgument(err))
}

func TestParseOptionValueBoolean(t *testing.T) {
	opt, _ := LookupOption("tlpktdrop")
	for _, text := range []string{"1", "true", "yes"} {
		v, err := ParseOptionValue(opt, text)
		require.NoError(t, err)
		assert.Equal(t, true, v)
	}
	for _, text := range []string{"0", "false", "no"} {
		v, err := ParseOptionValue(opt, text)
		require.NoError(t, err)
		assert.Equal(t, false, v)
	}
}

func TestParseOptionValueBooleanInvalid(t *testing.T) {
	opt, _ := LookupOption("tlpktdrop")
	_, err := ParseOptionValue(opt, "maybe")
	assert.True(t, IsInvalidArgument(err))
}

func TestParseOptionValueString(t *testing.T) {
	opt, _ := LookupOption("streamid")
	v, err := ParseOptionValue(opt, "my-stream")
	require.NoError(t, err)
	assert.Equal(t, "my-stream", v)
}

func TestParseOptionValueTransTypeInvalid(t *testing.T) {
	opt, _ := LookupOption("transtype")
	_, err := ParseOptionValue(opt, "bogus")
	assert.True(t, IsInvalidArgument(err))
}

func TestNewPendingOptionsBuffersEveryOption(t *testing.T) {
	p := newPendingOptions(map[string]string{
		"mss":     "1500",
		"latency": "120",
		"maxbw":   "1000000",
	})
	// Applying needs a real socket; here we only check bookkeeping:
	// newPendingOptions holds all three options, whatever their phase,
	// until applyPhase consumes them.
	_, ok := LookupOption("mss")
	require.True(t, ok)
	assert.Len(t, p.values, 3)
}

func TestPendingOptionsRejectsUnknownName(t *testing.T) {
	p := newPendingOptions(map[string]string{"not_a_real_option": "1"})
	err := p.applyPhase(0, LifecyclePrebind, LifecyclePrebind)
	assert.True(t, IsInvalidArgument(err))
}
