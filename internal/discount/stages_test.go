package discount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateSkipsRejectedLines(t *testing.T) {
	lines := []CartLine{
		variantLine("1", 10, 3, member("x")),
		variantLine("2", 2.5, 4),
		{ID: "gift", Quantity: 1, UnitCost: 100, Merchandise: OtherMerchandise{}},
	}
	assert.Equal(t, 140.0, Aggregate(lines, IncludeAll))
	assert.Equal(t, 10.0, Aggregate(lines, ExcludingCollections(map[string]struct{}{"x": {}})))
	assert.Equal(t, 40.0, Aggregate(lines, ExcludingCollections(nil)))
}

func TestAggregateZeroQuantity(t *testing.T) {
	assert.Equal(t, 0.0, Aggregate([]CartLine{variantLine("1", 99, 0)}, IncludeAll))
}

func TestSelectTier(t *testing.T) {
	tiers := []Tier{
		{Collection: "low", Threshold: 100},
		{Collection: "first-high", Threshold: 300},
		{Collection: "too-high", Threshold: 500},
		{Collection: "second-high", Threshold: 300},
	}

	tier, ok := SelectTier(299.99, tiers)
	require.True(t, ok)
	assert.Equal(t, "low", tier.Collection)

	tier, ok = SelectTier(300, tiers)
	require.True(t, ok)
	assert.Equal(t, "first-high", tier.Collection)

	_, ok = SelectTier(99, tiers)
	assert.False(t, ok)

	_, ok = SelectTier(1000, nil)
	assert.False(t, ok)
}

func TestParseTieredConfig(t *testing.T) {
	cfg, err := ParseTieredConfig(`{"collection_ids":["a"],"mapping":[{"collection":"c","threshold":300},{"collection":"c","threshold":300}]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, cfg.CollectionIDs)
	assert.Len(t, cfg.Mapping, 2)

	cfg, err = ParseTieredConfig(`{"collectionIds":["b"],"mapping":[]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, cfg.CollectionIDs)

	for _, raw := range []string{
		``,
		`[]`,
		`{"mapping":[]}`,
		`{"collection_ids":[]}`,
		`{"collection_ids":[],"mapping":[{"threshold":1}]}`,
		`{"collection_ids":[],"mapping":[{"collection":"c","threshold":"300"}]}`,
		`{"collection_ids":[],"mapping":[]} trailing`,
	} {
		_, err := ParseTieredConfig(raw)
		assert.ErrorIs(t, err, ErrInvalidConfiguration, raw)
	}
}

func TestTieredConfigEncodeRoundTrip(t *testing.T) {
	encoded, err := TieredConfig{}.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"collection_ids":[],"mapping":[]}`, encoded)

	cfg, err := ParseTieredConfig(encoded)
	require.NoError(t, err)
	assert.Empty(t, cfg.Mapping)
}

func TestParseSchedule(t *testing.T) {
	s, err := ParseSchedule(`{"collectionDiscounts":[{"collection_id":"a","discount":5},{"collection_id":"a","discount":9}]}`)
	require.NoError(t, err)
	entry, ok := s.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, 5.0, entry.Discount)
	_, ok = s.Lookup("b")
	assert.False(t, ok)

	_, err = ParseSchedule(`{}`)
	assert.ErrorIs(t, err, ErrInvalidDiscountSchedule)
	_, err = ParseSchedule(`{"collectionDiscounts":[{"collection_id":"a"}]}`)
	assert.ErrorIs(t, err, ErrInvalidDiscountSchedule)
}

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "10", FormatRate(10))
	assert.Equal(t, "12.5", FormatRate(12.5))
}
