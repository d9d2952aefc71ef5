package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-discount/internal/discount"
)

const cart = `{"cart":{"lines":[{"id":"gid://shopify/CartLine/9","quantity":1,"cost":{"amountPerQuantity":{"amount":"180"}},
"merchandise":{"__typename":"ProductVariant","id":"gid://shopify/ProductVariant/9",
"product":{"inCollections":[{"collectionId":"gid://shopify/Collection/42","isMember":true}]}}}]}}`

func TestRunFixedWithRuleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rule.yaml")
	require.NoError(t, os.WriteFile(path, []byte("target_collection: gid://shopify/Collection/42\npercentage: 20\nmessage: twenty off\n"), 0o600))

	var out bytes.Buffer
	require.NoError(t, run("fixed", path, strings.NewReader(cart), &out, zerolog.Nop()))
	assert.JSONEq(t, `{"discounts":[{"message":"twenty off","targets":[{"cartLine":{"id":"gid://shopify/CartLine/9","quantity":null}}],"value":{"percentage":{"value":20}}}],"discountApplicationStrategy":"FIRST"}`, out.String())
}

func TestRunTieredWithoutConfiguration(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run("tiered", "", strings.NewReader(cart), &out, zerolog.Nop()))
	assert.JSONEq(t, `{"discounts":[],"discountApplicationStrategy":"FIRST"}`, out.String())
}

func TestRunErrors(t *testing.T) {
	var out bytes.Buffer
	require.Error(t, run("magic", "", strings.NewReader(cart), &out, zerolog.Nop()))
	require.ErrorIs(t, run("tiered", "", strings.NewReader(`{"discountNode":{"metafield":{"value":"[]"}},"cart":{"lines":[]}}`), &out, zerolog.Nop()), discount.ErrInvalidConfiguration)
	assert.Empty(t, out.String())
}
