package function

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-discount/internal/discount"
)

const eligibleCartInput = `{
  "cart": {
    "lines": [
      {
        "id": "gid://shopify/CartLine/0",
        "quantity": 2,
        "cost": {"amountPerQuantity": {"amount": "100.0", "currencyCode": "EUR"}},
        "merchandise": {
          "__typename": "ProductVariant",
          "id": "gid://shopify/ProductVariant/111",
          "sku": "SKU111",
          "product": {"inCollections": [{"collectionId": "gid://shopify/Collection/496241049921", "isMember": true}]}
        }
      },
      {
        "id": "gid://shopify/CartLine/1",
        "quantity": 1,
        "cost": {"amountPerQuantity": {"amount": "50.0", "currencyCode": "EUR"}},
        "merchandise": {
          "__typename": "ProductVariant",
          "id": "gid://shopify/ProductVariant/222",
          "product": {"inCollections": [{"collectionId": "gid://shopify/Collection/NOTELIGIBLE", "isMember": true}]}
        }
      }
    ]
  }
}`

const tieredInput = `{
  "discountNode": {"metafield": {"value": "{\"collection_ids\":[], \"mapping\":[{\"collection\":\"gid://shopify/Collection/1234\", \"threshold\": 300}]}"}},
  "cart": {
    "lines": [
      {
        "quantity": 1,
        "cost": {"amountPerQuantity": {"amount": 358.00}},
        "merchandise": {
          "__typename": "ProductVariant",
          "id": "gid://shopify/ProductVariant/9876",
          "product": {
            "inCollections": [{"collectionId": "gid://shopify/Collection/1234", "isMember": true}],
            "metafield": {"value": "{\"collectionDiscounts\": [{\"collection_id\": \"gid://shopify/Collection/1234\", \"discount\": 10}]}"}
          }
        }
      }
    ]
  }
}`

func TestRunFixedProducesCartLineTargets(t *testing.T) {
	in, err := DecodeInput(strings.NewReader(eligibleCartInput))
	require.NoError(t, err)

	engine, err := discount.NewFixedEngine(discount.DefaultFixedRule())
	require.NoError(t, err)

	result, ev := RunFixed(engine, in)
	assert.Equal(t, 250.0, ev.Subtotal)

	var buf bytes.Buffer
	require.NoError(t, result.Write(&buf))
	assert.JSONEq(t, `{
	  "discounts": [{
	    "message": "15% discount applied to eligible collection items.",
	    "targets": [{"cartLine": {"id": "gid://shopify/CartLine/0", "quantity": null}}],
	    "value": {"percentage": {"value": 15}}
	  }],
	  "discountApplicationStrategy": "FIRST"
	}`, buf.String())
}

func TestRunTieredProducesVariantTarget(t *testing.T) {
	in, err := DecodeInput(strings.NewReader(tieredInput))
	require.NoError(t, err)

	result, _, err := RunTiered(in)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, result.Write(&buf))
	assert.JSONEq(t, `{
	  "discounts": [{
	    "message": "10% off",
	    "targets": [{"productVariant": {"id": "gid://shopify/ProductVariant/9876", "quantity": 1}}],
	    "value": {"percentage": {"value": 10}}
	  }],
	  "discountApplicationStrategy": "FIRST"
	}`, buf.String())
}

func TestRunTieredWithoutMetafield(t *testing.T) {
	in, err := DecodeInput(strings.NewReader(`{"discountNode": {"metafield": null}, "cart": {"lines": []}}`))
	require.NoError(t, err)
	assert.Nil(t, in.ConfigurationValue())

	result, ev, err := RunTiered(in)
	require.NoError(t, err)
	assert.Equal(t, discount.StageNoConfiguration, ev.Stage)

	var buf bytes.Buffer
	require.NoError(t, result.Write(&buf))
	assert.JSONEq(t, `{"discounts": [], "discountApplicationStrategy": "FIRST"}`, buf.String())
}

func TestRunTieredMalformedConfiguration(t *testing.T) {
	in, err := DecodeInput(strings.NewReader(`{"discountNode": {"metafield": {"value": "{"}}, "cart": {"lines": []}}`))
	require.NoError(t, err)
	_, _, err = RunTiered(in)
	require.ErrorIs(t, err, discount.ErrInvalidConfiguration)
}

func TestDecodeInputRejectsInvalidDocuments(t *testing.T) {
	cases := map[string]string{
		"syntax":          `{"cart":`,
		"negative qty":    `{"cart":{"lines":[{"id":"l","quantity":-1,"cost":{"amountPerQuantity":{"amount":"1"}},"merchandise":{"__typename":"ProductVariant","id":"v","product":{}}}]}}`,
		"negative amount": `{"cart":{"lines":[{"id":"l","quantity":1,"cost":{"amountPerQuantity":{"amount":-3}},"merchandise":{"__typename":"ProductVariant","id":"v","product":{}}}]}}`,
		"bad decimal":     `{"cart":{"lines":[{"id":"l","quantity":1,"cost":{"amountPerQuantity":{"amount":"abc"}},"merchandise":{"__typename":"ProductVariant","id":"v","product":{}}}]}}`,
		"missing variant": `{"cart":{"lines":[{"id":"l","quantity":1,"cost":{"amountPerQuantity":{"amount":"1"}},"merchandise":{"__typename":"ProductVariant","product":{}}}]}}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeInput(strings.NewReader(doc))
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestNonVariantMerchandise(t *testing.T) {
	doc := `{"cart":{"lines":[{"id":"l","quantity":3,"cost":{"amountPerQuantity":{"amount":"10"}},"merchandise":{"__typename":"CustomProduct","title":"gift wrap"}}]}}`
	in, err := DecodeInput(strings.NewReader(doc))
	require.NoError(t, err)

	cart := in.Cart()
	require.Len(t, cart.Lines, 1)
	_, ok := cart.Lines[0].Variant()
	assert.False(t, ok)
	assert.Equal(t, 30.0, cart.Lines[0].Subtotal())
}

func TestUntypedMerchandiseWithProductIsVariant(t *testing.T) {
	m := Merchandise{ID: "v", Product: &Product{}}
	assert.True(t, m.IsVariant())
	assert.False(t, Merchandise{}.IsVariant())
}
