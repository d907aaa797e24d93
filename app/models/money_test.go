package models_test

import (
	"encoding/json"
	"testing"

	"github.com/shashiranjanraj/shopfront/app/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductPriceIsAJSONNumber(t *testing.T) {
	p := models.Product{ID: "p1", Code: "MUG", Price: decimal.RequireFromString("2.10"), Stock: 4, Status: true}

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"price":2.1`)
	assert.Contains(t, string(raw), `"code":"MUG"`)

	ptr, err := json.Marshal(&p)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(ptr))

	var back models.Product
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, back.Price.Equal(p.Price))
}

func TestMoneyDecodesNumbersAndStrings(t *testing.T) {
	for _, in := range []string{`6.3`, `"6.30"`} {
		var m models.Money
		require.NoError(t, json.Unmarshal([]byte(in), &m), in)
		assert.Equal(t, "6.30", m.StringFixed(2))
	}

	raw, err := json.Marshal(map[string]models.Money{"total": models.NewMoney(decimal.RequireFromString("8.50"))})
	require.NoError(t, err)
	assert.JSONEq(t, `{"total": 8.5}`, string(raw))
}

func TestDecimalDefaultEncodingIsUntouched(t *testing.T) {
	raw, err := json.Marshal(decimal.RequireFromString("1.5"))
	require.NoError(t, err)
	assert.Equal(t, `"1.5"`, string(raw))
}

