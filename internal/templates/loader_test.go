package templates

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_List(t *testing.T) {
	names, err := NewLoader().List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{DemoCustomer, DemoAccount, DemoMerchant, Purchase}, names)
}

func TestRender_DemoCustomer(t *testing.T) {
	body, err := Render(DemoCustomer, map[string]string{"Suffix": "0042"})
	require.NoError(t, err)

	var got struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Address   struct {
			City string `json:"city"`
			Zip  string `json:"zip"`
		} `json:"address"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "Nudge", got.FirstName)
	assert.Equal(t, "Demo0042", got.LastName)
	assert.Equal(t, "Pittsburgh", got.Address.City)
	assert.Equal(t, "15213", got.Address.Zip)
}

func TestRender_StaticPayloads(t *testing.T) {
	account, err := Render(DemoAccount, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Checking","nickname":"NudgePay Checking","rewards":10,"balance":2400}`, string(account))

	merchant, err := Render(DemoMerchant, nil)
	require.NoError(t, err)
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(merchant, &m))
	assert.Equal(t, "NudgePay Demo Shop", m["name"])
	assert.Equal(t, map[string]interface{}{"lat": 40.4406, "lng": -79.9959}, m["geocode"])
}

func TestRender_PurchaseEscapesStrings(t *testing.T) {
	body, err := Render(Purchase, map[string]interface{}{
		"MerchantID":  "m-1",
		"Date":        "2026-10-15",
		"Amount":      "19.99",
		"Description": `NudgePay "Amazon" checkout`,
	})
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "m-1", got["merchant_id"])
	assert.Equal(t, "balance", got["medium"])
	assert.Equal(t, 19.99, got["amount"])
	assert.Equal(t, `NudgePay "Amazon" checkout`, got["description"])
}

func TestRender_MissingKey(t *testing.T) {
	_, err := Render(DemoCustomer, map[string]string{})
	assert.Error(t, err)
}

func TestRender_UnknownPayload(t *testing.T) {
	_, err := Render("nope.json", nil)
	assert.Error(t, err)
}
