package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type amountRequest struct {
	Amount string `json:"amount" validate:"required,money"`
}

type terminalRequest struct {
	Name       string `json:"name" validate:"required,max=64"`
	Credential string `json:"credential" validate:"required,credential"`
}

func TestStruct_Money(t *testing.T) {
	tests := []struct {
		amount string
		valid  bool
	}{
		{"100", true},
		{"23.33", true},
		{"0", true},
		{"0.10", true},
		{"-1", false},
		{"1.234", false},
		{"abc", false},
		{"", false},
		{"999999999999.99", true},
		{"1000000000000", false},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			errs := Struct(amountRequest{Amount: tt.amount})
			if tt.valid {
				assert.Nil(t, errs)
			} else {
				assert.Contains(t, errs, "amount")
			}
		})
	}
}

func TestStruct_Credential(t *testing.T) {
	assert.Nil(t, Struct(terminalRequest{Name: "front", Credential: "123456"}))

	errs := Struct(terminalRequest{Name: "", Credential: "12 45678"})
	assert.Equal(t, "is required", errs["name"])
	assert.Contains(t, errs["credential"], "characters")

	errs = Struct(terminalRequest{Name: "x", Credential: "123"})
	assert.Contains(t, errs, "credential")
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "front desk", CleanText("  <b>front desk</b> "))
	assert.Equal(t, "", CleanText("<script>alert(1)</script>"))
	assert.Equal(t, "cash & card", CleanText("cash & card"))
}
