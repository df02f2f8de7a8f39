package handler

import (
	"strings"
	"testing"
)

type passwordForm struct {
	Password string `validate:"password"`
}

type walletForm struct {
	WalletAddress string `validate:"omitempty,stellar_address"`
}

func TestValidator_Password(t *testing.T) {
	v := NewValidator()

	valid := []string{"Secret123!", "Aa1@aaaa", "Zz9&" + strings.Repeat("x", 68)}
	for _, pw := range valid {
		if err := v.Validate(passwordForm{Password: pw}); err != nil {
			t.Fatalf("%q: expected valid, got %v", pw, err)
		}
	}

	invalid := map[string]string{
		"too short":      "Aa1!",
		"no upper":       "secret123!",
		"no lower":       "SECRET123!",
		"no digit":       "Secretabc!",
		"no special":     "Secret1234",
		"foreign symbol": "Secret123#",
		"non-ascii":      "Sécret123!",
		"over 72 bytes":  "Aa1!" + strings.Repeat("x", 69),
	}
	for name, pw := range invalid {
		err := v.Validate(passwordForm{Password: pw})
		if err == nil {
			t.Fatalf("%s: expected rejection", name)
		}
		if !strings.Contains(err.Error(), "password must be") {
			t.Fatalf("%s: unexpected message %q", name, err)
		}
	}
}

func TestValidator_StellarAddress(t *testing.T) {
	v := NewValidator()

	ok := "G" + strings.Repeat("A", 55)
	if err := v.Validate(walletForm{WalletAddress: ok}); err != nil {
		t.Fatalf("expected valid address, got %v", err)
	}
	if err := v.Validate(walletForm{}); err != nil {
		t.Fatalf("empty address is optional, got %v", err)
	}
	for _, addr := range []string{"0xabc", "S" + strings.Repeat("A", 55), "G" + strings.Repeat("a", 55), "G" + strings.Repeat("1", 55)} {
		if err := v.Validate(walletForm{WalletAddress: addr}); err == nil {
			t.Fatalf("%q: expected rejection", addr)
		}
	}
}

func TestToSnake(t *testing.T) {
	if got := toSnake("CurrentPassword"); got != "current_password" {
		t.Fatalf("got %q", got)
	}
}
