package eid

import (
	"strings"
	"testing"
)

func TestGenerateFormat(t *testing.T) {
	for _, tier := range []string{"bronze", "silver", "gold"} {
		value := Generate(tier, 2026)
		if !Valid(value) {
			t.Fatalf("generated credential %q does not match the format", value)
		}
		if !strings.HasPrefix(value, "SH-2026-"+strings.ToUpper(tier)+"-") {
			t.Fatalf("unexpected prefix in %q", value)
		}
	}
}

func TestGenerateIsUnique(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		value := Generate("gold", 2026)
		if _, dup := seen[value]; dup {
			t.Fatalf("duplicate credential %q", value)
		}
		seen[value] = struct{}{}
	}
}

func TestValidRejectsMalformedValues(t *testing.T) {
	bad := []string{
		"",
		"SH-2026-GOLD-9f2c41ab",
		"SH-26-GOLD-9F2C41AB",
		"SH-2026-PLATINUM-9F2C41AB",
		"XX-2026-GOLD-9F2C41AB",
		"SH-2026-GOLD-9F2C41",
	}
	for _, value := range bad {
		if Valid(value) {
			t.Fatalf("%q should not validate", value)
		}
	}
}
