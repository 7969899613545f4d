package logging

import "testing"

func TestMaskValue(t *testing.T) {
	if got := MaskValue("Bearer abc123"); got != RedactedValue {
		t.Fatalf("masked value = %q, want %q", got, RedactedValue)
	}
	if got := MaskValue(""); got != "" {
		t.Fatalf("empty value = %q, want empty", got)
	}
	if got := MaskValue("   "); got != "   " {
		t.Fatalf("blank value = %q, want unchanged", got)
	}
}

func TestMaskFieldRespectsAllowlist(t *testing.T) {
	attr := MaskField("method", "vault_deposit")
	if attr.Value.String() != "vault_deposit" {
		t.Fatalf("allowlisted key masked: %s", attr.Value.String())
	}
	attr = MaskField("authorization", "Bearer abc123")
	if attr.Value.String() != RedactedValue {
		t.Fatalf("sensitive key not masked: %s", attr.Value.String())
	}
	if attr.Key != "authorization" {
		t.Fatalf("key = %q, want original casing preserved", attr.Key)
	}
}

func TestIsAllowlistedNormalizesKeys(t *testing.T) {
	if !IsAllowlisted(" Method ") {
		t.Fatal("expected case- and space-insensitive match")
	}
	if IsAllowlisted("password") {
		t.Fatal("unexpected allowlist hit")
	}
}
