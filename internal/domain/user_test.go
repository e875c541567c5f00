package domain

import "testing"

func TestAddWalletRejectsDuplicatePublicKey(t *testing.T) {
	u := NewUserProfile("1", "solly", "Sol", "en")

	if !u.AddWallet(KeyRecord{PublicKey: "abc"}) {
		t.Fatal("First AddWallet should succeed")
	}
	if u.AddWallet(KeyRecord{PublicKey: "abc"}) {
		t.Error("Duplicate public key should be rejected")
	}
	if !u.AddWallet(KeyRecord{PublicKey: "def"}) {
		t.Error("Distinct public key should be accepted")
	}
	if len(u.Wallets) != 2 {
		t.Errorf("Expected 2 wallets, got %d", len(u.Wallets))
	}
}

func TestDisplayNameFallbacks(t *testing.T) {
	tests := []struct {
		firstName string
		username  string
		want      string
	}{
		{"Sol", "solly", "Sol"},
		{"", "solly", "solly"},
		{"", "", "User"},
	}
	for _, tc := range tests {
		u := NewUserProfile("1", tc.username, tc.firstName, "en")
		if got := u.DisplayName(); got != tc.want {
			t.Errorf("DisplayName(first=%q user=%q) = %q, want %q", tc.firstName, tc.username, got, tc.want)
		}
	}
}

func TestPatternKindGrindFlag(t *testing.T) {
	if got, err := PatternPrefix.GrindFlag(); err != nil || got != "--starts-with" {
		t.Errorf("Prefix flag = %q, err = %v", got, err)
	}
	if got, err := PatternSuffix.GrindFlag(); err != nil || got != "--ends-with" {
		t.Errorf("Suffix flag = %q, err = %v", got, err)
	}
	if _, err := PatternKind("sideways").GrindFlag(); err == nil {
		t.Error("Unknown kind must yield an error")
	}
	if PatternKind("sideways").Valid() {
		t.Error("Unknown kind must not be valid")
	}
}
