package phone

import "testing"

func TestNormalizeArgentineMobileVariants(t *testing.T) {
	variants := []string{
		"+54 9 11 3556-2673",
		"+5491135562673",
		"5491135562673",
		"541135562673",
		"01135562673",
		"011 3556 2673",
	}

	want, err := Normalize(variants[0])
	if err != nil {
		t.Fatalf("normalize %q: %v", variants[0], err)
	}
	if want.MatchKey != "1135562673" {
		t.Fatalf("unexpected match key %q", want.MatchKey)
	}

	for _, raw := range variants[1:] {
		got, err := Normalize(raw)
		if err != nil {
			t.Fatalf("normalize %q: %v", raw, err)
		}
		if got.MatchKey != want.MatchKey {
			t.Errorf("normalize %q: match key %q, want %q", raw, got.MatchKey, want.MatchKey)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"+54 9 11 3556-2673",
		"01135562673",
		"0054 11 3556 2673",
		"+31 6 1234 5678",
		"123456",
	}

	for _, raw := range inputs {
		first, err := Normalize(raw)
		if err != nil {
			t.Fatalf("normalize %q: %v", raw, err)
		}
		second, err := Normalize(first.Canonical)
		if err != nil {
			t.Fatalf("re-normalize %q: %v", first.Canonical, err)
		}
		if second != first {
			t.Errorf("normalize not idempotent for %q: first %+v, second %+v", raw, first, second)
		}
	}
}

func TestNormalizeStripsMobileInsertionDigit(t *testing.T) {
	mobile, err := Normalize("+54 9 11 3556-2673")
	if err != nil {
		t.Fatal(err)
	}
	fixed, err := Normalize("+54 11 3556-2673")
	if err != nil {
		t.Fatal(err)
	}

	if mobile.National != "1135562673" {
		t.Errorf("mobile national = %q, want 1135562673", mobile.National)
	}
	if !mobile.SameParty(fixed) {
		t.Errorf("mobile and fixed representations should share a key: %q vs %q", mobile.MatchKey, fixed.MatchKey)
	}
}

func TestNormalizeCollapsesInternationalPrefix(t *testing.T) {
	plus, err := Normalize("+54 11 3556 2673")
	if err != nil {
		t.Fatal(err)
	}
	doubleZero, err := Normalize("0054 11 3556 2673")
	if err != nil {
		t.Fatal(err)
	}
	if !plus.SameParty(doubleZero) {
		t.Errorf("00-prefixed number should match +-prefixed: %q vs %q", doubleZero.MatchKey, plus.MatchKey)
	}
}

func TestNormalizeRejectsShortInput(t *testing.T) {
	for _, raw := range []string{"", "   ", "12345", "+54", "abc", "tel: 1-2-3"} {
		if _, err := Normalize(raw); err == nil {
			t.Errorf("normalize %q: expected error, got none", raw)
		}
	}
}

func TestNormalizeTotalOverGarbage(t *testing.T) {
	// Must never panic, whatever the input.
	for _, raw := range []string{"++++", "(((", "☎ 11 3556 2673 ☎", "0", "00", "+000000000000000000000"} {
		_, _ = Normalize(raw)
	}
}

func TestSamePartyUsesTrailingDigits(t *testing.T) {
	a, err := Normalize("541135562673")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Normalize("1135562673")
	if err != nil {
		t.Fatal(err)
	}
	if !a.SameParty(b) {
		t.Errorf("expected %q and %q to share a match key", a.MatchKey, b.MatchKey)
	}
}
