package formats

import "testing"

func TestDetectChaseCredit(t *testing.T) {
	detector := NewDetector(nil)
	headers := []string{"Transaction Date", "Post Date", "Description", "Category", "Type", "Amount"}

	profile, score := detector.Detect(headers, "")

	if profile.ID != "chase_credit" {
		t.Errorf("expected chase_credit, got %s (score %d)", profile.ID, score)
	}
	if score == 0 {
		t.Error("expected a positive score")
	}
}

func TestDetectAmexBySignature(t *testing.T) {
	detector := NewDetector(nil)
	headers := []string{"Date", "Description", "Card Member", "Account #", "Amount"}

	profile, _ := detector.Detect(headers, "")

	if profile.ID != "amex" {
		t.Errorf("expected amex, got %s", profile.ID)
	}
}

func TestDetectFallsBackToGeneric(t *testing.T) {
	detector := NewDetector(nil)
	headers := []string{"Col1", "Col2", "Col3"}

	profile, score := detector.Detect(headers, "")

	if !profile.IsGeneric() {
		t.Errorf("expected generic fallback, got %s", profile.ID)
	}
	if score != 0 {
		t.Errorf("expected score 0 for generic fallback, got %d", score)
	}
}

func TestDetectFilenameHint(t *testing.T) {
	detector := NewDetector(nil)
	// Wells Fargo's header set is fully generic; only the filename identifies it
	headers := []string{"Date", "Amount", "Description"}

	profile, _ := detector.Detect(headers, "wells fargo export 2024.csv")

	if profile.ID != "wells_fargo" {
		t.Errorf("expected wells_fargo via filename hint, got %s", profile.ID)
	}
}

func TestDetectDeterministic(t *testing.T) {
	detector := NewDetector(nil)
	headers := []string{"Date", "Description", "Withdrawals", "Deposits", "Balance"}

	first, firstScore := detector.Detect(headers, "")
	for i := 0; i < 10; i++ {
		profile, score := detector.Detect(headers, "")
		if profile.ID != first.ID || score != firstScore {
			t.Fatalf("detection not deterministic: %s/%d vs %s/%d",
				first.ID, firstScore, profile.ID, score)
		}
	}

	if first.ID != "pnc" {
		t.Errorf("expected pnc for withdrawals/deposits/balance headers, got %s", first.ID)
	}
}

func TestDetectCaseInsensitive(t *testing.T) {
	detector := NewDetector(nil)
	headers := []string{"TRANSACTION DATE", "post date", "DESCRIPTION", "category", "TYPE", "amount"}

	profile, _ := detector.Detect(headers, "")

	if profile.ID != "chase_credit" {
		t.Errorf("expected chase_credit with mixed-case headers, got %s", profile.ID)
	}
}

func TestDetectorConfigValidate(t *testing.T) {
	cfg := DefaultDetectorConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}

	cfg.SignatureWeight = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative weight")
	}

	zero := &DetectorConfig{}
	if err := zero.Validate(); err == nil {
		t.Error("expected error for all-zero weights")
	}
}

func TestRegistryHasSingleGeneric(t *testing.T) {
	generics := 0
	for _, p := range Registry() {
		if p.IsGeneric() {
			generics++
		}
	}
	if generics != 1 {
		t.Errorf("expected exactly one generic profile, found %d", generics)
	}

	if !Generic().IsGeneric() {
		t.Error("Generic() should return the fallback profile")
	}
}

func TestLookup(t *testing.T) {
	if _, ok := Lookup("amex"); !ok {
		t.Error("expected amex profile to exist")
	}
	if _, ok := Lookup("nonexistent"); ok {
		t.Error("expected lookup miss for unknown id")
	}
}

func TestMappingInvariant(t *testing.T) {
	// Every profile maps either a single amount column or a debit/credit
	// pair, never both.
	for _, p := range Registry() {
		hasAmount := p.Mapping.Amount != ""
		hasSplit := p.Mapping.Debit != "" && p.Mapping.Credit != ""
		if hasAmount && hasSplit {
			t.Errorf("profile %s maps both amount and debit/credit", p.ID)
		}
		if !hasAmount && !hasSplit {
			t.Errorf("profile %s maps neither amount nor debit/credit", p.ID)
		}
	}
}
