package config

import "testing"

func TestValidateRejectsMinGreaterThanMax(t *testing.T) {
	c := Default()
	c.MinMTU = 1500
	c.MaxMTU = 400
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for min_mtu > max_mtu")
	}
}

func TestIdentityRequiresMagic(t *testing.T) {
	c := Default()
	c.Magic = "0000000000000000000000000000000000" // 34 hex chars, wrong length
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for wrong-length magic")
	}
}

func TestIdentityFromValidConfig(t *testing.T) {
	c := Default()
	c.Magic = "000102030405060708090a0b0c0d0e0f"
	c.GUID = 42

	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	id, err := c.Identity()
	if err != nil {
		t.Fatalf("Identity: %v", err)
	}
	if id.GUID != 42 {
		t.Errorf("GUID = %d, want 42", id.GUID)
	}
	if id.Magic[0] != 0x00 || id.Magic[15] != 0x0f {
		t.Errorf("Magic = %x", id.Magic)
	}
}
