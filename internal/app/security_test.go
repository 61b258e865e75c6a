package app

import "testing"

func TestValidateSecurityConfig_DisabledByDefault(t *testing.T) {
	if err := ValidateSecurityConfig(Config{}); err != nil {
		t.Fatalf("expected no error when RequireFieldHMAC is false, got %v", err)
	}
}

func TestValidateSecurityConfig_MissingKey(t *testing.T) {
	t.Setenv("CANVASD_FIELD_HMAC_KEY", "")
	if err := ValidateSecurityConfig(Config{RequireFieldHMAC: true}); err == nil {
		t.Fatalf("expected an error when the HMAC key is missing")
	}
}

func TestValidateSecurityConfig_KeyTooShort(t *testing.T) {
	t.Setenv("CANVASD_FIELD_HMAC_KEY", "too-short")
	if err := ValidateSecurityConfig(Config{RequireFieldHMAC: true}); err == nil {
		t.Fatalf("expected an error when the HMAC key is too short")
	}
}

func TestValidateSecurityConfig_ValidKey(t *testing.T) {
	t.Setenv("CANVASD_FIELD_HMAC_KEY", "01234567890123456789012345678901")
	if err := ValidateSecurityConfig(Config{RequireFieldHMAC: true}); err != nil {
		t.Fatalf("expected a sufficiently long key to pass, got %v", err)
	}
}
