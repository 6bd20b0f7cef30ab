package identity

import (
	"errors"
	"testing"
)

func TestValidateCedulaAccepted(t *testing.T) {
	valid := []string{
		"1712345675", // Pichincha
		"0926687856", // Guayas
		"3012345678", // registered abroad
	}
	for _, c := range valid {
		if err := ValidateCedula(c); err != nil {
			t.Errorf("ValidateCedula(%q) = %v, want nil", c, err)
		}
		if !IsValidCedula(c) {
			t.Errorf("IsValidCedula(%q) = false, want true", c)
		}
	}
}

func TestValidateCedulaRejected(t *testing.T) {
	cases := []struct {
		cedula string
		want   error
	}{
		{"", ErrCedulaLength},
		{"171234567", ErrCedulaLength},
		{"17123456755", ErrCedulaLength},
		{"17123a5675", ErrCedulaLength},
		{"0012345675", ErrCedulaProvince},
		{"2512345675", ErrCedulaProvince},
		{"2912345675", ErrCedulaProvince},
		{"3112345675", ErrCedulaProvince},
		{"1762345675", ErrCedulaThirdDigit},
		{"1792345675", ErrCedulaThirdDigit},
		{"1712345676", ErrCedulaChecksum}, // last digit flipped
		{"0926687855", ErrCedulaChecksum},
	}
	for _, tc := range cases {
		err := ValidateCedula(tc.cedula)
		if !errors.Is(err, tc.want) {
			t.Errorf("ValidateCedula(%q) = %v, want %v", tc.cedula, err, tc.want)
		}
	}
}

func TestValidateCedulaRejectsAllBadProvinces(t *testing.T) {
	// Brute-force the region-code property: any prefix outside 1..24 and 30
	// must fail regardless of the remaining digits.
	for p := 0; p <= 99; p++ {
		cedula := string([]byte{byte('0' + p/10), byte('0' + p%10)}) + "12345675"
		err := ValidateCedula(cedula)
		if p >= 1 && p <= 24 || p == 30 {
			if errors.Is(err, ErrCedulaProvince) {
				t.Errorf("province %02d unexpectedly rejected", p)
			}
		} else if !errors.Is(err, ErrCedulaProvince) {
			t.Errorf("province %02d accepted, want ErrCedulaProvince", p)
		}
	}
}
