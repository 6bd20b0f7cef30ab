// Package identity validates Ecuadorian identity data: national ID numbers
// (cédulas) and mobile phone numbers.
package identity

import "errors"

// Validation failures are expected, user-correctable conditions.
var (
	ErrCedulaLength     = errors.New("identity: cedula must be exactly 10 digits")
	ErrCedulaProvince   = errors.New("identity: invalid province code")
	ErrCedulaThirdDigit = errors.New("identity: third digit must be less than 6")
	ErrCedulaChecksum   = errors.New("identity: check digit mismatch")
)

// cedulaCoefficients are applied to the first nine digits. Products of 10 or
// more have 9 subtracted before summing.
var cedulaCoefficients = [9]int{2, 1, 2, 1, 2, 1, 2, 1, 2}

// ValidateCedula checks an Ecuadorian cédula. It returns nil when the value
// is a well-formed 10-digit number with a valid province code (01-24, or 30
// for citizens registered abroad), a third digit below 6, and a matching
// check digit.
func ValidateCedula(cedula string) error {
	if len(cedula) != 10 {
		return ErrCedulaLength
	}
	digits := make([]int, 10)
	for i, r := range cedula {
		if r < '0' || r > '9' {
			return ErrCedulaLength
		}
		digits[i] = int(r - '0')
	}

	province := digits[0]*10 + digits[1]
	if (province < 1 || province > 24) && province != 30 {
		return ErrCedulaProvince
	}
	if digits[2] >= 6 {
		return ErrCedulaThirdDigit
	}

	sum := 0
	for i, coef := range cedulaCoefficients {
		product := digits[i] * coef
		if product >= 10 {
			product -= 9
		}
		sum += product
	}
	expected := (10 - sum%10) % 10
	if expected != digits[9] {
		return ErrCedulaChecksum
	}
	return nil
}

// IsValidCedula reports whether cedula passes ValidateCedula.
func IsValidCedula(cedula string) bool {
	return ValidateCedula(cedula) == nil
}
