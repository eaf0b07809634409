// Package esfiscal valida identificadores fiscales españoles: DNI (personas
// físicas), CIF (personas jurídicas) y NIE (extranjeros residentes).
package esfiscal

import "strings"

// dniLetters tabla de 23 letras de control del DNI/NIE (orden oficial del
// Ministerio del Interior); la letra es dniLetters[número % 23].
const dniLetters = "TRWAGMYFPDXBNJZSQVHLCKE"

// cifOrgLetters letras de forma jurídica admitidas como primer carácter del CIF.
const cifOrgLetters = "ABCDEFGHJKLMNPQRSUVW"

// IsValidNIF comprueba si el identificador tiene una de las tres formas
// españolas válidas. El string vacío y cualquier longitud distinta de 9 son
// inválidos. DNI y NIE verifican la letra de control; para el CIF se exige
// letra de forma jurídica + 7 dígitos + carácter de control [0-9A-J], sin
// recomputar el control (su cálculo depende del tipo de entidad).
func IsValidNIF(id string) bool {
	s := strings.ToUpper(strings.TrimSpace(id))
	if len(s) != 9 {
		return false
	}
	switch {
	case isDigit(s[0]):
		return isValidDNI(s)
	case s[0] == 'X' || s[0] == 'Y' || s[0] == 'Z':
		return isValidNIE(s)
	case strings.ContainsRune(cifOrgLetters, rune(s[0])):
		return isValidCIFShape(s)
	default:
		return false
	}
}

// isValidDNI 8 dígitos + letra de control.
func isValidDNI(s string) bool {
	number := 0
	for i := 0; i < 8; i++ {
		if !isDigit(s[i]) {
			return false
		}
		number = number*10 + int(s[i]-'0')
	}
	return s[8] == dniLetters[number%23]
}

// isValidNIE X/Y/Z + 7 dígitos + letra; la inicial se sustituye por 0/1/2 y
// se aplica el algoritmo del DNI sobre los 8 dígitos resultantes.
func isValidNIE(s string) bool {
	number := int(s[0] - 'X') // X→0, Y→1, Z→2
	for i := 1; i < 8; i++ {
		if !isDigit(s[i]) {
			return false
		}
		number = number*10 + int(s[i]-'0')
	}
	return s[8] == dniLetters[number%23]
}

// isValidCIFShape letra de organización + 7 dígitos + control dígito o A-J.
func isValidCIFShape(s string) bool {
	for i := 1; i < 8; i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	c := s[8]
	return isDigit(c) || (c >= 'A' && c <= 'J')
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
