package model

import (
	"fmt"
	"regexp"
	"strconv"
)

const (
	PrefijoFicha   = "F"
	PrefijoTramite = "T"
)

// Secuencia holds the last number issued for a prefix in a calendar year.
type Secuencia struct {
	Prefijo string `gorm:"type:varchar(1);primaryKey"`
	Anio    int    `gorm:"primaryKey"`
	Ultimo  int    `gorm:"not null;default:0"`
}

func (Secuencia) TableName() string { return "secuencias" }

var numeroRe = regexp.MustCompile(`^([A-Z])(\d+)/(\d{2})$`)

// FormatNumero renders a per-year sequence number, e.g. F007/25.
func FormatNumero(prefijo string, secuencia, anio int) string {
	return fmt.Sprintf("%s%03d/%02d", prefijo, secuencia, anio%100)
}

// ParseNumero splits a number produced by FormatNumero. yy is the two-digit year.
func ParseNumero(s string) (prefijo string, secuencia, yy int, err error) {
	m := numeroRe.FindStringSubmatch(s)
	if m == nil {
		return "", 0, 0, fmt.Errorf("numero %q con formato invalido", s)
	}
	secuencia, _ = strconv.Atoi(m[2])
	yy, _ = strconv.Atoi(m[3])
	return m[1], secuencia, yy, nil
}

// NumeroCarpetaValido reports whether s looks like T<digits>/<yy>.
func NumeroCarpetaValido(s string) bool {
	p, _, _, err := ParseNumero(s)
	return err == nil && p == PrefijoTramite
}
