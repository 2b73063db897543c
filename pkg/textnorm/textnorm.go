// Package textnorm normaliza textos libres que llegan de formularios e importaciones
// (tallas, códigos) para que las claves de saldo coincidan.
package textnorm

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Size normaliza una talla: NFKC, sin espacios sobrantes, en mayúsculas y sin espacios alrededor de "/".
// "t / 41" -> "T/41". Una talla vacía o "-" significa "sin talla".
func Size(s string) string {
	s = collapse(norm.NFKC.String(s))
	if s == "" || s == "-" {
		return ""
	}
	s = strings.ReplaceAll(s, " / ", "/")
	s = strings.ReplaceAll(s, " /", "/")
	s = strings.ReplaceAll(s, "/ ", "/")
	return upper(s)
}

// Code normaliza códigos de proyecto y ubicación ("z-obras " -> "Z-OBRAS").
func Code(s string) string {
	return upper(collapse(norm.NFKC.String(s)))
}

// Name normaliza nombres de catálogo conservando mayúsculas/minúsculas.
func Name(s string) string {
	return collapse(norm.NFC.String(s))
}

// Un Caser guarda estado: no se comparte entre goroutines.
func upper(s string) string {
	return cases.Upper(language.Spanish).String(s)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
