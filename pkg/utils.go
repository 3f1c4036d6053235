package pkg

import "strings"

// NormalizeCurrency приводит код валюты к верхнему регистру без пробелов
func NormalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}
