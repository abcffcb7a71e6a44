package utils

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var numberPrinter = message.NewPrinter(language.English)

// FormatNumber 添加千位分隔符，例如 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	return numberPrinter.Sprintf("%d", n)
}
