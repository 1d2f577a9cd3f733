package printing

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var indianEnglish = language.MustParse("en-IN")

// FormatINR formats an amount with the rupee sign, two decimals and en-IN digit grouping
func FormatINR(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	f, _ := d.Round(2).Float64()
	p := message.NewPrinter(indianEnglish)
	return sign + "₹" + p.Sprintf("%v", number.Decimal(f, number.Scale(2)))
}

// TitleName capitalises each word of a person or place name
func TitleName(s string) string {
	// a Caser keeps state, so each call gets its own
	return cases.Title(indianEnglish).String(strings.TrimSpace(s))
}

var (
	ones = []string{"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine",
		"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen", "Seventeen", "Eighteen", "Nineteen"}
	tens = []string{"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety"}
)

// AmountInWords spells an amount the way Indian receipts do:
// 125050.5 -> "Rupees One Lakh Twenty Five Thousand Fifty and Fifty Paise Only"
func AmountInWords(d decimal.Decimal) string {
	d = d.Abs().Round(2)
	rupees := d.Truncate(0).IntPart()
	paise := d.Sub(d.Truncate(0)).Mul(decimal.NewFromInt(100)).IntPart()

	var b strings.Builder
	b.WriteString("Rupees ")
	if rupees == 0 {
		b.WriteString("Zero")
	} else {
		b.WriteString(indianWords(rupees))
	}
	if paise > 0 {
		b.WriteString(" and ")
		b.WriteString(belowHundred(paise))
		b.WriteString(" Paise")
	}
	b.WriteString(" Only")
	return b.String()
}

// indianWords spells n using crore, lakh, thousand and hundred
func indianWords(n int64) string {
	var parts []string
	if n >= 10000000 {
		parts = append(parts, indianWords(n/10000000), "Crore")
		n %= 10000000
	}
	if n >= 100000 {
		parts = append(parts, belowHundred(n/100000), "Lakh")
		n %= 100000
	}
	if n >= 1000 {
		parts = append(parts, belowHundred(n/1000), "Thousand")
		n %= 1000
	}
	if n >= 100 {
		parts = append(parts, ones[n/100], "Hundred")
		n %= 100
	}
	if n > 0 {
		parts = append(parts, belowHundred(n))
	}
	return strings.Join(parts, " ")
}

func belowHundred(n int64) string {
	if n < 20 {
		return ones[n]
	}
	if n%10 == 0 {
		return tens[n/10]
	}
	return tens[n/10] + " " + ones[n%10]
}
