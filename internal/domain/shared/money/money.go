package money

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	ErrInvalidCurrency  = errors.New("money: invalid currency code")
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
)

// DefaultCurrency applies when a property has no pricing currency configured.
const DefaultCurrency = "USD"

// Money keeps amounts in integer minor units (cents) to avoid floating point drift.
type Money struct {
	Amount   int64
	Currency string
}

// New constructs a Money value for a valid ISO 4217 code.
func New(amount int64, code string) (Money, error) {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	return Money{Amount: amount, Currency: unit.String()}, nil
}

// Must creates Money and panics if validation fails; useful in tests and fixtures.
func Must(amount int64, code string) Money {
	m, err := New(amount, code)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns an empty amount in the given currency.
func Zero(code string) Money {
	return Money{Currency: code}
}

// FromMajor converts a major-unit value (e.g. dollars) rounding half away from zero.
func FromMajor(value float64, code string) Money {
	return Money{Amount: int64(math.Round(value * 100)), Currency: code}
}

// NormalizeCurrency upper-cases a code and falls back to DefaultCurrency when empty or unknown.
func NormalizeCurrency(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return DefaultCurrency
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return DefaultCurrency
	}
	return unit.String()
}

// Add adds two money values ensuring currencies match.
func (m Money) Add(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

// Sub subtracts other from the receiver.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}, nil
}

// Total adds items to a zero amount in code, failing on the first item in
// another currency.
func Total(code string, items ...Money) (Money, error) {
	sum := Zero(code)
	for _, item := range items {
		next, err := sum.Add(item)
		if err != nil {
			return Money{}, err
		}
		sum = next
	}
	return sum, nil
}

// Multiply multiplies the amount by the provided factor.
func (m Money) Multiply(times int64) Money {
	return Money{Amount: m.Amount * times, Currency: m.Currency}
}

// Percent returns percent/100 of the amount rounded to the nearest minor unit.
func (m Money) Percent(percent float64) Money {
	return Money{Amount: int64(math.Round(float64(m.Amount) * percent / 100)), Currency: m.Currency}
}

// Divide splits the amount into n parts rounded to the nearest minor unit.
func (m Money) Divide(n int) Money {
	if n <= 0 {
		return Money{Currency: m.Currency}
	}
	return Money{Amount: int64(math.Round(float64(m.Amount) / float64(n))), Currency: m.Currency}
}

// ClampZero replaces negative amounts with zero.
func (m Money) ClampZero() Money {
	if m.Amount < 0 {
		return Money{Currency: m.Currency}
	}
	return m
}

// IsZero returns true if the amount equals zero.
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// String renders the amount with two decimals and no symbol, e.g. "4482.24".
func (m Money) String() string {
	sign := ""
	amount := m.Amount
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}

var printer = message.NewPrinter(language.English)

// Format renders the amount with its currency symbol and grouped digits, e.g. "$4,482.24".
func (m Money) Format() string {
	sign := ""
	amount := m.Amount
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return sign + Symbol(m.Currency) + printer.Sprintf("%d", amount/100) + fmt.Sprintf(".%02d", amount%100)
}

func (m Money) ensureSameCurrency(other Money) error {
	if m.Currency == "" || other.Currency == "" {
		return ErrInvalidCurrency
	}
	if m.Currency != other.Currency {
		return ErrCurrencyMismatch
	}
	return nil
}

// Symbol returns the English CLDR symbol for code ("$", "€", "CA$"). Codes
// without a symbol render as the ISO code followed by a space.
func Symbol(code string) string {
	unit, err := currency.ParseISO(NormalizeCurrency(code))
	if err != nil {
		unit = currency.USD
	}
	sym := printer.Sprint(currency.Symbol(unit))
	if last, _ := utf8.DecodeLastRuneInString(sym); unicode.IsLetter(last) {
		sym += " "
	}
	return sym
}
