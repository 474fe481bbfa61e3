package money

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// 小数点以下の桁数（常に2桁）
const Scale = 2

var (
	ErrNegative      = errors.New("money must not be negative")
	ErrTooManyDigits = errors.New("money allows at most 2 fraction digits")
	ErrTooLarge      = errors.New("money exceeds 999999999999.99")
)

// Moneyは0以上の固定小数点の金額。
// 内部はdecimalで持ち、floatの丸め誤差を出さない。
type Money struct {
	d decimal.Decimal
}

var Zero = Money{}

// Maxはnumeric(14,2)に入る最大値
var Max = Money{d: decimal.New(99999999999999, -Scale)}

// Newはdecimalから金額を作る（負数・3桁以上の小数・Max超えはエラー）
func New(d decimal.Decimal) (Money, error) {
	if d.IsNegative() {
		return Money{}, ErrNegative
	}
	if d.Cmp(Max.d) > 0 {
		return Money{}, ErrTooLarge
	}
	if !d.Equal(d.Round(Scale)) {
		return Money{}, ErrTooManyDigits
	}
	return Money{d: d.Round(Scale)}, nil
}

// Parseは"10000.50"のような文字列から作る
func Parse(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, errors.New("money is empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("decimal.NewFromString[%s]: %w", s, err)
	}
	return New(d)
}

// MustParseはテストと定数用
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Decimal() decimal.Decimal { return m.d }

func (m Money) Add(o Money) Money {
	return Money{d: m.d.Add(o.d)}
}

// Mulは数量を掛ける（小計の計算）
func (m Money) Mul(qty int64) (Money, error) {
	if qty < 0 {
		return Money{}, ErrNegative
	}
	return New(m.d.Mul(decimal.NewFromInt(qty)))
}

// AddCheckedはAddと同じだがMaxを超えたらErrTooLarge
func (m Money) AddChecked(o Money) (Money, error) {
	return New(m.d.Add(o.d))
}

func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }

func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }

func (m Money) IsZero() bool { return m.d.IsZero() }

func (m Money) String() string {
	return m.d.StringFixed(Scale)
}

// Formatは表示用（例: "IDR 25000.00"）
func (m Money) Format(unit currency.Unit) string {
	return unit.String() + " " + m.String()
}

// Sumは合計を返す。空なら0。
func Sum(ms ...Money) Money {
	total := Zero
	for _, m := range ms {
		total = total.Add(m)
	}
	return total
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		*m = Zero
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Scanはgormから読み込むとき
func (m *Money) Scan(value interface{}) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return fmt.Errorf("decimal.Scan: %w", err)
	}
	parsed, err := New(d.Round(Scale))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Valueはgormへ書き込むとき
func (m Money) Value() (driver.Value, error) {
	return m.d.StringFixed(Scale), nil
}
