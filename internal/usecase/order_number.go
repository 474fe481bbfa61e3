package usecase

import (
	"context"
	"fmt"

	"backoffice/internal/domain/apperr"

	"github.com/samber/lo"
)

const (
	orderNumberPrefix     = "TRX"
	orderNumberRandLen    = 10
	orderNumberFallbackN  = 5
	orderNumberMaxRetries = 5
)

var upperAlnum = append(append([]rune{}, lo.UpperCaseLettersCharset...), lo.NumbersCharset...)

// OrderNumberGeneratorは TRX-YYYYMMDD-XXXXXXXXXX を作る。
// 既存と重なったら作り直し、それでもだめなら時刻を細かくした番号にする。
type OrderNumberGenerator struct {
	clock      Clock
	random     func(n int) string
	maxRetries int
}

func NewOrderNumberGenerator(clock Clock) *OrderNumberGenerator {
	return &OrderNumberGenerator{
		clock:      clock,
		random:     func(n int) string { return lo.RandomString(n, upperAlnum) },
		maxRetries: orderNumberMaxRetries,
	}
}

// WithRandomは乱数部分を差し替える（テスト用）
func (g *OrderNumberGenerator) WithRandom(fn func(n int) string) *OrderNumberGenerator {
	g.random = fn
	return g
}

func (g *OrderNumberGenerator) Generate(ctx context.Context, exists func(ctx context.Context, number string) (bool, error)) (string, error) {
	now := g.clock.Now()
	for i := 0; i < g.maxRetries; i++ {
		n := fmt.Sprintf("%s-%s-%s", orderNumberPrefix, now.Format("20060102"), g.random(orderNumberRandLen))
		found, err := exists(ctx, n)
		if err != nil {
			return "", apperr.Internal(err)
		}
		if !found {
			return n, nil
		}
	}
	// YmdHisu
	stamp := fmt.Sprintf("%s%06d", now.Format("20060102150405"), now.Nanosecond()/1000)
	return fmt.Sprintf("%s-%s-%s", orderNumberPrefix, stamp, g.random(orderNumberFallbackN)), nil
}
