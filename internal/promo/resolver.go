package promo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grosirin/backend-grosir/internal/pricing"
)

// Resolver maps a promotional code to its rule. Lookup failure must leave
// the caller's cart untouched, so implementations only ever read.
type Resolver interface {
	Resolve(ctx context.Context, code string) (Rule, error)
}

// StaticResolver serves rules from an in-memory table, typically parsed from
// configuration. Codes match case-insensitively.
type StaticResolver struct {
	Rules map[string]Rule
}

// Resolve implements Resolver.
func (s StaticResolver) Resolve(_ context.Context, code string) (Rule, error) {
	rule, ok := s.Rules[normalizeCode(code)]
	if !ok {
		return Rule{}, ErrUnknownCode
	}
	return rule, nil
}

// ParseStatic builds a rule table from a "CODE:bps[:minSpend]" list, e.g.
// "WELCOME10:1000,BULK5:500:250000".
func ParseStatic(list string) (map[string]Rule, error) {
	rules := map[string]Rule{}
	for _, raw := range strings.Split(list, ",") {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) < 2 {
			return nil, fmt.Errorf("malformed promo entry %q", entry)
		}
		code := normalizeCode(parts[0])
		if code == "" {
			return nil, fmt.Errorf("malformed promo entry %q", entry)
		}
		bps, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 32)
		if err != nil || bps <= 0 || bps >= 10000 {
			return nil, fmt.Errorf("promo %s: discount must be 1-9999 bps", code)
		}
		rule := Rule{Code: code, DiscountBps: int32(bps)}
		if len(parts) > 2 {
			minSpend, err := strconv.ParseInt(strings.TrimSpace(parts[2]), 10, 64)
			if err != nil || minSpend < 0 {
				return nil, fmt.Errorf("promo %s: invalid minimum spend", code)
			}
			rule.MinSpend = pricing.Money(minSpend)
		}
		rules[code] = rule
	}
	return rules, nil
}

// PGResolver reads promotional codes from Postgres.
type PGResolver struct {
	Pool *pgxpool.Pool
}

// Resolve implements Resolver against the promo_codes table.
func (p PGResolver) Resolve(ctx context.Context, code string) (Rule, error) {
	if p.Pool == nil {
		return Rule{}, errors.New("promo resolver not configured")
	}
	const query = `
		SELECT code, discount_bps, min_spend, valid_from, valid_to
		FROM promo_codes
		WHERE code = $1`
	row := p.Pool.QueryRow(ctx, query, normalizeCode(code))
	var rule Rule
	if err := row.Scan(&rule.Code, &rule.DiscountBps, &rule.MinSpend, &rule.ValidFrom, &rule.ValidTo); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Rule{}, ErrUnknownCode
		}
		return Rule{}, fmt.Errorf("resolve promo code: %w", err)
	}
	return rule, nil
}

// ChainResolver tries each resolver in order, falling through on unknown
// codes only. Used to layer config-defined codes over the database table.
type ChainResolver []Resolver

// Resolve implements Resolver.
func (c ChainResolver) Resolve(ctx context.Context, code string) (Rule, error) {
	for _, r := range c {
		rule, err := r.Resolve(ctx, code)
		if err == nil {
			return rule, nil
		}
		if !errors.Is(err, ErrUnknownCode) {
			return Rule{}, err
		}
	}
	return Rule{}, ErrUnknownCode
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
