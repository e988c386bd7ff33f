package reconstruct

import (
	"regexp"
	"strconv"
	"strings"
)

// identifierDigits is the digit count at which a bare run stops looking like
// money and starts looking like an account or reference number.
const identifierDigits = 11

var amountTokenRe = regexp.MustCompile(`-?\d[\d,]*(\.\d+)?`)

// ExtractAmount locates the amount in noisy OCR cell text. Tokens that look
// money-like (decimal point or thousands commas) are preferred over bare
// digit runs; digit-only runs of identifierDigits or more are treated as
// identifiers and discarded; the last surviving token in reading order wins.
// A value wrapped in parentheses is negated. Returns false when no valid
// token remains; callers must leave the raw text alone, not coerce to 0.
func ExtractAmount(text string) (float64, bool) {
	locs := amountTokenRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return 0, false
	}

	type candidate struct {
		token     string
		moneyLike bool
		digits    int
		decimal   bool
		negated   bool
	}

	cands := make([]candidate, 0, len(locs))
	for _, loc := range locs {
		token := text[loc[0]:loc[1]]
		digits := 0
		for _, r := range token {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		cands = append(cands, candidate{
			token:     token,
			moneyLike: strings.ContainsAny(token, ".,"),
			digits:    digits,
			decimal:   strings.Contains(token, "."),
			negated:   parenthesized(text, loc[0], loc[1]),
		})
	}

	anyMoney := false
	for _, c := range cands {
		if c.moneyLike {
			anyMoney = true
			break
		}
	}

	var picked *candidate
	for i := range cands {
		c := &cands[i]
		if anyMoney && !c.moneyLike {
			continue
		}
		if !c.decimal && c.digits >= identifierDigits {
			continue
		}
		picked = c
	}
	if picked == nil {
		return 0, false
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(picked.token, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	if picked.negated && value > 0 {
		value = -value
	}
	return value, true
}

// parenthesized reports whether the token at [start,end) is wrapped in
// parentheses, the accounting convention for negative amounts.
func parenthesized(text string, start, end int) bool {
	open := false
	for i := start - 1; i >= 0; i-- {
		c := text[i]
		if c == '(' {
			open = true
			break
		}
		if c != ' ' && c != '$' {
			return false
		}
	}
	if !open {
		return false
	}
	for i := end; i < len(text); i++ {
		c := text[i]
		if c == ')' {
			return true
		}
		if c != ' ' {
			return false
		}
	}
	return false
}

// FormatAmount renders an extracted amount the way statements print them,
// two decimal places, no thousands separators.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
