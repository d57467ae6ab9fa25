package decision

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"autotrade_go/internal/domain"

	"github.com/shopspring/decimal"
)

// rawDecision is the model's JSON. "action" is accepted as an alias of "decision".
type rawDecision struct {
	Decision   string           `json:"decision"`
	Action     string           `json:"action"`
	Percentage *decimal.Decimal `json:"percentage"`
	Reason     string           `json:"reason"`
}

// StripFence removes one leading ```json or ``` fence and one trailing ```.
func StripFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
			s = s[4:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseDecision parses a single decision object.
func ParseDecision(raw string) (domain.Decision, error) {
	body := StripFence(raw)
	if body == "" {
		return domain.Decision{}, fmt.Errorf("%w: empty reply", domain.ErrMalformedDecision)
	}
	return decode([]byte(body))
}

// ParseDecisionSet parses a symbol-keyed mapping of decisions. Symbols are
// upper-cased; keys that fold to the same symbol ("btc" and "BTC") are
// ambiguous and both are dropped. Entries that fail validation are returned
// in the error map; the returned error is set only when the document itself
// is unusable.
func ParseDecisionSet(raw string) (map[string]domain.Decision, map[string]error, error) {
	body := StripFence(raw)
	if body == "" {
		return nil, nil, fmt.Errorf("%w: empty reply", domain.ErrMalformedDecision)
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &entries); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrMalformedDecision, err)
	}

	keys := make(map[string][]string, len(entries))
	for key := range entries {
		symbol := strings.ToUpper(strings.TrimSpace(key))
		keys[symbol] = append(keys[symbol], key)
	}

	decisions := make(map[string]domain.Decision, len(entries))
	failures := make(map[string]error)
	for symbol, dup := range keys {
		if len(dup) > 1 {
			sort.Strings(dup)
			failures[symbol] = fmt.Errorf("%w: conflicting keys %s", domain.ErrMalformedDecision, strings.Join(dup, ", "))
			continue
		}
		d, err := decode(entries[dup[0]])
		if err != nil {
			failures[symbol] = err
			continue
		}
		decisions[symbol] = d
	}
	return decisions, failures, nil
}

func decode(data []byte) (domain.Decision, error) {
	var rd rawDecision
	if err := json.Unmarshal(data, &rd); err != nil {
		return domain.Decision{}, fmt.Errorf("%w: %v", domain.ErrMalformedDecision, err)
	}

	action := rd.Decision
	if action == "" {
		action = rd.Action
	}
	if rd.Percentage == nil {
		if _, err := domain.ParseAction(action); err != nil {
			return domain.Decision{}, err
		}
		return domain.Decision{}, fmt.Errorf("%w: missing percentage", domain.ErrMalformedDecision)
	}
	return domain.NewDecision(action, *rd.Percentage, rd.Reason)
}
