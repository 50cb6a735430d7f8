package order

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Normalize turns a raw provider delivery into a Fragment. It is pure: the
// same bytes always yield the same Fragment or the same *ValidationError.
//
// Required fields are formId, status, amount and currency. Optional sections
// that fail to parse are dropped and recorded in Fragment.Warnings.
func Normalize(raw []byte) (Fragment, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return Fragment{}, &ValidationError{Field: "payload", Code: CodeMalformed, Reason: err.Error()}
	}

	var f Fragment

	if f.FormID, err = requiredKey(fields, "formId"); err != nil {
		return Fragment{}, err
	}
	if f.ProviderStatus, err = requiredString(fields, "status"); err != nil {
		return Fragment{}, err
	}
	f.Status = MapProviderStatus(f.ProviderStatus)

	if f.Amount, err = requiredAmount(fields, "amount"); err != nil {
		return Fragment{}, err
	}
	if f.Currency, err = requiredCurrency(fields, "currency"); err != nil {
		return Fragment{}, err
	}

	f.ProviderDocumentID = optionalString(fields, "providerDocumentId", "documentId")
	f.ProviderPaymentID = optionalString(fields, "providerPaymentId", "paymentId", "transactionId")

	custom, customWarning := decodeCustom(fields["custom"])
	if customWarning != "" {
		f.Warnings = append(f.Warnings, customWarning)
	}

	customerRaw := firstPresent(fields["customerInfo"], custom["customerInfo"])
	if customerRaw != nil {
		ci, err := parseCustomerInfo(customerRaw)
		if err != nil {
			f.Warnings = append(f.Warnings, "customerInfo ignored: "+err.Error())
		} else if !ci.empty() {
			f.CustomerInfo = ci
		}
	}

	itemsRaw := firstPresent(fields["items"], custom["items"])
	if itemsRaw != nil {
		items, warnings := parseItems(itemsRaw)
		f.Items = items
		f.Warnings = append(f.Warnings, warnings...)
	}

	if w := reconcileAmount(f.Amount, f.Items); w != "" {
		f.Warnings = append(f.Warnings, w)
	}

	if f.Digest, err = digest(raw); err != nil {
		return Fragment{}, &ValidationError{Field: "payload", Code: CodeMalformed, Reason: err.Error()}
	}

	return f, nil
}

func decodeObject(raw []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, fmt.Errorf("payload must be a JSON object")
	}
	return fields, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func firstPresent(values ...json.RawMessage) json.RawMessage {
	for _, v := range values {
		if !isNull(v) {
			return v
		}
	}
	return nil
}

// scalarString accepts a JSON string or number and returns its text.
func scalarString(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", fmt.Errorf("empty value")
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return "", err
		}
		return n.String(), nil
	default:
		return "", fmt.Errorf("expected string or number")
	}
}

func requiredString(fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return "", missingField(name)
	}
	s, err := scalarString(raw)
	if err != nil {
		return "", invalidField(name, err.Error())
	}
	if s == "" {
		return "", missingField(name)
	}
	return s, nil
}

// requiredKey is requiredString for identifiers. Invalid UTF-8 is rejected
// rather than decoded to U+FFFD, which would merge distinct keys.
func requiredKey(fields map[string]json.RawMessage, name string) (string, error) {
	s, err := requiredString(fields, name)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(fields[name]) || strings.ContainsRune(s, utf8.RuneError) {
		return "", invalidField(name, "not valid UTF-8")
	}
	return s, nil
}

func optionalString(fields map[string]json.RawMessage, names ...string) *string {
	for _, name := range names {
		raw, ok := fields[name]
		if !ok || isNull(raw) {
			continue
		}
		if s, err := scalarString(raw); err == nil && s != "" {
			return &s
		}
	}
	return nil
}

const amountScale = 4

var (
	maxAmount   = decimal.New(1, 18-amountScale)
	maxQuantity = decimal.NewFromInt(math.MaxInt32)
)

func parseDecimal(raw json.RawMessage) (decimal.Decimal, error) {
	s, err := scalarString(raw)
	if err != nil {
		return decimal.Decimal{}, err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("not a decimal number")
	}
	return d, nil
}

func requiredAmount(fields map[string]json.RawMessage, name string) (decimal.Decimal, error) {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return decimal.Decimal{}, missingField(name)
	}
	d, err := parseDecimal(raw)
	if err != nil {
		return decimal.Decimal{}, invalidField(name, err.Error())
	}
	if d.IsNegative() {
		return decimal.Decimal{}, invalidField(name, "must not be negative")
	}
	// stored as NUMERIC(18, 4)
	if !d.Equal(d.Truncate(amountScale)) {
		return decimal.Decimal{}, invalidField(name, fmt.Sprintf("more than %d decimal places", amountScale))
	}
	if d.GreaterThanOrEqual(maxAmount) {
		return decimal.Decimal{}, invalidField(name, "too large")
	}
	return d, nil
}

func requiredCurrency(fields map[string]json.RawMessage, name string) (string, error) {
	s, err := requiredString(fields, name)
	if err != nil {
		return "", err
	}
	code := strings.ToUpper(s)
	if len(code) != 3 {
		return "", invalidField(name, "expected a 3-letter ISO 4217 code")
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", invalidField(name, "expected a 3-letter ISO 4217 code")
		}
	}
	return code, nil
}

// decodeCustom reads the side-channel, which providers send either as an
// object or as a string holding serialized JSON.
func decodeCustom(raw json.RawMessage) (map[string]json.RawMessage, string) {
	if isNull(raw) {
		return nil, ""
	}
	trimmed := bytes.TrimSpace(raw)
	if trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return nil, "custom ignored: " + err.Error()
		}
		if strings.TrimSpace(inner) == "" {
			return nil, ""
		}
		trimmed = []byte(inner)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil || fields == nil {
		return nil, "custom ignored: not a JSON object"
	}
	return fields, ""
}

func parseCustomerInfo(raw json.RawMessage) (*CustomerInfo, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("not a JSON object")
	}
	pick := func(names ...string) string {
		if s := optionalString(fields, names...); s != nil {
			return *s
		}
		return ""
	}
	return &CustomerInfo{
		Name:    pick("name", "fullName"),
		Email:   pick("email"),
		Phone:   pick("phone"),
		Address: pick("address"),
		City:    pick("city"),
		Zip:     pick("zip", "zipCode"),
		Country: pick("country"),
	}, nil
}

func parseItems(raw json.RawMessage) ([]Item, []string) {
	var rawItems []json.RawMessage
	if err := json.Unmarshal(raw, &rawItems); err != nil {
		return nil, []string{"items ignored: not a JSON array"}
	}

	items := make([]Item, 0, len(rawItems))
	var warnings []string
	for i, ri := range rawItems {
		item, err := parseItem(ri)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("items[%d] ignored: %s", i, err))
			continue
		}
		items = append(items, item)
	}
	return items, warnings
}

func parseItem(raw json.RawMessage) (Item, error) {
	fields, err := decodeObject(raw)
	if err != nil {
		return Item{}, fmt.Errorf("not a JSON object")
	}

	name := optionalString(fields, "nameLocalized", "name", "title")
	if name == nil {
		return Item{}, fmt.Errorf("missing name")
	}

	item := Item{Name: *name, Quantity: 1}

	if q := fields["quantity"]; !isNull(q) {
		d, err := parseDecimal(q)
		if err != nil || !d.IsInteger() || d.IsNegative() || d.GreaterThan(maxQuantity) {
			return Item{}, fmt.Errorf("invalid quantity")
		}
		item.Quantity = int(d.IntPart())
	}

	priceRaw := firstPresent(fields["unitPrice"], fields["price"])
	if priceRaw == nil {
		return Item{}, fmt.Errorf("missing unitPrice")
	}
	if item.UnitPrice, err = parseDecimal(priceRaw); err != nil {
		return Item{}, fmt.Errorf("invalid unitPrice")
	}

	return item, nil
}

func reconcileAmount(amount decimal.Decimal, items []Item) string {
	if len(items) == 0 {
		return ""
	}
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Total())
	}
	if total.Equal(amount) {
		return ""
	}
	return fmt.Sprintf("items total %s does not match amount %s", total.String(), amount.String())
}

// digest hashes the canonical re-encoding of the payload (sorted keys, no
// insignificant whitespace) so a re-serialized redelivery hashes the same.
func digest(raw []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", err
	}
	canonical, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
