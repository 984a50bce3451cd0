package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// ValueKind discriminates the wire forms an answer value can take.
type ValueKind int

const (
	ValueEmpty ValueKind = iota
	ValueText
	ValueNumber
	ValueList
)

// AnswerValue holds either a single scalar (text, textarea, radio, yesno,
// scale) or an ordered list of selected option ids (checkbox). The JSON form
// is the scalar itself or a plain array, matching the document format.
type AnswerValue struct {
	Kind   ValueKind
	Text   string
	Number float64
	List   []string
}

func TextValue(s string) AnswerValue      { return AnswerValue{Kind: ValueText, Text: s} }
func NumberValue(n float64) AnswerValue   { return AnswerValue{Kind: ValueNumber, Number: n} }
func ListValue(ids ...string) AnswerValue { return AnswerValue{Kind: ValueList, List: ids} }

// String renders the value for tabular export: the scalar stringified, list
// elements joined with "; ", or the empty string.
func (v AnswerValue) String() string {
	switch v.Kind {
	case ValueText:
		return v.Text
	case ValueNumber:
		return formatNumber(v.Number)
	case ValueList:
		return strings.Join(v.List, "; ")
	}
	return ""
}

// IsEmpty reports whether the value carries no data at all.
func (v AnswerValue) IsEmpty() bool {
	return v.Kind == ValueEmpty || (v.Kind == ValueText && v.Text == "") || (v.Kind == ValueList && len(v.List) == 0)
}

func (v AnswerValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueNumber:
		return []byte(formatNumber(v.Number)), nil
	case ValueList:
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	default:
		return json.Marshal(v.Text)
	}
}

// UnmarshalJSON accepts a string, a number, or an array of option ids.
// Imported documents are untrusted; shapes outside the contract decode as
// empty values instead of failing the whole document.
func (v *AnswerValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*v = AnswerValue{}
		return nil
	}
	switch data[0] {
	case '[':
		var raw []any
		if err := json.Unmarshal(data, &raw); err != nil {
			*v = AnswerValue{}
			return nil
		}
		list := make([]string, 0, len(raw))
		for _, e := range raw {
			switch t := e.(type) {
			case string:
				list = append(list, t)
			case float64:
				list = append(list, formatNumber(t))
			}
		}
		*v = AnswerValue{Kind: ValueList, List: list}
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*v = AnswerValue{}
			return nil
		}
		*v = AnswerValue{Kind: ValueText, Text: s}
	case 't', 'f':
		*v = AnswerValue{Kind: ValueText, Text: string(data)}
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			*v = AnswerValue{}
			return nil
		}
		*v = AnswerValue{Kind: ValueNumber, Number: n}
	}
	return nil
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
