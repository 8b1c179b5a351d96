package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// MetadataKind тип значения метаданных платежа.
type MetadataKind uint8

// Допустимые типы значений метаданных.
const (
	MetadataNull MetadataKind = iota
	MetadataString
	MetadataNumber
	MetadataBool
)

// MetadataValue скалярное значение метаданных: строка, число, булево или null.
type MetadataValue struct {
	kind MetadataKind
	str  string
	num  float64
	b    bool
}

// NullValue пустое значение.
func NullValue() MetadataValue { return MetadataValue{} }

// StringValue строковое значение.
func StringValue(s string) MetadataValue { return MetadataValue{kind: MetadataString, str: s} }

// NumberValue числовое значение.
func NumberValue(n float64) MetadataValue { return MetadataValue{kind: MetadataNumber, num: n} }

// BoolValue булево значение.
func BoolValue(b bool) MetadataValue { return MetadataValue{kind: MetadataBool, b: b} }

// Kind возвращает тип значения.
func (v MetadataValue) Kind() MetadataKind { return v.kind }

// Str возвращает строку и признак того, что значение строковое.
func (v MetadataValue) Str() (string, bool) { return v.str, v.kind == MetadataString }

// Number возвращает число и признак того, что значение числовое.
func (v MetadataValue) Number() (float64, bool) { return v.num, v.kind == MetadataNumber }

// Bool возвращает булево и признак того, что значение булево.
func (v MetadataValue) Bool() (bool, bool) { return v.b, v.kind == MetadataBool }

func (v MetadataValue) String() string {
	switch v.kind {
	case MetadataString:
		return v.str
	case MetadataNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case MetadataBool:
		return strconv.FormatBool(v.b)
	default:
		return "null"
	}
}

// MarshalJSON кодирует значение как JSON-скаляр.
func (v MetadataValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case MetadataString:
		return json.Marshal(v.str)
	case MetadataNumber:
		return json.Marshal(v.num)
	case MetadataBool:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON принимает любой JSON; объекты и массивы сохраняются строкой.
func (v *MetadataValue) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*v = normalizeValue(raw)
	return nil
}

// Metadata нормализованные метаданные платежа.
type Metadata map[string]MetadataValue

// NormalizeMetadata оставляет скалярные значения как есть, а вложенные
// структуры (объекты, массивы) сериализует в JSON-строку.
func NormalizeMetadata(raw map[string]any) Metadata {
	if len(raw) == 0 {
		return Metadata{}
	}
	res := make(Metadata, len(raw))
	for k, val := range raw {
		res[k] = normalizeValue(val)
	}
	return res
}

func normalizeValue(val any) MetadataValue {
	switch x := val.(type) {
	case nil:
		return NullValue()
	case string:
		return StringValue(x)
	case bool:
		return BoolValue(x)
	case float64:
		return numberOrString(x)
	case float32:
		return numberOrString(float64(x))
	case int:
		return NumberValue(float64(x))
	case int32:
		return NumberValue(float64(x))
	case int64:
		return NumberValue(float64(x))
	case uint:
		return NumberValue(float64(x))
	case uint32:
		return NumberValue(float64(x))
	case uint64:
		return NumberValue(float64(x))
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return StringValue(x.String())
		}
		return numberOrString(f)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return StringValue(fmt.Sprint(x))
		}
		return StringValue(string(b))
	}
}

func numberOrString(f float64) MetadataValue {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return StringValue(strconv.FormatFloat(f, 'f', -1, 64))
	}
	return NumberValue(f)
}

// Value реализует driver.Valuer для колонки jsonb.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(map[string]MetadataValue(m))
	if err != nil {
		return nil, fmt.Errorf("models.Metadata.Value: %w", err)
	}
	return b, nil
}

// Scan реализует sql.Scanner для колонки jsonb.
func (m *Metadata) Scan(src any) error {
	var data []byte
	switch s := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		data = s
	case string:
		data = []byte(s)
	default:
		return fmt.Errorf("models.Metadata.Scan: unsupported type %T", src)
	}
	res := Metadata{}
	if err := json.Unmarshal(data, (*map[string]MetadataValue)(&res)); err != nil {
		return fmt.Errorf("models.Metadata.Scan: %w", err)
	}
	*m = res
	return nil
}
