package ics

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ValueKind tags the variants of the typed value union. The VALUE parameter
// on a property overrides the default kind implied by the property name;
// VALUE=DATE collapses into the DateTime variant with HasTime=false.
type ValueKind int

const (
	ValueKindUnknown ValueKind = iota
	ValueKindText
	ValueKindInteger
	ValueKindFloat
	ValueKindBoolean
	ValueKindURI
	ValueKindCalAddress
	ValueKindBinary
	ValueKindDateTime
	ValueKindTime
	ValueKindDuration
	ValueKindPeriod
	ValueKindUTCOffset
	ValueKindRecur
	ValueKindDaySpecifier
	ValueKindGeo
	ValueKindRequestStatus
)

// Value is one typed property value. String returns the canonical iCalendar
// serialization of the value; parsing that serialization yields an equal
// value.
type Value interface {
	Kind() ValueKind
	String() string
	EqualValue(other Value) bool
}

// TextValue holds an unescaped TEXT value.
type TextValue struct {
	Text string
}

func (v TextValue) Kind() ValueKind { return ValueKindText }
func (v TextValue) String() string  { return ToText(v.Text) }
func (v TextValue) EqualValue(other Value) bool {
	o, ok := other.(TextValue)
	return ok && o.Text == v.Text
}

type IntegerValue struct {
	Int int64
}

func (v IntegerValue) Kind() ValueKind { return ValueKindInteger }
func (v IntegerValue) String() string  { return strconv.FormatInt(v.Int, 10) }
func (v IntegerValue) EqualValue(other Value) bool {
	o, ok := other.(IntegerValue)
	return ok && o.Int == v.Int
}

type FloatValue struct {
	Float float64
}

func (v FloatValue) Kind() ValueKind { return ValueKindFloat }
func (v FloatValue) String() string  { return strconv.FormatFloat(v.Float, 'f', -1, 64) }
func (v FloatValue) EqualValue(other Value) bool {
	o, ok := other.(FloatValue)
	return ok && o.Float == v.Float
}

type BooleanValue struct {
	Bool bool
}

func (v BooleanValue) Kind() ValueKind { return ValueKindBoolean }
func (v BooleanValue) String() string {
	if v.Bool {
		return "TRUE"
	}
	return "FALSE"
}
func (v BooleanValue) EqualValue(other Value) bool {
	o, ok := other.(BooleanValue)
	return ok && o.Bool == v.Bool
}

type URIValue struct {
	URI string
}

func (v URIValue) Kind() ValueKind { return ValueKindURI }
func (v URIValue) String() string  { return v.URI }
func (v URIValue) EqualValue(other Value) bool {
	o, ok := other.(URIValue)
	return ok && o.URI == v.URI
}

// CalAddressValue is a calendar user address, normally a mailto: URI.
type CalAddressValue struct {
	Address string
}

func (v CalAddressValue) Kind() ValueKind { return ValueKindCalAddress }
func (v CalAddressValue) String() string  { return v.Address }
func (v CalAddressValue) EqualValue(other Value) bool {
	o, ok := other.(CalAddressValue)
	return ok && o.Address == v.Address
}

// Email returns the address without its mailto: prefix.
func (v CalAddressValue) Email() string {
	return strings.TrimPrefix(v.Address, "mailto:")
}

// BinaryValue holds decoded inline binary data (ENCODING=BASE64).
type BinaryValue struct {
	Data []byte
}

func (v BinaryValue) Kind() ValueKind { return ValueKindBinary }
func (v BinaryValue) String() string  { return base64.StdEncoding.EncodeToString(v.Data) }
func (v BinaryValue) EqualValue(other Value) bool {
	o, ok := other.(BinaryValue)
	if !ok || len(o.Data) != len(v.Data) {
		return false
	}
	for i := range v.Data {
		if v.Data[i] != o.Data[i] {
			return false
		}
	}
	return true
}

// GeoValue is a latitude;longitude pair.
type GeoValue struct {
	Lat float64
	Lon float64
}

func (v GeoValue) Kind() ValueKind { return ValueKindGeo }
func (v GeoValue) String() string {
	return strconv.FormatFloat(v.Lat, 'f', -1, 64) + ";" + strconv.FormatFloat(v.Lon, 'f', -1, 64)
}
func (v GeoValue) EqualValue(other Value) bool {
	o, ok := other.(GeoValue)
	return ok && o.Lat == v.Lat && o.Lon == v.Lon
}

// RequestStatusValue is a REQUEST-STATUS triple: statcode;statdesc[;exdata].
type RequestStatusValue struct {
	Code        string
	Description string
	ExtraData   string
}

func (v RequestStatusValue) Kind() ValueKind { return ValueKindRequestStatus }
func (v RequestStatusValue) String() string {
	s := v.Code + ";" + ToText(v.Description)
	if v.ExtraData != "" {
		s += ";" + ToText(v.ExtraData)
	}
	return s
}
func (v RequestStatusValue) EqualValue(other Value) bool {
	o, ok := other.(RequestStatusValue)
	return ok && o == v
}

// defaultValueKind is the static schema mapping a property name to the value
// kind it carries when no VALUE parameter overrides it (RFC 5545 section 3.8).
var defaultValueKind = map[Property]ValueKind{
	PropertyDtstart:      ValueKindDateTime,
	PropertyDtend:        ValueKindDateTime,
	PropertyDue:          ValueKindDateTime,
	PropertyCompleted:    ValueKindDateTime,
	PropertyCreated:      ValueKindDateTime,
	PropertyDtstamp:      ValueKindDateTime,
	PropertyLastModified: ValueKindDateTime,
	PropertyRecurrenceId: ValueKindDateTime,
	PropertyExdate:       ValueKindDateTime,
	PropertyRdate:        ValueKindDateTime,
	PropertyDuration:     ValueKindDuration,
	PropertyTrigger:      ValueKindDuration,
	PropertyRrule:        ValueKindRecur,
	PropertyExrule:       ValueKindRecur,
	PropertyAttendee:     ValueKindCalAddress,
	PropertyOrganizer:    ValueKindCalAddress,
	PropertyGeo:          ValueKindGeo,
	PropertyPercentComplete: ValueKindInteger,
	PropertyPriority:        ValueKindInteger,
	PropertyRepeat:          ValueKindInteger,
	PropertySequence:        ValueKindInteger,
	PropertyFreebusy:        ValueKindPeriod,
	PropertyTzoffsetfrom:    ValueKindUTCOffset,
	PropertyTzoffsetto:      ValueKindUTCOffset,
	PropertyUrl:             ValueKindURI,
	PropertyTzurl:           ValueKindURI,
	PropertyAttach:          ValueKindURI,
	PropertyRequestStatus:   ValueKindRequestStatus,
}

// valueKindByName maps VALUE parameter names to kinds. DATE is absent on
// purpose: it resolves to the DateTime kind with the date-only flag, handled
// in valueKindFor.
var valueKindByName = map[ValueDataType]ValueKind{
	ValueDataTypeBinary:     ValueKindBinary,
	ValueDataTypeBoolean:    ValueKindBoolean,
	ValueDataTypeCalAddress: ValueKindCalAddress,
	ValueDataTypeDateTime:   ValueKindDateTime,
	ValueDataTypeDuration:   ValueKindDuration,
	ValueDataTypeFloat:      ValueKindFloat,
	ValueDataTypeInteger:    ValueKindInteger,
	ValueDataTypePeriod:     ValueKindPeriod,
	ValueDataTypeRecur:      ValueKindRecur,
	ValueDataTypeText:       ValueKindText,
	ValueDataTypeTime:       ValueKindTime,
	ValueDataTypeUri:        ValueKindURI,
	ValueDataTypeUtcOffset:  ValueKindUTCOffset,
}

// valueKindFor resolves the value kind for a property: the property-name
// default first, then the VALUE parameter override. dateOnly reports whether
// VALUE=DATE collapsed into the DateTime kind.
func valueKindFor(property *BaseProperty) (kind ValueKind, dateOnly bool) {
	kind = defaultValueKind[Property(strings.ToUpper(property.IANAToken))]
	if kind == ValueKindUnknown {
		kind = ValueKindText
	}
	if vs := property.GetParameter(ParameterValue); len(vs) == 1 {
		name := ValueDataType(strings.ToUpper(vs[0]))
		if name == ValueDataTypeDate {
			return ValueKindDateTime, true
		}
		if k, ok := valueKindByName[name]; ok {
			return k, false
		}
	}
	return kind, false
}

// multiValued reports whether the property's wire value is a comma-separated
// list of values of its kind.
func multiValued(p Property) bool {
	switch p {
	case PropertyExdate, PropertyRdate, PropertyFreebusy, PropertyCategories, PropertyResources:
		return true
	}
	return false
}

// parseTypedValues interprets the property's raw value against the schema,
// returning one typed value per wire value.
func parseTypedValues(property *BaseProperty) ([]Value, error) {
	kind, dateOnly := valueKindFor(property)
	tzid := ""
	if vs := property.GetParameter(ParameterTzid); len(vs) > 0 {
		if len(vs) != 1 {
			return nil, fmt.Errorf("expected only one TZID")
		}
		tzid = vs[0]
	}

	raws := []string{property.Value}
	if multiValued(Property(strings.ToUpper(property.IANAToken))) {
		raws = splitUnescaped(property.Value, ',')
	}

	values := make([]Value, 0, len(raws))
	for _, raw := range raws {
		v, err := parseValue(kind, raw, tzid, dateOnly)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

func parseValue(kind ValueKind, raw, tzid string, dateOnly bool) (Value, error) {
	switch kind {
	case ValueKindText:
		return TextValue{Text: FromText(raw)}, nil
	case ValueKindInteger:
		i, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad integer %q", raw)
		}
		return IntegerValue{Int: i}, nil
	case ValueKindFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("bad float %q", raw)
		}
		return FloatValue{Float: f}, nil
	case ValueKindBoolean:
		switch strings.ToUpper(raw) {
		case "TRUE":
			return BooleanValue{Bool: true}, nil
		case "FALSE":
			return BooleanValue{Bool: false}, nil
		}
		return nil, fmt.Errorf("bad boolean %q", raw)
	case ValueKindURI:
		if _, err := url.Parse(raw); err != nil {
			return nil, fmt.Errorf("bad uri %q: %w", raw, err)
		}
		return URIValue{URI: raw}, nil
	case ValueKindCalAddress:
		return CalAddressValue{Address: raw}, nil
	case ValueKindBinary:
		data, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("bad base64 data: %w", err)
		}
		return BinaryValue{Data: data}, nil
	case ValueKindDateTime:
		dt, err := ParseDateTimeValue(raw, tzid, dateOnly)
		if err != nil {
			return nil, err
		}
		return dt, nil
	case ValueKindTime:
		t, err := ParseTimeValue(raw)
		if err != nil {
			return nil, err
		}
		return t, nil
	case ValueKindDuration:
		d, err := ParseDurationValue(raw)
		if err != nil {
			return nil, err
		}
		return d, nil
	case ValueKindPeriod:
		p, err := ParsePeriodValue(raw, tzid)
		if err != nil {
			return nil, err
		}
		return p, nil
	case ValueKindUTCOffset:
		o, err := ParseUTCOffsetValue(raw)
		if err != nil {
			return nil, err
		}
		return o, nil
	case ValueKindRecur:
		r, err := ParseRecur(raw)
		if err != nil {
			return nil, err
		}
		return r, nil
	case ValueKindGeo:
		return parseGeoValue(raw)
	case ValueKindRequestStatus:
		return parseRequestStatusValue(raw)
	}
	return nil, fmt.Errorf("no parser for value kind %d", kind)
}

func parseGeoValue(raw string) (Value, error) {
	parts := strings.SplitN(raw, ";", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("geo value %q is not lat;lon", raw)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, fmt.Errorf("bad latitude %q", parts[0])
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, fmt.Errorf("bad longitude %q", parts[1])
	}
	return GeoValue{Lat: lat, Lon: lon}, nil
}

func parseRequestStatusValue(raw string) (Value, error) {
	parts := splitUnescaped(raw, ';')
	if len(parts) < 2 {
		return nil, fmt.Errorf("request status %q is not statcode;statdesc", raw)
	}
	v := RequestStatusValue{
		Code:        parts[0],
		Description: FromText(parts[1]),
	}
	if len(parts) > 2 {
		v.ExtraData = FromText(strings.Join(parts[2:], ";"))
	}
	return v, nil
}
