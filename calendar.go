package ics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Calendar represents a VCALENDAR object.  RFC 5545 section 3.6 says:
// "A 'VCALENDAR' object MUST include the 'PRODID' and 'VERSION' properties" and
// it must contain at least one component such as VEVENT.  NewCalendar and
// NewCalendarFor create a calendar populated with those required fields.
type Calendar struct {
	Components         []Component
	CalendarProperties []CalendarProperty

	tzReg    *TimeZoneRegistry
	logger   *zap.Logger
	resolver TimeZoneResolver
}

// NewCalendar returns a basic Calendar using a default product identifier.
func NewCalendar() *Calendar {
	return NewCalendarFor("ical")
}

// NewCalendarFor constructs a Calendar for the given service.  The VERSION
// property is set to "2.0" as defined in RFC 5545 section 3.7.4 and PRODID is
// populated using the provided service identifier per section 3.7.3.
func NewCalendarFor(service string) *Calendar {
	c := &Calendar{
		Components:         []Component{},
		CalendarProperties: []CalendarProperty{},
	}
	c.SetVersion("2.0")
	c.SetProductId("-//" + service + "//Golang ICS Library")
	return c
}

func (cal *Calendar) Serialize(ops ...any) string {
	b := &strings.Builder{}
	// We are intentionally ignoring the return value. _ used to communicate this to lint.
	_ = cal.SerializeTo(b, ops...)
	return b.String()
}

type WithLineLength int
type WithNewLine string

func (cal *Calendar) SerializeTo(w io.Writer, ops ...any) error {
	serializeConfig, err := parseSerializeOps(ops)
	if err != nil {
		return err
	}
	_, _ = io.WriteString(w, "BEGIN:VCALENDAR"+serializeConfig.NewLine)
	for i := range cal.CalendarProperties {
		err := cal.CalendarProperties[i].serialize(w, serializeConfig)
		if err != nil {
			return err
		}
	}
	for _, c := range cal.Components {
		err := c.SerializeTo(w, serializeConfig)
		if err != nil {
			return err
		}
	}
	_, err = io.WriteString(w, "END:VCALENDAR"+serializeConfig.NewLine)
	return err
}

// SerializationConfiguration controls how calendars and components are written
// out.  MaxLength and PropertyMaxLength correspond to the 75 octet line length
// recommendations from RFC 5545 section 3.1.  NewLine selects the line
// termination sequence.
type SerializationConfiguration struct {
	MaxLength         int
	NewLine           string
	PropertyMaxLength int
}

// parseSerializeOps interprets the optional arguments provided to Serialize or
// SerializeTo.  It accepts WithLineLength, WithNewLine or a
// *SerializationConfiguration.  Unsupported types return an error.
func parseSerializeOps(ops []any) (*SerializationConfiguration, error) {
	serializeConfig := defaultSerializationOptions()
	for opi, op := range ops {
		switch op := op.(type) {
		case WithLineLength:
			serializeConfig.MaxLength = int(op)
			serializeConfig.PropertyMaxLength = int(op)
		case WithNewLine:
			serializeConfig.NewLine = string(op)
		case *SerializationConfiguration:
			return op, nil
		case error:
			return nil, op
		default:
			return nil, fmt.Errorf("unknown op %d of type %s", opi, reflect.TypeOf(op))
		}
	}
	return serializeConfig, nil
}

func defaultSerializationOptions() *SerializationConfiguration {
	return &SerializationConfiguration{
		MaxLength:         75,
		PropertyMaxLength: 75,
		NewLine:           string(NewLine),
	}
}

func (cal *Calendar) SetMethod(method Method, params ...PropertyParameter) {
	cal.setProperty(PropertyMethod, string(method), params...)
}

func (cal *Calendar) SetXPublishedTTL(s string, params ...PropertyParameter) {
	cal.setProperty(PropertyXPublishedTTL, s, params...)
}

func (cal *Calendar) SetVersion(s string, params ...PropertyParameter) {
	cal.setProperty(PropertyVersion, s, params...)
}

func (cal *Calendar) SetProductId(s string, params ...PropertyParameter) {
	cal.setProperty(PropertyProductId, s, params...)
}

func (cal *Calendar) SetName(s string, params ...PropertyParameter) {
	cal.setProperty(PropertyName, s, params...)
	cal.setProperty(PropertyXWRCalName, s, params...)
}

func (cal *Calendar) SetColor(s string, params ...PropertyParameter) {
	cal.setProperty(PropertyColor, s, params...)
}

func (cal *Calendar) SetXWRCalName(s string, params ...PropertyParameter) {
	cal.setProperty(PropertyXWRCalName, s, params...)
}

func (cal *Calendar) SetXWRCalDesc(s string, params ...PropertyParameter) {
	cal.setProperty(PropertyXWRCalDesc, s, params...)
}

func (cal *Calendar) SetXWRTimezone(s string, params ...PropertyParameter) {
	cal.setProperty(PropertyXWRTimezone, s, params...)
}

func (cal *Calendar) SetXWRCalID(s string, params ...PropertyParameter) {
	cal.setProperty(PropertyXWRCalID, s, params...)
}

func (cal *Calendar) SetDescription(s string, params ...PropertyParameter) {
	cal.setProperty(PropertyDescription, ToText(s), params...)
}

func (cal *Calendar) SetLastModified(t time.Time, params ...PropertyParameter) {
	cal.setProperty(PropertyLastModified, t.UTC().Format(icalTimestampFormatUtc), params...)
}

func (cal *Calendar) SetRefreshInterval(s string, params ...PropertyParameter) {
	cal.setProperty(PropertyRefreshInterval, s, params...)
}

func (cal *Calendar) SetCalscale(s string, params ...PropertyParameter) {
	cal.setProperty(PropertyCalscale, s, params...)
}

func (cal *Calendar) SetUrl(s string, params ...PropertyParameter) {
	cal.setProperty(PropertyUrl, s, params...)
}

func (cal *Calendar) SetTzid(s string, params ...PropertyParameter) {
	cal.setProperty(PropertyTzid, s, params...)
}

func (cal *Calendar) SetTimezoneId(s string, params ...PropertyParameter) {
	cal.setProperty(PropertyTimezoneId, s, params...)
}

// GetCalendarProperty returns the first calendar-level property with the
// given name, or nil.
func (cal *Calendar) GetCalendarProperty(property Property) *CalendarProperty {
	for i := range cal.CalendarProperties {
		if strings.EqualFold(cal.CalendarProperties[i].IANAToken, string(property)) {
			return &cal.CalendarProperties[i]
		}
	}
	return nil
}

// Version returns the VERSION property value, normally "2.0".
func (cal *Calendar) Version() string {
	if p := cal.GetCalendarProperty(PropertyVersion); p != nil {
		return p.Value
	}
	return ""
}

// ProductId returns the PRODID property value.
func (cal *Calendar) ProductId() string {
	if p := cal.GetCalendarProperty(PropertyProductId); p != nil {
		return p.Value
	}
	return ""
}

// GetMethod returns the METHOD property value.
func (cal *Calendar) GetMethod() Method {
	if p := cal.GetCalendarProperty(PropertyMethod); p != nil {
		return Method(p.Value)
	}
	return ""
}

// Calscale returns the CALSCALE property value; absence implies GREGORIAN.
func (cal *Calendar) Calscale() string {
	if p := cal.GetCalendarProperty(PropertyCalscale); p != nil {
		return p.Value
	}
	return "GREGORIAN"
}

func (cal *Calendar) setProperty(property Property, value string, params ...PropertyParameter) {
	for i := range cal.CalendarProperties {
		if cal.CalendarProperties[i].IANAToken == string(property) {
			cal.CalendarProperties[i].Value = value
			cal.CalendarProperties[i].ICalParameters = map[string][]string{}
			cal.CalendarProperties[i].ParsedValues = nil
			cal.CalendarProperties[i].ValueErr = nil
			for _, p := range params {
				k, v := p.KeyValue()
				cal.CalendarProperties[i].ICalParameters[k] = v
			}
			return
		}
	}
	r := CalendarProperty{
		BaseProperty{
			IANAToken:      string(property),
			Value:          value,
			ICalParameters: map[string][]string{},
		},
	}
	for _, p := range params {
		k, v := p.KeyValue()
		r.ICalParameters[k] = v
	}
	cal.CalendarProperties = append(cal.CalendarProperties, r)
}

func (cal *Calendar) AddEvent(id string) *VEvent {
	e := NewEvent(id)
	cal.Components = append(cal.Components, e)
	return e
}

func (cal *Calendar) AddVEvent(e *VEvent) {
	cal.Components = append(cal.Components, e)
}

func (cal *Calendar) Events() (r []*VEvent) {
	r = []*VEvent{}
	for i := range cal.Components {
		switch event := cal.Components[i].(type) {
		case *VEvent:
			r = append(r, event)
		}
	}
	return
}

func (cal *Calendar) RemoveEvent(id string) {
	for i := range cal.Components {
		switch event := cal.Components[i].(type) {
		case *VEvent:
			if event.Id() == id {
				cal.Components = append(cal.Components[:i], cal.Components[i+1:]...)
				return
			}
		}
	}
}

func (cal *Calendar) AddTodo(id string) *VTodo {
	e := NewTodo(id)
	cal.Components = append(cal.Components, e)
	return e
}

func (cal *Calendar) AddVTodo(e *VTodo) {
	cal.Components = append(cal.Components, e)
}

func (cal *Calendar) Todos() []*VTodo {
	var r []*VTodo
	for i := range cal.Components {
		switch todo := cal.Components[i].(type) {
		case *VTodo:
			r = append(r, todo)
		}
	}
	return r
}

func (cal *Calendar) AddJournal(id string) *VJournal {
	e := NewJournal(id)
	cal.Components = append(cal.Components, e)
	return e
}

func (cal *Calendar) AddVJournal(e *VJournal) {
	cal.Components = append(cal.Components, e)
}

func (cal *Calendar) Journals() []*VJournal {
	var r []*VJournal
	for i := range cal.Components {
		switch journal := cal.Components[i].(type) {
		case *VJournal:
			r = append(r, journal)
		}
	}
	return r
}

func (cal *Calendar) AddBusy(id string) *VBusy {
	e := NewBusy(id)
	cal.Components = append(cal.Components, e)
	return e
}

func (cal *Calendar) AddVBusy(e *VBusy) {
	cal.Components = append(cal.Components, e)
}

func (cal *Calendar) Busys() []*VBusy {
	var r []*VBusy
	for i := range cal.Components {
		switch busy := cal.Components[i].(type) {
		case *VBusy:
			r = append(r, busy)
		}
	}
	return r
}

func (cal *Calendar) AddTimezone(id string) *VTimezone {
	e := NewTimezone(id)
	cal.Components = append(cal.Components, e)
	cal.tzReg = nil
	return e
}

func (cal *Calendar) AddVTimezone(e *VTimezone) {
	cal.Components = append(cal.Components, e)
	cal.tzReg = nil
}

func (cal *Calendar) Timezones() []*VTimezone {
	var r []*VTimezone
	for i := range cal.Components {
		switch timezone := cal.Components[i].(type) {
		case *VTimezone:
			r = append(r, timezone)
		}
	}
	return r
}

// TimezoneByID returns the VTIMEZONE with the given TZID, or nil when the
// calendar does not declare it.
func (cal *Calendar) TimezoneByID(tzid string) *VTimezone {
	for _, tz := range cal.Timezones() {
		if tz.TzID() == tzid {
			return tz
		}
	}
	return nil
}

func (cal *Calendar) AddVAlarm(e *VAlarm) {
	cal.Components = append(cal.Components, e)
}

func (cal *Calendar) Alarms() []*VAlarm {
	var r []*VAlarm
	for i := range cal.Components {
		switch alarm := cal.Components[i].(type) {
		case *VAlarm:
			r = append(r, alarm)
		}
	}
	return r
}

// Merge moves every component of other into cal and consumes other: its
// collections are cleared and the handle must not be reused. Calendar-level
// properties of the receiver win; properties only other carries move across.
// The merge is single-shot and not idempotent.
func (cal *Calendar) Merge(other *Calendar) {
	if other == nil {
		return
	}
	cal.Components = append(cal.Components, other.Components...)
	for i := range other.CalendarProperties {
		if cal.GetCalendarProperty(Property(other.CalendarProperties[i].IANAToken)) == nil {
			cal.CalendarProperties = append(cal.CalendarProperties, other.CalendarProperties[i])
		}
	}
	other.Components = nil
	other.CalendarProperties = nil
	other.tzReg = nil
	cal.tzReg = nil
}

// ParseMode selects how typed-value failures are treated during parsing.
type ParseMode int

const (
	// ParseLenient records a ValueError on the offending property and keeps
	// going. The default.
	ParseLenient ParseMode = iota
	// ParseStrict fails the parse on the first value error and eagerly
	// validates recurrence rules.
	ParseStrict
)

type parseConfig struct {
	mode     ParseMode
	logger   *zap.Logger
	resolver TimeZoneResolver
}

func parseParseOps(ops []any) (*parseConfig, error) {
	cfg := &parseConfig{
		mode:   ParseLenient,
		logger: zap.NewNop(),
	}
	for opi, op := range ops {
		switch op := op.(type) {
		case ParseMode:
			cfg.mode = op
		case *zap.Logger:
			cfg.logger = op
		case TimeZoneResolver:
			cfg.resolver = op
		case error:
			return nil, op
		default:
			return nil, fmt.Errorf("unknown op %d of type %s", opi, reflect.TypeOf(op))
		}
	}
	return cfg, nil
}

// ParseCalendar reads a VCALENDAR object from r.  It implements the grammar
// described in RFC 5545 section 3.4 which states:
//
//	"The iCalendar object MUST begin with the BEGIN property with a value of
//	 VCALENDAR and end with the END property with a value of VCALENDAR."
//
// Lines between those markers are parsed into properties and components.
// Optional arguments: a ParseMode (default ParseLenient), a *zap.Logger for
// diagnostics, and a TimeZoneResolver consulted for TZIDs the document does
// not declare.
func ParseCalendar(r io.Reader, ops ...any) (*Calendar, error) {
	cfg, err := parseParseOps(ops)
	if err != nil {
		return nil, err
	}
	state := "begin"
	c := &Calendar{logger: cfg.logger, resolver: cfg.resolver}
	cs := NewCalendarStream(r)
	cont := true
	for cont {
		l, err := cs.ReadLine()
		if err != nil {
			switch err {
			case io.EOF:
				cont = false
			default:
				return c, err
			}
		}
		if l == nil || len(*l) == 0 {
			continue
		}
		line, err := ParseProperty(*l)
		if err != nil {
			return nil, &ParseError{Line: cs.LineNumber(), Reason: err.Error()}
		}
		line.Line = cs.LineNumber()
		switch state {
		case "begin":
			switch strings.ToUpper(line.IANAToken) {
			case "BEGIN":
				switch strings.ToUpper(line.Value) {
				case "VCALENDAR":
					state = "properties"
				default:
					return nil, &ParseError{Line: line.Line, Expected: "VCALENDAR", Found: line.Value, Reason: ErrMalformedCalendar.Error() + "; expected a vcalendar"}
				}
			default:
				return nil, &ParseError{Line: line.Line, Expected: "BEGIN", Found: line.IANAToken, Reason: ErrMalformedCalendar.Error() + "; expected begin"}
			}
		case "properties":
			switch strings.ToUpper(line.IANAToken) {
			case "END":
				switch strings.ToUpper(line.Value) {
				case "VCALENDAR":
					state = "end"
				default:
					return nil, &ParseError{Line: line.Line, Expected: "VCALENDAR", Found: line.Value, Reason: ErrMalformedCalendar.Error() + "; expected end"}
				}
			case "BEGIN":
				state = "components"
			default:
				// Unknown property names are retained to ensure
				// that vendor extensions or future RFC updates
				// are not lost when the calendar is parsed and
				// serialized again.
				c.CalendarProperties = append(c.CalendarProperties, CalendarProperty{*line})
			}
			if state != "components" {
				break
			}
			fallthrough
		case "components":
			switch strings.ToUpper(line.IANAToken) {
			case "END":
				switch strings.ToUpper(line.Value) {
				case "VCALENDAR":
					state = "end"
				default:
					return nil, &ParseError{Line: line.Line, Expected: "VCALENDAR", Found: line.Value, Reason: ErrMalformedCalendar.Error() + "; expected end"}
				}
			case "BEGIN":
				co, err := GeneralParseComponent(cs, line)
				if err != nil {
					return nil, err
				}
				if co != nil {
					c.Components = append(c.Components, co)
				}
			default:
				return nil, &ParseError{Line: line.Line, Found: line.IANAToken, Reason: ErrMalformedCalendar.Error() + "; expected begin or end"}
			}
		case "end":
			return nil, &ParseError{Line: line.Line, Reason: ErrMalformedCalendar.Error() + "; unexpected content after end"}
		default:
			return nil, &ParseError{Line: line.Line, Reason: ErrMalformedCalendar.Error() + "; bad state"}
		}
	}
	if state != "end" {
		return nil, &ParseError{Line: cs.LineNumber(), Expected: "END:VCALENDAR", Reason: "truncated stream"}
	}
	if err := c.interpretValues(cfg.mode); err != nil {
		return nil, err
	}
	if cfg.mode == ParseStrict {
		if err := c.validateRecurrences(); err != nil {
			return nil, err
		}
	}
	// register the document's timezones before any evaluation happens
	c.tzReg = newTimeZoneRegistry(c, cfg.resolver, cfg.logger)
	return c, nil
}

// interpretValues runs the value-type registry over every property of the
// calendar. In lenient mode failures are recorded on the property; in strict
// mode the first failure aborts.
func (cal *Calendar) interpretValues(mode ParseMode) error {
	typeProp := func(p *BaseProperty) error {
		vals, err := parseTypedValues(p)
		if err != nil {
			ve := &ValueError{Property: p.IANAToken, Line: p.Line, Reason: err.Error()}
			if mode == ParseStrict {
				return ve
			}
			p.ValueErr = ve
			if cal.logger != nil {
				cal.logger.Warn("value parse failed",
					zap.String("property", p.IANAToken),
					zap.Int("line", p.Line),
					zap.String("reason", err.Error()))
			}
			return nil
		}
		p.ParsedValues = vals
		return nil
	}
	for i := range cal.CalendarProperties {
		if err := typeProp(&cal.CalendarProperties[i].BaseProperty); err != nil {
			return err
		}
	}
	var walk func(c Component) error
	walk = func(c Component) error {
		props := c.UnknownPropertiesIANAProperties()
		for i := range props {
			if err := typeProp(&props[i].BaseProperty); err != nil {
				return err
			}
		}
		for _, sub := range c.SubComponents() {
			if err := walk(sub); err != nil {
				return err
			}
		}
		return nil
	}
	for _, c := range cal.Components {
		if err := walk(c); err != nil {
			return err
		}
	}
	return nil
}

// validateRecurrences eagerly validates every RRULE/EXRULE in the calendar,
// used by strict parsing.
func (cal *Calendar) validateRecurrences() error {
	var walk func(c Component) error
	walk = func(c Component) error {
		for _, p := range c.UnknownPropertiesIANAProperties() {
			switch strings.ToUpper(p.IANAToken) {
			case string(PropertyRrule), string(PropertyExrule):
				if r, ok := p.TypedValue().(*Recur); ok {
					if err := r.Validate(); err != nil {
						return err
					}
				}
			}
		}
		for _, sub := range c.SubComponents() {
			if err := walk(sub); err != nil {
				return err
			}
		}
		return nil
	}
	for _, c := range cal.Components {
		if err := walk(c); err != nil {
			return err
		}
	}
	return nil
}

func WithCustomClient(client *http.Client) *http.Client {
	return client
}

func WithCustomRequest(request *http.Request) *http.Request {
	return request
}

type HttpClientLike interface {
	Do(req *http.Request) (*http.Response, error)
}

// ParseCalendarFromUrl retrieves an iCalendar object from the provided URL and
// parses it.  Transport failures and non-2xx responses surface as errors, not
// as a nil calendar.
func ParseCalendarFromUrl(url string, opts ...any) (*Calendar, error) {
	var ctx context.Context
	var req *http.Request
	var client HttpClientLike = http.DefaultClient
	var parseOps []any
	for opti, opt := range opts {
		switch opt := opt.(type) {
		case *http.Client:
			client = opt
		case HttpClientLike:
			client = opt
		case func() *http.Client:
			client = opt()
		case *http.Request:
			req = opt
		case func() *http.Request:
			req = opt()
		case context.Context:
			ctx = opt
		case func() context.Context:
			ctx = opt()
		case ParseMode, *zap.Logger, TimeZoneResolver:
			parseOps = append(parseOps, opt)
		default:
			return nil, fmt.Errorf("unknown optional argument %d on ParseCalendarFromUrl: %s", opti, reflect.TypeOf(opt))
		}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		var err error
		req, err = http.NewRequestWithContext(ctx, "GET", url, nil)
		if err != nil {
			return nil, fmt.Errorf("creating http request: %w", err)
		}
	}
	return parseCalendarFromHttpRequest(client, req, parseOps)
}

func parseCalendarFromHttpRequest(client HttpClientLike, request *http.Request, parseOps []any) (*Calendar, error) {
	resp, err := client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer func(closer io.ReadCloser) {
		if derr := closer.Close(); derr != nil && err == nil {
			err = fmt.Errorf("http request close: %w", derr)
		}
	}(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("http request: unexpected status %s", resp.Status)
	}
	var cal *Calendar
	cal, err = ParseCalendar(resp.Body, parseOps...)
	// This allows the defer func to change the error
	return cal, err
}
