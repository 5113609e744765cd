package ics

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Component To determine what this is please use a type switch or typecast to each of:
// - *VEvent
// - *VTodo
// - *VBusy
// - *VJournal
// - *VTimezone
// - *VAlarm
// - *Standard
// - *Daylight
// - *GeneralComponent
type Component interface {
	UnknownPropertiesIANAProperties() []IANAProperty
	SubComponents() []Component
	ComponentType() ComponentType
	SerializeTo(b io.Writer, serialConfig *SerializationConfiguration) error
}

var (
	_ Component = (*VEvent)(nil)
	_ Component = (*VTodo)(nil)
	_ Component = (*VBusy)(nil)
	_ Component = (*VJournal)(nil)
	_ Component = (*VTimezone)(nil)
	_ Component = (*VAlarm)(nil)
	_ Component = (*Standard)(nil)
	_ Component = (*Daylight)(nil)
	_ Component = (*GeneralComponent)(nil)
)

type ComponentBase struct {
	Properties []IANAProperty
	Components []Component
}

func (cb *ComponentBase) UnknownPropertiesIANAProperties() []IANAProperty {
	return cb.Properties
}

func (cb *ComponentBase) SubComponents() []Component {
	return cb.Components
}

func (cb *ComponentBase) serializeThis(writer io.Writer, componentType ComponentType, serialConfig *SerializationConfiguration) error {
	_, _ = io.WriteString(writer, "BEGIN:"+string(componentType)+serialConfig.NewLine)
	for i := range cb.Properties {
		err := cb.Properties[i].serialize(writer, serialConfig)
		if err != nil {
			return err
		}
	}
	for _, c := range cb.Components {
		err := c.SerializeTo(writer, serialConfig)
		if err != nil {
			return err
		}
	}
	_, err := io.WriteString(writer, "END:"+string(componentType)+serialConfig.NewLine)
	return err
}

func NewComponent(uniqueId string) ComponentBase {
	return ComponentBase{
		Properties: []IANAProperty{
			{BaseProperty{IANAToken: string(ComponentPropertyUniqueId), Value: uniqueId}},
		},
	}
}

// GetProperty returns the first match for the particular property you're after.
func (cb *ComponentBase) GetProperty(componentProperty ComponentProperty) *IANAProperty {
	for i := range cb.Properties {
		if strings.EqualFold(cb.Properties[i].IANAToken, string(componentProperty)) {
			return &cb.Properties[i]
		}
	}
	return nil
}

// GetProperties returns all matches for the particular property you're after.
func (cb *ComponentBase) GetProperties(componentProperty ComponentProperty) []*IANAProperty {
	var result []*IANAProperty
	for i := range cb.Properties {
		if strings.EqualFold(cb.Properties[i].IANAToken, string(componentProperty)) {
			result = append(result, &cb.Properties[i])
		}
	}
	return result
}

// HasProperty returns true if a component property is in the component.
func (cb *ComponentBase) HasProperty(componentProperty ComponentProperty) bool {
	return cb.GetProperty(componentProperty) != nil
}

// SetProperty replaces the first match for the particular property you're setting, otherwise adds it.
func (cb *ComponentBase) SetProperty(property ComponentProperty, value string, params ...PropertyParameter) {
	for i := range cb.Properties {
		if strings.EqualFold(cb.Properties[i].IANAToken, string(property)) {
			cb.Properties[i].Value = value
			cb.Properties[i].ICalParameters = map[string][]string{}
			cb.Properties[i].ParsedValues = nil
			cb.Properties[i].ValueErr = nil
			for _, p := range params {
				k, v := p.KeyValue()
				cb.Properties[i].ICalParameters[k] = v
			}
			return
		}
	}
	cb.AddProperty(property, value, params...)
}

// ReplaceProperty replaces all matches of the particular property you're
// setting, otherwise adds it. Returns the removed properties.
func (cb *ComponentBase) ReplaceProperty(property ComponentProperty, value string, params ...PropertyParameter) []IANAProperty {
	removed := cb.RemoveProperty(property)
	cb.AddProperty(property, value, params...)
	return removed
}

// AddProperty appends a property
func (cb *ComponentBase) AddProperty(property ComponentProperty, value string, params ...PropertyParameter) {
	r := IANAProperty{
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
	cb.Properties = append(cb.Properties, r)
}

// RemoveProperty removes from the component all properties that is of a
// particular property type, returning a slice of removed entities
func (cb *ComponentBase) RemoveProperty(removeProp ComponentProperty) []IANAProperty {
	return cb.RemovePropertyByFunc(removeProp, func(IANAProperty) bool { return true })
}

// RemovePropertyByValue removes from the component all properties that have a
// particular property type and value.
func (cb *ComponentBase) RemovePropertyByValue(removeProp ComponentProperty, value string) []IANAProperty {
	return cb.RemovePropertyByFunc(removeProp, func(p IANAProperty) bool {
		return p.Value == value
	})
}

// RemovePropertyByFunc removes from the component all properties of the given
// type for which remove returns true.
func (cb *ComponentBase) RemovePropertyByFunc(removeProp ComponentProperty, remove func(p IANAProperty) bool) []IANAProperty {
	var keptProperties []IANAProperty
	var removedProperties []IANAProperty
	for i := range cb.Properties {
		if strings.EqualFold(cb.Properties[i].IANAToken, string(removeProp)) && remove(cb.Properties[i]) {
			removedProperties = append(removedProperties, cb.Properties[i])
		} else {
			keptProperties = append(keptProperties, cb.Properties[i])
		}
	}
	cb.Properties = keptProperties
	return removedProperties
}

func (cb *ComponentBase) SetCreatedTime(t time.Time, params ...PropertyParameter) {
	cb.SetProperty(ComponentPropertyCreated, t.UTC().Format(icalTimestampFormatUtc), params...)
}

func (cb *ComponentBase) SetDtStampTime(t time.Time, params ...PropertyParameter) {
	cb.SetProperty(ComponentPropertyDtstamp, t.UTC().Format(icalTimestampFormatUtc), params...)
}

func (cb *ComponentBase) SetModifiedAt(t time.Time, params ...PropertyParameter) {
	cb.SetProperty(ComponentPropertyLastModified, t.UTC().Format(icalTimestampFormatUtc), params...)
}

func (cb *ComponentBase) SetSequence(seq int, params ...PropertyParameter) {
	cb.SetProperty(ComponentPropertySequence, strconv.Itoa(seq), params...)
}

func (cb *ComponentBase) SetStartAt(t time.Time, params ...PropertyParameter) {
	cb.SetProperty(ComponentPropertyDtStart, t.UTC().Format(icalTimestampFormatUtc), params...)
}

func (cb *ComponentBase) SetAllDayStartAt(t time.Time, params ...PropertyParameter) {
	cb.SetProperty(
		ComponentPropertyDtStart,
		t.Format(icalDateFormatLocal),
		append(params, WithValue(string(ValueDataTypeDate)))...,
	)
}

func (cb *ComponentBase) SetEndAt(t time.Time, params ...PropertyParameter) {
	cb.SetProperty(ComponentPropertyDtEnd, t.UTC().Format(icalTimestampFormatUtc), params...)
}

func (cb *ComponentBase) SetAllDayEndAt(t time.Time, params ...PropertyParameter) {
	cb.SetProperty(
		ComponentPropertyDtEnd,
		t.Format(icalDateFormatLocal),
		append(params, WithValue(string(ValueDataTypeDate)))...,
	)
}

// SetDuration updates the duration of an event.
// This function will set either the end or start time of an event depending what is already given.
// The duration defines the length of a event relative to start or end time.
//
// Notice: It will not set the DURATION key of the ics - only DTSTART and DTEND will be affected.
func (cb *ComponentBase) SetDuration(d time.Duration) error {
	startProp := cb.GetProperty(ComponentPropertyDtStart)
	if startProp != nil {
		t, err := cb.GetStartAt()
		if err == nil {
			v, _ := startProp.parameterValue(ParameterValue)
			if v == string(ValueDataTypeDate) {
				cb.SetAllDayEndAt(t.Add(d))
			} else {
				cb.SetEndAt(t.Add(d))
			}
			return nil
		}
	}
	endProp := cb.GetProperty(ComponentPropertyDtEnd)
	if endProp != nil {
		t, err := cb.GetEndAt()
		if err == nil {
			v, _ := endProp.parameterValue(ParameterValue)
			if v == string(ValueDataTypeDate) {
				cb.SetAllDayStartAt(t.Add(-d))
			} else {
				cb.SetStartAt(t.Add(-d))
			}
			return nil
		}
	}
	return errors.New("start or end not yet defined")
}

// SetDurationStr sets the DURATION property from its iCalendar string form.
func (cb *ComponentBase) SetDurationStr(s string) error {
	d, err := ParseDurationValue(s)
	if err != nil {
		return err
	}
	cb.SetProperty(ComponentPropertyDuration, d.String())
	return nil
}

// GetDuration returns the typed DURATION property value.
func (cb *ComponentBase) GetDuration() (Duration, error) {
	p := cb.GetProperty(ComponentPropertyDuration)
	if p == nil {
		return Duration{}, fmt.Errorf("%w: %s", ErrorPropertyNotFound, ComponentPropertyDuration)
	}
	return ParseDurationValue(p.Value)
}

// getDateTimeProp interprets a property as a typed DateTime.
func (cb *ComponentBase) getDateTimeProp(componentProperty ComponentProperty) (DateTime, error) {
	p := cb.GetProperty(componentProperty)
	if p == nil {
		return DateTime{}, fmt.Errorf("%w: %s", ErrorPropertyNotFound, componentProperty)
	}
	return propDateTime(p)
}

func propDateTime(p *IANAProperty) (DateTime, error) {
	if dt, ok := p.TypedValue().(DateTime); ok {
		return dt, nil
	}
	tzid := ""
	if vs := p.GetParameter(ParameterTzid); len(vs) == 1 {
		tzid = vs[0]
	}
	_, dateOnly := valueKindFor(&p.BaseProperty)
	return ParseDateTimeValue(p.Value, tzid, dateOnly)
}

// getTimeProp resolves a date-time property to a time.Time without calendar
// context: UTC values map to time.UTC, floating values to time.Local, and
// TZID values go through the host timezone database when possible.
func (cb *ComponentBase) getTimeProp(componentProperty ComponentProperty, expectAllDay bool) (time.Time, error) {
	dt, err := cb.getDateTimeProp(componentProperty)
	if err != nil {
		return time.Time{}, err
	}
	if expectAllDay && dt.HasTime {
		dt.Hour, dt.Minute, dt.Second = 0, 0, 0
	}
	w := dt.wall()
	switch dt.Zone {
	case ZoneUTC:
		return w, nil
	case ZoneTZID:
		if loc, lerr := time.LoadLocation(dt.TZID); lerr == nil {
			return time.Date(dt.Year, dt.Month, dt.Day, dt.Hour, dt.Minute, dt.Second, 0, loc), nil
		}
		return time.Date(dt.Year, dt.Month, dt.Day, dt.Hour, dt.Minute, dt.Second, 0, time.Local), nil
	default:
		return time.Date(dt.Year, dt.Month, dt.Day, dt.Hour, dt.Minute, dt.Second, 0, time.Local), nil
	}
}

func (cb *ComponentBase) GetStartAt() (time.Time, error) {
	return cb.getTimeProp(ComponentPropertyDtStart, false)
}

func (cb *ComponentBase) GetEndAt() (time.Time, error) {
	return cb.getTimeProp(ComponentPropertyDtEnd, false)
}

func (cb *ComponentBase) GetAllDayStartAt() (time.Time, error) {
	return cb.getTimeProp(ComponentPropertyDtStart, true)
}

func (cb *ComponentBase) GetLastModifiedAt() (time.Time, error) {
	return cb.getTimeProp(ComponentPropertyLastModified, false)
}

func (cb *ComponentBase) GetDtStampTime() (time.Time, error) {
	return cb.getTimeProp(ComponentPropertyDtstamp, false)
}

// GetStartDateTime returns DTSTART as the typed DateTime, preserving its
// zone reference.
func (cb *ComponentBase) GetStartDateTime() (DateTime, error) {
	return cb.getDateTimeProp(ComponentPropertyDtStart)
}

// GetEndDateTime returns DTEND as the typed DateTime.
func (cb *ComponentBase) GetEndDateTime() (DateTime, error) {
	return cb.getDateTimeProp(ComponentPropertyDtEnd)
}

// IsDuring reports whether the point falls within [start, end) of the
// component, deriving the end from DTEND or DURATION.
func (cb *ComponentBase) IsDuring(point time.Time) (bool, error) {
	start, serr := cb.GetStartAt()
	end, eerr := cb.GetEndAt()
	switch {
	case serr == nil && eerr == nil:
	case serr == nil:
		d, derr := cb.GetDuration()
		if derr != nil {
			return false, nil
		}
		end = start.Add(d.TimeDuration())
	case eerr == nil:
		d, derr := cb.GetDuration()
		if derr != nil {
			return false, nil
		}
		start = end.Add(-d.TimeDuration())
	default:
		return false, ErrStartAndEndDateNotDefined
	}
	return !point.Before(start) && point.Before(end), nil
}

func (cb *ComponentBase) SetSummary(s string, params ...PropertyParameter) {
	cb.SetProperty(ComponentPropertySummary, ToText(s), params...)
}

func (cb *ComponentBase) SetStatus(s ObjectStatus, params ...PropertyParameter) {
	cb.SetProperty(ComponentPropertyStatus, string(s), params...)
}

func (cb *ComponentBase) SetDescription(s string, params ...PropertyParameter) {
	cb.SetProperty(ComponentPropertyDescription, ToText(s), params...)
}

func (cb *ComponentBase) SetLocation(s string, params ...PropertyParameter) {
	cb.SetProperty(ComponentPropertyLocation, ToText(s), params...)
}

func (cb *ComponentBase) setGeo(lat interface{}, lng interface{}, params ...PropertyParameter) {
	cb.SetProperty(ComponentPropertyGeo, fmt.Sprintf("%v;%v", lat, lng), params...)
}

func (cb *ComponentBase) SetURL(s string, params ...PropertyParameter) {
	cb.SetProperty(ComponentPropertyUrl, s, params...)
}

func (cb *ComponentBase) SetOrganizer(s string, params ...PropertyParameter) {
	if !strings.HasPrefix(s, "mailto:") {
		s = "mailto:" + s
	}

	cb.SetProperty(ComponentPropertyOrganizer, s, params...)
}

func (cb *ComponentBase) SetColor(s string, params ...PropertyParameter) {
	cb.SetProperty(ComponentPropertyColor, s, params...)
}

func (cb *ComponentBase) SetClass(c Classification, params ...PropertyParameter) {
	cb.SetProperty(ComponentPropertyClass, string(c), params...)
}

func (cb *ComponentBase) setPriority(p int, params ...PropertyParameter) {
	cb.SetProperty(ComponentPropertyPriority, strconv.Itoa(p), params...)
}

func (cb *ComponentBase) setResources(r string, params ...PropertyParameter) {
	cb.SetProperty(ComponentPropertyResources, r, params...)
}

func (cb *ComponentBase) AddAttendee(s string, params ...PropertyParameter) {
	if !strings.HasPrefix(s, "mailto:") {
		s = "mailto:" + s
	}

	cb.AddProperty(ComponentPropertyAttendee, s, params...)
}

func (cb *ComponentBase) AddExdate(s string, params ...PropertyParameter) {
	cb.AddProperty(ComponentPropertyExdate, s, params...)
}

func (cb *ComponentBase) AddExrule(s string, params ...PropertyParameter) {
	cb.AddProperty(ComponentPropertyExrule, s, params...)
}

func (cb *ComponentBase) AddRdate(s string, params ...PropertyParameter) {
	cb.AddProperty(ComponentPropertyRdate, s, params...)
}

func (cb *ComponentBase) AddRrule(s string, params ...PropertyParameter) {
	cb.AddProperty(ComponentPropertyRrule, s, params...)
}

func (cb *ComponentBase) AddAttachment(s string, params ...PropertyParameter) {
	cb.AddProperty(ComponentPropertyAttach, s, params...)
}

func (cb *ComponentBase) AddAttachmentURL(uri string, contentType string) {
	cb.AddAttachment(uri, WithFmtType(contentType))
}

func (cb *ComponentBase) AddAttachmentBinary(binary []byte, contentType string) {
	cb.AddAttachment(base64.StdEncoding.EncodeToString(binary),
		WithFmtType(contentType), WithEncoding("base64"), WithValue("binary"),
	)
}

func (cb *ComponentBase) AddComment(s string, params ...PropertyParameter) {
	cb.AddProperty(ComponentPropertyComment, ToText(s), params...)
}

func (cb *ComponentBase) AddCategory(s string, params ...PropertyParameter) {
	cb.AddProperty(ComponentPropertyCategories, ToText(s), params...)
}

type Attendee struct {
	IANAProperty
}

func (p *Attendee) Email() string {
	if strings.HasPrefix(p.Value, "mailto:") {
		return p.Value[len("mailto:"):]
	}
	return p.Value
}

func (p *Attendee) ParticipationStatus() ParticipationStatus {
	return ParticipationStatus(p.getPropertyFirst(ParameterParticipationStatus))
}

func (p *Attendee) getPropertyFirst(parameter Parameter) string {
	vs := p.GetParameter(parameter)
	if len(vs) > 0 {
		return vs[0]
	}
	return ""
}

func (cb *ComponentBase) Attendees() []*Attendee {
	var r []*Attendee
	for i := range cb.Properties {
		if strings.EqualFold(cb.Properties[i].IANAToken, string(ComponentPropertyAttendee)) {
			r = append(r, &Attendee{cb.Properties[i]})
		}
	}
	return r
}

func (cb *ComponentBase) Id() string {
	p := cb.GetProperty(ComponentPropertyUniqueId)
	if p != nil {
		return FromText(p.Value)
	}
	return ""
}

func (cb *ComponentBase) addAlarm() *VAlarm {
	a := &VAlarm{
		ComponentBase: ComponentBase{},
	}
	cb.Components = append(cb.Components, a)
	return a
}

func (cb *ComponentBase) addVAlarm(a *VAlarm) {
	cb.Components = append(cb.Components, a)
}

func (cb *ComponentBase) alarms() []*VAlarm {
	var r []*VAlarm
	for i := range cb.Components {
		switch alarm := cb.Components[i].(type) {
		case *VAlarm:
			r = append(r, alarm)
		}
	}
	return r
}

type VEvent struct {
	ComponentBase
}

func (event *VEvent) ComponentType() ComponentType { return ComponentVEvent }

func (event *VEvent) SerializeTo(w io.Writer, serialConfig *SerializationConfiguration) error {
	return event.ComponentBase.serializeThis(w, ComponentVEvent, serialConfig)
}

func (event *VEvent) Serialize(ops ...any) string {
	serialConfig, err := parseSerializeOps(ops)
	if err != nil {
		return ""
	}
	b := &strings.Builder{}
	_ = event.ComponentBase.serializeThis(b, ComponentVEvent, serialConfig)
	return b.String()
}

func NewEvent(uniqueId string) *VEvent {
	e := &VEvent{
		NewComponent(uniqueId),
	}
	return e
}

func (event *VEvent) SetEndAt(t time.Time, params ...PropertyParameter) {
	event.SetProperty(ComponentPropertyDtEnd, t.UTC().Format(icalTimestampFormatUtc), params...)
}

func (event *VEvent) SetLastModifiedAt(t time.Time, params ...PropertyParameter) {
	event.SetProperty(ComponentPropertyLastModified, t.UTC().Format(icalTimestampFormatUtc), params...)
}

func (event *VEvent) SetGeo(lat interface{}, lng interface{}, params ...PropertyParameter) {
	event.setGeo(lat, lng, params...)
}

func (event *VEvent) SetPriority(p int, params ...PropertyParameter) {
	event.setPriority(p, params...)
}

func (event *VEvent) SetResources(r string, params ...PropertyParameter) {
	event.setResources(r, params...)
}

func (event *VEvent) SetTimeTransparency(v TimeTransparency, params ...PropertyParameter) {
	event.SetProperty(ComponentPropertyTransp, string(v), params...)
}

func (event *VEvent) AddAlarm() *VAlarm {
	return event.addAlarm()
}

func (event *VEvent) AddVAlarm(a *VAlarm) {
	event.addVAlarm(a)
}

func (event *VEvent) Alarms() []*VAlarm {
	return event.alarms()
}

func (event *VEvent) GetAllDayEndAt() (time.Time, error) {
	return event.getTimeProp(ComponentPropertyDtEnd, true)
}

type VTodo struct {
	ComponentBase
}

func (todo *VTodo) ComponentType() ComponentType { return ComponentVTodo }

func (todo *VTodo) SerializeTo(w io.Writer, serialConfig *SerializationConfiguration) error {
	return todo.ComponentBase.serializeThis(w, ComponentVTodo, serialConfig)
}

func (todo *VTodo) Serialize(ops ...any) string {
	serialConfig, err := parseSerializeOps(ops)
	if err != nil {
		return ""
	}
	b := &strings.Builder{}
	_ = todo.ComponentBase.serializeThis(b, ComponentVTodo, serialConfig)
	return b.String()
}

func NewTodo(uniqueId string) *VTodo {
	e := &VTodo{
		NewComponent(uniqueId),
	}
	return e
}

func (todo *VTodo) SetCompletedAt(t time.Time, params ...PropertyParameter) {
	todo.SetProperty(ComponentPropertyCompleted, t.UTC().Format(icalTimestampFormatUtc), params...)
}

func (todo *VTodo) SetAllDayCompletedAt(t time.Time, params ...PropertyParameter) {
	params = append(params, WithValue(string(ValueDataTypeDate)))
	todo.SetProperty(ComponentPropertyCompleted, t.Format(icalDateFormatLocal), params...)
}

func (todo *VTodo) SetDueAt(t time.Time, params ...PropertyParameter) {
	todo.SetProperty(ComponentPropertyDue, t.UTC().Format(icalTimestampFormatUtc), params...)
}

func (todo *VTodo) SetAllDayDueAt(t time.Time, params ...PropertyParameter) {
	params = append(params, WithValue(string(ValueDataTypeDate)))
	todo.SetProperty(ComponentPropertyDue, t.Format(icalDateFormatLocal), params...)
}

func (todo *VTodo) SetPercentComplete(p int, params ...PropertyParameter) {
	todo.SetProperty(ComponentPropertyPercentComplete, strconv.Itoa(p), params...)
}

func (todo *VTodo) SetGeo(lat interface{}, lng interface{}, params ...PropertyParameter) {
	todo.setGeo(lat, lng, params...)
}

func (todo *VTodo) SetPriority(p int, params ...PropertyParameter) {
	todo.setPriority(p, params...)
}

func (todo *VTodo) SetResources(r string, params ...PropertyParameter) {
	todo.setResources(r, params...)
}

// SetDuration sets DUE or DTSTART so the task spans d, depending on which
// anchor is already present.
func (todo *VTodo) SetDuration(d time.Duration) error {
	t, err := todo.GetStartAt()
	if err == nil {
		todo.SetDueAt(t.Add(d))
		return nil
	}
	t, err = todo.GetDueAt()
	if err == nil {
		todo.SetStartAt(t.Add(-d))
		return nil
	}
	return errors.New("start or end not yet defined")
}

func (todo *VTodo) AddAlarm() *VAlarm {
	return todo.addAlarm()
}

func (todo *VTodo) AddVAlarm(a *VAlarm) {
	todo.addVAlarm(a)
}

func (todo *VTodo) Alarms() []*VAlarm {
	return todo.alarms()
}

func (todo *VTodo) GetDueAt() (time.Time, error) {
	return todo.getTimeProp(ComponentPropertyDue, false)
}

func (todo *VTodo) GetAllDayDueAt() (time.Time, error) {
	return todo.getTimeProp(ComponentPropertyDue, true)
}

type VJournal struct {
	ComponentBase
}

func (journal *VJournal) ComponentType() ComponentType { return ComponentVJournal }

func (journal *VJournal) SerializeTo(w io.Writer, serialConfig *SerializationConfiguration) error {
	return journal.ComponentBase.serializeThis(w, ComponentVJournal, serialConfig)
}

func NewJournal(uniqueId string) *VJournal {
	e := &VJournal{
		NewComponent(uniqueId),
	}
	return e
}

type VBusy struct {
	ComponentBase
}

func (busy *VBusy) ComponentType() ComponentType { return ComponentVFreeBusy }

func (busy *VBusy) SerializeTo(w io.Writer, serialConfig *SerializationConfiguration) error {
	return busy.ComponentBase.serializeThis(w, ComponentVFreeBusy, serialConfig)
}

func NewBusy(uniqueId string) *VBusy {
	e := &VBusy{
		NewComponent(uniqueId),
	}
	return e
}

// FreeBusyPeriods returns the typed FREEBUSY values of the component.
func (busy *VBusy) FreeBusyPeriods() []Period {
	var out []Period
	for _, p := range busy.GetProperties(ComponentPropertyFreebusy) {
		for _, v := range p.ParsedValues {
			if period, ok := v.(Period); ok {
				out = append(out, period)
			}
		}
	}
	return out
}

type VTimezone struct {
	ComponentBase
}

func (timezone *VTimezone) ComponentType() ComponentType { return ComponentVTimezone }

func (timezone *VTimezone) SerializeTo(w io.Writer, serialConfig *SerializationConfiguration) error {
	return timezone.ComponentBase.serializeThis(w, ComponentVTimezone, serialConfig)
}

func NewTimezone(tzId string) *VTimezone {
	e := &VTimezone{
		ComponentBase{
			Properties: []IANAProperty{
				{BaseProperty{IANAToken: string(ComponentPropertyTzid), Value: tzId}},
			},
		},
	}
	return e
}

// TzID returns the timezone's TZID property value.
func (timezone *VTimezone) TzID() string {
	p := timezone.GetProperty(ComponentPropertyTzid)
	if p == nil {
		return ""
	}
	return p.Value
}

func (timezone *VTimezone) AddStandard() *Standard {
	e := NewStandard()
	timezone.Components = append(timezone.Components, e)
	return e
}

func (timezone *VTimezone) AddDaylight() *Daylight {
	e := NewDaylight()
	timezone.Components = append(timezone.Components, e)
	return e
}

type VAlarm struct {
	ComponentBase
}

func (c *VAlarm) ComponentType() ComponentType { return ComponentVAlarm }

func (c *VAlarm) SerializeTo(w io.Writer, serialConfig *SerializationConfiguration) error {
	return c.ComponentBase.serializeThis(w, ComponentVAlarm, serialConfig)
}

func NewAlarm() *VAlarm {
	return &VAlarm{}
}

func (c *VAlarm) SetAction(a Action, params ...PropertyParameter) {
	c.SetProperty(ComponentPropertyAction, string(a), params...)
}

func (c *VAlarm) SetTrigger(s string, params ...PropertyParameter) {
	c.SetProperty(ComponentPropertyTrigger, s, params...)
}

type Standard struct {
	ComponentBase
}

func (standard *Standard) ComponentType() ComponentType { return ComponentStandard }

func NewStandard() *Standard {
	return &Standard{
		ComponentBase{},
	}
}

func (standard *Standard) SerializeTo(w io.Writer, serialConfig *SerializationConfiguration) error {
	return standard.ComponentBase.serializeThis(w, ComponentStandard, serialConfig)
}

type Daylight struct {
	ComponentBase
}

func (daylight *Daylight) ComponentType() ComponentType { return ComponentDaylight }

func NewDaylight() *Daylight {
	return &Daylight{
		ComponentBase{},
	}
}

func (daylight *Daylight) SerializeTo(w io.Writer, serialConfig *SerializationConfiguration) error {
	return daylight.ComponentBase.serializeThis(w, ComponentDaylight, serialConfig)
}

type GeneralComponent struct {
	ComponentBase
	Token string
}

func (general *GeneralComponent) ComponentType() ComponentType { return ComponentType(general.Token) }

func (general *GeneralComponent) SerializeTo(w io.Writer, serialConfig *SerializationConfiguration) error {
	return general.ComponentBase.serializeThis(w, ComponentType(general.Token), serialConfig)
}

func GeneralParseComponent(cs *CalendarStream, startLine *BaseProperty) (Component, error) {
	var co Component
	var err error
	switch ComponentType(strings.ToUpper(startLine.Value)) {
	case ComponentVCalendar:
		return nil, &ParseError{Line: startLine.Line, Reason: "vcalendar not where expected"}
	case ComponentVEvent:
		co, err = ParseVEvent(cs, startLine)
	case ComponentVTodo:
		co, err = ParseVTodo(cs, startLine)
	case ComponentVJournal:
		co, err = ParseVJournal(cs, startLine)
	case ComponentVFreeBusy:
		co, err = ParseVBusy(cs, startLine)
	case ComponentVTimezone:
		co, err = ParseVTimezone(cs, startLine)
	case ComponentVAlarm:
		co, err = ParseVAlarm(cs, startLine)
	case ComponentStandard:
		co, err = ParseStandard(cs, startLine)
	case ComponentDaylight:
		co, err = ParseDaylight(cs, startLine)
	default:
		co, err = ParseGeneralComponent(cs, startLine)
	}
	return co, err
}

func ParseVEvent(cs *CalendarStream, startLine *BaseProperty) (*VEvent, error) {
	r, err := ParseComponent(cs, startLine)
	if err != nil {
		return nil, fmt.Errorf("failed to parse event: %w", err)
	}
	return &VEvent{ComponentBase: r}, nil
}

func ParseVTodo(cs *CalendarStream, startLine *BaseProperty) (*VTodo, error) {
	r, err := ParseComponent(cs, startLine)
	if err != nil {
		return nil, err
	}
	return &VTodo{ComponentBase: r}, nil
}

func ParseVJournal(cs *CalendarStream, startLine *BaseProperty) (*VJournal, error) {
	r, err := ParseComponent(cs, startLine)
	if err != nil {
		return nil, err
	}
	return &VJournal{ComponentBase: r}, nil
}

func ParseVBusy(cs *CalendarStream, startLine *BaseProperty) (*VBusy, error) {
	r, err := ParseComponent(cs, startLine)
	if err != nil {
		return nil, err
	}
	return &VBusy{ComponentBase: r}, nil
}

func ParseVTimezone(cs *CalendarStream, startLine *BaseProperty) (*VTimezone, error) {
	r, err := ParseComponent(cs, startLine)
	if err != nil {
		return nil, err
	}
	return &VTimezone{ComponentBase: r}, nil
}

func ParseVAlarm(cs *CalendarStream, startLine *BaseProperty) (*VAlarm, error) {
	r, err := ParseComponent(cs, startLine)
	if err != nil {
		return nil, err
	}
	return &VAlarm{ComponentBase: r}, nil
}

func ParseStandard(cs *CalendarStream, startLine *BaseProperty) (*Standard, error) {
	r, err := ParseComponent(cs, startLine)
	if err != nil {
		return nil, err
	}
	return &Standard{ComponentBase: r}, nil
}

func ParseDaylight(cs *CalendarStream, startLine *BaseProperty) (*Daylight, error) {
	r, err := ParseComponent(cs, startLine)
	if err != nil {
		return nil, err
	}
	return &Daylight{ComponentBase: r}, nil
}

func ParseGeneralComponent(cs *CalendarStream, startLine *BaseProperty) (*GeneralComponent, error) {
	r, err := ParseComponent(cs, startLine)
	if err != nil {
		return nil, err
	}
	return &GeneralComponent{
		ComponentBase: r,
		Token:         startLine.Value,
	}, nil
}

// ParseComponent consumes lines until the END matching startLine, recursing
// into nested BEGIN blocks. BEGIN/END names match case-insensitively; a
// mismatch or a stream ending early is a ParseError.
func ParseComponent(cs *CalendarStream, startLine *BaseProperty) (ComponentBase, error) {
	cb := ComponentBase{}
	for {
		l, err := cs.ReadLine()
		if err != nil && err != io.EOF {
			return cb, err
		}
		if l == nil || len(*l) == 0 {
			if err == io.EOF {
				return cb, &ParseError{
					Line:     cs.LineNumber(),
					Expected: startLine.Value,
					Reason:   "stream ended inside component",
				}
			}
			continue
		}
		line, perr := ParseProperty(*l)
		if perr != nil {
			return cb, &ParseError{Line: cs.LineNumber(), Reason: perr.Error()}
		}
		line.Line = cs.LineNumber()
		switch strings.ToUpper(line.IANAToken) {
		case "END":
			if strings.EqualFold(line.Value, startLine.Value) {
				return cb, nil
			}
			return cb, &ParseError{
				Line:     line.Line,
				Expected: startLine.Value,
				Found:    line.Value,
				Reason:   "unbalanced END",
			}
		case "BEGIN":
			co, cerr := GeneralParseComponent(cs, line)
			if cerr != nil {
				return cb, cerr
			}
			if co != nil {
				cb.Components = append(cb.Components, co)
			}
		default:
			cb.Properties = append(cb.Properties, IANAProperty{*line})
		}
		if err == io.EOF {
			return cb, &ParseError{
				Line:     cs.LineNumber(),
				Expected: startLine.Value,
				Reason:   "stream ended inside component",
			}
		}
	}
}
