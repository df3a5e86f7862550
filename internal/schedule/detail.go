package schedule

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Category identifies the kind of a scheduled event.
type Category string

// Known categories. The set is open: unknown kinds decode to Other.
const (
	CategoryConsultation  Category = "consultation"
	CategoryPreEmployment Category = "preemployment"
	CategoryMeeting       Category = "meeting"
	CategoryMaintenance   Category = "maintenance"
)

// Categories lists the known categories in display order.
var Categories = []Category{
	CategoryConsultation,
	CategoryPreEmployment,
	CategoryMeeting,
	CategoryMaintenance,
}

// Detail carries the category-specific attributes of an event.
// The implementations in this package are the only variants.
type Detail interface {
	Category() Category
	isDetail()
}

// Consultation is a patient visit with a doctor.
type Consultation struct {
	Patient  string
	Doctor   string
	Location string
}

// PreEmployment is a pre-employment medical exam.
type PreEmployment struct {
	Patient  string
	Examiner string
	Location string
}

// Meeting is a staff meeting or seminar.
type Meeting struct {
	Attendees int
	Location  string
}

// Maintenance is scheduled equipment maintenance.
type Maintenance struct {
	Equipment  string
	Technician string
	Location   string
}

// Other holds any kind this package does not model explicitly.
type Other struct {
	Kind   Category
	Fields map[string]string
}

func (Consultation) Category() Category  { return CategoryConsultation }
func (PreEmployment) Category() Category { return CategoryPreEmployment }
func (Meeting) Category() Category       { return CategoryMeeting }
func (Maintenance) Category() Category   { return CategoryMaintenance }

func (o Other) Category() Category {
	if o.Kind == "" {
		return "other"
	}
	return o.Kind
}

func (Consultation) isDetail()  {}
func (PreEmployment) isDetail() {}
func (Meeting) isDetail()       {}
func (Maintenance) isDetail()   {}
func (Other) isDetail()         {}

// DetailSummary is the flattened view the appointment tables show.
type DetailSummary struct {
	Patient  string
	Doctor   string
	Location string
}

// Summarize flattens a detail into patient, doctor and location.
func Summarize(d Detail) DetailSummary {
	switch v := d.(type) {
	case nil:
		return DetailSummary{}
	case Consultation:
		return DetailSummary{Patient: v.Patient, Doctor: v.Doctor, Location: v.Location}
	case PreEmployment:
		return DetailSummary{Patient: v.Patient, Doctor: v.Examiner, Location: v.Location}
	case Meeting:
		return DetailSummary{Location: v.Location}
	case Maintenance:
		return DetailSummary{Location: v.Location}
	case Other:
		return DetailSummary{
			Patient:  v.Fields["patient"],
			Doctor:   v.Fields["doctor"],
			Location: v.Fields["location"],
		}
	default:
		panic(fmt.Sprintf("schedule: unhandled detail %T", d))
	}
}

// resourceJSON is the flat "resource" bag used on the wire.
type resourceJSON struct {
	Type       Category `json:"type"`
	Patient    string   `json:"patient,omitempty"`
	Doctor     string   `json:"doctor,omitempty"`
	Examiner   string   `json:"examiner,omitempty"`
	Attendees  *int     `json:"attendees,omitempty"`
	Equipment  string   `json:"equipment,omitempty"`
	Technician string   `json:"technician,omitempty"`
	Location   string   `json:"location,omitempty"`
}

// MarshalDetail encodes a detail as a resource bag tagged with its type.
func MarshalDetail(d Detail) ([]byte, error) {
	switch v := d.(type) {
	case Consultation:
		return json.Marshal(resourceJSON{Type: CategoryConsultation, Patient: v.Patient, Doctor: v.Doctor, Location: v.Location})
	case PreEmployment:
		return json.Marshal(resourceJSON{Type: CategoryPreEmployment, Patient: v.Patient, Examiner: v.Examiner, Location: v.Location})
	case Meeting:
		attendees := v.Attendees
		return json.Marshal(resourceJSON{Type: CategoryMeeting, Attendees: &attendees, Location: v.Location})
	case Maintenance:
		return json.Marshal(resourceJSON{Type: CategoryMaintenance, Equipment: v.Equipment, Technician: v.Technician, Location: v.Location})
	case Other:
		bag := make(map[string]string, len(v.Fields)+1)
		for k, val := range v.Fields {
			bag[k] = val
		}
		bag["type"] = string(v.Category())
		return json.Marshal(bag)
	case nil:
		return []byte("null"), nil
	default:
		return nil, fmt.Errorf("unsupported detail %T", d)
	}
}

// UnmarshalDetail decodes a resource bag. A missing type reads as a
// consultation; unknown types are kept as Other with their string fields.
func UnmarshalDetail(data []byte) (Detail, error) {
	var r resourceJSON
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decoding resource: %w", err)
	}

	switch r.Type {
	case "", CategoryConsultation:
		return Consultation{Patient: r.Patient, Doctor: r.Doctor, Location: r.Location}, nil
	case CategoryPreEmployment:
		return PreEmployment{Patient: r.Patient, Examiner: r.Examiner, Location: r.Location}, nil
	case CategoryMeeting:
		m := Meeting{Location: r.Location}
		if r.Attendees != nil {
			m.Attendees = *r.Attendees
		}
		return m, nil
	case CategoryMaintenance:
		return Maintenance{Equipment: r.Equipment, Technician: r.Technician, Location: r.Location}, nil
	}

	var bag map[string]any
	if err := json.Unmarshal(data, &bag); err != nil {
		return nil, fmt.Errorf("decoding resource fields: %w", err)
	}
	fields := make(map[string]string, len(bag))
	for k, v := range bag {
		if k == "type" || v == nil {
			continue
		}
		fields[k] = fmt.Sprint(v)
	}
	return Other{Kind: r.Type, Fields: fields}, nil
}

// DetailFields lists a detail's populated attributes as sorted key/value
// pairs. Used by exporters that have no structured slot for them.
func DetailFields(d Detail) [][2]string {
	raw, err := MarshalDetail(d)
	if err != nil || d == nil {
		return nil
	}
	var bag map[string]any
	if err := json.Unmarshal(raw, &bag); err != nil {
		return nil
	}
	out := make([][2]string, 0, len(bag))
	for k, v := range bag {
		if k == "type" {
			continue
		}
		out = append(out, [2]string{k, fmt.Sprint(v)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}
