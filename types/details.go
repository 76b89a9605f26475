package types

import "encoding/json"

// Field is a semantic column name shared by parsers, OID catalogs and the store.
type Field string

const (
	FieldONUIndex     Field = "onu_index"
	FieldONUID        Field = "onu_id"
	FieldPONInterface Field = "pon_interface"
	FieldMACAddress   Field = "mac_address"
	FieldSerialNumber Field = "serial_number"
	FieldName         Field = "name"
	FieldDescription  Field = "description"
	FieldStatus       Field = "status"
	FieldAuthMode     Field = "auth_mode"
	FieldTxPower      Field = "tx_power"
	FieldRxPower      Field = "rx_power"
	FieldDistance     Field = "distance"
	FieldTemperature  Field = "temperature"
	FieldVoltage      Field = "voltage"
	FieldBias         Field = "bias"
	FieldChipID       Field = "chip_id"
	FieldVersion      Field = "version"
	FieldPorts        Field = "ports"
	FieldUptime       Field = "uptime"
	FieldRegisteredAt Field = "registered_at"
)

var knownFields = map[Field]struct{}{
	FieldONUIndex: {}, FieldONUID: {}, FieldPONInterface: {}, FieldMACAddress: {},
	FieldSerialNumber: {}, FieldName: {}, FieldDescription: {}, FieldStatus: {},
	FieldAuthMode: {}, FieldTxPower: {}, FieldRxPower: {}, FieldDistance: {},
	FieldTemperature: {}, FieldVoltage: {}, FieldBias: {}, FieldChipID: {},
	FieldVersion: {}, FieldPorts: {}, FieldUptime: {}, FieldRegisteredAt: {},
}

// IsKnown reports whether f belongs to the closed field set.
func (f Field) IsKnown() bool {
	_, ok := knownFields[f]
	return ok
}

// Details is a per-record detail map. Known fields are typed; anything a
// vendor reports beyond them goes to Extra.
type Details struct {
	Fields map[Field]string
	Extra  map[string]string
}

// NewDetails returns an empty, writable Details.
func NewDetails() Details {
	return Details{Fields: map[Field]string{}, Extra: map[string]string{}}
}

// Set stores a known field value.
func (d *Details) Set(f Field, v string) {
	if d.Fields == nil {
		d.Fields = map[Field]string{}
	}
	d.Fields[f] = v
}

// SetExtra stores a vendor-specific value under key.
func (d *Details) SetExtra(key, v string) {
	if d.Extra == nil {
		d.Extra = map[string]string{}
	}
	d.Extra[key] = v
}

// Get returns a known field value.
func (d Details) Get(f Field) (string, bool) {
	v, ok := d.Fields[f]
	return v, ok
}

// Len is the number of stored values.
func (d Details) Len() int {
	return len(d.Fields) + len(d.Extra)
}

// Merge copies every value of other into d, overwriting on conflict.
func (d *Details) Merge(other Details) {
	for k, v := range other.Fields {
		d.Set(k, v)
	}
	for k, v := range other.Extra {
		d.SetExtra(k, v)
	}
}

// Flatten returns a single map keyed by field name.
func (d Details) Flatten() map[string]string {
	out := make(map[string]string, d.Len())
	for k, v := range d.Extra {
		out[k] = v
	}
	for k, v := range d.Fields {
		out[string(k)] = v
	}
	return out
}

// MarshalJSON stores details as one flat object.
func (d Details) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Flatten())
}

// UnmarshalJSON splits a flat object back into known fields and extras.
func (d *Details) UnmarshalJSON(data []byte) error {
	var flat map[string]string
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	*d = NewDetails()
	for k, v := range flat {
		if f := Field(k); f.IsKnown() {
			d.Fields[f] = v
			continue
		}
		d.Extra[k] = v
	}
	return nil
}

// OIDEntry binds one semantic field to the base OID of its SNMP column.
type OIDEntry struct {
	Field Field
	OID   string
}

// OIDTable is the OID catalog for one (vendor, model).
type OIDTable struct {
	Entries []OIDEntry

	// Identifier is the field whose value identifies an ONU. Zero means
	// the adapter default.
	Identifier Field
}

// IdentifierKey is the catalog pseudo-field naming the identifier column.
const IdentifierKey = "identifier_key"

// Empty reports whether the table has no walkable entries.
func (t OIDTable) Empty() bool {
	return len(t.Entries) == 0
}

// IdentifierOr returns the configured identifier field or def.
func (t OIDTable) IdentifierOr(def Field) Field {
	if t.Identifier != "" {
		return t.Identifier
	}
	return def
}
