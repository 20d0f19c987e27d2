package domain

import "time"

// Field names an updatable attribute of a Domain. The set is closed; wire
// keys that do not map to a Field are never applied.
type Field string

const (
	FieldVersion             Field = "version"
	FieldProtocol            Field = "protocol"
	FieldNetworkAddr         Field = "network_addr"
	FieldNetworkPort         Field = "network_port"
	FieldAutomaticNetworking Field = "automatic_networking"
	FieldRestricted          Field = "restricted"
	FieldCapacity            Field = "capacity"
	FieldDescription         Field = "description"
	FieldMaturity            Field = "maturity"
	FieldRestriction         Field = "restriction"
	FieldHosts               Field = "hosts"
	FieldTags                Field = "tags"
	FieldContactInfo         Field = "contact_info"
	FieldManagers            Field = "managers"
	FieldImages              Field = "images"
	FieldThumbnail           Field = "thumbnail"
	FieldWorldName           Field = "world_name"
	FieldNumUsers            Field = "num_users"
	FieldNumAnonUsers        Field = "num_anon_users"
	FieldTimeOfLastHeartbeat Field = "time_of_last_heartbeat"
)

// ChangeSet accumulates validated values for one update call. It is
// committed to the store as a single update.
type ChangeSet map[Field]any

// Fields returns the fields present in the change-set.
func (c ChangeSet) Fields() []Field {
	out := make([]Field, 0, len(c))
	for f := range c {
		out = append(out, f)
	}
	return out
}

// Apply copies the change-set onto d. Stores use it to keep an in-memory
// copy in sync with what they persisted; values are expected to have the
// types produced by the field engine.
func (c ChangeSet) Apply(d *Domain) {
	for f, v := range c {
		switch f {
		case FieldVersion:
			d.Version = v.(string)
		case FieldProtocol:
			d.Protocol = v.(string)
		case FieldNetworkAddr:
			d.NetworkAddr = v.(string)
		case FieldNetworkPort:
			d.NetworkPort = v.(int)
		case FieldAutomaticNetworking:
			d.AutomaticNetworking = v.(AutomaticNetworking)
		case FieldRestricted:
			d.Restricted = v.(bool)
		case FieldCapacity:
			d.Capacity = v.(int)
		case FieldDescription:
			d.Description = v.(string)
		case FieldMaturity:
			d.Maturity = v.(Maturity)
		case FieldRestriction:
			d.Restriction = v.(Restriction)
		case FieldHosts:
			d.Hosts = v.([]string)
		case FieldTags:
			d.Tags = v.([]string)
		case FieldContactInfo:
			d.ContactInfo = v.(string)
		case FieldManagers:
			d.Managers = v.([]string)
		case FieldImages:
			d.Images = v.([]string)
		case FieldThumbnail:
			d.Thumbnail = v.(string)
		case FieldWorldName:
			d.WorldName = v.(string)
		case FieldNumUsers:
			d.NumUsers = v.(int)
		case FieldNumAnonUsers:
			d.NumAnonUsers = v.(int)
		case FieldTimeOfLastHeartbeat:
			if ts := v.(time.Time); ts.After(d.TimeOfLastHeartbeat) {
				d.TimeOfLastHeartbeat = ts
			}
		}
	}
}
