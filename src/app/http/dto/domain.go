package dto

import (
	"strconv"
	"time"

	"metadirectory/src/core/domain"
)

// DomainInfo is the public snapshot of a domain. It never carries the API
// key or its hash.
type DomainInfo struct {
	DomainID             string      `json:"domain_id"`
	ID                   string      `json:"id"`
	Name                 string      `json:"name"`
	Version              string      `json:"version"`
	Protocol             string      `json:"protocol"`
	NetworkAddr          string      `json:"network_address"`
	NetworkPort          string      `json:"network_port"`
	AutomaticNetworking  string      `json:"automatic_networking"`
	Restricted           bool        `json:"restricted"`
	SponsorAccountID     string      `json:"sponsor_account_id"`
	Hosts                []string    `json:"hosts"`
	Capacity             int         `json:"capacity"`
	Description          string      `json:"description"`
	Maturity             string      `json:"maturity"`
	Restriction          string      `json:"restriction"`
	Managers             []string    `json:"managers"`
	Tags                 []string    `json:"tags"`
	Meta                 DomainMeta  `json:"meta"`
	Users                DomainUsers `json:"users"`
	NumUsers             int         `json:"num_users"`
	AnonUsers            int         `json:"anon_users"`
	TotalUsers           int         `json:"total_users"`
	TimeOfLastHeartbeat  string      `json:"time_of_last_heartbeat"`
	TimeOfLastHeartbeatS string      `json:"time_of_last_heartbeat_s"`
	CreatedAt            string      `json:"when_domain_entry_created"`
}

// DomainMeta mirrors the fields accepted in the meta update shape.
type DomainMeta struct {
	Capacity    int      `json:"capacity"`
	ContactInfo string   `json:"contact_info"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
	Managers    []string `json:"managers"`
	Maturity    string   `json:"maturity"`
	Restriction string   `json:"restriction"`
	Tags        []string `json:"tags"`
	Thumbnail   string   `json:"thumbnail"`
	WorldName   string   `json:"world_name"`
}

// DomainUsers mirrors the heartbeat counters.
type DomainUsers struct {
	NumUsers     int `json:"num_users"`
	NumAnonUsers int `json:"num_anon_users"`
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// DomainInfoFromDomain builds the public snapshot of d.
func DomainInfoFromDomain(d *domain.Domain) DomainInfo {
	port := ""
	if d.NetworkPort != 0 {
		port = strconv.Itoa(d.NetworkPort)
	}
	var beat, beatS string
	if !d.TimeOfLastHeartbeat.IsZero() {
		beat = d.TimeOfLastHeartbeat.UTC().Format(time.RFC3339)
		beatS = strconv.FormatInt(d.TimeOfLastHeartbeat.Unix(), 10)
	}
	var created string
	if !d.CreatedAt.IsZero() {
		created = d.CreatedAt.UTC().Format(time.RFC3339)
	}

	return DomainInfo{
		DomainID:            d.ID,
		ID:                  d.ID,
		Name:                d.Name,
		Version:             d.Version,
		Protocol:            d.Protocol,
		NetworkAddr:         d.NetworkAddr,
		NetworkPort:         port,
		AutomaticNetworking: string(d.AutomaticNetworking),
		Restricted:          d.Restricted,
		SponsorAccountID:    d.SponsorAccountID,
		Hosts:               orEmpty(d.Hosts),
		Capacity:            d.Capacity,
		Description:         d.Description,
		Maturity:            string(d.Maturity),
		Restriction:         string(d.Restriction),
		Managers:            orEmpty(d.Managers),
		Tags:                orEmpty(d.Tags),
		Meta: DomainMeta{
			Capacity:    d.Capacity,
			ContactInfo: d.ContactInfo,
			Description: d.Description,
			Images:      orEmpty(d.Images),
			Managers:    orEmpty(d.Managers),
			Maturity:    string(d.Maturity),
			Restriction: string(d.Restriction),
			Tags:        orEmpty(d.Tags),
			Thumbnail:   d.Thumbnail,
			WorldName:   d.WorldName,
		},
		Users: DomainUsers{
			NumUsers:     d.NumUsers,
			NumAnonUsers: d.NumAnonUsers,
		},
		NumUsers:             d.NumUsers,
		AnonUsers:            d.NumAnonUsers,
		TotalUsers:           d.NumUsers + d.NumAnonUsers,
		TimeOfLastHeartbeat:  beat,
		TimeOfLastHeartbeatS: beatS,
		CreatedAt:            created,
	}
}

// UpdateInfo is returned after an accepted update.
type UpdateInfo struct {
	DomainID            string `json:"domain_id"`
	TimeOfLastHeartbeat string `json:"time_of_last_heartbeat"`
}
