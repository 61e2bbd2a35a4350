package intel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"cyberintel-backend/lib/dateutil"
	"cyberintel-backend/lib/intelstore"

	"github.com/go-resty/resty/v2"
)

// STIX bundle shapes, only the fields the intrusion-set objects carry.
type stixBundle struct {
	Objects []stixObject `json:"objects"`
}

type stixObject struct {
	Type               string            `json:"type"`
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	Aliases            []string          `json:"aliases"`
	Country            string            `json:"country"`
	PrimaryMotivation  string            `json:"primary_motivation"`
	FirstSeen          string            `json:"first_seen"`
	LastSeen           string            `json:"last_seen"`
	ExternalReferences []stixExternalRef `json:"external_references"`
}

type stixExternalRef struct {
	SourceName string `json:"source_name"`
	ExternalId string `json:"external_id"`
	Url        string `json:"url"`
}

var stixTimeFormats = []string{"2006-01-02T15:04:05Z", "2006-01-02T15:04:05.000Z"}

// ExtractStixGroups pulls threat actors out of a STIX attack bundle
// (the MITRE enterprise-attack JSON). Objects other than
// intrusion-sets are ignored, a group without a name is skipped.
func ExtractStixGroups(ctx context.Context, src Source, ep Endpoint, res *resty.Response) ([]intelstore.Record, error) {
	var bundle stixBundle
	err := json.Unmarshal(res.Body(), &bundle)
	if err != nil {
		return nil, err
	}

	var records []intelstore.Record
	for _, obj := range bundle.Objects {
		if obj.Type != "intrusion-set" {
			continue
		}
		if obj.Name == "" {
			slog.DebugContext(ctx, "skipping unnamed intrusion set", "source", src.Name)
			continue
		}

		var capabilities []string
		groupId := ""
		for _, ref := range obj.ExternalReferences {
			if ref.SourceName != "mitre-attack" || ref.Url == "" {
				continue
			}
			if ref.ExternalId != "" {
				capabilities = append(capabilities, ref.ExternalId)
				if groupId == "" {
					groupId = ref.ExternalId
				}
			}
		}

		sourceUrl := src.BaseUrl
		if groupId != "" {
			sourceUrl = fmt.Sprintf("%s/groups/%s", src.BaseUrl, groupId)
		}

		records = append(records, intelstore.ThreatActor{
			Name:         obj.Name,
			Aliases:      obj.Aliases,
			Description:  obj.Description,
			Country:      obj.Country,
			Motivation:   obj.PrimaryMotivation,
			FirstSeen:    dateutil.Parse(ctx, obj.FirstSeen, stixTimeFormats),
			LastSeen:     dateutil.Parse(ctx, obj.LastSeen, stixTimeFormats),
			Capabilities: capabilities,
			Source:       src.Name,
			SourceUrl:    sourceUrl,
		})
	}

	return records, nil
}
