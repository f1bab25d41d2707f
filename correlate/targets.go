package correlate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bitbucket.org/sgdatafocus/telemetry_backend/config"
	"bitbucket.org/sgdatafocus/telemetry_backend/models"
	"bitbucket.org/sgdatafocus/telemetry_backend/store"
)

// targetClass binds one impacted entity class to its store indices, its
// concrete type and its ticket-declaration-to-entity resolution.
type targetClass struct {
	name    string
	indices []string
	decode  func(store.Document) (models.Linkable, error)
	resolve func(ctx context.Context, ticket *models.Ticket) (map[string]models.Linkable, error)
}

func (e *Engine) targetClasses() []targetClass {
	return []targetClass{
		{
			name:    "datatake",
			indices: []string{models.IndexDatatakes},
			decode:  decodeLinkable[models.Datatake],
			resolve: e.resolveDatatakes,
		},
		{
			name:    "acquisition-pass",
			indices: []string{models.IndexXBandPasses, models.IndexEdrsPasses},
			decode:  decodePass,
			resolve: e.resolvePasses,
		},
		{
			name:    "publication",
			indices: []string{models.IndexPublications, models.IndexProducts},
			decode:  decodePublication,
			resolve: e.resolvePublications,
		},
	}
}

func decodeLinkable[T any](doc store.Document) (models.Linkable, error) {
	ent, err := store.As[T](doc)
	if err != nil {
		return nil, err
	}
	linkable, ok := any(ent).(models.Linkable)
	if !ok {
		return nil, fmt.Errorf("entity %s/%s is not linkable", doc.Index, doc.ID)
	}
	return linkable, nil
}

func decodePass(doc store.Document) (models.Linkable, error) {
	switch doc.Index {
	case models.IndexEdrsPasses:
		return decodeLinkable[models.EdrsAcquisitionPass](doc)
	default:
		return decodeLinkable[models.XBandAcquisitionPass](doc)
	}
}

func decodePublication(doc store.Document) (models.Linkable, error) {
	switch doc.Index {
	case models.IndexProducts:
		return decodeLinkable[models.Product](doc)
	default:
		return decodeLinkable[models.Publication](doc)
	}
}

// resolveDatatakes maps the ticket's declared datatake ids to stored
// entities. Missions with a flat identifier scheme are addressed by
// document id, coalesced into one multi-get; others resolve through a
// datatake_id field search. Ids resolving to nothing are dropped with a
// warning.
func (e *Engine) resolveDatatakes(ctx context.Context, ticket *models.Ticket) (map[string]models.Linkable, error) {
	out := make(map[string]models.Linkable, len(ticket.DatatakeIds))

	var flat, searched []string
	for _, id := range ticket.DatatakeIds {
		if e.Tables.IsFlatDatatakeIdMission(missionOfDatatakeId(id)) {
			flat = append(flat, id)
		} else {
			searched = append(searched, id)
		}
	}

	if len(flat) > 0 {
		loader := store.NewDocumentLoader(e.Store)
		docs, err := loader.LoadMany(ctx, models.IndexDatatakes, flat)
		if err != nil {
			return nil, err
		}
		for i, doc := range docs {
			if doc == nil {
				// a ticket may still declare the field-level id form;
				// fall through to the datatake_id search
				searched = append(searched, flat[i])
				continue
			}
			dt, err := decodeLinkable[models.Datatake](*doc)
			if err != nil {
				return nil, err
			}
			out[dt.EntityID()] = dt
		}
	}

	for _, id := range searched {
		hits, err := store.SearchAs[models.Datatake](ctx, e.Store, store.Query{
			Index: models.IndexDatatakes,
			Terms: map[string]string{"datatake_id": id},
		})
		if err != nil && !errors.Is(err, store.ErrIndexMissing) {
			return nil, err
		}
		if len(hits) == 0 {
			config.LogWarn(e.Logger, "correlate/targets.go", "resolveDatatakes",
				ticket.Key, map[string]interface{}{"datatake_id": id},
				"declared datatake not found; link dropped")
			continue
		}
		for _, dt := range hits {
			out[dt.EntityID()] = dt
		}
	}
	return out, nil
}

// resolvePasses maps the ticket's composite pass keys to the pass
// entities they denote. X-Band and EDRS passes live in different indices
// with different filter fields; one key may match both.
func (e *Engine) resolvePasses(ctx context.Context, ticket *models.Ticket) (map[string]models.Linkable, error) {
	out := make(map[string]models.Linkable)
	for _, key := range ticket.AcquisitionPassKeys {
		satellite, missionType, orbit, station, ok := splitPassKey(key)
		if !ok {
			config.LogWarn(e.Logger, "correlate/targets.go", "resolvePasses",
				ticket.Key, map[string]interface{}{"pass_key": key},
				"malformed acquisition pass key; link dropped")
			continue
		}

		matched := 0

		xbandQ := store.Query{
			Index: models.IndexXBandPasses,
			Terms: map[string]string{
				"satellite_unit": satellite,
				"downlink_orbit": orbit,
				"ground_station": station,
			},
		}
		if missionType != "" {
			xbandQ.Terms["mission_type"] = missionType
		}
		xband, err := store.SearchAs[models.XBandAcquisitionPass](ctx, e.Store, xbandQ)
		if err != nil && !errors.Is(err, store.ErrIndexMissing) {
			return nil, err
		}
		for _, p := range xband {
			out[p.EntityID()] = p
			matched++
		}

		if models.StationTypeOf(station) == models.StationTypeEdrs {
			edrs, err := store.SearchAs[models.EdrsAcquisitionPass](ctx, e.Store, store.Query{
				Index: models.IndexEdrsPasses,
				Terms: map[string]string{
					"moving_satellite": satellite,
					"geo_satellite_id": station,
				},
			})
			if err != nil && !errors.Is(err, store.ErrIndexMissing) {
				return nil, err
			}
			for _, p := range edrs {
				out[p.EntityID()] = p
				matched++
			}
		}

		if matched == 0 {
			config.LogWarn(e.Logger, "correlate/targets.go", "resolvePasses",
				ticket.Key, map[string]interface{}{"pass_key": key},
				"declared acquisition pass not found; link dropped")
		}
	}
	return out, nil
}

// resolvePublications matches the ticket's expanded publication-name set
// against both the publication and the product inventories.
func (e *Engine) resolvePublications(ctx context.Context, ticket *models.Ticket) (map[string]models.Linkable, error) {
	out := make(map[string]models.Linkable)
	if len(ticket.Publications) == 0 {
		return out, nil
	}

	pubs, err := store.SearchAs[models.Publication](ctx, e.Store, store.Query{
		Index:    models.IndexPublications,
		TermsAny: map[string][]string{"name": ticket.Publications},
	})
	if err != nil && !errors.Is(err, store.ErrIndexMissing) {
		return nil, err
	}
	for _, p := range pubs {
		out[p.EntityID()] = p
	}

	products, err := store.SearchAs[models.Product](ctx, e.Store, store.Query{
		Index:    models.IndexProducts,
		TermsAny: map[string][]string{"name": ticket.Publications},
	})
	if err != nil && !errors.Is(err, store.ErrIndexMissing) {
		return nil, err
	}
	for _, p := range products {
		out[p.EntityID()] = p
	}

	if len(out) == 0 && len(ticket.Products) > 0 {
		config.LogWarn(e.Logger, "correlate/targets.go", "resolvePublications",
			ticket.Key, map[string]interface{}{"products": ticket.Products},
			"no publication or product matched the declared names")
	}
	return out, nil
}

// publicationSuffixes are the container extensions dissemination
// interfaces append to the same logical product name.
var publicationSuffixes = []string{".zip", ".tar", ".SAFE.zip", ".SEN3.zip"}

// publicationNameVariants expands product names into every plausible
// published file name, so a ticket declaring "X.SAFE.zip" still matches
// an inventory entry named "X".
func publicationNameVariants(names []string) []string {
	var out []string
	for _, name := range names {
		base := name
		for _, suffix := range publicationSuffixes {
			base = strings.TrimSuffix(base, suffix)
		}
		out = append(out, base)
		for _, suffix := range publicationSuffixes {
			out = append(out, base+suffix)
		}
	}
	return dedupeTrimmed(out)
}

func missionOfDatatakeId(id string) string {
	if len(id) < 2 {
		return id
	}
	return strings.ToUpper(id[:2])
}

// splitPassKey reverses models.PassKey: SAT_TYPE_ORBIT_STATION, where the
// station segment may itself contain underscores.
func splitPassKey(key string) (satellite, missionType, orbit, station string, ok bool) {
	parts := strings.SplitN(key, "_", 4)
	if len(parts) != 4 {
		return "", "", "", "", false
	}
	return parts[0], parts[1], parts[2], parts[3], true
}
