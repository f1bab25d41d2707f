// Package correlate keeps the many-to-many link set between anomaly
// tickets and the consolidated entities they impact in sync with what
// each ticket currently claims.
package correlate

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"bitbucket.org/sgdatafocus/telemetry_backend/config"
	"bitbucket.org/sgdatafocus/telemetry_backend/models"
	"bitbucket.org/sgdatafocus/telemetry_backend/notify"
	"bitbucket.org/sgdatafocus/telemetry_backend/store"
)

// PassRef is an acquisition-pass tuple as declared by an anomaly report,
// before normalization into a composite key.
type PassRef struct {
	Satellite     string `json:"satellite" binding:"required"`
	MissionType   string `json:"mission_type"`
	DownlinkOrbit string `json:"downlink_orbit"`
	GroundStation string `json:"ground_station"`
}

// TicketReport is one incoming anomaly report: the ticket's propagated
// attributes plus its declared impact sets.
type TicketReport struct {
	Key         string    `json:"key" binding:"required"`
	Origin      string    `json:"origin"`
	Description string    `json:"description"`
	Url         string    `json:"url"`
	DatatakeIds []string  `json:"datatake_ids"`
	Passes      []PassRef `json:"acquisition_passes"`
	Products    []string  `json:"products"`
}

type Engine struct {
	Store   store.Store
	Tables  *config.Tables
	Emitter *notify.Emitter
	Logger  *logrus.Logger
}

func NewEngine(s store.Store, tables *config.Tables, emitter *notify.Emitter) *Engine {
	return &Engine{
		Store:   s,
		Tables:  tables,
		Emitter: emitter,
		Logger:  config.GetLogger(),
	}
}

// CorrelateTicket runs one full reconciliation for a ticket under a
// per-ticket lease. Returns utils.ErrTicketBusy when another run already
// holds the lease.
func (e *Engine) CorrelateTicket(ctx context.Context, report TicketReport) error {
	return withTicketLock(ctx, report.Key, func(ctx context.Context) error {
		ticket, err := e.consolidateTicket(ctx, report)
		if err != nil {
			return err
		}
		return e.applyTicket(ctx, ticket)
	})
}

// RelinkTicket runs one reconciliation with the full-relink flag forced,
// regardless of attribute changes. Used by operational tooling after
// manual ticket edits.
func (e *Engine) RelinkTicket(ctx context.Context, report TicketReport) error {
	return withTicketLock(ctx, report.Key, func(ctx context.Context) error {
		ticket, err := e.consolidateTicket(ctx, report)
		if err != nil {
			return err
		}
		ticket.UpdateAllEntities = true
		return e.applyTicket(ctx, ticket)
	})
}

func (e *Engine) applyTicket(ctx context.Context, ticket *models.Ticket) error {
	var actions []store.Action

	for _, class := range e.targetClasses() {
		target, err := class.resolve(ctx, ticket)
		if err != nil {
			return err
		}
		existing, err := e.linkedEntities(ctx, class, ticket.Key)
		if err != nil {
			return err
		}
		classActions, err := reconcileLinks(ticket, target, existing)
		if err != nil {
			return err
		}
		actions = append(actions, classActions...)
	}

	ticketDoc, err := store.DocumentFor(ticket)
	if err != nil {
		return err
	}
	actions = append(actions, store.UpsertAction(ticketDoc))

	return e.Emitter.Flush(ctx, actions)
}

// consolidateTicket gets or creates the ticket by its natural key, copies
// the propagated attributes, raises the full-relink flag when they
// changed, and normalizes the declared impact sets.
func (e *Engine) consolidateTicket(ctx context.Context, report TicketReport) (*models.Ticket, error) {
	now := time.Now().UTC()

	existing, err := store.GetAs[models.Ticket](ctx, e.Store, models.IndexTickets, report.Key)
	if err != nil && !errors.Is(err, store.ErrIndexMissing) {
		return nil, err
	}

	ticket := existing
	if ticket == nil {
		ticket = &models.Ticket{Id: report.Key, Key: report.Key, CreatedAt: now}
	} else if ticket.Origin != report.Origin || ticket.Description != report.Description {
		ticket.UpdateAllEntities = true
	}

	ticket.Origin = report.Origin
	ticket.Description = report.Description
	ticket.Url = report.Url
	ticket.UpdatedAt = now

	ticket.DatatakeIds = dedupeTrimmed(report.DatatakeIds)

	ticket.AcquisitionPassKeys = ticket.AcquisitionPassKeys[:0]
	for _, p := range report.Passes {
		ticket.AcquisitionPassKeys = append(ticket.AcquisitionPassKeys,
			models.PassKey(p.Satellite, p.MissionType, p.DownlinkOrbit, p.GroundStation))
	}
	ticket.AcquisitionPassKeys = dedupeTrimmed(ticket.AcquisitionPassKeys)

	ticket.Products = dedupeTrimmed(report.Products)
	ticket.Publications = publicationNameVariants(ticket.Products)

	return ticket, nil
}

// linkedEntities fetches the entities of one class currently carrying the
// ticket's key. A missing index means none are linked yet.
func (e *Engine) linkedEntities(ctx context.Context, class targetClass, key string) ([]models.Linkable, error) {
	var out []models.Linkable
	for _, index := range class.indices {
		q := store.Query{
			Index:    index,
			Contains: map[string]string{"ticket_ids": key},
		}
		docs, err := e.Store.Search(ctx, q)
		if errors.Is(err, store.ErrIndexMissing) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, doc := range docs {
			ent, err := class.decode(doc)
			if err != nil {
				return nil, err
			}
			out = append(out, ent)
		}
	}
	return out, nil
}

// reconcileLinks applies the diff law for one entity class:
// to_link = target when a full relink is forced, target minus existing
// otherwise; to_unlink = existing minus target, always incremental.
func reconcileLinks(ticket *models.Ticket, target map[string]models.Linkable, existing []models.Linkable) ([]store.Action, error) {
	existingByID := make(map[string]models.Linkable, len(existing))
	for _, ent := range existing {
		existingByID[ent.EntityID()] = ent
	}

	toLink := make([]string, 0, len(target))
	for id := range target {
		if _, linked := existingByID[id]; ticket.UpdateAllEntities || !linked {
			toLink = append(toLink, id)
		}
	}
	sort.Strings(toLink)

	var actions []store.Action
	for _, id := range toLink {
		ent := target[id]
		ids, _ := models.LinkAppend(ent.GetTicketIDs(), ticket.Key)
		ent.SetTicketIDs(ids)
		ent.SetLastAttachedTicket(ticket.Key, ticket.Origin, ticket.Description)
		doc, err := store.DocumentFor(ent)
		if err != nil {
			return nil, err
		}
		actions = append(actions, store.UpsertAction(doc))
	}

	toUnlink := make([]models.Linkable, 0)
	for id, ent := range existingByID {
		if _, wanted := target[id]; !wanted {
			toUnlink = append(toUnlink, ent)
		}
	}
	sort.Slice(toUnlink, func(i, j int) bool {
		return toUnlink[i].EntityID() < toUnlink[j].EntityID()
	})

	for _, ent := range toUnlink {
		ids, removed := models.LinkRemove(ent.GetTicketIDs(), ticket.Key)
		if !removed {
			continue
		}
		ent.SetTicketIDs(ids)
		ent.ClearLastAttachedTicket()
		doc, err := store.DocumentFor(ent)
		if err != nil {
			return nil, err
		}
		actions = append(actions, store.UpsertAction(doc))
	}

	return actions, nil
}

func dedupeTrimmed(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
