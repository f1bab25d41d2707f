package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/sgdatafocus/telemetry_backend/config"
	"bitbucket.org/sgdatafocus/telemetry_backend/correlate"
	"bitbucket.org/sgdatafocus/telemetry_backend/models"
	"bitbucket.org/sgdatafocus/telemetry_backend/notify"
	"bitbucket.org/sgdatafocus/telemetry_backend/store"
	"bitbucket.org/sgdatafocus/telemetry_backend/utils"
)

// Re-runs correlation for existing tickets with a forced full relink, so
// denormalized origin/description copies on linked entities get refreshed
// after a manual ticket edit.
func main() {
	keys := flag.String("keys", "", "Comma-separated ticket keys to relink. Required.")
	useLock := flag.Bool("lock", true, "Serialize against live correlation runs via the redis lease.")
	flag.Parse()

	keyList := splitKeys(*keys)
	if len(keyList) == 0 {
		fmt.Fprintln(os.Stderr, "usage: ticket-relink -keys TICKET-1,TICKET-2")
		os.Exit(1)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	if *useLock {
		config.ConnectRedisWithRetry()
	}

	tables, err := config.GetTables()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config tables: %v\n", err)
		os.Exit(1)
	}
	docStore, err := store.NewGorm(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open document store: %v\n", err)
		os.Exit(1)
	}

	emitter := notify.NewEmitter(docStore, notify.ForEnvironment())
	engine := correlate.NewEngine(docStore, tables, emitter)

	tickets, err := store.MultiGetAs[models.Ticket](ctx, docStore, models.IndexTickets, keyList, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load tickets: %v\n", err)
		os.Exit(1)
	}

	var relinked, failed int
	for i, key := range keyList {
		ticket := tickets[i]
		if ticket == nil {
			fmt.Fprintf(os.Stderr, "ticket %s: not found\n", key)
			failed++
			continue
		}

		report := correlate.TicketReport{
			Key:         ticket.Key,
			Origin:      ticket.Origin,
			Description: ticket.Description,
			Url:         ticket.Url,
			DatatakeIds: ticket.DatatakeIds,
			Products:    ticket.Products,
			Passes:      passRefsFromKeys(ticket.AcquisitionPassKeys),
		}

		err = engine.RelinkTicket(ctx, report)
		if errors.Is(err, utils.ErrTicketBusy) {
			fmt.Fprintf(os.Stderr, "ticket %s: busy, skipped\n", key)
			failed++
			continue
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "ticket %s: %v\n", key, err)
			failed++
			continue
		}
		relinked++
	}

	fmt.Printf("ticket relink done: relinked=%d failed=%d\n", relinked, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func splitKeys(csv string) []string {
	var out []string
	for _, k := range strings.Split(csv, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func passRefsFromKeys(keys []string) []correlate.PassRef {
	out := make([]correlate.PassRef, 0, len(keys))
	for _, key := range keys {
		parts := strings.SplitN(key, "_", 4)
		if len(parts) != 4 {
			continue
		}
		out = append(out, correlate.PassRef{
			Satellite:     parts[0],
			MissionType:   parts[1],
			DownlinkOrbit: parts[2],
			GroundStation: parts[3],
		})
	}
	return out
}
