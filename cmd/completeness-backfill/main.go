package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/sgdatafocus/telemetry_backend/completeness"
	"bitbucket.org/sgdatafocus/telemetry_backend/config"
	"bitbucket.org/sgdatafocus/telemetry_backend/models"
	"bitbucket.org/sgdatafocus/telemetry_backend/notify"
	"bitbucket.org/sgdatafocus/telemetry_backend/store"
	"bitbucket.org/sgdatafocus/telemetry_backend/utils"
)

func main() {
	mission := flag.String("mission", "", "Optional: restrict to one mission (e.g. S2). If empty, all missions.")
	satellite := flag.String("satellite", "", "Optional: restrict to one satellite unit (e.g. S2A).")
	from := flag.String("from", "", "Optional: observation start lower bound (RFC3339 or YYYYMMDDTHHMMSS).")
	to := flag.String("to", "", "Optional: observation start upper bound (exclusive).")
	dryRun := flag.Bool("dry-run", false, "List the datatakes that would be recomputed without writing.")
	flag.Parse()

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
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

	q := store.Query{Index: models.IndexDatatakes, Terms: map[string]string{}}
	if m := strings.ToUpper(strings.TrimSpace(*mission)); m != "" {
		q.Terms["mission"] = m
	}
	if s := strings.ToUpper(strings.TrimSpace(*satellite)); s != "" {
		q.Terms["satellite_unit"] = s
	}
	var rng store.RangeFilter
	rng.Field = "observation_time_start"
	if strings.TrimSpace(*from) != "" {
		t, ok := utils.ParseTimeFlexible(*from)
		if !ok {
			fmt.Fprintf(os.Stderr, "invalid -from: %q\n", *from)
			os.Exit(1)
		}
		rng.GTE = &t
	}
	if strings.TrimSpace(*to) != "" {
		t, ok := utils.ParseTimeFlexible(*to)
		if !ok {
			fmt.Fprintf(os.Stderr, "invalid -to: %q\n", *to)
			os.Exit(1)
		}
		rng.LT = &t
	}
	if rng.GTE != nil || rng.LT != nil {
		q.Ranges = append(q.Ranges, rng)
	}

	docs, err := docStore.Search(ctx, q)
	if errors.Is(err, store.ErrIndexMissing) {
		fmt.Println("no datatakes consolidated yet; nothing to do")
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list datatakes: %v\n", err)
		os.Exit(1)
	}
	if len(docs) == 0 {
		fmt.Println("no datatakes matched the filters; nothing to do")
		return
	}

	if *dryRun {
		for _, doc := range docs {
			fmt.Println(doc.ID)
		}
		fmt.Printf("dry run: %d datatakes would be recomputed\n", len(docs))
		return
	}

	emitter := notify.NewEmitter(docStore, notify.ForEnvironment())
	engine := completeness.NewEngine(docStore, tables, emitter)

	var computed, failed int
	for _, doc := range docs {
		if err := engine.ComputeForDatatakeID(ctx, doc.ID); err != nil {
			fmt.Fprintf(os.Stderr, "datatake %s: %v\n", doc.ID, err)
			failed++
			continue
		}
		computed++
	}
	fmt.Printf("completeness backfill done: computed=%d failed=%d\n", computed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}
