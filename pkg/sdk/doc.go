// Package lanefuse provides a Go client for the lanefuse rank-fusion engine
// backed by Valkey, Redis or an in-process store.
//
// Lanes are the ranked outputs of independent retrieval strategies. The
// client stores them, fuses them into one ranking with weighted reciprocal
// rank fusion and a code-aware boost, and keeps every run immutable so a
// ranking can be re-derived with a changed recipe and traced back later.
//
//	client, _ := lanefuse.New(ctx, lanefuse.WithValkey("localhost:6379", ""))
//	defer client.Close()
//
//	ids, _ := client.IngestLanes(ctx, []lanefuse.Lane{lexical, semantic})
//	run, _ := client.Fuse(ctx, ids, nil)
//
//	k := 30
//	child, _ := client.Mutate(ctx, run.ID(), &lanefuse.Override{RRFK: &k})
//	chain, _ := client.History(ctx, child.ID())
package lanefuse
