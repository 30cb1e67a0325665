// Package emitter runs one publication step for a document.
//
// An Emitter coordinates the line loader, the progress store, the formatter
// and the posting transport:
//
//   - Load the document and compute its fingerprint
//   - Resolve the stored cursor, issuing credentials for new documents
//   - Format the next unit from the cursor
//   - Post it (live) or print it (dry run)
//   - Commit the advanced cursor once delivery succeeded
//
// Usage:
//
//	store, _ := progress.OpenSQLite("tweet_books.sl3", auth.PlainSealer{}, log)
//	e, err := emitter.New(store, issuer, twitter.NewClient(cfg.Twitter, log), emitter.Options{
//	    Patterns: formatter.NewPatterns("BOOK", "CANTO"),
//	    Live:     true,
//	})
//	if err != nil {
//	    return err
//	}
//	outcome, err := e.Emit(ctx, "paradise_lost.txt")
//
// A failed delivery leaves the stored cursor untouched, so the same unit is
// produced again on the next run.
package emitter
