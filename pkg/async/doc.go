// Package async provides generic futures for running work concurrently.
//
// Async starts a function in its own goroutine and returns a *Future. Await,
// AwaitWithTimeout and IsComplete observe it. WaitAll stops at the first
// error, Settle collects every outcome, and Map fans a slice out with a bound
// on concurrent calls:
//
//	results := async.Map(ctx, userIDs, 8, func(ctx context.Context, id string) (Notification, error) {
//	    return gateway.Create(ctx, CreateInput{UserID: id, ...})
//	})
//	for _, r := range results {
//	    if r.Err != nil {
//	        // counted as a failure, siblings are unaffected
//	    }
//	}
//
// A panic inside the function completes its future with ErrPanic instead of
// crashing the process.
package async
