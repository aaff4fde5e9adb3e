// Package httputil provides HTTP helpers shared by remote layout engines.
//
// [Retry] re-runs an operation with exponential backoff, but only for errors
// the caller marked as transient by wrapping them in [RetryableError]
// (network failures, 5xx responses). Any other error ends the loop at once:
//
//	err := httputil.Retry(ctx, 3, time.Second, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return &httputil.RetryableError{Err: err}
//	    }
//	    ...
//	})
//
// With attempts set to 1 the operation runs exactly once, which is the
// default for layout engines: a failed layout is reported to the caller
// rather than silently repeated.
package httputil
