// Package retry runs an operation with exponential backoff.
//
// Do retries until the function succeeds, the attempts run out or the
// context ends. Errors wrapped with NonRetryable stop the loop at once:
//
//	err := retry.Do(ctx, retry.Quick(), func() error {
//	    if err := client.Connect(ctx); err != nil {
//	        if errors.IsInvalid(err) {
//	            return retry.NonRetryable(err)
//	        }
//	        return err
//	    }
//	    return nil
//	})
//
// DefaultConfig suits ordinary calls; Quick suits waiting on dependencies
// during startup.
package retry
