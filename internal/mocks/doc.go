// Package mocks provides shared test doubles for the store and port interfaces.
//
// The store mocks are in-memory implementations with the same transition
// rules as the real stores. Each exported ...Fn field, when set, replaces the
// in-memory behavior of one method so a test can inject a failure:
//
//	jobs := mocks.NewMockJobStore()
//	jobs.CompleteFn = func(ctx context.Context, id uuid.UUID, r domain.JobResult) error {
//	    return store.NewStoreError("job", "completed", "connection reset", nil)
//	}
//
// MockRenderer is a testify mock; set expectations with On.
package mocks
