// Package task runs background jobs. The database is the queue: a Pool of
// workers claims pending jobs from a store.JobStore, dispatches each one to
// the Handler registered for its kind, and records the outcome.
//
// A job runs at most once. Handler errors fail the job; they never stop a
// worker. Storage failures while recording an outcome are logged and leave
// the job as it was. An unknown kind or a rejected state transition is a
// programming error and is reported on Pool.Fatal.
package task
