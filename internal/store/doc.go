// Package store defines the persistence contracts for jobs and playlists.
// The job table doubles as the work queue: claiming, completing and failing a
// job are single conditional updates, so implementations need no in-process
// locking to keep at most one worker on a job.
package store
